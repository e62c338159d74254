// Package cli implements the cloudconfig command-line tool on top of the
// client SDK.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cloudconfig/internal/client"
	"github.com/dmitrijs2005/cloudconfig/internal/client/config"
	"github.com/dmitrijs2005/cloudconfig/internal/netx"
)

// API is the part of the SDK the commands use.
type API interface {
	ListProjects(ctx context.Context) ([]client.Project, error)
	ListConfigs(ctx context.Context, projectID string) ([]client.ConfigEntry, error)
	GetConfig(ctx context.Context, projectID, key string) (*client.ConfigEntry, error)
	PutConfig(ctx context.Context, projectID, key, value string) (*client.ConfigEntry, error)
	CreateClient(ctx context.Context, name string) (*client.CreatedClient, error)
	ListClients(ctx context.Context) ([]client.Identity, error)
	DeleteClient(ctx context.Context, clientID string) error
	CreateProject(ctx context.Context, name, description string) (*client.Project, error)
	Grant(ctx context.Context, clientID, projectID string, canRead, canWrite bool) (*client.Permission, error)
	ListPermissions(ctx context.Context, clientID string) ([]client.Permission, error)
	Revoke(ctx context.Context, clientID, projectID string) error
	Snapshot(ctx context.Context, projectID string) (*client.Snapshot, error)
}

var errUsage = errors.New("usage")

type command struct {
	usage string
	args  int
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"projects":       {usage: "projects", args: 0, run: (*App).projects},
	"configs":        {usage: "configs <project-id>", args: 1, run: (*App).configs},
	"get":            {usage: "get <project-id> <key>", args: 2, run: (*App).get},
	"set":            {usage: "set <project-id> <key> <json>", args: 3, run: (*App).set},
	"clients":        {usage: "clients", args: 0, run: (*App).clients},
	"create-client":  {usage: "create-client <name> [key-file]", args: 1, run: (*App).createClient},
	"delete-client":  {usage: "delete-client <client-id>", args: 1, run: (*App).deleteClient},
	"create-project": {usage: "create-project <name> [description]", args: 1, run: (*App).createProject},
	"grant":          {usage: "grant <client-id> <project-id> [read|write]", args: 2, run: (*App).grant},
	"revoke":         {usage: "revoke <client-id> <project-id>", args: 2, run: (*App).revoke},
	"permissions":    {usage: "permissions <client-id>", args: 1, run: (*App).permissions},
	"snapshot":       {usage: "snapshot <project-id> [output-file]", args: 1, run: (*App).snapshot},
}

var commandOrder = []string{
	"projects", "configs", "get", "set",
	"clients", "create-client", "delete-client", "create-project",
	"grant", "revoke", "permissions", "snapshot",
}

type App struct {
	api      API
	out      io.Writer
	download func(ctx context.Context, url string) ([]byte, error)
}

func NewApp(api API, out io.Writer) *App {
	return &App{
		api: api,
		out: out,
		download: func(ctx context.Context, url string) ([]byte, error) {
			return netx.DownloadPresignedURL(ctx, nil, url)
		},
	}
}

// NewAppFromConfig loads the signing key named in cfg and builds an App
// talking to cfg.ServerURL.
func NewAppFromConfig(cfg *config.Config, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	signer, err := client.LoadSigner(cfg.ClientID, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	return NewApp(client.New(cfg.ServerURL, signer, client.WithTimeout(cfg.Timeout)), out), nil
}

// Run executes the command named by args[0] with the remaining words.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		a.printUsage()
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		a.printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	if len(args)-1 < cmd.args {
		return fmt.Errorf("%w: cloudconfig %s", errUsage, cmd.usage)
	}

	return cmd.run(a, ctx, args[1:])
}

func (a *App) printUsage() {
	fmt.Fprintln(a.out, "usage: cloudconfig [-a url] [-u client-id] [-k key.pem] [-c config] <command>")
	fmt.Fprintln(a.out)
	for _, name := range commandOrder {
		fmt.Fprintln(a.out, "  "+commands[name].usage)
	}
}
