// Package server wires the CloudConfig server together: storage, services,
// bootstrap, nonce pruning and the HTTP API, plus graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/logging"
	"github.com/dmitrijs2005/cloudconfig/internal/server/config"
	"github.com/dmitrijs2005/cloudconfig/internal/server/database"
	"github.com/dmitrijs2005/cloudconfig/internal/server/httpapi"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cloudconfig/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	services    *httpapi.Services
	provisioner *services.Provisioner
	pruner      *services.NoncePruner
}

// NewApp opens and migrates the database and builds every service.
// Credentials minted by bootstrap or reset are printed to out.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger, out io.Writer) (*App, error) {

	db, dialect, err := database.OpenAndMigrate(ctx, c.DatabaseURL, c.DatabaseAuthToken)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewRepositoryManager(dialect)

	svc := &httpapi.Services{
		Auth:        services.NewAuthenticator(db, m, services.NewReplayGuard(db, m, c.MaxClockDrift)),
		Access:      services.NewResolver(db, m),
		Identities:  services.NewIdentityService(db, m),
		Projects:    services.NewProjectService(db, m),
		Configs:     services.NewConfigService(db, m),
		Permissions: services.NewPermissionService(db, m),
	}
	if c.SnapshotsEnabled() {
		svc.Snapshots = services.NewSnapshotService(db, m, c)
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		services:    svc,
		provisioner: services.NewProvisioner(db, m, out, logger.With("module", "bootstrap")),
		pruner:      services.NewNoncePruner(db, m, c.NonceRetention, c.NoncePruneInterval, logger.With("module", "nonce_pruner")),
	}, nil
}

func (app *App) Close() error {
	return app.db.Close()
}

// Bootstrap creates the first administrator if the identity store is empty.
func (app *App) Bootstrap(ctx context.Context) (services.BootstrapResult, error) {
	return app.provisioner.Run(ctx)
}

// Reset mints an additional administrator named name.
func (app *App) Reset(ctx context.Context, name string) error {
	_, err := app.provisioner.MintAdmin(ctx, name)
	return err
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) newHTTPServer() *httpapi.Server {
	return httpapi.NewServer(httpapi.Options{
		Address:        app.config.ListenAddr,
		MaxBodySize:    app.config.MaxBodySize,
		RequestTimeout: app.config.RequestTimeout,
	}, app.logger, app.services)
}

// Run bootstraps, then serves until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "remote_db", app.config.IsRemote())

	app.initSignalHandler(cancelFunc)

	result, err := app.Bootstrap(ctx)
	if err != nil {
		return err
	}
	app.logger.Info(ctx, "bootstrap finished", "result", result.String())

	var (
		wg        sync.WaitGroup
		serverErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.pruner.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.newHTTPServer().Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			serverErr = err
			cancelFunc()
		}
	}()

	wg.Wait()

	return serverErr
}

// Status probes GET /health on addr and returns an error unless it answers 200.
func Status(ctx context.Context, addr string, timeout time.Duration) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := "http://" + net.JoinHostPort(host, port) + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	return nil
}
