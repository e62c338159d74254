package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/filex"
)

func (a *App) table(header string, rows func(w *tabwriter.Writer)) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

func (a *App) projects(ctx context.Context, _ []string) error {
	list, err := a.api.ListProjects(ctx)
	if err != nil {
		return err
	}
	return a.table("ID\tNAME\tDESCRIPTION", func(w *tabwriter.Writer) {
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
		}
	})
}

func (a *App) configs(ctx context.Context, args []string) error {
	list, err := a.api.ListConfigs(ctx, args[0])
	if err != nil {
		return err
	}
	return a.table("KEY\tVERSION\tUPDATED\tVALUE", func(w *tabwriter.Writer) {
		for _, e := range list {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", e.Key, e.Version, e.UpdatedAt.Format(time.RFC3339), e.Value)
		}
	})
}

// get prints only the stored JSON text so the output can be piped.
func (a *App) get(ctx context.Context, args []string) error {
	entry, err := a.api.GetConfig(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, entry.Value)
	return err
}

func (a *App) set(ctx context.Context, args []string) error {
	value := strings.Join(args[2:], " ")
	if !json.Valid([]byte(value)) {
		return fmt.Errorf("value is not valid JSON: %s", value)
	}

	entry, err := a.api.PutConfig(ctx, args[0], args[1], value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "%s = %s (version %d)\n", entry.Key, entry.Value, entry.Version)
	return err
}

func (a *App) clients(ctx context.Context, _ []string) error {
	list, err := a.api.ListClients(ctx)
	if err != nil {
		return err
	}
	return a.table("ID\tNAME\tADMIN\tCREATED", func(w *tabwriter.Writer) {
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", c.ID, c.Name, c.IsAdmin, c.CreatedAt.Format(time.RFC3339))
		}
	})
}

func (a *App) createClient(ctx context.Context, args []string) error {
	created, err := a.api.CreateClient(ctx, args[0])
	if err != nil {
		return err
	}

	if len(args) > 1 {
		if err := filex.WriteSecret(args[1], []byte(created.PrivateKeyPEM)); err != nil {
			return fmt.Errorf("client %s created but its key was not saved: %w", created.ID, err)
		}
		_, err = fmt.Fprintf(a.out, "client id:   %s\nfingerprint: %s\nprivate key: %s\n",
			created.ID, created.Fingerprint, args[1])
		return err
	}

	_, err = fmt.Fprintf(a.out,
		"client id:   %s\nfingerprint: %s\nprivate key (shown once, store it now):\n%s",
		created.ID, created.Fingerprint, created.PrivateKeyPEM)
	return err
}

func (a *App) deleteClient(ctx context.Context, args []string) error {
	if err := a.api.DeleteClient(ctx, args[0]); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.out, "client %s deleted\n", args[0])
	return err
}

func (a *App) createProject(ctx context.Context, args []string) error {
	description := strings.Join(args[1:], " ")
	p, err := a.api.CreateProject(ctx, args[0], description)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "project %s created: %s\n", p.Name, p.ID)
	return err
}

// grant defaults to read access. "write" implies read.
func (a *App) grant(ctx context.Context, args []string) error {
	level := "read"
	if len(args) > 2 {
		level = args[2]
	}

	var canRead, canWrite bool
	switch level {
	case "read":
		canRead = true
	case "write":
		canRead, canWrite = true, true
	default:
		return fmt.Errorf("%w: access must be read or write, got %q", errUsage, level)
	}

	p, err := a.api.Grant(ctx, args[0], args[1], canRead, canWrite)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "granted %s on %s to %s (read=%t write=%t)\n", level, args[1], args[0], p.CanRead, p.CanWrite)
	return err
}

func (a *App) revoke(ctx context.Context, args []string) error {
	if err := a.api.Revoke(ctx, args[0], args[1]); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.out, "revoked %s on %s\n", args[0], args[1])
	return err
}

func (a *App) permissions(ctx context.Context, args []string) error {
	list, err := a.api.ListPermissions(ctx, args[0])
	if err != nil {
		return err
	}
	return a.table("PROJECT\tREAD\tWRITE", func(w *tabwriter.Writer) {
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%t\t%t\n", p.ProjectID, p.CanRead, p.CanWrite)
		}
	})
}

func (a *App) snapshot(ctx context.Context, args []string) error {
	snap, err := a.api.Snapshot(ctx, args[0])
	if err != nil {
		return err
	}

	if len(args) > 1 {
		data, err := a.download(ctx, snap.URL)
		if err != nil {
			return fmt.Errorf("download snapshot %s: %w", snap.Key, err)
		}
		if err := filex.WriteSecret(args[1], data); err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "snapshot %s (%d entries) saved to %s\n", snap.Key, snap.Entries, args[1])
		return err
	}
	_, err = fmt.Fprintf(a.out, "snapshot %s (%d entries)\n%s\n", snap.Key, snap.Entries, snap.URL)
	return err
}
