package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/cloudconfig/internal/flagx"
	"github.com/dmitrijs2005/cloudconfig/internal/logging"
	"github.com/dmitrijs2005/cloudconfig/internal/server"
	"github.com/dmitrijs2005/cloudconfig/internal/server/config"
)

const usage = `usage: cloudconfig-server [serve|init|reset [name]|status] [flags]

  serve    run the HTTP API (default)
  init     apply migrations and create the first administrator
  reset    create an additional administrator and print its key
  status   probe GET /health on the configured address
`

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	command, rest := flagx.SplitCommand(args)

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	switch command {
	case "", "serve":
		app, err := server.NewApp(ctx, cfg, logger, os.Stdout)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Run(ctx)

	case "init":
		app, err := server.NewApp(ctx, cfg, logger, os.Stdout)
		if err != nil {
			return err
		}
		defer app.Close()
		result, err := app.Bootstrap(ctx)
		if err != nil {
			return err
		}
		fmt.Println("bootstrap:", result)
		return nil

	case "reset":
		name := "admin"
		if len(rest) > 0 && rest[0] != "" && rest[0][0] != '-' {
			name = rest[0]
		}
		app, err := server.NewApp(ctx, cfg, logger, os.Stdout)
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Reset(ctx, name)

	case "status":
		if err := server.Status(ctx, cfg.ListenAddr, 5*time.Second); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil

	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}
