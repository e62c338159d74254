package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/cloudconfig/internal/client/cli"
	"github.com/dmitrijs2005/cloudconfig/internal/client/config"
	"github.com/dmitrijs2005/cloudconfig/internal/flagx"
)

var valueFlags = []string{"-a", "-u", "-k", "-w", "-c", "-config", "--config"}

func main() {

	args := os.Args[1:]
	ctx := context.Background()

	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	words := flagx.Positional(args, valueFlags)
	if len(words) == 0 || words[0] == "help" {
		_ = cli.NewApp(nil, os.Stdout).Run(ctx, words)
		return
	}

	app, err := cli.NewAppFromConfig(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := app.Run(ctx, words); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
