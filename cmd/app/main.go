// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/shop-events/cmd/app/commands"
	"github.com/allisson/shop-events/internal/app"
	"github.com/allisson/shop-events/internal/config"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "shop-events",
		Usage:   "Order processing with transactional outbox and inbox messaging",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the ops API HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "relay",
				Usage: "Start the outbox relay worker",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRelay(ctx, version)
				},
			},
			{
				Name:  "consumer",
				Usage: "Start the inbox consumer worker",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunConsumer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					container := app.NewContainer(cfg)
					return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
