package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/shop-events/internal/app"
	"github.com/allisson/shop-events/internal/config"
)

// RunRelay starts the outbox relay worker. It polls the outbox table for
// pending rows and publishes them to the broker until SIGINT/SIGTERM.
// Multiple relay instances can run against the same database.
func RunRelay(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting outbox relay", slog.String("version", version))

	defer closeContainer(container, logger)

	publisher, err := container.OutboxPublisher()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox publisher: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("outbox relay error: %w", err)
	}

	logger.Info("outbox relay stopped")
	return nil
}
