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

// RunConsumer starts the inbox consumer worker. It drains deliveries from the
// bound queue and runs the registered handlers until SIGINT/SIGTERM. Multiple
// consumer instances can share one queue; the inbox table deduplicates across
// them.
func RunConsumer(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting inbox consumer", slog.String("version", version))

	defer closeContainer(container, logger)

	consumer, err := container.InboxConsumer()
	if err != nil {
		return fmt.Errorf("failed to initialize inbox consumer: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("inbox consumer error: %w", err)
	}

	logger.Info("inbox consumer stopped")
	return nil
}
