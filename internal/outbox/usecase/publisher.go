package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/allisson/shop-events/internal/broker"
	"github.com/allisson/shop-events/internal/database"
	"github.com/allisson/shop-events/internal/event"
	"github.com/allisson/shop-events/internal/metrics"
	"github.com/allisson/shop-events/internal/outbox/domain"
)

// maxRetryBackoff caps the exponential publish backoff per row.
const maxRetryBackoff = time.Hour

// Config holds outbox relay configuration
type Config struct {
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
	RetryInterval time.Duration
	// PublishRate caps broker publishes per second across cycles (0 = unlimited).
	PublishRate float64
}

// Publisher drains pending outbox rows to the broker. It is safe to run one
// Publisher per service replica against the same table: ClaimPending skips
// rows locked by other instances, so no row is double-claimed.
type Publisher struct {
	config          Config
	txManager       database.TxManager
	outboxRepo      OutboxMessageRepository
	brokerPublisher broker.Publisher
	limiter         *rate.Limiter
	metrics         metrics.MessagingMetrics
	logger          *slog.Logger
}

// NewPublisher creates a new Publisher.
func NewPublisher(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxMessageRepository,
	brokerPublisher broker.Publisher,
	messagingMetrics metrics.MessagingMetrics,
	logger *slog.Logger,
) *Publisher {
	var limiter *rate.Limiter
	if config.PublishRate > 0 {
		burst := int(config.PublishRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.PublishRate), burst)
	}

	return &Publisher{
		config:          config,
		txManager:       txManager,
		outboxRepo:      outboxRepo,
		brokerPublisher: brokerPublisher,
		limiter:         limiter,
		metrics:         messagingMetrics,
		logger:          logger,
	}
}

// Start runs the relay loop until ctx is cancelled. Cancellation between
// cycles stops cleanly; cancellation mid-cycle rolls the claiming transaction
// back, releasing the row locks so another instance can pick the rows up.
func (p *Publisher) Start(ctx context.Context) error {
	if p.logger != nil {
		p.logger.Info("starting outbox relay",
			slog.Duration("poll_interval", p.config.PollInterval),
			slog.Int("batch_size", p.config.BatchSize),
			slog.Int("max_attempts", p.config.MaxAttempts),
		)
	}

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.logger != nil {
				p.logger.Info("stopping outbox relay")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := p.ProcessMessages(ctx); err != nil {
				if p.logger != nil {
					p.logger.Error("failed to process outbox messages", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessMessages runs one relay cycle: claim up to BatchSize pending rows,
// publish each, and record the per-row outcome, all inside one short
// transaction. Rows the broker acknowledged are marked sent; rows it did not
// are deferred with backoff, and the aggregate's younger rows are held back
// (in-cycle here, across cycles by the claim query) so per-aggregate order is
// preserved. A crash mid-cycle rolls the whole transaction
// back, which only ever reverts rows to pending. A sent mark is never undone,
// and an acknowledged-but-unmarked row is republished later (the accepted
// at-least-once duplication, collapsed by the consumer's inbox).
func (p *Publisher) ProcessMessages(ctx context.Context) error {
	return p.txManager.WithTx(ctx, func(ctx context.Context) error {
		messages, err := p.outboxRepo.ClaimPending(ctx, p.config.BatchSize)
		if err != nil {
			return err
		}

		if len(messages) == 0 {
			return nil
		}

		if p.logger != nil {
			p.logger.Info("relaying outbox messages", slog.Int("count", len(messages)))
		}

		// Aggregates with a failed publish this cycle. Their younger claimed
		// rows are left untouched so events of one aggregate never leave out
		// of order; other aggregates in the batch continue unaffected.
		failedAggregates := make(map[string]struct{})

		for _, msg := range messages {
			if _, failed := failedAggregates[msg.AggregateID]; failed {
				continue
			}

			if err := p.publishMessage(ctx, msg); err != nil {
				// Publish failures stay local to the aggregate: bookkeeping
				// is updated and the rest of the batch continues.
				failedAggregates[msg.AggregateID] = struct{}{}
				if err := p.recordFailedAttempt(ctx, msg, err); err != nil {
					return err
				}
				continue
			}

			if err := p.outboxRepo.MarkSent(ctx, msg); err != nil {
				return err
			}

			if p.metrics != nil {
				p.metrics.RecordPublished(ctx, msg.EventType)
			}
		}

		return nil
	})
}

// publishMessage sends one outbox row to the broker. The routing key is the
// event type and the message identity is the deterministic digest, so a
// republish of the same row produces the same identity.
func (p *Publisher) publishMessage(ctx context.Context, msg *domain.OutboxMessage) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body := []byte(msg.Payload)
	return p.brokerPublisher.Publish(ctx, msg.EventType, broker.Message{
		MessageID: event.MessageID(msg.EventType, body),
		EventType: msg.EventType,
		Body:      body,
	})
}

// recordFailedAttempt updates a row after a failed publish: attempts,
// last_error and the exponentially deferred retry time. Once the attempt
// budget is exhausted the row becomes failed, flagged for dead-letter
// inspection rather than silently dropped.
func (p *Publisher) recordFailedAttempt(ctx context.Context, msg *domain.OutboxMessage, pubErr error) error {
	if p.logger != nil {
		p.logger.Error("failed to publish outbox message",
			slog.String("message_id", msg.ID.String()),
			slog.String("event_type", msg.EventType),
			slog.String("aggregate_id", msg.AggregateID),
			slog.Int("attempts", msg.Attempts+1),
			slog.Any("error", pubErr),
		)
	}

	msg.Attempts++
	errorMsg := pubErr.Error()
	msg.LastError = &errorMsg
	msg.NextAttemptAt = time.Now().Add(retryBackoff(p.config.RetryInterval, msg.Attempts))

	if msg.Attempts >= p.config.MaxAttempts {
		msg.Status = domain.OutboxMessageStatusFailed
		if p.logger != nil {
			p.logger.Error("outbox message exhausted publish attempts",
				slog.String("message_id", msg.ID.String()),
				slog.String("event_type", msg.EventType),
			)
		}
		if p.metrics != nil {
			p.metrics.RecordDeadLettered(ctx, msg.EventType)
		}
	}

	if p.metrics != nil {
		p.metrics.RecordPublishFailed(ctx, msg.EventType)
	}

	return p.outboxRepo.MarkFailedAttempt(ctx, msg)
}

// retryBackoff returns base * 2^(attempts-1), capped at maxRetryBackoff.
func retryBackoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}

	backoff := base
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	if backoff > maxRetryBackoff {
		return maxRetryBackoff
	}
	return backoff
}
