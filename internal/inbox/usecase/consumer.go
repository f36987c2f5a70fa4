// Package usecase implements the inbox consumer: the receive loop that turns
// at-least-once broker deliveries into exactly-once handler effects.
package usecase

import (
	"context"
	"log/slog"

	"github.com/allisson/shop-events/internal/broker"
	"github.com/allisson/shop-events/internal/database"
	apperrors "github.com/allisson/shop-events/internal/errors"
	"github.com/allisson/shop-events/internal/event"
	"github.com/allisson/shop-events/internal/inbox/domain"
	"github.com/allisson/shop-events/internal/metrics"
)

// InboxMessageRepository defines inbox message repository operations
type InboxMessageRepository interface {
	Create(ctx context.Context, msg *domain.InboxMessage) error
	MarkProcessed(ctx context.Context, messageID string) error
	MarkFailed(ctx context.Context, msg *domain.InboxMessage) error
	GetByMessageID(ctx context.Context, messageID string) (*domain.InboxMessage, error)
	CountByStatus(ctx context.Context) (map[domain.InboxMessageStatus]int, error)
}

// Handler processes one decoded event payload. It runs inside the consumer's
// transaction: its writes commit atomically with the inbox row and the mark
// processed transition. Returning an error rolls all of it back; wrap the
// error with errors.Permanent to send the message to the dead-letter queue
// instead of requeueing it.
type Handler func(ctx context.Context, payload event.Payload) error

// Consumer drains deliveries from the bound queue and runs the registered
// handler for each exactly once per message identity. Multiple consumer
// replicas can share one queue: the inbox table's uniqueness constraint is the
// cross-process arbiter, not any in-process state.
type Consumer struct {
	txManager database.TxManager
	inboxRepo InboxMessageRepository
	sub       broker.Subscriber
	handlers  map[string]Handler
	metrics   metrics.MessagingMetrics
	logger    *slog.Logger
}

// NewConsumer creates a new Consumer.
func NewConsumer(
	txManager database.TxManager,
	inboxRepo InboxMessageRepository,
	sub broker.Subscriber,
	messagingMetrics metrics.MessagingMetrics,
	logger *slog.Logger,
) *Consumer {
	return &Consumer{
		txManager: txManager,
		inboxRepo: inboxRepo,
		sub:       sub,
		handlers:  make(map[string]Handler),
		metrics:   messagingMetrics,
		logger:    logger,
	}
}

// Register binds a handler to an event type. Must be called before Start.
func (c *Consumer) Register(eventType string, handler Handler) {
	c.handlers[eventType] = handler
}

// Start consumes deliveries until ctx is cancelled or the subscription
// channel closes. Each delivery is fully settled (ack, requeue or reject)
// before the next one is taken from the channel; concurrency comes from
// running replicas, not goroutines per message.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.sub.Consume(ctx)
	if err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Info("starting inbox consumer")
	}

	for {
		select {
		case <-ctx.Done():
			if c.logger != nil {
				c.logger.Info("stopping inbox consumer")
			}
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				if c.logger != nil {
					c.logger.Info("delivery channel closed, stopping inbox consumer")
				}
				return nil
			}
			c.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery settles one delivery. The outcome is decided by the handler
// transaction: commit then ack, duplicate then ack without effect, transient
// failure then requeue, permanent failure then reject to the dead-letter
// exchange. The ack always happens after the commit; a crash between the two
// causes a redelivery that the inbox row collapses into a no-op.
func (c *Consumer) handleDelivery(ctx context.Context, delivery broker.Delivery) {
	messageID := delivery.MessageID()
	if messageID == "" {
		// Producer did not stamp an identity; recompute the deterministic
		// digest so redeliveries still collapse.
		messageID = event.MessageID(delivery.RoutingKey(), delivery.Body())
	}
	eventType := delivery.EventType()

	err := c.processMessage(ctx, messageID, eventType, delivery.Body())

	switch {
	case err == nil:
		if ackErr := delivery.Ack(); ackErr != nil {
			c.logError("failed to ack delivery", messageID, eventType, ackErr)
			return
		}
		if c.metrics != nil {
			c.metrics.RecordProcessed(ctx, eventType)
		}

	case apperrors.Is(err, apperrors.ErrDuplicateMessage):
		// Already processed (or being processed) under this identity. The
		// transaction rolled back without side effects; acking is the
		// idempotent outcome.
		if c.logger != nil {
			c.logger.Info("dropping duplicate delivery",
				slog.String("message_id", messageID),
				slog.String("event_type", eventType),
			)
		}
		if ackErr := delivery.Ack(); ackErr != nil {
			c.logError("failed to ack duplicate delivery", messageID, eventType, ackErr)
			return
		}
		if c.metrics != nil {
			c.metrics.RecordDuplicate(ctx, eventType)
		}

	case apperrors.IsPermanent(err):
		// Redelivery cannot help. Record the failure for inspection, then
		// reject without requeue so the broker routes the message to the
		// dead-letter exchange.
		c.logError("permanent failure processing delivery", messageID, eventType, err)
		c.recordFailed(ctx, messageID, eventType, delivery.Body(), delivery.DeliveryCount(), err)
		if rejectErr := delivery.Reject(); rejectErr != nil {
			c.logError("failed to reject delivery", messageID, eventType, rejectErr)
			return
		}
		if c.metrics != nil {
			c.metrics.RecordDeadLettered(ctx, eventType)
		}

	default:
		// Transient failure: hand the message back for redelivery. The
		// queue's delivery limit bounds the retries; past it the broker
		// dead-letters the message on its own.
		c.logError("transient failure processing delivery, requeueing", messageID, eventType, err)
		if nackErr := delivery.NackRequeue(); nackErr != nil {
			c.logError("failed to requeue delivery", messageID, eventType, nackErr)
		}
	}
}

// processMessage runs the single transaction that makes processing exactly
// once: claim the identity, run the handler, mark the row processed. If any
// step fails the whole transaction rolls back, including the identity claim,
// so a later redelivery gets a clean retry.
func (c *Consumer) processMessage(ctx context.Context, messageID, eventType string, body []byte) error {
	return c.txManager.WithTx(ctx, func(ctx context.Context) error {
		msg := &domain.InboxMessage{
			MessageID: messageID,
			EventType: eventType,
			Payload:   string(body),
			Status:    domain.InboxMessageStatusPending,
		}
		if err := c.inboxRepo.Create(ctx, msg); err != nil {
			return err
		}

		handler, ok := c.handlers[eventType]
		if !ok {
			return apperrors.Permanent(apperrors.Wrapf(event.ErrUnknownEventType, "no handler for event type %q", eventType))
		}

		payload, err := event.Decode(eventType, body)
		if err != nil {
			return err
		}

		if err := handler(ctx, payload); err != nil {
			return err
		}

		return c.inboxRepo.MarkProcessed(ctx, messageID)
	})
}

// recordFailed stores a terminally failed message in its own short
// transaction, for later inspection next to the dead-letter queue copy. The
// attempt count is the transport's delivery count, so the row reflects the
// redeliveries that preceded dead-lettering. A failure here is logged and
// swallowed: the reject must still happen.
func (c *Consumer) recordFailed(ctx context.Context, messageID, eventType string, body []byte, attempts int, cause error) {
	causeMsg := cause.Error()
	msg := &domain.InboxMessage{
		MessageID: messageID,
		EventType: eventType,
		Payload:   string(body),
		Status:    domain.InboxMessageStatusFailed,
		Attempts:  attempts,
		LastError: &causeMsg,
	}

	err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		return c.inboxRepo.MarkFailed(ctx, msg)
	})
	if err != nil {
		c.logError("failed to record failed delivery", messageID, eventType, err)
	}
}

func (c *Consumer) logError(message, messageID, eventType string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error(message,
		slog.String("message_id", messageID),
		slog.String("event_type", eventType),
		slog.Any("error", err),
	)
}
