// Package usecase implements the outbox writer and the background relay that
// drains staged events to the message broker.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/shop-events/internal/event"
	"github.com/allisson/shop-events/internal/outbox/domain"
)

// OutboxMessageRepository defines outbox message repository operations
type OutboxMessageRepository interface {
	Create(ctx context.Context, msg *domain.OutboxMessage) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	MarkSent(ctx context.Context, msg *domain.OutboxMessage) error
	MarkFailedAttempt(ctx context.Context, msg *domain.OutboxMessage) error
	CountByStatus(ctx context.Context) (map[domain.OutboxMessageStatus]int, error)
}

// Writer appends events to the outbox from inside a business transaction.
type Writer struct {
	outboxRepo OutboxMessageRepository
}

// NewWriter creates a new Writer.
func NewWriter(outboxRepo OutboxMessageRepository) *Writer {
	return &Writer{outboxRepo: outboxRepo}
}

// Append stages an event for the aggregate identified by aggregateID. It must
// be called inside the caller's TxManager.WithTx block: the insert joins that
// transaction, so the event row commits if and only if the business write
// commits. Append never opens or commits a transaction of its own; on error
// the caller's rollback also discards the uncommitted outbox row.
func (w *Writer) Append(
	ctx context.Context,
	aggregateID string,
	payload event.Payload,
) (*domain.OutboxMessage, error) {
	data, err := event.Encode(payload)
	if err != nil {
		return nil, err
	}

	msg := &domain.OutboxMessage{
		ID:          uuid.Must(uuid.NewV7()),
		AggregateID: aggregateID,
		EventType:   payload.EventType(),
		Payload:     string(data),
		Status:      domain.OutboxMessageStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}

	if err := w.outboxRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	return msg, nil
}
