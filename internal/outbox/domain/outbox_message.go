// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/shop-events/internal/errors"
)

// OutboxMessageStatus represents the status of an outbox message. Transitions
// are monotonic: pending -> sent on broker acknowledgment, pending -> failed
// after the publish attempt budget is exhausted. A sent or failed message never
// returns to pending.
type OutboxMessageStatus string

const (
	OutboxMessageStatusPending OutboxMessageStatus = "pending"
	OutboxMessageStatusSent    OutboxMessageStatus = "sent"
	OutboxMessageStatusFailed  OutboxMessageStatus = "failed"
)

// OutboxMessage represents an event staged in the transactional outbox. The
// row is written in the same database transaction as the business change it
// describes, so either both commit or neither does.
type OutboxMessage struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     string
	Status      OutboxMessageStatus
	Attempts    int
	LastError   *string
	// NextAttemptAt defers retries: the relay only claims rows whose next
	// attempt time has passed, giving exponential backoff without
	// driver-specific date math in the claim query.
	NextAttemptAt time.Time
	CreatedAt     time.Time
	SentAt        *time.Time
	UpdatedAt     time.Time
}

// Domain-specific errors for outbox operations.
var (
	// ErrMessageNotFound indicates the requested outbox message does not exist.
	ErrMessageNotFound = errors.Wrap(errors.ErrNotFound, "outbox message not found")
)
