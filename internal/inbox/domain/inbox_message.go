// Package domain defines the core inbox domain entities and types.
package domain

import (
	"time"

	"github.com/allisson/shop-events/internal/errors"
)

// InboxMessageStatus represents the status of an inbox message. A row moves
// pending -> processed when the handler transaction commits, or
// pending -> failed when a message is abandoned to the dead-letter queue.
// processed is terminal: a processed row never returns to pending.
type InboxMessageStatus string

const (
	InboxMessageStatusPending   InboxMessageStatus = "pending"
	InboxMessageStatusProcessed InboxMessageStatus = "processed"
	InboxMessageStatusFailed    InboxMessageStatus = "failed"
)

// InboxMessage is one entry in the deduplication ledger. The uniqueness
// constraint on MessageID is the sole cross-process mutual exclusion: of any
// number of concurrent or repeated deliveries of one identity, exactly one
// insert succeeds and gets to run the business handler.
type InboxMessage struct {
	MessageID   string
	EventType   string
	Payload     string
	Status      InboxMessageStatus
	Attempts    int
	LastError   *string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
}

// Domain-specific errors for inbox operations.
var (
	// ErrMessageNotFound indicates the requested inbox message does not exist.
	ErrMessageNotFound = errors.Wrap(errors.ErrNotFound, "inbox message not found")
)
