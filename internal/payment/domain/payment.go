// Package domain defines the core payment domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/shop-events/internal/errors"
)

// PaymentStatus represents the outcome of a payment.
type PaymentStatus string

const (
	PaymentStatusProcessed PaymentStatus = "processed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment represents a recorded payment for an order.
type Payment struct {
	ID        uuid.UUID
	OrderID   int64
	Amount    float64
	Status    PaymentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain-specific errors for payment operations.
var (
	// ErrPaymentNotFound indicates the requested payment does not exist.
	ErrPaymentNotFound = errors.Wrap(errors.ErrNotFound, "payment not found")
)
