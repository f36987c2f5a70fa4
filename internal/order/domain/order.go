// Package domain defines the core order domain entities and types.
package domain

import (
	"time"

	"github.com/allisson/shop-events/internal/errors"
)

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

// Order represents a customer order.
type Order struct {
	ID            int64
	CustomerEmail string
	TotalAmount   float64
	Status        OrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Domain-specific errors for order operations.
var (
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")
)
