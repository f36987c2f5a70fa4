// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	orderDomain "github.com/allisson/shop-events/internal/order/domain"
	paymentDomain "github.com/allisson/shop-events/internal/payment/domain"
)

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID            int64     `json:"id"`
	CustomerEmail string    `json:"customer_email"`
	TotalAmount   float64   `json:"total_amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MapOrderToResponse converts a domain order to an API response.
func MapOrderToResponse(order *orderDomain.Order) OrderResponse {
	return OrderResponse{
		ID:            order.ID,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		Status:        string(order.Status),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

// ListOrdersResponse represents a paginated list of orders in API responses.
type ListOrdersResponse struct {
	Data []OrderResponse `json:"data"`
}

// MapOrdersToListResponse converts a slice of domain orders to a list response.
func MapOrdersToListResponse(orders []*orderDomain.Order) ListOrdersResponse {
	data := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		data = append(data, MapOrderToResponse(order))
	}

	return ListOrdersResponse{
		Data: data,
	}
}

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID        string    `json:"id"`
	OrderID   int64     `json:"order_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MapPaymentToResponse converts a domain payment to an API response.
func MapPaymentToResponse(payment *paymentDomain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        payment.ID.String(),
		OrderID:   payment.OrderID,
		Amount:    payment.Amount,
		Status:    string(payment.Status),
		CreatedAt: payment.CreatedAt,
		UpdatedAt: payment.UpdatedAt,
	}
}

// ListPaymentsResponse represents a paginated list of payments in API responses.
type ListPaymentsResponse struct {
	Data []PaymentResponse `json:"data"`
}

// MapPaymentsToListResponse converts a slice of domain payments to a list response.
func MapPaymentsToListResponse(payments []*paymentDomain.Payment) ListPaymentsResponse {
	data := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		data = append(data, MapPaymentToResponse(payment))
	}

	return ListPaymentsResponse{
		Data: data,
	}
}

// MessagingStatsResponse represents outbox and inbox row counts grouped by
// status. Statuses with zero rows are omitted.
type MessagingStatsResponse struct {
	Outbox map[string]int `json:"outbox"`
	Inbox  map[string]int `json:"inbox"`
}
