// Package event defines the catalog of domain events exchanged over the broker:
// the versioned payload schemas, the routing keys, and the deterministic message
// identity shared by the publish and consume paths.
package event

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/shop-events/internal/errors"
)

// Event types. The type tag selects the payload schema; routing keys are equal
// to the type so topic bindings like "order.*" work on the exchange.
const (
	TypeOrderCreated     = "order.created"
	TypePaymentProcessed = "payment.processed"
	TypePaymentFailed    = "payment.failed"
)

// ErrUnknownEventType indicates a message carries a type tag this service has
// no schema for. It is permanent: redelivery cannot make the schema appear.
var ErrUnknownEventType = apperrors.Permanent(apperrors.New("unknown event type"))

// Payload is implemented by every versioned event payload.
type Payload interface {
	// EventType returns the type tag used as routing key and schema selector.
	EventType() string
	// Validate checks the payload against its schema.
	Validate() error
}

// OrderCreatedV1 is emitted when an order row is committed.
type OrderCreatedV1 struct {
	OrderID       int64   `json:"order_id"`
	CustomerEmail string  `json:"customer_email"`
	TotalAmount   float64 `json:"total_amount"`
}

// EventType implements Payload.
func (p OrderCreatedV1) EventType() string { return TypeOrderCreated }

// Validate implements Payload.
func (p OrderCreatedV1) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OrderID,
			validation.Required.Error("order_id is required"),
			validation.Min(int64(1)).Error("order_id must be positive"),
		),
		validation.Field(&p.CustomerEmail,
			validation.Required.Error("customer_email is required"),
			validation.Length(5, 255).Error("customer_email must be between 5 and 255 characters"),
		),
		validation.Field(&p.TotalAmount,
			validation.Required.Error("total_amount is required"),
			validation.Min(0.01).Error("total_amount must be positive"),
		),
	)
}

// PaymentProcessedV1 is emitted after a payment for an order is recorded.
type PaymentProcessedV1 struct {
	OrderID       int64   `json:"order_id"`
	PaymentID     string  `json:"payment_id"`
	Amount        float64 `json:"amount"`
	CustomerEmail string  `json:"customer_email"`
}

// EventType implements Payload.
func (p PaymentProcessedV1) EventType() string { return TypePaymentProcessed }

// Validate implements Payload.
func (p PaymentProcessedV1) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OrderID,
			validation.Required.Error("order_id is required"),
			validation.Min(int64(1)).Error("order_id must be positive"),
		),
		validation.Field(&p.PaymentID,
			validation.Required.Error("payment_id is required"),
		),
		validation.Field(&p.Amount,
			validation.Required.Error("amount is required"),
			validation.Min(0.01).Error("amount must be positive"),
		),
	)
}

// PaymentFailedV1 is emitted when a payment for an order cannot be recorded.
type PaymentFailedV1 struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// EventType implements Payload.
func (p PaymentFailedV1) EventType() string { return TypePaymentFailed }

// Validate implements Payload.
func (p PaymentFailedV1) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.OrderID,
			validation.Required.Error("order_id is required"),
			validation.Min(int64(1)).Error("order_id must be positive"),
		),
		validation.Field(&p.Reason,
			validation.Required.Error("reason is required"),
		),
	)
}

// Encode serializes a payload to its wire form after validating it.
func Encode(p Payload) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	return json.Marshal(p)
}

// Decode parses data into the payload schema selected by eventType. Unknown
// types and malformed payloads are permanent failures: the consumer routes
// them to the dead-letter queue instead of requeueing.
func Decode(eventType string, data []byte) (Payload, error) {
	var p Payload
	switch eventType {
	case TypeOrderCreated:
		p = &OrderCreatedV1{}
	case TypePaymentProcessed:
		p = &PaymentProcessedV1{}
	case TypePaymentFailed:
		p = &PaymentFailedV1{}
	default:
		return nil, apperrors.Wrapf(ErrUnknownEventType, "event type %q", eventType)
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, apperrors.Permanent(apperrors.Wrapf(err, "malformed %s payload", eventType))
	}
	if err := p.Validate(); err != nil {
		return nil, apperrors.Permanent(apperrors.Wrapf(err, "invalid %s payload", eventType))
	}

	switch v := p.(type) {
	case *OrderCreatedV1:
		return *v, nil
	case *PaymentProcessedV1:
		return *v, nil
	case *PaymentFailedV1:
		return *v, nil
	default:
		return nil, apperrors.Wrapf(ErrUnknownEventType, "event type %q", eventType)
	}
}
