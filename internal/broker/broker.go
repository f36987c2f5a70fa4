// Package broker provides the message broker capability consumed by the outbox
// relay and the inbox consumer: publish with acknowledgment and a subscription
// stream of deliveries with their ack handles.
package broker

import "context"

// Message is a broker message on the publish path. MessageID carries the
// deterministic identity stamped by the publisher so consumers can deduplicate
// at-least-once redeliveries.
type Message struct {
	MessageID string
	EventType string
	Body      []byte
}

// Publisher publishes messages to the event exchange. Publish returns only
// after the broker acknowledged the message, or with an error if it did not.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg Message) error
}

// Delivery is one received message plus its acknowledgment handle. Exactly one
// of Ack, NackRequeue or Reject must be called per delivery.
type Delivery interface {
	// MessageID returns the transport-carried message identity. Empty when the
	// producer did not stamp one; callers then recompute it from the routing
	// key and body.
	MessageID() string
	// EventType returns the event type tag of the message.
	EventType() string
	// RoutingKey returns the routing key the message was published with.
	RoutingKey() string
	// Body returns the raw payload bytes.
	Body() []byte
	// Redelivered reports whether the broker delivered this message before.
	Redelivered() bool
	// DeliveryCount returns how many times the broker has delivered this
	// message, counting the current delivery. At least 1.
	DeliveryCount() int
	// Ack acknowledges successful processing.
	Ack() error
	// NackRequeue returns the message to the queue for redelivery. The queue's
	// delivery limit bounds how often this can happen before the broker
	// dead-letters the message itself.
	NackRequeue() error
	// Reject refuses the message without requeue, routing it to the
	// dead-letter exchange.
	Reject() error
}

// Subscriber consumes deliveries from the bound queue. The returned channel
// closes when ctx is cancelled or the broker connection is lost.
type Subscriber interface {
	Consume(ctx context.Context) (<-chan Delivery, error)
}
