package broker

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcknowledger records the disposition calls made through a Delivery.
type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
	rejected bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.rejected = true
	f.requeued = requeue
	return nil
}

func TestQueueArgs(t *testing.T) {
	t.Run("full topology", func(t *testing.T) {
		r := &RabbitMQ{cfg: Config{
			DeliveryLimit:      5,
			DeadLetterExchange: "shop_events.dlx",
		}}

		args := r.queueArgs()
		assert.Equal(t, "quorum", args["x-queue-type"])
		assert.Equal(t, int32(5), args["x-delivery-limit"])
		assert.Equal(t, "shop_events.dlx", args["x-dead-letter-exchange"])
	})

	t.Run("without dead letter exchange", func(t *testing.T) {
		r := &RabbitMQ{cfg: Config{DeliveryLimit: 3}}

		args := r.queueArgs()
		assert.Equal(t, "quorum", args["x-queue-type"])
		assert.Equal(t, int32(3), args["x-delivery-limit"])
		assert.NotContains(t, args, "x-dead-letter-exchange")
	})

	t.Run("without delivery limit", func(t *testing.T) {
		r := &RabbitMQ{cfg: Config{}}

		args := r.queueArgs()
		assert.NotContains(t, args, "x-delivery-limit")
	})
}

func TestAmqpDelivery(t *testing.T) {
	t.Run("accessors", func(t *testing.T) {
		d := &amqpDelivery{d: amqp.Delivery{
			MessageId:   "abc123",
			Type:        "order.created",
			RoutingKey:  "order.created",
			Body:        []byte(`{"order_id":42}`),
			Redelivered: true,
		}}

		assert.Equal(t, "abc123", d.MessageID())
		assert.Equal(t, "order.created", d.EventType())
		assert.Equal(t, "order.created", d.RoutingKey())
		assert.Equal(t, []byte(`{"order_id":42}`), d.Body())
		assert.True(t, d.Redelivered())
	})

	t.Run("event type falls back to routing key", func(t *testing.T) {
		d := &amqpDelivery{d: amqp.Delivery{RoutingKey: "payment.processed"}}
		assert.Equal(t, "payment.processed", d.EventType())
	})

	t.Run("delivery count from quorum header", func(t *testing.T) {
		d := &amqpDelivery{d: amqp.Delivery{Headers: amqp.Table{"x-delivery-count": int64(3)}}}
		assert.Equal(t, 4, d.DeliveryCount())
	})

	t.Run("delivery count defaults to one", func(t *testing.T) {
		d := &amqpDelivery{d: amqp.Delivery{}}
		assert.Equal(t, 1, d.DeliveryCount())
	})

	t.Run("ack", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		d := &amqpDelivery{d: amqp.Delivery{Acknowledger: ack}}

		require.NoError(t, d.Ack())
		assert.True(t, ack.acked)
	})

	t.Run("nack requeues", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		d := &amqpDelivery{d: amqp.Delivery{Acknowledger: ack}}

		require.NoError(t, d.NackRequeue())
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeued)
	})

	t.Run("reject does not requeue", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		d := &amqpDelivery{d: amqp.Delivery{Acknowledger: ack}}

		require.NoError(t, d.Reject())
		assert.True(t, ack.rejected)
		assert.False(t, ack.requeued)
	})
}
