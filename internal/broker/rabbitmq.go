package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// confirmTimeout bounds the wait for a broker publish confirmation.
const confirmTimeout = 5 * time.Second

// Config holds RabbitMQ connection and topology settings.
type Config struct {
	URL                string
	Exchange           string
	Queue              string
	BindingKey         string
	DeadLetterExchange string
	DeadLetterQueue    string
	PrefetchCount      int
	// DeliveryLimit is the quorum queue redelivery bound. After this many
	// deliveries the broker dead-letters the message itself.
	DeliveryLimit int
}

// RabbitMQ implements Publisher and Subscriber over a single AMQP connection
// with separate channels for publishing and consuming.
type RabbitMQ struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex // guards conn/channels during connect and close
	conn        *amqp.Connection
	publishCh   *amqp.Channel
	consumeCh   *amqp.Channel
	consumerTag string
}

// NewRabbitMQ dials the broker, enables publisher confirms and declares the
// exchange, dead-letter and queue topology.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	publishCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}

	// Publisher confirms: Publish blocks until the broker acks, which is what
	// lets the relay mark a row sent only after the broker accepted it.
	if err := publishCh.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	consumeCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open consume channel: %w", err)
	}

	if cfg.PrefetchCount > 0 {
		if err := consumeCh.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set channel qos: %w", err)
		}
	}

	r := &RabbitMQ{
		cfg:         cfg,
		logger:      logger,
		conn:        conn,
		publishCh:   publishCh,
		consumeCh:   consumeCh,
		consumerTag: fmt.Sprintf("shop-events-%d", time.Now().UnixNano()),
	}

	if err := r.declareTopology(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return r, nil
}

// declareTopology declares the event exchange, the dead-letter exchange and
// queue, and the consumer queue bound to the event exchange. Quorum queue
// arguments make the broker enforce the redelivery bound.
func (r *RabbitMQ) declareTopology() error {
	if err := r.publishCh.ExchangeDeclare(
		r.cfg.Exchange, "topic", true, false, false, false, nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", r.cfg.Exchange, err)
	}

	if r.cfg.DeadLetterExchange != "" {
		if err := r.publishCh.ExchangeDeclare(
			r.cfg.DeadLetterExchange, "topic", true, false, false, false, nil,
		); err != nil {
			return fmt.Errorf("failed to declare dead-letter exchange %q: %w", r.cfg.DeadLetterExchange, err)
		}

		if _, err := r.publishCh.QueueDeclare(
			r.cfg.DeadLetterQueue, true, false, false, false, nil,
		); err != nil {
			return fmt.Errorf("failed to declare dead-letter queue %q: %w", r.cfg.DeadLetterQueue, err)
		}

		if err := r.publishCh.QueueBind(
			r.cfg.DeadLetterQueue, "#", r.cfg.DeadLetterExchange, false, nil,
		); err != nil {
			return fmt.Errorf("failed to bind dead-letter queue %q: %w", r.cfg.DeadLetterQueue, err)
		}
	}

	if r.cfg.Queue != "" {
		if _, err := r.consumeCh.QueueDeclare(
			r.cfg.Queue, true, false, false, false, r.queueArgs(),
		); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", r.cfg.Queue, err)
		}

		if err := r.consumeCh.QueueBind(
			r.cfg.Queue, r.cfg.BindingKey, r.cfg.Exchange, false, nil,
		); err != nil {
			return fmt.Errorf("failed to bind queue %q: %w", r.cfg.Queue, err)
		}
	}

	return nil
}

// queueArgs builds the consumer queue arguments for the configured topology.
func (r *RabbitMQ) queueArgs() amqp.Table {
	args := amqp.Table{"x-queue-type": "quorum"}
	if r.cfg.DeliveryLimit > 0 {
		args["x-delivery-limit"] = int32(r.cfg.DeliveryLimit)
	}
	if r.cfg.DeadLetterExchange != "" {
		args["x-dead-letter-exchange"] = r.cfg.DeadLetterExchange
	}
	return args
}

// Publish sends a persistent message to the event exchange and waits for the
// broker confirmation.
func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()

	confirmation, err := r.publishCh.PublishWithDeferredConfirmWithContext(
		ctx,
		r.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.MessageID,
			Type:         msg.EventType,
			Timestamp:    time.Now().UTC(),
			Body:         msg.Body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %q: %w", routingKey, err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for publish confirmation: %w", err)
	}
	if !acked {
		return fmt.Errorf("message to %q was nacked by broker", routingKey)
	}

	return nil
}

// Consume starts delivering messages from the configured queue. The returned
// channel closes when ctx is cancelled or the AMQP delivery stream ends.
func (r *RabbitMQ) Consume(ctx context.Context) (<-chan Delivery, error) {
	deliveries, err := r.consumeCh.ConsumeWithContext(
		ctx,
		r.cfg.Queue,
		r.consumerTag,
		false, // autoAck: acks are explicit, after the inbox transaction commits
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %q: %w", r.cfg.Queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					r.logger.Warn("broker delivery stream closed", slog.String("queue", r.cfg.Queue))
					return
				}
				select {
				case out <- &amqpDelivery{d: d}:
				case <-ctx.Done():
					// Unacked delivery returns to the queue when the channel closes.
					return
				}
			}
		}
	}()

	return out, nil
}

// Close shuts down the channels and the connection.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}

// amqpDelivery adapts amqp.Delivery to the Delivery interface.
type amqpDelivery struct {
	d amqp.Delivery
}

func (a *amqpDelivery) MessageID() string { return a.d.MessageId }

func (a *amqpDelivery) EventType() string {
	if a.d.Type != "" {
		return a.d.Type
	}
	// Foreign producers may not set the type property; the routing key carries
	// the same tag by convention.
	return a.d.RoutingKey
}

func (a *amqpDelivery) RoutingKey() string { return a.d.RoutingKey }

func (a *amqpDelivery) Body() []byte { return a.d.Body }

func (a *amqpDelivery) Redelivered() bool { return a.d.Redelivered }

func (a *amqpDelivery) DeliveryCount() int {
	// Quorum queues track redeliveries in the x-delivery-count header; it is
	// absent on the first delivery.
	switch n := a.d.Headers["x-delivery-count"].(type) {
	case int32:
		return int(n) + 1
	case int64:
		return int(n) + 1
	case int:
		return n + 1
	}
	return 1
}

func (a *amqpDelivery) Ack() error { return a.d.Ack(false) }

func (a *amqpDelivery) NackRequeue() error { return a.d.Nack(false, true) }

func (a *amqpDelivery) Reject() error { return a.d.Reject(false) }
