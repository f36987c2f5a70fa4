package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MessagingMetrics defines the interface for recording outbox relay and inbox
// consumer metrics. Counters carry the event type as a label so per-event
// throughput and failure rates can be graphed separately.
type MessagingMetrics interface {
	// RecordPublished counts an outbox row acknowledged by the broker.
	RecordPublished(ctx context.Context, eventType string)
	// RecordPublishFailed counts a failed publish attempt.
	RecordPublishFailed(ctx context.Context, eventType string)
	// RecordProcessed counts a delivery whose handler transaction committed.
	RecordProcessed(ctx context.Context, eventType string)
	// RecordDuplicate counts a delivery dropped by the inbox dedup ledger.
	RecordDuplicate(ctx context.Context, eventType string)
	// RecordDeadLettered counts a message routed to dead-letter inspection,
	// on either the publish or the consume side.
	RecordDeadLettered(ctx context.Context, eventType string)
}

// messagingMetrics implements MessagingMetrics using OpenTelemetry metrics.
type messagingMetrics struct {
	publishedCounter    metric.Int64Counter
	publishFailCounter  metric.Int64Counter
	processedCounter    metric.Int64Counter
	duplicateCounter    metric.Int64Counter
	deadLetteredCounter metric.Int64Counter
}

// NewMessagingMetrics creates a MessagingMetrics implementation using the
// provided meter provider. The namespace parameter is used as a prefix for all
// metric names (e.g., "shop_events").
func NewMessagingMetrics(meterProvider metric.MeterProvider, namespace string) (MessagingMetrics, error) {
	meter := meterProvider.Meter(namespace)

	publishedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_published_total", namespace),
		metric.WithDescription("Total number of outbox messages acknowledged by the broker"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create published counter: %w", err)
	}

	publishFailCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_publish_failures_total", namespace),
		metric.WithDescription("Total number of failed outbox publish attempts"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish failure counter: %w", err)
	}

	processedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_inbox_processed_total", namespace),
		metric.WithDescription("Total number of inbox messages processed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}

	duplicateCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_inbox_duplicates_total", namespace),
		metric.WithDescription("Total number of duplicate deliveries dropped by the inbox"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duplicate counter: %w", err)
	}

	deadLetteredCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_dead_lettered_total", namespace),
		metric.WithDescription("Total number of messages routed to dead-letter inspection"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dead-lettered counter: %w", err)
	}

	return &messagingMetrics{
		publishedCounter:    publishedCounter,
		publishFailCounter:  publishFailCounter,
		processedCounter:    processedCounter,
		duplicateCounter:    duplicateCounter,
		deadLetteredCounter: deadLetteredCounter,
	}, nil
}

func (m *messagingMetrics) RecordPublished(ctx context.Context, eventType string) {
	m.publishedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (m *messagingMetrics) RecordPublishFailed(ctx context.Context, eventType string) {
	m.publishFailCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (m *messagingMetrics) RecordProcessed(ctx context.Context, eventType string) {
	m.processedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (m *messagingMetrics) RecordDuplicate(ctx context.Context, eventType string) {
	m.duplicateCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (m *messagingMetrics) RecordDeadLettered(ctx context.Context, eventType string) {
	m.deadLetteredCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// NoOpMessagingMetrics is a no-op implementation of MessagingMetrics for when
// metrics are disabled.
type NoOpMessagingMetrics struct{}

// NewNoOpMessagingMetrics creates a no-op MessagingMetrics implementation.
func NewNoOpMessagingMetrics() MessagingMetrics {
	return &NoOpMessagingMetrics{}
}

func (n *NoOpMessagingMetrics) RecordPublished(ctx context.Context, eventType string)    {}
func (n *NoOpMessagingMetrics) RecordPublishFailed(ctx context.Context, eventType string) {}
func (n *NoOpMessagingMetrics) RecordProcessed(ctx context.Context, eventType string)    {}
func (n *NoOpMessagingMetrics) RecordDuplicate(ctx context.Context, eventType string)    {}
func (n *NoOpMessagingMetrics) RecordDeadLettered(ctx context.Context, eventType string) {}
