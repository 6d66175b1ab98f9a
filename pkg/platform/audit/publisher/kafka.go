// Package publisher provides audit event sinks. The Kafka publisher is the
// production sink; the in-memory publisher backs tests; Noop drops events.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"trustgrid/pkg/platform/audit"
)

// DefaultTopic is the audit topic when none is configured.
const DefaultTopic = "trustgrid.resolution.audit"

// Kafka publishes audit events to a Kafka topic. Produce is asynchronous:
// Emit enqueues and returns immediately, and delivery failures are logged,
// never surfaced to the resolver.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// KafkaOption configures a Kafka publisher.
type KafkaOption func(*Kafka)

// WithTopic overrides the audit topic.
func WithTopic(topic string) KafkaOption {
	return func(k *Kafka) {
		k.topic = topic
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) KafkaOption {
	return func(k *Kafka) {
		k.logger = logger
	}
}

// NewKafka connects to the brokers and ensures the audit topic exists.
func NewKafka(ctx context.Context, brokers []string, opts ...KafkaOption) (*Kafka, error) {
	k := &Kafka{topic: DefaultTopic}
	for _, opt := range opts {
		opt(k)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	// Best effort: auto-creation may be disabled broker-side.
	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, k.topic); err != nil && k.logger != nil {
		k.logger.WarnContext(ctx, "audit topic creation failed, assuming it exists",
			"topic", k.topic, "error", err)
	}

	k.client = client
	return k, nil
}

// Emit enqueues one event. It never blocks on broker acknowledgement.
func (k *Kafka) Emit(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.RequestID),
		Value: payload,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && k.logger != nil {
			k.logger.Warn("audit event delivery failed",
				"topic", k.topic, "action", event.Action, "error", err)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close(ctx context.Context) error {
	if err := k.client.Flush(ctx); err != nil {
		k.client.Close()
		return fmt.Errorf("flush audit events: %w", err)
	}
	k.client.Close()
	return nil
}
