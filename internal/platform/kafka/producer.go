// Package kafka implements the event transport contracts from
// internal/events on top of Apache Kafka. The producer keys every message
// by the owning user ID so one user's events land on one partition and stay
// ordered; the consumer group delivers each message at least once.
package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/taskloop/taskloop/internal/events"
)

// Producer publishes events to Kafka, one topic per event family.
type Producer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewProducer creates a Kafka producer for the given brokers. Topics are
// selected per message from the event type, so a single writer serves all
// three topics.
func NewProducer(brokers []string, logger *slog.Logger) *Producer {
	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Balancer: &kafkago.Hash{},
		// The mutation path treats publishing as fire-and-forget; one
		// attempt per broker call keeps latency bounded.
		RequiredAcks: kafkago.RequireOne,
	}

	return &Producer{
		writer: writer,
		logger: logger.With(slog.String("component", "kafka_producer")),
	}
}

// Ensure Producer implements events.Publisher
var _ events.Publisher = (*Producer)(nil)

// Publish implements events.Publisher. The message key is the owning user
// ID, which the hash balancer maps to a stable partition.
func (p *Producer) Publish(ctx context.Context, event *events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := events.TopicFor(event.EventType)
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(event.UserID.String()),
		Value: payload,
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			slog.String("error", err.Error()),
			slog.String("event_id", event.EventID.String()),
			slog.String("topic", topic))
		return err
	}

	p.logger.Debug("event published",
		slog.String("event_id", event.EventID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("topic", topic))
	return nil
}

// Close implements events.Publisher.
func (p *Producer) Close() error {
	return p.writer.Close()
}
