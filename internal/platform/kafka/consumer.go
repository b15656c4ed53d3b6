package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/taskloop/taskloop/internal/events"
)

// Consumer reads events from all topics as one consumer group and
// dispatches them to handlers registered by event type. Offsets are
// committed only after the handler returns, giving at-least-once delivery;
// handlers must be idempotent with respect to event ID.
type Consumer struct {
	brokers  []string
	groupID  string
	handlers map[events.EventType]events.Handler
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewConsumer creates a Kafka consumer for the given brokers and group.
func NewConsumer(brokers []string, groupID string, logger *slog.Logger) *Consumer {
	return &Consumer{
		brokers:  brokers,
		groupID:  groupID,
		handlers: make(map[events.EventType]events.Handler),
		logger:   logger.With(slog.String("component", "kafka_consumer")),
	}
}

// Ensure Consumer implements events.Subscriber
var _ events.Subscriber = (*Consumer)(nil)

// RegisterHandler implements events.Subscriber.
func (c *Consumer) RegisterHandler(eventType events.EventType, handler events.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
	c.logger.Debug("registered event handler",
		slog.String("event_type", string(eventType)))
}

// Start implements events.Subscriber. One reader goroutine per topic runs
// until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	for _, topic := range events.Topics {
		reader := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: c.brokers,
			GroupID: c.groupID,
			Topic:   topic,
		})

		c.wg.Add(1)
		go c.consume(ctx, topic, reader)
	}

	c.logger.Info("kafka consumer started",
		slog.String("group_id", c.groupID),
		slog.Int("topics", len(events.Topics)))
	return nil
}

// Wait blocks until all reader loops have exited.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

// consume is the per-topic fetch/dispatch/commit loop.
func (c *Consumer) consume(ctx context.Context, topic string, reader *kafkago.Reader) {
	defer c.wg.Done()
	defer func() {
		if err := reader.Close(); err != nil {
			c.logger.Error("failed to close reader",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			c.logger.Error("failed to fetch message",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
			continue
		}

		c.dispatch(ctx, topic, msg.Value)

		// Commit regardless of handler outcome: a poison message must not
		// wedge the partition. Failed handlers log and move on.
		if err := reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit offset",
				slog.String("topic", topic),
				slog.String("error", err.Error()))
		}
	}
}

// dispatch decodes one message and routes it to the registered handler.
// Malformed messages are logged and skipped; a missing handler is logged,
// not an error.
func (c *Consumer) dispatch(ctx context.Context, topic string, payload []byte) {
	var event events.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		c.logger.Error("failed to decode event, skipping",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		return
	}

	c.mu.RLock()
	handler, ok := c.handlers[event.EventType]
	c.mu.RUnlock()

	if !ok {
		c.logger.Warn("no handler registered for event type",
			slog.String("event_type", string(event.EventType)),
			slog.String("event_id", event.EventID.String()))
		return
	}

	if err := handler.HandleEvent(ctx, &event); err != nil {
		c.logger.Error("handler failed to process event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
			slog.String("event_id", event.EventID.String()))
	}
}
