package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// ErrBusClosed is returned when publishing to a closed ChannelBus.
var ErrBusClosed = errors.New("event bus is closed")

// ChannelBus is an in-process implementation of Publisher and Subscriber
// used when no external broker is configured. Each topic is a buffered
// channel drained by a single dispatch goroutine, which preserves
// per-publisher ordering on a topic - a superset of the per-user ordering
// the transport contract requires. Messages cross the bus as serialized
// bytes so the consume path exercises the same decode handling as a real
// transport.
type ChannelBus struct {
	topics   map[string]chan []byte
	handlers map[EventType]Handler
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewChannelBus creates an in-process bus with one buffered channel per
// known topic.
func NewChannelBus(bufferSize int, logger *slog.Logger) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	topics := make(map[string]chan []byte, len(Topics))
	for _, topic := range Topics {
		topics[topic] = make(chan []byte, bufferSize)
	}

	return &ChannelBus{
		topics:   topics,
		handlers: make(map[EventType]Handler),
		logger:   logger.With(slog.String("component", "channel_bus")),
	}
}

// Ensure ChannelBus implements both transport interfaces
var (
	_ Publisher  = (*ChannelBus)(nil)
	_ Subscriber = (*ChannelBus)(nil)
)

// Publish implements Publisher. The event is serialized and enqueued on its
// topic channel. A full channel drops the event with a log entry rather
// than blocking the mutation path.
func (b *ChannelBus) Publish(ctx context.Context, event *Event) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrBusClosed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	topic := TopicFor(event.EventType)
	select {
	case b.topics[topic] <- payload:
		b.logger.Debug("event published",
			slog.String("event_id", event.EventID.String()),
			slog.String("event_type", string(event.EventType)),
			slog.String("topic", topic))
		return nil
	default:
		b.logger.Warn("topic buffer full, dropping event",
			slog.String("event_id", event.EventID.String()),
			slog.String("topic", topic))
		return errors.New("topic buffer full")
	}
}

// RegisterHandler implements Subscriber.
func (b *ChannelBus) RegisterHandler(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = handler
	b.logger.Debug("registered event handler",
		slog.String("event_type", string(eventType)),
		slog.Int("handler_count", len(b.handlers)))
}

// Start implements Subscriber. One goroutine per topic drains messages and
// dispatches them until ctx is cancelled.
func (b *ChannelBus) Start(ctx context.Context) error {
	for topic, ch := range b.topics {
		b.wg.Add(1)
		go b.consume(ctx, topic, ch)
	}
	b.logger.Info("channel bus consuming", slog.Int("topics", len(b.topics)))
	return nil
}

// consume is the per-topic dispatch loop.
func (b *ChannelBus) consume(ctx context.Context, topic string, ch <-chan []byte) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-ch:
			b.dispatch(ctx, topic, payload)
		}
	}
}

// dispatch decodes one message and hands it to the registered handler.
// Malformed messages and handler errors are logged and skipped so one bad
// message never stalls the topic.
func (b *ChannelBus) dispatch(ctx context.Context, topic string, payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Error("failed to decode event, skipping",
			slog.String("topic", topic),
			slog.String("error", err.Error()))
		return
	}

	b.mu.RLock()
	handler, ok := b.handlers[event.EventType]
	b.mu.RUnlock()

	if !ok {
		b.logger.Warn("no handler registered for event type",
			slog.String("event_type", string(event.EventType)),
			slog.String("event_id", event.EventID.String()))
		return
	}

	if err := handler.HandleEvent(ctx, &event); err != nil {
		b.logger.Error("handler failed to process event",
			slog.String("error", err.Error()),
			slog.String("event_type", string(event.EventType)),
			slog.String("event_id", event.EventID.String()))
	}
}

// Close implements Publisher. Pending messages already enqueued may still
// be dispatched by the consume loops until their context is cancelled.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// Wait blocks until all consume loops have exited. Intended for graceful
// shutdown after the consuming context is cancelled.
func (b *ChannelBus) Wait() {
	b.wg.Wait()
}
