package events

import (
	"context"
	"log/slog"
)

// NoopPublisher discards all events. It is substituted at startup when
// eventing is disabled, so callers never need per-call availability checks.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that drops every event.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	return &NoopPublisher{
		logger: logger.With(slog.String("component", "noop_publisher")),
	}
}

// Ensure NoopPublisher implements Publisher
var _ Publisher = (*NoopPublisher)(nil)

// Publish implements Publisher by discarding the event.
func (p *NoopPublisher) Publish(ctx context.Context, event *Event) error {
	p.logger.Debug("event discarded, publishing disabled",
		slog.String("event_id", event.EventID.String()),
		slog.String("event_type", string(event.EventType)))
	return nil
}

// Close implements Publisher.
func (p *NoopPublisher) Close() error {
	return nil
}
