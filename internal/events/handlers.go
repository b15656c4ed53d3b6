package events

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LoggingHandler records every consumed event. It is the default consumer
// for lifecycle events on the task-events topic.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a handler that logs consumed events.
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	return &LoggingHandler{
		logger: logger.With(slog.String("component", "event_log_handler")),
	}
}

// HandleEvent implements Handler.
func (h *LoggingHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.logger.Info("task lifecycle event",
		slog.String("event_id", event.EventID.String()),
		slog.String("event_type", string(event.EventType)),
		slog.String("user_id", event.UserID.String()),
		slog.Time("timestamp", event.Timestamp))
	return nil
}

// NotificationHandler reacts to reminder.triggered events. The actual
// delivery channel (email, push) is an integration point; this handler logs
// the notification that would be sent.
type NotificationHandler struct {
	logger *slog.Logger
}

// NewNotificationHandler creates a handler for reminder events.
func NewNotificationHandler(logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger.With(slog.String("component", "notification_handler")),
	}
}

// HandleEvent implements Handler.
func (h *NotificationHandler) HandleEvent(ctx context.Context, event *Event) error {
	var data struct {
		TaskID string `json:"task_id"`
		Title  string `json:"title"`
	}
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	h.logger.Info("reminder notification",
		slog.String("event_id", event.EventID.String()),
		slog.String("user_id", event.UserID.String()),
		slog.String("task_id", data.TaskID),
		slog.String("title", data.Title))
	return nil
}

// CountingHandler keeps an atomic tally of consumed events. Used for the
// task-updates analytics consumer and in tests.
type CountingHandler struct {
	count atomic.Int64
	next  Handler
}

// NewCountingHandler creates a handler that counts events and optionally
// forwards them to next.
func NewCountingHandler(next Handler) *CountingHandler {
	return &CountingHandler{next: next}
}

// HandleEvent implements Handler.
func (h *CountingHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.count.Add(1)
	if h.next != nil {
		return h.next.HandleEvent(ctx, event)
	}
	return nil
}

// Count returns the number of events handled so far.
func (h *CountingHandler) Count() int64 {
	return h.count.Load()
}
