package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of lifecycle event.
type EventType string

// Task lifecycle and scheduling event types.
const (
	TaskCreated            EventType = "task.created"
	TaskUpdated            EventType = "task.updated"
	TaskCompleted          EventType = "task.completed"
	TaskDeleted            EventType = "task.deleted"
	ReminderTriggered      EventType = "reminder.triggered"
	RecurringTaskGenerated EventType = "recurring_task.generated"
)

// IsValid reports whether t is one of the defined event types.
func (t EventType) IsValid() bool {
	switch t {
	case TaskCreated, TaskUpdated, TaskCompleted, TaskDeleted,
		ReminderTriggered, RecurringTaskGenerated:
		return true
	}
	return false
}

// Topic names. Lifecycle events share one topic; reminders and generated
// occurrences each get their own so consumers can subscribe selectively.
const (
	TaskEventsTopic  = "task-events"
	RemindersTopic   = "reminders"
	TaskUpdatesTopic = "task-updates"
)

// Topics lists every topic the system produces to, in a stable order.
var Topics = []string{TaskEventsTopic, RemindersTopic, TaskUpdatesTopic}

// TopicFor returns the topic an event type is published to.
func TopicFor(t EventType) string {
	switch t {
	case ReminderTriggered:
		return RemindersTopic
	case RecurringTaskGenerated:
		return TaskUpdatesTopic
	default:
		return TaskEventsTopic
	}
}

// Event is one immutable task lifecycle event. Events are serialized as-is
// onto the wire; Data carries the type-specific payload. The owning user ID
// doubles as the partition key so all of one user's events stay ordered.
type Event struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     EventType       `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CausationID   string          `json:"causation_id,omitempty"`
	UserID        uuid.UUID       `json:"user_id"`
	Data          json.RawMessage `json:"data"`
}

// New creates an Event of the given type for the given user, serializing
// payload into the Data field. Returns an error if the payload cannot be
// serialized.
func New(eventType EventType, userID uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:   uuid.New(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Data:      data,
	}, nil
}

// UnmarshalData decodes the event payload into the provided structure.
func (e *Event) UnmarshalData(v any) error {
	return json.Unmarshal(e.Data, v)
}

// TaskUpdatedData is the payload shape for task.updated events: both the
// original and the updated snapshot, so downstream consumers can diff.
type TaskUpdatedData struct {
	Original json.RawMessage `json:"original"`
	Updated  json.RawMessage `json:"updated"`
}

// Handler processes consumed events. Delivery is at-least-once and this
// package performs no deduplication, so handlers needing exactly-once
// effects must be idempotent with respect to EventID.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Publisher delivers events to the transport. Publishing is best-effort
// from the caller's perspective: a failed publish is logged by the
// implementation and must never roll back the mutation that produced the
// event.
type Publisher interface {
	// Publish delivers the event to the topic matching its type, keyed by
	// the owning user ID.
	Publish(ctx context.Context, event *Event) error

	// Close releases the underlying transport connection.
	Close() error
}

// Subscriber dispatches consumed events to handlers registered by event
// type. Unknown or malformed messages are logged and skipped; a missing
// handler is logged, not an error.
type Subscriber interface {
	// RegisterHandler associates a handler with an event type. Later
	// registrations for the same type replace earlier ones.
	RegisterHandler(eventType EventType, handler Handler)

	// Start begins the consumption loop. It returns immediately; the loop
	// runs until ctx is cancelled.
	Start(ctx context.Context) error
}
