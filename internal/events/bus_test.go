package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler collects every event it receives.
type recordingHandler struct {
	mu     sync.Mutex
	events []*Event
	done   chan struct{}
	want   int
}

func newRecordingHandler(want int) *recordingHandler {
	return &recordingHandler{done: make(chan struct{}), want: want}
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if len(h.events) == h.want {
		close(h.done)
	}
	return nil
}

func (h *recordingHandler) wait(t *testing.T) []*Event {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Event(nil), h.events...)
}

func TestChannelBusDeliversInOrder(t *testing.T) {
	t.Parallel()

	bus := NewChannelBus(16, testLogger())
	handler := newRecordingHandler(3)
	bus.RegisterHandler(TaskCreated, handler)
	bus.RegisterHandler(TaskCompleted, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Start(ctx))

	userID := uuid.New()
	var published []*Event
	for _, eventType := range []EventType{TaskCreated, TaskCompleted, TaskCreated} {
		event, err := New(eventType, userID, map[string]string{"title": "t"})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, event))
		published = append(published, event)
	}

	got := handler.wait(t)
	require.Len(t, got, 3)
	for i, event := range got {
		// Same topic, same publisher: order is preserved.
		assert.Equal(t, published[i].EventID, got[i].EventID)
		assert.Equal(t, userID, event.UserID)
	}
}

func TestChannelBusRoutesByTopic(t *testing.T) {
	t.Parallel()

	bus := NewChannelBus(16, testLogger())
	lifecycle := newRecordingHandler(1)
	reminders := newRecordingHandler(1)
	bus.RegisterHandler(TaskCreated, lifecycle)
	bus.RegisterHandler(ReminderTriggered, reminders)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Start(ctx))

	created, err := New(TaskCreated, uuid.New(), nil)
	require.NoError(t, err)
	reminder, err := New(ReminderTriggered, uuid.New(), nil)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, created))
	require.NoError(t, bus.Publish(ctx, reminder))

	assert.Equal(t, TaskCreated, lifecycle.wait(t)[0].EventType)
	assert.Equal(t, ReminderTriggered, reminders.wait(t)[0].EventType)
}

func TestChannelBusHandlerErrorDoesNotStallTopic(t *testing.T) {
	t.Parallel()

	bus := NewChannelBus(16, testLogger())
	next := newRecordingHandler(2)
	calls := 0
	bus.RegisterHandler(TaskCreated, HandlerFunc(func(ctx context.Context, event *Event) error {
		calls++
		if calls == 1 {
			return errors.New("boom")
		}
		return next.HandleEvent(ctx, event)
	}))
	bus.RegisterHandler(TaskCompleted, next)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, bus.Start(ctx))

	for _, eventType := range []EventType{TaskCreated, TaskCreated, TaskCompleted} {
		event, err := New(eventType, uuid.New(), nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, event))
	}

	got := next.wait(t)
	assert.Len(t, got, 2, "events after the failing one still flow")
}

func TestChannelBusFullBufferDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	// No consumer started: the buffer fills and the overflow errors out.
	bus := NewChannelBus(1, testLogger())
	ctx := context.Background()

	first, err := New(TaskCreated, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, first))

	second, err := New(TaskCreated, uuid.New(), nil)
	require.NoError(t, err)
	assert.Error(t, bus.Publish(ctx, second))
}

func TestChannelBusClosedRejectsPublish(t *testing.T) {
	t.Parallel()

	bus := NewChannelBus(4, testLogger())
	require.NoError(t, bus.Close())

	event, err := New(TaskCreated, uuid.New(), nil)
	require.NoError(t, err)
	assert.ErrorIs(t, bus.Publish(context.Background(), event), ErrBusClosed)
}

func TestCountingHandler(t *testing.T) {
	t.Parallel()

	inner := newRecordingHandler(1)
	counting := NewCountingHandler(inner)

	event, err := New(RecurringTaskGenerated, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, counting.HandleEvent(context.Background(), event))

	assert.Equal(t, int64(1), counting.Count())
	assert.Len(t, inner.wait(t), 1)
}

func TestTopicFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TaskEventsTopic, TopicFor(TaskCreated))
	assert.Equal(t, TaskEventsTopic, TopicFor(TaskDeleted))
	assert.Equal(t, RemindersTopic, TopicFor(ReminderTriggered))
	assert.Equal(t, TaskUpdatesTopic, TopicFor(RecurringTaskGenerated))
}
