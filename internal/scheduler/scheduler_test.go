package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/events"
	"github.com/taskloop/taskloop/internal/service"
	"github.com/taskloop/taskloop/internal/store"
)

// sweepRepo is a minimal in-memory service.TaskRepository for sweep tests.
type sweepRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	failListDue bool
}

func newSweepRepo() *sweepRepo {
	return &sweepRepo{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (r *sweepRepo) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *sweepRepo) GetForUser(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (r *sweepRepo) List(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, offset, limit int) ([]*domain.Task, int, error) {
	return nil, 0, errors.New("not used")
}

func (r *sweepRepo) Update(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return store.ErrTaskNotFound
	}
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *sweepRepo) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	return errors.New("not used")
}

func (r *sweepRepo) ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	if r.failListDue {
		return nil, errors.New("store unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.Task
	for _, task := range r.tasks {
		if task.IsRecurring && task.NextOccurrence != nil && !task.NextOccurrence.After(now) {
			due = append(due, task.Clone())
		}
	}
	return due, nil
}

func (r *sweepRepo) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.Task
	for _, task := range r.tasks {
		if task.Status || task.RemindedAt != nil {
			continue
		}
		if (task.ReminderTime != nil && !task.ReminderTime.After(now)) ||
			(task.DueDate != nil && !task.DueDate.After(now)) {
			due = append(due, task.Clone())
		}
	}
	return due, nil
}

func (r *sweepRepo) WithTx(tx *sql.Tx) service.TaskRepository { return r }
func (r *sweepRepo) DB() *sql.DB                              { return nil }

func (r *sweepRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) byType(t events.EventType) []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*events.Event
	for _, e := range p.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

func newSweepFixture(t *testing.T) (*Scheduler, *sweepRepo, *capturePublisher) {
	t.Helper()
	repo := newSweepRepo()
	publisher := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tasks := service.NewTaskService(repo, publisher, logger)
	return New(tasks, logger), repo, publisher
}

func seedRecurring(t *testing.T, repo *sweepRepo, next time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(uuid.New(), "recurring chore", "", domain.PriorityMedium)
	require.NoError(t, err)
	task.IsRecurring = true
	task.Recurrence = &domain.RecurrencePattern{Frequency: domain.FrequencyDaily, Interval: 1}
	task.NextOccurrence = &next
	require.NoError(t, repo.Create(context.Background(), task))
	return task
}

func TestRunRecurrenceSweep(t *testing.T) {
	t.Parallel()
	sched, repo, publisher := newSweepFixture(t)
	now := time.Now().UTC()

	overdue := seedRecurring(t, repo, now.Add(-2*time.Hour))
	future := seedRecurring(t, repo, now.Add(24*time.Hour))

	sched.RunRecurrenceSweep(context.Background())

	// One successor for the overdue task, none for the future one.
	assert.Equal(t, 3, repo.count())

	refreshed, err := repo.GetForUser(context.Background(), overdue.UserID, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.OccurrenceCount)
	assert.True(t, refreshed.NextOccurrence.After(*overdue.NextOccurrence))

	untouched, err := repo.GetForUser(context.Background(), future.UserID, future.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, untouched.OccurrenceCount)

	generated := publisher.byType(events.RecurringTaskGenerated)
	require.Len(t, generated, 1)
	assert.NotEmpty(t, generated[0].CorrelationID)
}

func TestRunRecurrenceSweepSurvivesListFailure(t *testing.T) {
	t.Parallel()
	sched, repo, publisher := newSweepFixture(t)
	repo.failListDue = true

	// Must log and return, not panic.
	sched.RunRecurrenceSweep(context.Background())
	assert.Empty(t, publisher.byType(events.RecurringTaskGenerated))
}

func TestRunReminderSweep(t *testing.T) {
	t.Parallel()
	sched, repo, publisher := newSweepFixture(t)
	now := time.Now().UTC()

	due, err := domain.NewTask(uuid.New(), "due reminder", "", domain.PriorityMedium)
	require.NoError(t, err)
	past := now.Add(-30 * time.Minute)
	due.ReminderTime = &past
	require.NoError(t, repo.Create(context.Background(), due))

	notYet, err := domain.NewTask(uuid.New(), "later reminder", "", domain.PriorityMedium)
	require.NoError(t, err)
	future := now.Add(30 * time.Minute)
	notYet.ReminderTime = &future
	require.NoError(t, repo.Create(context.Background(), notYet))

	sched.RunReminderSweep(context.Background())

	triggered := publisher.byType(events.ReminderTriggered)
	require.Len(t, triggered, 1)
	assert.Equal(t, due.UserID, triggered[0].UserID)

	// The fired reminder is cleared so the next sweep stays quiet.
	sched.RunReminderSweep(context.Background())
	assert.Len(t, publisher.byType(events.ReminderTriggered), 1)
}

func TestRunReminderSweepFiresOnceForOverdueDueDate(t *testing.T) {
	t.Parallel()
	sched, repo, publisher := newSweepFixture(t)

	// No reminder time at all: the task matches the sweep on its due date.
	overdue, err := domain.NewTask(uuid.New(), "late invoice", "", domain.PriorityMedium)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-2 * time.Hour)
	overdue.DueDate = &past
	require.NoError(t, repo.Create(context.Background(), overdue))

	sched.RunReminderSweep(context.Background())
	sched.RunReminderSweep(context.Background())

	// One notification total, not one per sweep.
	assert.Len(t, publisher.byType(events.ReminderTriggered), 1)

	fired, err := repo.GetForUser(context.Background(), overdue.UserID, overdue.ID)
	require.NoError(t, err)
	assert.NotNil(t, fired.RemindedAt)
}

func TestScheduleReminderFiresImmediatelyWhenOverdue(t *testing.T) {
	t.Parallel()
	sched, repo, publisher := newSweepFixture(t)

	task, err := domain.NewTask(uuid.New(), "missed standup", "", domain.PriorityMedium)
	require.NoError(t, err)
	past := time.Now().Add(-10 * time.Minute)
	task.ReminderTime = &past
	require.NoError(t, repo.Create(context.Background(), task))

	// A past instant must fire promptly, not wait for next year's matching
	// cron minute.
	require.NoError(t, sched.ScheduleReminder(context.Background(), task))
	require.Eventually(t, func() bool {
		return len(publisher.byType(events.ReminderTriggered)) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestScheduleReminderRegistersOneOffEntry(t *testing.T) {
	t.Parallel()
	sched, repo, publisher := newSweepFixture(t)

	task, err := domain.NewTask(uuid.New(), "future call", "", domain.PriorityMedium)
	require.NoError(t, err)
	future := time.Now().Add(time.Hour)
	task.ReminderTime = &future
	require.NoError(t, repo.Create(context.Background(), task))

	before := len(sched.cron.Entries())
	require.NoError(t, sched.ScheduleReminder(context.Background(), task))
	assert.Len(t, sched.cron.Entries(), before+1)
	assert.Empty(t, publisher.byType(events.ReminderTriggered))

	// Without a reminder time there is nothing to register.
	bare, err := domain.NewTask(uuid.New(), "no reminder", "", domain.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, sched.ScheduleReminder(context.Background(), bare))
	assert.Len(t, sched.cron.Entries(), before+1)
}

func TestSchedulerLifecycle(t *testing.T) {
	t.Parallel()
	sched, _, _ := newSweepFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, sched.Start(ctx))
	assert.ErrorIs(t, sched.Start(ctx), ErrAlreadyRunning)

	sched.Stop()
	// Stop is idempotent.
	sched.Stop()

	// A stopped scheduler can be started again.
	require.NoError(t, sched.Start(ctx))
	sched.Stop()
}
