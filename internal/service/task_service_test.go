package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/events"
	"github.com/taskloop/taskloop/internal/store"
)

// fakeTaskRepo is an in-memory TaskRepository. It returns a nil DB so the
// service runs transactional closures directly against it.
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (f *fakeTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task.Clone()
	return nil
}

func (f *fakeTaskRepo) GetForUser(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[taskID]
	if !ok || task.UserID != userID {
		return nil, store.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (f *fakeTaskRepo) List(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, offset, limit int) ([]*domain.Task, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*domain.Task
	for _, task := range f.tasks {
		if task.UserID != userID {
			continue
		}
		if filter.Search != "" {
			term := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(task.Title), term) &&
				!strings.Contains(strings.ToLower(task.Description), term) {
				continue
			}
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.TimestampFrom != nil && task.Timestamp.Before(*filter.TimestampFrom) {
			continue
		}
		if filter.TimestampTo != nil && task.Timestamp.After(*filter.TimestampTo) {
			continue
		}
		matched = append(matched, task.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*domain.Task{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *fakeTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return store.ErrTaskNotFound
	}
	f.tasks[task.ID] = task.Clone()
	return nil
}

func (f *fakeTaskRepo) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.tasks[taskID]
	if !ok || existing.UserID != userID {
		return store.ErrTaskNotFound
	}
	delete(f.tasks, taskID)
	return nil
}

func (f *fakeTaskRepo) ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*domain.Task
	for _, task := range f.tasks {
		if task.IsRecurring && task.NextOccurrence != nil && !task.NextOccurrence.After(now) {
			due = append(due, task.Clone())
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeTaskRepo) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*domain.Task
	for _, task := range f.tasks {
		if task.Status || task.RemindedAt != nil {
			continue
		}
		reminderDue := task.ReminderTime != nil && !task.ReminderTime.After(now)
		dateDue := task.DueDate != nil && !task.DueDate.After(now)
		if reminderDue || dateDue {
			due = append(due, task.Clone())
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (f *fakeTaskRepo) WithTx(tx *sql.Tx) TaskRepository { return f }
func (f *fakeTaskRepo) DB() *sql.DB                      { return nil }

func (f *fakeTaskRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// capturePublisher records every published event in order.
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

func (p *capturePublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

func newTestService(t *testing.T) (*TaskService, *fakeTaskRepo, *capturePublisher) {
	t.Helper()
	repo := newFakeTaskRepo()
	publisher := &capturePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTaskService(repo, publisher, logger), repo, publisher
}

func TestCreateTask(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()

	task, err := svc.CreateTask(context.Background(), userID, CreateTaskInput{
		Title:       "Buy groceries",
		Description: "milk and <b>eggs</b>",
		Priority:    "high",
	})
	require.NoError(t, err)

	assert.Equal(t, userID, task.UserID)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, "milk and eggs", task.Description)
	assert.False(t, task.Status)
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, []events.EventType{events.TaskCreated}, publisher.types())
}

func TestCreateTaskRejectsHTMLTitle(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)

	_, err := svc.CreateTask(context.Background(), uuid.New(), CreateTaskInput{
		Title: "Buy <script>alert(1)</script> milk",
	})
	require.ErrorIs(t, err, domain.ErrTitleInvalidChars)
	assert.Equal(t, 0, repo.count())
	assert.Empty(t, publisher.types())
}

func TestCreateRecurringTaskComputesNextOccurrence(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	start := time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)
	task, err := svc.CreateTask(context.Background(), uuid.New(), CreateTaskInput{
		Title:     "Pay rent",
		Timestamp: &start,
		Recurrence: &domain.RecurrencePattern{
			Frequency: domain.FrequencyMonthly,
			Interval:  1,
		},
	})
	require.NoError(t, err)

	assert.True(t, task.IsRecurring)
	require.NotNil(t, task.NextOccurrence)
	assert.Equal(t, time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC), task.NextOccurrence.UTC())
}

func TestGetTaskIsOwnerScoped(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	owner := uuid.New()
	stranger := uuid.New()

	task, err := svc.CreateTask(context.Background(), owner, CreateTaskInput{Title: "private"})
	require.NoError(t, err)

	got, err := svc.GetTask(context.Background(), owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	// A foreign task is indistinguishable from a missing one.
	_, err = svc.GetTask(context.Background(), stranger, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestListTasks(t *testing.T) {
	t.Parallel()
	svc, repo, _ := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		title    string
		desc     string
		priority domain.Priority
		status   bool
	}{
		{"Buy groceries", "", domain.PriorityHigh, false},
		{"Clean kitchen", "after grocery run", domain.PriorityLow, true},
		{"Call plumber", "", domain.PriorityHigh, false},
	}
	for i, s := range seed {
		task, err := domain.NewTask(userID, s.title, s.desc, s.priority)
		require.NoError(t, err)
		task.Status = s.status
		task.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		task.Timestamp = task.CreatedAt
		require.NoError(t, repo.Create(ctx, task))
	}
	// Another user's task must never show up.
	foreign, err := domain.NewTask(uuid.New(), "Buy groceries too", "", domain.PriorityHigh)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, foreign))

	t.Run("search is case-insensitive over title and description", func(t *testing.T) {
		for _, term := range []string{"grocer", "GROCER"} {
			page, err := svc.ListTasks(ctx, userID, ListTasksInput{Search: term})
			require.NoError(t, err)
			assert.Equal(t, 2, page.Total, "term %q", term)
		}
	})

	t.Run("status synonyms", func(t *testing.T) {
		for _, raw := range []string{"complete", "completed", "true", "1"} {
			page, err := svc.ListTasks(ctx, userID, ListTasksInput{Status: raw})
			require.NoError(t, err)
			assert.Equal(t, 1, page.Total, "status %q", raw)
		}
		for _, raw := range []string{"incomplete", "pending", "false", "0"} {
			page, err := svc.ListTasks(ctx, userID, ListTasksInput{Status: raw})
			require.NoError(t, err)
			assert.Equal(t, 2, page.Total, "status %q", raw)
		}
		_, err := svc.ListTasks(ctx, userID, ListTasksInput{Status: "done-ish"})
		assert.ErrorIs(t, err, ErrInvalidStatusFilter)
	})

	t.Run("priority filter", func(t *testing.T) {
		page, err := svc.ListTasks(ctx, userID, ListTasksInput{Priority: "high"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})

	t.Run("pagination is newest first", func(t *testing.T) {
		page, err := svc.ListTasks(ctx, userID, ListTasksInput{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		require.Len(t, page.Tasks, 2)
		assert.Equal(t, "Call plumber", page.Tasks[0].Title)

		page, err = svc.ListTasks(ctx, userID, ListTasksInput{Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page.Tasks, 1)
		assert.Equal(t, "Buy groceries", page.Tasks[0].Title)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		page, err := svc.ListTasks(ctx, userID, ListTasksInput{Limit: 10_000})
		require.NoError(t, err)
		assert.Equal(t, MaxPageLimit, page.Limit)
	})
}

func TestUpdateTask(t *testing.T) {
	t.Parallel()
	svc, _, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{Title: "draft", Priority: "low"})
	require.NoError(t, err)

	newTitle := "final"
	newPriority := "critical"
	updated, err := svc.UpdateTask(ctx, userID, task.ID, UpdateTaskInput{
		Title:    &newTitle,
		Priority: &newPriority,
	})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, domain.PriorityCritical, updated.Priority)
	assert.Equal(t, []events.EventType{events.TaskCreated, events.TaskUpdated}, publisher.types())

	// Updated snapshot pair rides on the event payload.
	var data events.TaskUpdatedData
	require.NoError(t, publisher.events[1].UnmarshalData(&data))
	assert.Contains(t, string(data.Original), `"draft"`)
	assert.Contains(t, string(data.Updated), `"final"`)

	badTitle := "<h1>nope</h1>"
	_, err = svc.UpdateTask(ctx, userID, task.ID, UpdateTaskInput{Title: &badTitle})
	assert.ErrorIs(t, err, domain.ErrTitleInvalidChars)

	_, err = svc.UpdateTask(ctx, uuid.New(), task.ID, UpdateTaskInput{Title: &newTitle})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSetCompletionGeneratesSuccessorForRecurringTask(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	start := time.Now().UTC().Add(-48 * time.Hour)
	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{
		Title:     "water plants",
		Timestamp: &start,
		Recurrence: &domain.RecurrencePattern{
			Frequency: domain.FrequencyDaily,
			Interval:  1,
		},
	})
	require.NoError(t, err)
	originalNext := *task.NextOccurrence

	completed, err := svc.SetCompletion(ctx, userID, task.ID, true)
	require.NoError(t, err)
	assert.True(t, completed.Status)
	assert.Equal(t, 1, completed.OccurrenceCount)
	assert.True(t, completed.NextOccurrence.After(originalNext))

	// One original plus one successor.
	require.Equal(t, 2, repo.count())
	page, err := svc.ListTasks(ctx, userID, ListTasksInput{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	successor := page.Tasks[0]
	assert.NotEqual(t, task.ID, successor.ID)
	assert.False(t, successor.Status)
	assert.True(t, successor.IsRecurring)
	assert.True(t, successor.NextOccurrence.After(originalNext))

	types := publisher.types()
	require.Equal(t, []events.EventType{events.TaskCreated, events.TaskCompleted, events.RecurringTaskGenerated}, types)
	// The generated event is caused by the completion.
	assert.Equal(t, publisher.events[1].EventID.String(), publisher.events[2].CausationID)
}

func TestSetCompletionIgnoresRepeatedCompletion(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	start := time.Now().UTC().Add(-48 * time.Hour)
	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{
		Title:     "water plants",
		Timestamp: &start,
		Recurrence: &domain.RecurrencePattern{
			Frequency: domain.FrequencyDaily,
			Interval:  1,
		},
	})
	require.NoError(t, err)

	_, err = svc.SetCompletion(ctx, userID, task.ID, true)
	require.NoError(t, err)
	require.Equal(t, 2, repo.count())

	// Completing an already complete task is a plain update: no second
	// task.completed event and no second successor.
	again, err := svc.SetCompletion(ctx, userID, task.ID, true)
	require.NoError(t, err)
	assert.True(t, again.Status)
	assert.Equal(t, 2, repo.count())
	assert.Equal(t, 1, again.OccurrenceCount)
	assert.Equal(t,
		[]events.EventType{events.TaskCreated, events.TaskCompleted, events.RecurringTaskGenerated, events.TaskUpdated},
		publisher.types())
}

func TestSetCompletionStopsAtEndCount(t *testing.T) {
	t.Parallel()
	svc, repo, _ := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{
		Title: "limited series",
		Recurrence: &domain.RecurrencePattern{
			Frequency:    domain.FrequencyDaily,
			Interval:     1,
			EndCondition: domain.EndCount,
			EndCount:     1,
		},
	})
	require.NoError(t, err)

	// First completion generates the only allowed successor.
	_, err = svc.SetCompletion(ctx, userID, task.ID, true)
	require.NoError(t, err)
	require.Equal(t, 2, repo.count())

	// The successor has reached the count and must not spawn another.
	page, err := svc.ListTasks(ctx, userID, ListTasksInput{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	_, err = svc.SetCompletion(ctx, userID, page.Tasks[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.count())
}

func TestSetCompletionRevertEmitsUpdate(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{Title: "one-off"})
	require.NoError(t, err)

	_, err = svc.SetCompletion(ctx, userID, task.ID, true)
	require.NoError(t, err)
	reverted, err := svc.SetCompletion(ctx, userID, task.ID, false)
	require.NoError(t, err)

	assert.False(t, reverted.Status)
	assert.Equal(t, 1, repo.count(), "non-recurring completion must not spawn tasks")
	assert.Equal(t,
		[]events.EventType{events.TaskCreated, events.TaskCompleted, events.TaskUpdated},
		publisher.types())
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{Title: "ephemeral"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, userID, task.ID))
	assert.Equal(t, 0, repo.count())
	assert.Equal(t, []events.EventType{events.TaskCreated, events.TaskDeleted}, publisher.types())

	assert.ErrorIs(t, svc.DeleteTask(ctx, userID, task.ID), ErrTaskNotFound)
}

func TestCreateTasksBatchIsAllOrNothing(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()

	result, err := svc.CreateTasksBatch(context.Background(), userID, []CreateTaskInput{
		{Title: "one"},
		{Title: "two"},
		{Title: "three"},
		{Title: "<img src=x>"},
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "task 3")
	assert.Empty(t, result.Items)
	assert.Equal(t, 0, repo.count(), "a failed batch must persist nothing")
	assert.Empty(t, publisher.types())

	// The same batch without the bad item goes through atomically.
	result, err = svc.CreateTasksBatch(context.Background(), userID, []CreateTaskInput{
		{Title: "one"},
		{Title: "two"},
		{Title: "three"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.Items, 3)
	assert.Equal(t, 3, repo.count())
	assert.Equal(t,
		[]events.EventType{events.TaskCreated, events.TaskCreated, events.TaskCreated},
		publisher.types())
}

func TestCompleteTasksBatchReportsMissingPeers(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{Title: "real"})
	require.NoError(t, err)

	result, err := svc.CompleteTasksBatch(ctx, userID, []BatchCompletionItem{
		{TaskID: task.ID.String(), Completed: true},
		{TaskID: uuid.NewString(), Completed: true},
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "task 1")
	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].Status, "the existing peer is still applied")
}

func TestCompleteTasksBatchIgnoresRepeatedCompletion(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	start := time.Now().UTC().Add(-48 * time.Hour)
	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{
		Title:     "weekly backup",
		Timestamp: &start,
		Recurrence: &domain.RecurrencePattern{
			Frequency: domain.FrequencyDaily,
			Interval:  1,
		},
	})
	require.NoError(t, err)

	item := []BatchCompletionItem{{TaskID: task.ID.String(), Completed: true}}
	result, err := svc.CompleteTasksBatch(ctx, userID, item)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 2, repo.count())

	// The same item again flips nothing: it reports as updated and must not
	// spawn a second successor.
	result, err = svc.CompleteTasksBatch(ctx, userID, item)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, repo.count())

	completedEvents := 0
	for _, et := range publisher.types() {
		if et == events.TaskCompleted {
			completedEvents++
		}
	}
	assert.Equal(t, 1, completedEvents)
	assert.Equal(t, events.TaskUpdated, publisher.types()[len(publisher.types())-1])
}

func TestUpdateTasksBatchRejectsMalformedIDs(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{Title: "original"})
	require.NoError(t, err)

	title := "changed"
	result, err := svc.UpdateTasksBatch(ctx, userID, []BatchUpdateItem{
		{TaskID: "not-a-uuid", Update: UpdateTaskInput{Title: &title}},
		{TaskID: task.ID.String(), Update: UpdateTaskInput{Title: &title}},
	})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Empty(t, result.Items, "a malformed item must block the whole batch")

	got, err := svc.GetTask(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
}

func TestGenerateNextOccurrence(t *testing.T) {
	t.Parallel()
	svc, repo, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	start := time.Now().UTC().Add(-72 * time.Hour)
	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{
		Title:     "weekly review",
		Timestamp: &start,
		Recurrence: &domain.RecurrencePattern{
			Frequency: domain.FrequencyDaily,
			Interval:  1,
		},
	})
	require.NoError(t, err)

	successor, err := svc.GenerateNextOccurrence(ctx, task, "sweep-1")
	require.NoError(t, err)
	require.NotNil(t, successor)
	assert.False(t, successor.Status)
	assert.Equal(t, 2, repo.count())

	// Original's pointer advanced alongside.
	original, err := svc.GetTask(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, original.OccurrenceCount)
	assert.True(t, original.NextOccurrence.After(*task.NextOccurrence))

	types := publisher.types()
	require.Equal(t, events.RecurringTaskGenerated, types[len(types)-1])
	assert.Equal(t, "sweep-1", publisher.events[len(publisher.events)-1].CorrelationID)
}

func TestEmitReminderClearsReminderAndPublishes(t *testing.T) {
	t.Parallel()
	svc, _, publisher := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	task, err := svc.CreateTask(ctx, userID, CreateTaskInput{
		Title:        "standup",
		ReminderTime: &past,
	})
	require.NoError(t, err)

	due, err := svc.DueReminders(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, svc.EmitReminder(ctx, due[0], "sweep-2"))

	// Cleared and stamped: the next sweep finds nothing.
	due, err = svc.DueReminders(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	fired, err := svc.GetTask(ctx, userID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, fired.ReminderTime)
	assert.NotNil(t, fired.RemindedAt)

	types := publisher.types()
	require.Equal(t, events.ReminderTriggered, types[len(types)-1])

	var payload struct {
		TaskID string `json:"task_id"`
		Title  string `json:"title"`
	}
	last := publisher.events[len(publisher.events)-1]
	require.NoError(t, last.UnmarshalData(&payload))
	assert.Equal(t, task.ID.String(), payload.TaskID)
	assert.Equal(t, "standup", payload.Title)
	assert.Equal(t, "sweep-2", last.CorrelationID)
}
