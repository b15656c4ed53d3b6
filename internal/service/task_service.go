package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/events"
	"github.com/taskloop/taskloop/internal/recurrence"
	"github.com/taskloop/taskloop/internal/store"
)

// Pagination bounds for task listings.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Title        string
	Description  string
	Priority     string
	Timestamp    *time.Time
	DueDate      *time.Time
	ReminderTime *time.Time
	Recurrence   *domain.RecurrencePattern
}

// UpdateTaskInput carries a partial update; nil fields are left unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Priority     *string
	Status       *bool
	Timestamp    *time.Time
	DueDate      *time.Time
	ReminderTime *time.Time
}

// ListTasksInput narrows and pages a task listing. String fields use the
// API's loose vocabulary (e.g. status accepts "completed", "pending", "1")
// and are parsed here.
type ListTasksInput struct {
	Search        string
	Priority      string
	Status        string
	TimestampFrom *time.Time
	TimestampTo   *time.Time
	Page          int
	Limit         int
}

// TaskPage is one page of a task listing plus pagination metadata.
type TaskPage struct {
	Tasks []*domain.Task
	Total int
	Page  int
	Limit int
}

// ParseStatusFilter maps the API's status vocabulary to a tri-state filter.
// An empty string means "no filter". Accepted synonyms mirror what clients
// have historically sent: complete/completed/true/1 and
// incomplete/pending/false/0.
func ParseStatusFilter(s string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return nil, nil
	case "complete", "completed", "true", "1":
		v := true
		return &v, nil
	case "incomplete", "pending", "false", "0":
		v := false
		return &v, nil
	}
	return nil, ErrInvalidStatusFilter
}

// TaskService orchestrates task lifecycle operations: persistence through
// the repository, recurrence math, and lifecycle event emission. Events are
// published after the mutation commits and are best-effort; a publish
// failure is logged, never returned.
type TaskService struct {
	repo      TaskRepository
	publisher events.Publisher
	logger    *slog.Logger
}

// NewTaskService creates a TaskService with the given dependencies.
func NewTaskService(repo TaskRepository, publisher events.Publisher, logger *slog.Logger) *TaskService {
	return &TaskService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "task_service")),
	}
}

// CreateTask validates and persists a new task for the given user, then
// emits a task.created event.
func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	task, err := s.buildTask(userID, input)
	if err != nil {
		return nil, newTaskServiceError("create_task", "invalid task", err)
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, newTaskServiceError("create_task", "failed to save task", err)
	}

	s.logger.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", userID.String()))

	s.emit(ctx, events.TaskCreated, userID, task)
	return task, nil
}

// GetTask retrieves a single task, scoped to its owner.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.repo.GetForUser(ctx, userID, taskID)
	if err != nil {
		return nil, newTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// ListTasks returns one page of the user's tasks matching the filter, newest
// first. Page numbers start at 1; limits are clamped to MaxPageLimit.
func (s *TaskService) ListTasks(ctx context.Context, userID uuid.UUID, input ListTasksInput) (*TaskPage, error) {
	filter := store.TaskFilter{
		Search:        strings.TrimSpace(input.Search),
		TimestampFrom: input.TimestampFrom,
		TimestampTo:   input.TimestampTo,
	}

	if input.Priority != "" {
		priority, err := domain.ParsePriority(input.Priority)
		if err != nil {
			return nil, newTaskServiceError("list_tasks", "invalid priority filter", err)
		}
		filter.Priority = priority
	}

	status, err := ParseStatusFilter(input.Status)
	if err != nil {
		return nil, newTaskServiceError("list_tasks", "invalid status filter", err)
	}
	filter.Status = status

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	tasks, total, err := s.repo.List(ctx, userID, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, newTaskServiceError("list_tasks", "failed to list tasks", err)
	}

	return &TaskPage{
		Tasks: tasks,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// UpdateTask applies a partial update to an owned task and emits a
// task.updated event carrying both the original and updated snapshots.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, input UpdateTaskInput) (*domain.Task, error) {
	task, err := s.repo.GetForUser(ctx, userID, taskID)
	if err != nil {
		return nil, newTaskServiceError("update_task", "failed to retrieve task", err)
	}
	original := task.Clone()

	if err := applyTaskUpdate(task, input); err != nil {
		return nil, newTaskServiceError("update_task", "invalid update", err)
	}
	task.Touch()

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, newTaskServiceError("update_task", "failed to save task", err)
	}

	s.emitUpdated(ctx, original, task)
	return task, nil
}

// SetCompletion marks a task complete or incomplete. Only the
// incomplete→complete transition emits task.completed and, for recurring
// tasks, generates the next occurrence inside the same transaction — so
// re-completing an already complete task never spawns a second successor.
// Every other flip emits task.updated. Events go out after commit.
func (s *TaskService) SetCompletion(ctx context.Context, userID, taskID uuid.UUID, completed bool) (*domain.Task, error) {
	task, err := s.repo.GetForUser(ctx, userID, taskID)
	if err != nil {
		return nil, newTaskServiceError("set_completion", "failed to retrieve task", err)
	}
	original := task.Clone()
	transition := completed && !task.Status

	task.Status = completed
	task.Touch()

	var successor *domain.Task
	err = inTx(ctx, s.repo, func(txRepo TaskRepository) error {
		if transition && task.IsRecurring {
			next, genErr := buildSuccessor(task, time.Now().UTC())
			if genErr != nil {
				return genErr
			}
			if next != nil {
				if createErr := txRepo.Create(ctx, next); createErr != nil {
					return createErr
				}
				successor = next
			}
		}
		return txRepo.Update(ctx, task)
	})
	if err != nil {
		return nil, newTaskServiceError("set_completion", "failed to save task", err)
	}

	if transition {
		completedEvent := s.emit(ctx, events.TaskCompleted, userID, task)
		if successor != nil {
			generated, genErr := events.New(events.RecurringTaskGenerated, userID, successor)
			if genErr == nil {
				if completedEvent != nil {
					generated.CausationID = completedEvent.EventID.String()
				}
				s.publish(ctx, generated)
			} else {
				s.logger.Error("failed to build event",
					slog.String("event_type", string(events.RecurringTaskGenerated)),
					slog.String("error", genErr.Error()))
			}
		}
	} else {
		s.emitUpdated(ctx, original, task)
	}

	return task, nil
}

// DeleteTask removes an owned task and emits a task.deleted event carrying
// the task's ID and title.
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	task, err := s.repo.GetForUser(ctx, userID, taskID)
	if err != nil {
		return newTaskServiceError("delete_task", "failed to retrieve task", err)
	}

	if err := s.repo.Delete(ctx, userID, taskID); err != nil {
		return newTaskServiceError("delete_task", "failed to delete task", err)
	}

	s.emit(ctx, events.TaskDeleted, userID, map[string]string{
		"task_id": task.ID.String(),
		"title":   task.Title,
	})
	return nil
}

// GenerateNextOccurrence creates the successor for a due recurring task and
// advances the original's next-occurrence pointer, in one transaction. It
// returns nil without error when the task is not recurring, its pattern has
// reached its end condition, or no further occurrence exists. Used by the
// scheduler's recurrence sweep; correlationID ties all events of one sweep
// run together.
func (s *TaskService) GenerateNextOccurrence(ctx context.Context, task *domain.Task, correlationID string) (*domain.Task, error) {
	var successor *domain.Task
	err := inTx(ctx, s.repo, func(txRepo TaskRepository) error {
		current, getErr := txRepo.GetForUser(ctx, task.UserID, task.ID)
		if getErr != nil {
			return getErr
		}

		next, genErr := buildSuccessor(current, time.Now().UTC())
		if genErr != nil || next == nil {
			return genErr
		}

		if createErr := txRepo.Create(ctx, next); createErr != nil {
			return createErr
		}
		current.Touch()
		if updateErr := txRepo.Update(ctx, current); updateErr != nil {
			return updateErr
		}
		successor = next
		return nil
	})
	if err != nil {
		return nil, newTaskServiceError("generate_next_occurrence", "failed to generate occurrence", err)
	}
	if successor == nil {
		return nil, nil
	}

	event, err := events.New(events.RecurringTaskGenerated, task.UserID, successor)
	if err == nil {
		event.CorrelationID = correlationID
		s.publish(ctx, event)
	} else {
		s.logger.Error("failed to build event",
			slog.String("event_type", string(events.RecurringTaskGenerated)),
			slog.String("error", err.Error()))
	}

	return successor, nil
}

// DueRecurring returns recurring tasks whose next occurrence is at or before
// now, for the scheduler's recurrence sweep.
func (s *TaskService) DueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	tasks, err := s.repo.ListDueRecurring(ctx, now, limit)
	if err != nil {
		return nil, newTaskServiceError("due_recurring", "failed to list due recurring tasks", err)
	}
	return tasks, nil
}

// DueReminders returns incomplete tasks whose due date or reminder time is
// at or before now, for the scheduler's reminder sweep.
func (s *TaskService) DueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	tasks, err := s.repo.ListDueReminders(ctx, now, limit)
	if err != nil {
		return nil, newTaskServiceError("due_reminders", "failed to list due reminders", err)
	}
	return tasks, nil
}

// EmitReminder publishes a reminder.triggered event for a due task and
// records the firing so the next sweep does not pick the task up again:
// the reminder time is cleared and reminded-at is stamped, which also stops
// due-date matches from re-firing every sweep until completion.
func (s *TaskService) EmitReminder(ctx context.Context, task *domain.Task, correlationID string) error {
	now := time.Now().UTC()
	task.ReminderTime = nil
	task.RemindedAt = &now
	task.Touch()
	if err := s.repo.Update(ctx, task); err != nil {
		return newTaskServiceError("emit_reminder", "failed to clear reminder", err)
	}

	payload := map[string]any{
		"task_id": task.ID.String(),
		"title":   task.Title,
	}
	if task.DueDate != nil {
		payload["due_date"] = task.DueDate
	}

	event, err := events.New(events.ReminderTriggered, task.UserID, payload)
	if err != nil {
		return newTaskServiceError("emit_reminder", "failed to build event", err)
	}
	event.CorrelationID = correlationID
	s.publish(ctx, event)
	return nil
}

// buildTask converts create input into a validated domain task.
func (s *TaskService) buildTask(userID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	priority := domain.Priority("")
	if input.Priority != "" {
		parsed, err := domain.ParsePriority(input.Priority)
		if err != nil {
			return nil, err
		}
		priority = parsed
	}

	task, err := domain.NewTask(userID, input.Title, input.Description, priority)
	if err != nil {
		return nil, err
	}

	if input.Timestamp != nil {
		task.Timestamp = input.Timestamp.UTC()
	}
	task.DueDate = input.DueDate
	task.ReminderTime = input.ReminderTime

	if input.Recurrence != nil {
		pattern := input.Recurrence.Clone()
		if err := pattern.Validate(); err != nil {
			return nil, err
		}
		task.IsRecurring = true
		task.Recurrence = pattern

		next, ok := recurrence.NextOccurrence(pattern, task.Timestamp)
		if ok {
			task.NextOccurrence = &next
		}
	}

	return task, nil
}

// applyTaskUpdate copies non-nil input fields onto task, enforcing the same
// validation as creation.
func applyTaskUpdate(task *domain.Task, input UpdateTaskInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := domain.ValidateTitle(title); err != nil {
			return err
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = domain.SanitizeDescription(*input.Description)
	}
	if input.Priority != nil {
		priority, err := domain.ParsePriority(*input.Priority)
		if err != nil {
			return err
		}
		task.Priority = priority
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Timestamp != nil {
		task.Timestamp = input.Timestamp.UTC()
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.ReminderTime != nil {
		task.ReminderTime = input.ReminderTime
	}
	return nil
}

// buildSuccessor computes the next occurrence of a recurring task. It
// mutates the original's occurrence bookkeeping (count and next-occurrence
// pointer) and returns the new task, or nil when the pattern has ended or
// yields no further occurrence. The caller persists both.
func buildSuccessor(task *domain.Task, now time.Time) (*domain.Task, error) {
	if !task.IsRecurring || task.Recurrence == nil {
		return nil, nil
	}
	if recurrence.HasReachedEnd(task, now) {
		return nil, nil
	}

	base := now
	if task.NextOccurrence != nil {
		base = *task.NextOccurrence
	}
	next, ok := recurrence.NextOccurrence(task.Recurrence, base)
	if !ok {
		return nil, nil
	}

	successor := task.Clone()
	successor.ID = uuid.New()
	successor.Status = false
	successor.Timestamp = base
	successor.NextOccurrence = &next
	successor.OccurrenceCount = task.OccurrenceCount + 1
	successor.CreatedAt = now
	successor.UpdatedAt = now
	if err := successor.Validate(); err != nil {
		return nil, fmt.Errorf("generated occurrence invalid: %w", err)
	}

	task.OccurrenceCount++
	task.NextOccurrence = &next

	return successor, nil
}

// emit builds and publishes one event, logging and swallowing failures. It
// returns the event when one was built, for causation chaining.
func (s *TaskService) emit(ctx context.Context, eventType events.EventType, userID uuid.UUID, payload any) *events.Event {
	event, err := events.New(eventType, userID, payload)
	if err != nil {
		s.logger.Error("failed to build event",
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
		return nil
	}
	s.publish(ctx, event)
	return event
}

// emitUpdated publishes a task.updated event with before/after snapshots.
func (s *TaskService) emitUpdated(ctx context.Context, original, updated *domain.Task) {
	originalJSON, err := json.Marshal(original)
	if err != nil {
		s.logger.Error("failed to build event",
			slog.String("event_type", string(events.TaskUpdated)),
			slog.String("error", err.Error()))
		return
	}
	updatedJSON, err := json.Marshal(updated)
	if err != nil {
		s.logger.Error("failed to build event",
			slog.String("event_type", string(events.TaskUpdated)),
			slog.String("error", err.Error()))
		return
	}
	s.emit(ctx, events.TaskUpdated, updated.UserID, events.TaskUpdatedData{
		Original: originalJSON,
		Updated:  updatedJSON,
	})
}

// publish delivers one event, best-effort. Transport failures are logged by
// the publisher; this logs at debug so mutation paths stay quiet.
func (s *TaskService) publish(ctx context.Context, event *events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			slog.String("event_id", event.EventID.String()),
			slog.String("event_type", string(event.EventType)))
	}
}
