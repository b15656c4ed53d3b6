package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/events"
	"github.com/taskloop/taskloop/internal/store"
)

// BatchResult reports the outcome of a batch operation. Success is true only
// when every item applied cleanly; Errors carries one message per failed
// item, indexed by the item's position in the request.
type BatchResult struct {
	Success bool           `json:"success"`
	Items   []*domain.Task `json:"items"`
	Errors  []string       `json:"errors"`
}

// BatchUpdateItem pairs a task ID with a partial update.
type BatchUpdateItem struct {
	TaskID string
	Update UpdateTaskInput
}

// BatchCompletionItem pairs a task ID with a target completion state.
type BatchCompletionItem struct {
	TaskID    string
	Completed bool
}

// CreateTasksBatch creates several tasks atomically. Validation runs over the
// whole batch before anything is written: if any item is invalid, no task is
// created and the result lists every validation failure. On success all
// tasks are committed in one transaction and a task.created event is emitted
// per task.
func (s *TaskService) CreateTasksBatch(ctx context.Context, userID uuid.UUID, inputs []CreateTaskInput) (*BatchResult, error) {
	result := &BatchResult{Items: []*domain.Task{}, Errors: []string{}}

	tasks := make([]*domain.Task, 0, len(inputs))
	for i, input := range inputs {
		task, err := s.buildTask(userID, input)
		if err != nil {
			result.Errors = append(result.Errors, itemError(i, err))
			continue
		}
		tasks = append(tasks, task)
	}
	if len(result.Errors) > 0 {
		return result, nil
	}

	err := inTx(ctx, s.repo, func(txRepo TaskRepository) error {
		for _, task := range tasks {
			if err := txRepo.Create(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, newTaskServiceError("create_tasks_batch", "failed to save batch", err)
	}

	for _, task := range tasks {
		s.emit(ctx, events.TaskCreated, userID, task)
	}
	result.Success = true
	result.Items = tasks
	return result, nil
}

// UpdateTasksBatch applies several partial updates in one transaction.
// Malformed items (bad IDs, invalid field values) fail the whole batch
// before any write. A task that has disappeared by apply time is reported in
// Errors without aborting its peers.
func (s *TaskService) UpdateTasksBatch(ctx context.Context, userID uuid.UUID, items []BatchUpdateItem) (*BatchResult, error) {
	result := &BatchResult{Items: []*domain.Task{}, Errors: []string{}}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		id, err := uuid.Parse(item.TaskID)
		if err != nil {
			result.Errors = append(result.Errors, itemError(i, domain.ErrInvalidID))
			continue
		}
		if err := validateUpdateInput(item.Update); err != nil {
			result.Errors = append(result.Errors, itemError(i, err))
			continue
		}
		ids[i] = id
	}
	if len(result.Errors) > 0 {
		return result, nil
	}

	var (
		updated   []*domain.Task
		originals []*domain.Task
		applyErrs []string
	)
	err := inTx(ctx, s.repo, func(txRepo TaskRepository) error {
		for i, item := range items {
			task, getErr := txRepo.GetForUser(ctx, userID, ids[i])
			if getErr != nil {
				if errors.Is(getErr, store.ErrTaskNotFound) {
					applyErrs = append(applyErrs, itemError(i, ErrTaskNotFound))
					continue
				}
				return getErr
			}
			original := task.Clone()

			if applyErr := applyTaskUpdate(task, item.Update); applyErr != nil {
				return applyErr
			}
			task.Touch()

			if updateErr := txRepo.Update(ctx, task); updateErr != nil {
				return updateErr
			}
			originals = append(originals, original)
			updated = append(updated, task)
		}
		return nil
	})
	if err != nil {
		return nil, newTaskServiceError("update_tasks_batch", "failed to apply batch", err)
	}

	for i, task := range updated {
		s.emitUpdated(ctx, originals[i], task)
	}
	result.Success = len(applyErrs) == 0
	result.Items = append(result.Items, updated...)
	result.Errors = applyErrs
	if result.Errors == nil {
		result.Errors = []string{}
	}
	return result, nil
}

// CompleteTasksBatch sets the completion state of several tasks in one
// transaction, following SetCompletion's transition rules: only an item that
// flips its task from incomplete to complete emits task.completed and, for a
// recurring task, generates a successor; every other item emits task.updated.
func (s *TaskService) CompleteTasksBatch(ctx context.Context, userID uuid.UUID, items []BatchCompletionItem) (*BatchResult, error) {
	result := &BatchResult{Items: []*domain.Task{}, Errors: []string{}}

	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		id, err := uuid.Parse(item.TaskID)
		if err != nil {
			result.Errors = append(result.Errors, itemError(i, domain.ErrInvalidID))
			continue
		}
		ids[i] = id
	}
	if len(result.Errors) > 0 {
		return result, nil
	}

	var (
		completed  []*domain.Task
		updated    [][2]*domain.Task
		successors []*domain.Task
		applyErrs  []string
	)
	err := inTx(ctx, s.repo, func(txRepo TaskRepository) error {
		for i, item := range items {
			task, getErr := txRepo.GetForUser(ctx, userID, ids[i])
			if getErr != nil {
				if errors.Is(getErr, store.ErrTaskNotFound) {
					applyErrs = append(applyErrs, itemError(i, ErrTaskNotFound))
					continue
				}
				return getErr
			}
			original := task.Clone()
			transition := item.Completed && !task.Status

			task.Status = item.Completed
			task.Touch()

			if transition && task.IsRecurring {
				next, genErr := buildSuccessor(task, time.Now().UTC())
				if genErr != nil {
					return genErr
				}
				if next != nil {
					if createErr := txRepo.Create(ctx, next); createErr != nil {
						return createErr
					}
					successors = append(successors, next)
				}
			}

			if updateErr := txRepo.Update(ctx, task); updateErr != nil {
				return updateErr
			}
			if transition {
				completed = append(completed, task)
			} else {
				updated = append(updated, [2]*domain.Task{original, task})
			}
		}
		return nil
	})
	if err != nil {
		return nil, newTaskServiceError("complete_tasks_batch", "failed to apply batch", err)
	}

	for _, task := range completed {
		s.emit(ctx, events.TaskCompleted, userID, task)
		result.Items = append(result.Items, task)
	}
	for _, pair := range updated {
		s.emitUpdated(ctx, pair[0], pair[1])
		result.Items = append(result.Items, pair[1])
	}
	for _, successor := range successors {
		s.emit(ctx, events.RecurringTaskGenerated, userID, successor)
	}
	result.Success = len(applyErrs) == 0
	result.Errors = applyErrs
	if result.Errors == nil {
		result.Errors = []string{}
	}
	return result, nil
}

// DeleteTasksBatch removes several tasks in one transaction. Missing tasks
// are reported per item; the rest are still deleted.
func (s *TaskService) DeleteTasksBatch(ctx context.Context, userID uuid.UUID, taskIDs []string) (*BatchResult, error) {
	result := &BatchResult{Items: []*domain.Task{}, Errors: []string{}}

	ids := make([]uuid.UUID, len(taskIDs))
	for i, raw := range taskIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			result.Errors = append(result.Errors, itemError(i, domain.ErrInvalidID))
			continue
		}
		ids[i] = id
	}
	if len(result.Errors) > 0 {
		return result, nil
	}

	var (
		deleted   []*domain.Task
		applyErrs []string
	)
	err := inTx(ctx, s.repo, func(txRepo TaskRepository) error {
		for i, id := range ids {
			task, getErr := txRepo.GetForUser(ctx, userID, id)
			if getErr != nil {
				if errors.Is(getErr, store.ErrTaskNotFound) {
					applyErrs = append(applyErrs, itemError(i, ErrTaskNotFound))
					continue
				}
				return getErr
			}
			if delErr := txRepo.Delete(ctx, userID, id); delErr != nil {
				return delErr
			}
			deleted = append(deleted, task)
		}
		return nil
	})
	if err != nil {
		return nil, newTaskServiceError("delete_tasks_batch", "failed to apply batch", err)
	}

	for _, task := range deleted {
		s.emit(ctx, events.TaskDeleted, userID, map[string]string{
			"task_id": task.ID.String(),
			"title":   task.Title,
		})
		result.Items = append(result.Items, task)
	}
	result.Success = len(applyErrs) == 0
	result.Errors = applyErrs
	if result.Errors == nil {
		result.Errors = []string{}
	}
	return result, nil
}

// validateUpdateInput checks an update's field values without touching a
// task, so a whole batch can be rejected before any write.
func validateUpdateInput(input UpdateTaskInput) error {
	if input.Title != nil {
		if err := domain.ValidateTitle(*input.Title); err != nil {
			return err
		}
	}
	if input.Priority != nil {
		if _, err := domain.ParsePriority(*input.Priority); err != nil {
			return err
		}
	}
	return nil
}

// itemError formats a per-item batch error with its request position.
func itemError(index int, err error) string {
	return fmt.Sprintf("task %d: %v", index, err)
}
