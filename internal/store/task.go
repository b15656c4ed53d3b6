package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/domain"
)

// TaskFilter narrows a task listing. Zero-valued fields are ignored.
type TaskFilter struct {
	// Search matches tasks whose title OR description contains the term,
	// case-insensitively.
	Search string

	// Priority filters by exact priority when non-empty.
	Priority domain.Priority

	// Status filters by completion state when non-nil.
	Status *bool

	// TimestampFrom/TimestampTo bound the task's timestamp field inclusively.
	TimestampFrom *time.Time
	TimestampTo   *time.Time
}

// TaskStore defines the interface for task data persistence.
// All read and mutation methods are scoped to an owning user ID; a task
// belonging to another user behaves exactly like a missing one and yields
// ErrTaskNotFound.
type TaskStore interface {
	// Create saves a new task to the store.
	// The task must be valid according to domain validation rules.
	Create(ctx context.Context, task *domain.Task) error

	// GetForUser retrieves a task by ID, scoped to its owner.
	// Returns ErrTaskNotFound if the task does not exist or belongs to a
	// different user.
	GetForUser(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)

	// List returns one page of the user's tasks matching the filter, newest
	// first by creation time, along with the total number of matching tasks
	// for pagination.
	List(ctx context.Context, userID uuid.UUID, filter TaskFilter, offset, limit int) ([]*domain.Task, int, error)

	// Update persists all mutable fields of an existing task, scoped to its
	// owner. Returns ErrTaskNotFound if no owned row matches.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task, scoped to its owner. Hard delete; there is no
	// tombstone. Returns ErrTaskNotFound if no owned row matches.
	Delete(ctx context.Context, userID, taskID uuid.UUID) error

	// ListDueRecurring returns recurring tasks whose next occurrence is at
	// or before now, across all users. Used by the scheduler's recurrence
	// sweep.
	ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)

	// ListDueReminders returns incomplete tasks whose due date or reminder
	// time is at or before now, across all users. Used by the scheduler's
	// reminder sweep.
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller,
	// typically through RunInTransaction.
	WithTx(tx *sql.Tx) TaskStore
}
