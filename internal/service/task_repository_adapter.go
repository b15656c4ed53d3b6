package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/store"
)

// TaskRepository defines the persistence operations the task service needs.
// It mirrors store.TaskStore but returns TaskRepository from WithTx so the
// service can stay inside its own abstraction, and exposes the underlying
// database handle for transaction management. Test fakes return a nil DB,
// which makes the service run transactional closures directly.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetForUser(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, offset, limit int) ([]*domain.Task, int, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
	ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)
	ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error)

	// WithTx returns a repository bound to the given transaction.
	WithTx(tx *sql.Tx) TaskRepository

	// DB returns the underlying database connection, or nil when the
	// repository is not backed by a real database.
	DB() *sql.DB
}

// taskRepositoryAdapter bridges a store.TaskStore to the service-level
// TaskRepository interface.
type taskRepositoryAdapter struct {
	store.TaskStore
	db *sql.DB
}

// NewTaskRepositoryAdapter wraps a TaskStore and its database handle as a
// TaskRepository.
func NewTaskRepositoryAdapter(taskStore store.TaskStore, db *sql.DB) TaskRepository {
	return &taskRepositoryAdapter{
		TaskStore: taskStore,
		db:        db,
	}
}

// WithTx implements TaskRepository.
func (a *taskRepositoryAdapter) WithTx(tx *sql.Tx) TaskRepository {
	return &taskRepositoryAdapter{
		TaskStore: a.TaskStore.WithTx(tx),
		db:        a.db,
	}
}

// DB implements TaskRepository.
func (a *taskRepositoryAdapter) DB() *sql.DB {
	return a.db
}

// inTx runs fn against a transaction-bound repository. When the repository
// has no real database (in-memory fakes), fn runs against the repository
// directly.
func inTx(ctx context.Context, repo TaskRepository, fn func(txRepo TaskRepository) error) error {
	db := repo.DB()
	if db == nil {
		return fn(repo)
	}
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(repo.WithTx(tx))
	})
}
