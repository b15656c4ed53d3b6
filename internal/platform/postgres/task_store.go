package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/platform/logger"
	"github.com/taskloop/taskloop/internal/store"
)

// taskColumns is the canonical select list for task rows, shared by every
// query in this store so scanTask stays in sync.
const taskColumns = `id, user_id, title, description, priority, status, timestamp,
	due_date, reminder_time, reminded_at, is_recurring, recurrence_pattern,
	next_occurrence, occurrence_count, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
// It saves a new task to the database, handling domain validation.
// Returns store.ErrInvalidEntity if the owning user does not exist.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	pattern, err := marshalPattern(task.Recurrence)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.Title,
		nullString(task.Description),
		task.Priority,
		task.Status,
		task.Timestamp,
		task.DueDate,
		task.ReminderTime,
		task.RemindedAt,
		task.IsRecurring,
		pattern,
		task.NextOccurrence,
		task.OccurrenceCount,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("error", err.Error()),
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, task.UserID)
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetForUser implements store.TaskStore.GetForUser
// The lookup is scoped to (id, user_id) in a single query, so a task owned
// by another user is indistinguishable from a missing one.
func (s *PostgresTaskStore) GetForUser(ctx context.Context, userID, taskID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found or not owned",
				slog.String("task_id", taskID.String()),
				slog.String("user_id", userID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// List implements store.TaskStore.List
// It builds the WHERE clause dynamically from the filter, runs a count query
// for the pagination total, then fetches one page ordered by creation time
// descending.
func (s *PostgresTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter store.TaskFilter,
	offset, limit int,
) ([]*domain.Task, int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where, args := buildTaskFilter(userID, filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, MapError(err)
	}

	query := fmt.Sprintf(
		`SELECT `+taskColumns+` FROM tasks WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, 0, MapError(err)
	}

	tasks, err := collectTasks(rows)
	if err != nil {
		log.Error("failed to scan task rows", slog.String("error", err.Error()))
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update implements store.TaskStore.Update
// The UPDATE is scoped to (id, user_id); zero affected rows surface as
// store.ErrTaskNotFound. The owner column is never part of the SET list, so
// ownership is immutable at the storage layer.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	pattern, err := marshalPattern(task.Recurrence)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, status = $4,
			timestamp = $5, due_date = $6, reminder_time = $7, reminded_at = $8,
			is_recurring = $9, recurrence_pattern = $10, next_occurrence = $11,
			occurrence_count = $12, updated_at = $13
		WHERE id = $14 AND user_id = $15
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		nullString(task.Description),
		task.Priority,
		task.Status,
		task.Timestamp,
		task.DueDate,
		task.ReminderTime,
		task.RemindedAt,
		task.IsRecurring,
		pattern,
		task.NextOccurrence,
		task.OccurrenceCount,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		log.Debug("task not found for update",
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return store.ErrTaskNotFound
	}

	return nil
}

// Delete implements store.TaskStore.Delete
// Hard delete scoped to (id, user_id).
func (s *PostgresTaskStore) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(
		ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, userID,
	)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		log.Debug("task not found for delete",
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return store.ErrTaskNotFound
	}

	log.Debug("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()))
	return nil
}

// ListDueRecurring implements store.TaskStore.ListDueRecurring
func (s *PostgresTaskStore) ListDueRecurring(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE is_recurring = TRUE
		  AND next_occurrence IS NOT NULL
		  AND next_occurrence <= $1
		ORDER BY next_occurrence
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		log.Error("failed to query due recurring tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return collectTasks(rows)
}

// ListDueReminders implements store.TaskStore.ListDueReminders
func (s *PostgresTaskStore) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = FALSE
		  AND reminded_at IS NULL
		  AND ((due_date IS NOT NULL AND due_date <= $1)
		    OR (reminder_time IS NOT NULL AND reminder_time <= $1))
		ORDER BY COALESCE(reminder_time, due_date)
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		log.Error("failed to query due reminders", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	return collectTasks(rows)
}

// buildTaskFilter translates a store.TaskFilter into a WHERE clause and its
// positional arguments. The clause always begins with the owner scope.
func buildTaskFilter(userID uuid.UUID, filter store.TaskFilter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	next := func() int { return len(args) + 1 }

	if term := strings.TrimSpace(filter.Search); term != "" {
		n := next()
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(title) LIKE $%d OR LOWER(COALESCE(description, '')) LIKE $%d)", n, n))
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	if filter.Priority != "" {
		clauses = append(clauses, fmt.Sprintf("priority = $%d", next()))
		args = append(args, filter.Priority)
	}
	if filter.Status != nil {
		clauses = append(clauses, fmt.Sprintf("status = $%d", next()))
		args = append(args, *filter.Status)
	}
	if filter.TimestampFrom != nil {
		clauses = append(clauses, fmt.Sprintf("timestamp >= $%d", next()))
		args = append(args, *filter.TimestampFrom)
	}
	if filter.TimestampTo != nil {
		clauses = append(clauses, fmt.Sprintf("timestamp <= $%d", next()))
		args = append(args, *filter.TimestampTo)
	}

	return strings.Join(clauses, " AND "), args
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanTask.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row into a domain.Task, decoding nullable columns
// and the JSONB recurrence pattern.
func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var description sql.NullString
	var dueDate, reminderTime, remindedAt, nextOccurrence sql.NullTime
	var pattern []byte
	var priority string

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&priority,
		&task.Status,
		&task.Timestamp,
		&dueDate,
		&reminderTime,
		&remindedAt,
		&task.IsRecurring,
		&pattern,
		&nextOccurrence,
		&task.OccurrenceCount,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	if description.Valid {
		task.Description = description.String
	}
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if reminderTime.Valid {
		task.ReminderTime = &reminderTime.Time
	}
	if remindedAt.Valid {
		task.RemindedAt = &remindedAt.Time
	}
	if nextOccurrence.Valid {
		task.NextOccurrence = &nextOccurrence.Time
	}
	if len(pattern) > 0 {
		var p domain.RecurrencePattern
		if err := json.Unmarshal(pattern, &p); err != nil {
			return nil, fmt.Errorf("failed to decode recurrence pattern: %w", err)
		}
		task.Recurrence = &p
	}

	return &task, nil
}

// collectTasks drains rows into a slice, always returning a non-nil slice.
func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// marshalPattern encodes a recurrence pattern for the JSONB column; nil
// patterns persist as NULL.
func marshalPattern(pattern *domain.RecurrencePattern) ([]byte, error) {
	if pattern == nil {
		return nil, nil
	}
	data, err := json.Marshal(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recurrence pattern: %w", err)
	}
	return data, nil
}

// nullString maps an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
