// Package scheduler runs the background sweeps that keep recurring tasks
// and reminders moving without user interaction.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/taskloop/taskloop/internal/domain"
	"github.com/taskloop/taskloop/internal/service"
)

// Sweep cadences and the per-sweep row cap.
const (
	recurrenceSweepSpec = "0 * * * *"   // hourly, on the hour
	reminderSweepSpec   = "*/5 * * * *" // every five minutes
	sweepBatchLimit     = 500
)

// ErrAlreadyRunning is returned by Start when the scheduler is running.
var ErrAlreadyRunning = errors.New("scheduler already running")

// Scheduler owns the cron-driven sweeps: an hourly pass that generates the
// next occurrence for every due recurring task, and a five-minute pass that
// fires reminder events for tasks whose reminder time or due date has
// arrived. Each task is processed independently; one failure is logged and
// never aborts the rest of a sweep.
type Scheduler struct {
	tasks  *service.TaskService
	cron   *cron.Cron
	logger *slog.Logger

	mu         sync.Mutex
	running    bool
	registered bool
}

// New creates a Scheduler around the given task service.
func New(tasks *service.TaskService, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		cron:   cron.New(),
		logger: logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the sweeps and starts the cron loop. The ctx bounds each
// sweep run, not the loop; call Stop to end the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	// Register the sweeps once; a stop/start cycle reuses the entries.
	if !s.registered {
		if _, err := s.cron.AddFunc(recurrenceSweepSpec, func() {
			s.RunRecurrenceSweep(ctx)
		}); err != nil {
			return err
		}
		if _, err := s.cron.AddFunc(reminderSweepSpec, func() {
			s.RunReminderSweep(ctx)
		}); err != nil {
			return err
		}
		s.registered = true
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// ScheduleReminder registers a one-off cron entry that fires a reminder for
// the given task at its reminder time. The periodic reminder sweep already
// covers every stored reminder; this exists for callers that want a firing
// closer to the exact minute than the sweep cadence gives.
func (s *Scheduler) ScheduleReminder(ctx context.Context, task *domain.Task) error {
	if task.ReminderTime == nil {
		return nil
	}
	at := *task.ReminderTime

	fire := func() {
		if err := s.tasks.EmitReminder(ctx, task, uuid.NewString()); err != nil {
			s.logger.Error("failed to fire scheduled reminder",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	// A reminder time that has already passed fires now; its cron spec would
	// not match again until next year.
	if !at.After(time.Now()) {
		go fire()
		return nil
	}

	// The entry ID is published under the mutex so a firing in the
	// registration minute cannot observe it before AddFunc returns.
	var (
		entryMu sync.Mutex
		entryID cron.EntryID
	)
	entryMu.Lock()
	defer entryMu.Unlock()
	id, err := s.cron.AddFunc(oneOffSpec(at), func() {
		fire()
		entryMu.Lock()
		s.cron.Remove(entryID)
		entryMu.Unlock()
	})
	if err != nil {
		return err
	}
	entryID = id
	return nil
}

// ScheduleRecurringGeneration is a no-op kept for API symmetry with
// ScheduleReminder: occurrence generation happens transactionally at
// completion time and via the hourly sweep, so there is nothing to schedule
// per task.
func (s *Scheduler) ScheduleRecurringGeneration(ctx context.Context, task *domain.Task) error {
	return nil
}

// RunRecurrenceSweep generates the next occurrence for every recurring task
// whose next-occurrence time has passed. Exported so operators can trigger
// it out of cadence.
func (s *Scheduler) RunRecurrenceSweep(ctx context.Context) {
	correlationID := uuid.NewString()
	now := time.Now().UTC()

	due, err := s.tasks.DueRecurring(ctx, now, sweepBatchLimit)
	if err != nil {
		s.logger.Error("recurrence sweep failed to list due tasks",
			slog.String("error", err.Error()))
		return
	}

	generated := 0
	for _, task := range due {
		if _, err := s.tasks.GenerateNextOccurrence(ctx, task, correlationID); err != nil {
			s.logger.Error("failed to generate occurrence",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}
		generated++
	}

	s.logger.Info("recurrence sweep complete",
		slog.String("correlation_id", correlationID),
		slog.Int("due", len(due)),
		slog.Int("generated", generated))
}

// RunReminderSweep fires a reminder event for every incomplete task whose
// reminder time or due date has arrived, clearing the reminder so it fires
// once.
func (s *Scheduler) RunReminderSweep(ctx context.Context) {
	correlationID := uuid.NewString()
	now := time.Now().UTC()

	due, err := s.tasks.DueReminders(ctx, now, sweepBatchLimit)
	if err != nil {
		s.logger.Error("reminder sweep failed to list due reminders",
			slog.String("error", err.Error()))
		return
	}

	fired := 0
	for _, task := range due {
		if err := s.tasks.EmitReminder(ctx, task, correlationID); err != nil {
			s.logger.Error("failed to fire reminder",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()),
				slog.String("error", err.Error()))
			continue
		}
		fired++
	}

	s.logger.Info("reminder sweep complete",
		slog.String("correlation_id", correlationID),
		slog.Int("due", len(due)),
		slog.Int("fired", fired))
}

// oneOffSpec renders a cron spec matching the minute of t. The entry removes
// itself after its first firing, so the yearly repeat never triggers.
func oneOffSpec(t time.Time) string {
	t = t.Local()
	return fmt.Sprintf("%d %d %d %d *", t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}
