package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskUserIDEmpty is returned when a task's user ID is empty or nil.
	ErrTaskUserIDEmpty = errors.New("task user ID cannot be empty")

	// ErrTitleEmpty is returned when a task's title is empty after trimming.
	ErrTitleEmpty = errors.New("task title cannot be empty")

	// ErrTitleTooLong is returned when a task's title exceeds 255 characters.
	ErrTitleTooLong = errors.New("task title cannot exceed 255 characters")

	// ErrTitleInvalidChars is returned when a task's title contains HTML tags.
	// Titles are rejected rather than silently stripped so the caller learns
	// the input was altered; descriptions are stripped instead (see
	// SanitizeDescription).
	ErrTitleInvalidChars = errors.New("task title contains invalid characters")

	// ErrInvalidPriority is returned when a priority value is not one of the
	// defined enum values.
	ErrInvalidPriority = errors.New("invalid task priority")
)

// MaxTitleLength is the maximum number of characters allowed in a task title.
const MaxTitleLength = 255

// Priority represents the urgency level of a task.
type Priority string

// Valid priority values, ordered from most to least urgent.
const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// IsValid reports whether p is one of the defined priority values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ParsePriority converts a string to a Priority, accepting any casing.
// Returns ErrInvalidPriority for unknown values.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return PriorityCritical, nil
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return "", ErrInvalidPriority
}

// htmlTagPattern matches anything shaped like an HTML/XML tag.
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// ContainsHTML reports whether s contains anything shaped like an HTML tag.
func ContainsHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// SanitizeDescription removes HTML tags from a description. Unlike titles,
// descriptions are stripped rather than rejected.
func SanitizeDescription(s string) string {
	return htmlTagPattern.ReplaceAllString(s, "")
}

// ValidateTitle checks a task title against the title policy: non-empty
// after trimming, at most MaxTitleLength characters, and free of HTML tags.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleEmpty
	}
	if len(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if ContainsHTML(title) {
		return ErrTitleInvalidChars
	}
	return nil
}

// Task represents a single to-do item owned by a user.
// Recurring tasks additionally carry a RecurrencePattern and a pointer to
// their next scheduled occurrence.
type Task struct {
	ID              uuid.UUID          `json:"id"`
	UserID          uuid.UUID          `json:"user_id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Priority        Priority           `json:"priority"`
	Status          bool               `json:"status"`
	Timestamp       time.Time          `json:"timestamp"`
	DueDate         *time.Time         `json:"due_date,omitempty"`
	ReminderTime    *time.Time         `json:"reminder_time,omitempty"`
	RemindedAt      *time.Time         `json:"reminded_at,omitempty"`
	IsRecurring     bool               `json:"is_recurring"`
	Recurrence      *RecurrencePattern `json:"recurrence_pattern,omitempty"`
	NextOccurrence  *time.Time         `json:"next_occurrence,omitempty"`
	OccurrenceCount int                `json:"occurrence_count"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewTask creates a new Task for the given owner with a generated ID and
// fresh timestamps. The title is validated against the title policy and the
// description is tag-stripped. Returns an error if validation fails.
func NewTask(userID uuid.UUID, title, description string, priority Priority) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: SanitizeDescription(description),
		Priority:    priority,
		Status:      false,
		Timestamp:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.UserID == uuid.Nil {
		return ErrTaskUserIDEmpty
	}

	if err := ValidateTitle(t.Title); err != nil {
		return err
	}

	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}

	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Touch refreshes the task's UpdatedAt timestamp. CreatedAt is never changed
// after construction.
func (t *Task) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the task. Pointer fields are duplicated so
// mutating the copy never affects the original.
func (t *Task) Clone() *Task {
	clone := *t
	if t.DueDate != nil {
		d := *t.DueDate
		clone.DueDate = &d
	}
	if t.ReminderTime != nil {
		r := *t.ReminderTime
		clone.ReminderTime = &r
	}
	if t.RemindedAt != nil {
		r := *t.RemindedAt
		clone.RemindedAt = &r
	}
	if t.NextOccurrence != nil {
		n := *t.NextOccurrence
		clone.NextOccurrence = &n
	}
	if t.Recurrence != nil {
		clone.Recurrence = t.Recurrence.Clone()
	}
	return &clone
}
