package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	task, err := NewTask(userID, "  Buy groceries  ", "milk and <b>eggs</b>", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if task.UserID != userID {
		t.Errorf("Expected user ID %s, got %s", userID, task.UserID)
	}
	if task.Title != "Buy groceries" {
		t.Errorf("Expected trimmed title, got %q", task.Title)
	}
	if task.Description != "milk and eggs" {
		t.Errorf("Expected stripped description, got %q", task.Description)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("Expected default priority Medium, got %s", task.Priority)
	}
	if task.Status {
		t.Error("Expected new task to be incomplete")
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}

	// Missing owner
	if _, err := NewTask(uuid.Nil, "title", "", PriorityLow); !errors.Is(err, ErrTaskUserIDEmpty) {
		t.Errorf("Expected ErrTaskUserIDEmpty, got %v", err)
	}
}

func TestValidateTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		title string
		want  error
	}{
		{"valid", "Call the dentist", nil},
		{"empty", "", ErrTitleEmpty},
		{"whitespace only", "   \t ", ErrTitleEmpty},
		{"at limit", strings.Repeat("a", MaxTitleLength), nil},
		{"over limit", strings.Repeat("a", MaxTitleLength+1), ErrTitleTooLong},
		{"html tag", "Buy <script>alert(1)</script> milk", ErrTitleInvalidChars},
		{"self-closing tag", "note <br/> here", ErrTitleInvalidChars},
		{"lone angle bracket", "keep total < 100", nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateTitle(tc.title)
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidateTitle(%q) = %v, want %v", tc.title, err, tc.want)
			}
		})
	}
}

func TestSanitizeDescription(t *testing.T) {
	t.Parallel()

	got := SanitizeDescription("hello <b>world</b><script>x</script>")
	if got != "hello worldx" {
		t.Errorf("Expected tags stripped, got %q", got)
	}

	got = SanitizeDescription("no tags here")
	if got != "no tags here" {
		t.Errorf("Expected unchanged description, got %q", got)
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Priority{
		"critical": PriorityCritical,
		"HIGH":     PriorityHigh,
		" Medium ": PriorityMedium,
		"low":      PriorityLow,
	} {
		got, err := ParsePriority(raw)
		if err != nil {
			t.Errorf("ParsePriority(%q) returned error %v", raw, err)
		}
		if got != want {
			t.Errorf("ParsePriority(%q) = %s, want %s", raw, got, want)
		}
	}

	if _, err := ParsePriority("urgent"); !errors.Is(err, ErrInvalidPriority) {
		t.Errorf("Expected ErrInvalidPriority, got %v", err)
	}
}

func TestTaskClone(t *testing.T) {
	t.Parallel()

	due := time.Now().UTC().Add(24 * time.Hour)
	task, err := NewTask(uuid.New(), "original", "", PriorityHigh)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	task.DueDate = &due
	task.Recurrence = &RecurrencePattern{Frequency: FrequencyWeekly, Interval: 1, Weekdays: []int{0, 3}}

	clone := task.Clone()
	clone.Title = "changed"
	*clone.DueDate = due.Add(time.Hour)
	clone.Recurrence.Weekdays[0] = 5

	if task.Title != "original" {
		t.Error("Clone mutation leaked into original title")
	}
	if !task.DueDate.Equal(due) {
		t.Error("Clone mutation leaked into original due date")
	}
	if task.Recurrence.Weekdays[0] != 0 {
		t.Error("Clone mutation leaked into original weekday set")
	}
}

func TestRecurrencePatternValidate(t *testing.T) {
	t.Parallel()

	endDate := time.Now().UTC()
	cases := []struct {
		name    string
		pattern RecurrencePattern
		want    error
	}{
		{"valid daily", RecurrencePattern{Frequency: FrequencyDaily, Interval: 1}, nil},
		{"zero interval", RecurrencePattern{Frequency: FrequencyDaily, Interval: 0}, ErrInvalidInterval},
		{"unknown frequency", RecurrencePattern{Frequency: "hourly", Interval: 1}, ErrInvalidFrequency},
		{"weekday out of range", RecurrencePattern{Frequency: FrequencyWeekly, Interval: 1, Weekdays: []int{7}}, ErrInvalidWeekday},
		{"count end without count", RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, EndCondition: EndCount}, ErrInvalidEndCondition},
		{"date end without date", RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, EndCondition: EndDate}, ErrInvalidEndCondition},
		{"date end with date", RecurrencePattern{Frequency: FrequencyDaily, Interval: 1, EndCondition: EndDate, EndDate: &endDate}, nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.pattern.Validate()
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}
