package domain

import (
	"errors"
	"time"
)

// Recurrence-specific validation errors
var (
	// ErrInvalidFrequency is returned when a recurrence frequency is not one
	// of the defined enum values.
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")

	// ErrInvalidInterval is returned when a recurrence interval is below 1.
	ErrInvalidInterval = errors.New("recurrence interval must be at least 1")

	// ErrInvalidWeekday is returned when a weekday value is outside [0,6].
	ErrInvalidWeekday = errors.New("weekday must be between 0 and 6")

	// ErrInvalidEndCondition is returned when an end condition is not one of
	// none, count or date, or when its end value is missing.
	ErrInvalidEndCondition = errors.New("invalid recurrence end condition")
)

// Frequency represents how often a recurring task repeats.
type Frequency string

// Valid recurrence frequencies.
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyCustom  Frequency = "custom"
)

// IsValid reports whether f is one of the defined frequency values.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly, FrequencyCustom:
		return true
	}
	return false
}

// EndCondition describes how a recurrence series terminates.
type EndCondition string

// Valid end conditions. EndNone means the series never ends.
const (
	EndNone  EndCondition = ""
	EndCount EndCondition = "count"
	EndDate  EndCondition = "date"
)

// RecurrencePattern describes how a recurring task regenerates: a frequency,
// an interval ("every N units"), an optional end condition, optional
// exception dates the series skips, and an optional weekday set for weekly
// patterns (0=Monday .. 6=Sunday).
type RecurrencePattern struct {
	Frequency      Frequency    `json:"frequency"`
	Interval       int          `json:"interval"`
	EndCondition   EndCondition `json:"end_condition,omitempty"`
	EndCount       int          `json:"end_count,omitempty"`
	EndDate        *time.Time   `json:"end_date,omitempty"`
	ExceptionDates []time.Time  `json:"exception_dates,omitempty"`
	Weekdays       []int        `json:"weekdays,omitempty"`
}

// Validate checks if the RecurrencePattern has valid data.
// Returns an error if any field fails validation.
func (p *RecurrencePattern) Validate() error {
	if !p.Frequency.IsValid() {
		return ErrInvalidFrequency
	}

	if p.Interval < 1 {
		return ErrInvalidInterval
	}

	for _, day := range p.Weekdays {
		if day < 0 || day > 6 {
			return ErrInvalidWeekday
		}
	}

	switch p.EndCondition {
	case EndNone:
	case EndCount:
		if p.EndCount < 1 {
			return ErrInvalidEndCondition
		}
	case EndDate:
		if p.EndDate == nil {
			return ErrInvalidEndCondition
		}
	default:
		return ErrInvalidEndCondition
	}

	return nil
}

// Clone returns a deep copy of the pattern.
func (p *RecurrencePattern) Clone() *RecurrencePattern {
	clone := *p
	if p.EndDate != nil {
		d := *p.EndDate
		clone.EndDate = &d
	}
	if p.ExceptionDates != nil {
		clone.ExceptionDates = append([]time.Time(nil), p.ExceptionDates...)
	}
	if p.Weekdays != nil {
		clone.Weekdays = append([]int(nil), p.Weekdays...)
	}
	return &clone
}
