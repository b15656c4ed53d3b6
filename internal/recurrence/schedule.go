// Package recurrence implements the pure calendar math behind recurring
// tasks: computing the next occurrence of a pattern and deciding whether a
// series has reached its end condition. The package has no dependencies on
// storage or transport so the calculations stay directly testable.
package recurrence

import (
	"sort"
	"time"

	"github.com/taskloop/taskloop/internal/domain"
)

// maxExceptionSkips bounds how many consecutive exception dates a series may
// skip before computation gives up. Prevents unbounded loops on degenerate
// patterns whose every occurrence is excepted.
const maxExceptionSkips = 100

// NextOccurrence computes the next occurrence of pattern strictly after
// from. Returns false when the pattern is nil or fails validation.
//
// Frequency semantics:
//   - daily:   from + interval days
//   - weekly:  from + interval weeks; with a weekday set, the next allowed
//     weekday instead (see nextWeekday)
//   - monthly: month-by-month advance with the day-of-month clamped to the
//     target month's last valid day (Jan 31 + 1 month -> Feb 28/29)
//   - yearly:  same calendar day, year + interval (Feb 29 clamps)
//   - custom:  falls back to daily-by-interval
//
// Occurrences landing on one of the pattern's exception dates are advanced
// again from that date.
func NextOccurrence(pattern *domain.RecurrencePattern, from time.Time) (time.Time, bool) {
	if pattern == nil {
		return time.Time{}, false
	}
	if err := pattern.Validate(); err != nil {
		return time.Time{}, false
	}

	next := advance(pattern, from)
	for i := 0; i < maxExceptionSkips && isExcepted(pattern, next); i++ {
		next = advance(pattern, next)
	}
	if isExcepted(pattern, next) {
		return time.Time{}, false
	}

	return next, true
}

// HasReachedEnd reports whether the recurrence series behind task is
// finished as of now. A task without an end condition never ends. For date
// end conditions the series ends once now reaches the end date; for count
// end conditions it ends once the persisted occurrence count reaches the
// configured limit.
func HasReachedEnd(task *domain.Task, now time.Time) bool {
	if task == nil || task.Recurrence == nil {
		return false
	}

	switch task.Recurrence.EndCondition {
	case domain.EndDate:
		return task.Recurrence.EndDate != nil && !now.Before(*task.Recurrence.EndDate)
	case domain.EndCount:
		return task.OccurrenceCount >= task.Recurrence.EndCount
	}
	return false
}

// advance computes one step of the series from the given instant.
func advance(pattern *domain.RecurrencePattern, from time.Time) time.Time {
	switch pattern.Frequency {
	case domain.FrequencyWeekly:
		if len(pattern.Weekdays) > 0 {
			return nextWeekday(from, pattern.Weekdays, pattern.Interval)
		}
		return from.AddDate(0, 0, 7*pattern.Interval)
	case domain.FrequencyMonthly:
		return addMonthsClamped(from, pattern.Interval)
	case domain.FrequencyYearly:
		return addMonthsClamped(from, 12*pattern.Interval)
	default:
		// daily and custom both step by interval days.
		return from.AddDate(0, 0, pattern.Interval)
	}
}

// addMonthsClamped adds months to t while clamping the day-of-month to the
// last valid day of the target month. time.AddDate would normalize Jan 31 +
// 1 month into Mar 2/3, which is not what a monthly schedule means.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	target := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// nextWeekday returns the next allowed weekday strictly after from. Weekday
// values follow the pattern convention (0=Monday .. 6=Sunday). Within from's
// week the next allowed weekday wins; once the week is exhausted the series
// jumps interval weeks ahead to the first allowed weekday.
func nextWeekday(from time.Time, weekdays []int, interval int) time.Time {
	sorted := append([]int(nil), weekdays...)
	sort.Ints(sorted)

	cur := patternWeekday(from)
	for _, wd := range sorted {
		if wd > cur {
			return from.AddDate(0, 0, wd-cur)
		}
	}

	// Jump to Monday of the week interval weeks ahead, then forward to the
	// first allowed weekday.
	daysToMonday := 7*interval - cur
	return from.AddDate(0, 0, daysToMonday+sorted[0])
}

// patternWeekday converts Go's Sunday-based weekday to the pattern's
// Monday-based convention.
func patternWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// isExcepted reports whether t falls on one of the pattern's exception
// dates. Comparison is by calendar day in UTC.
func isExcepted(pattern *domain.RecurrencePattern, t time.Time) bool {
	ty, tm, td := t.UTC().Date()
	for _, ex := range pattern.ExceptionDates {
		ey, em, ed := ex.UTC().Date()
		if ty == ey && tm == em && td == ed {
			return true
		}
	}
	return false
}
