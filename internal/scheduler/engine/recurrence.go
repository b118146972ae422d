package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRecurrenceType is returned when a rule carries a type outside the
// supported enum. This can only happen when rules cross an unvalidated
// boundary; the API layer schema-validates rules before they are stored.
var ErrInvalidRecurrenceType = errors.New("invalid recurrence type")

// NextOccurrence computes the timestamp of the occurrence following last for
// the given rule. The hour and minute of last are preserved on the result;
// seconds are dropped. A non-positive interval is treated as 1.
func NextOccurrence(rule RecurrenceRule, last time.Time) (time.Time, error) {
	interval := rule.Interval
	if interval <= 0 {
		interval = 1
	}

	var next time.Time
	switch rule.Type {
	case RecurDaily:
		next = last.AddDate(0, 0, interval)
	case RecurWeekly:
		if len(rule.DaysOfWeek) > 0 {
			next = nextWeeklyOnDays(last, rule.DaysOfWeek, interval)
		} else {
			next = last.AddDate(0, 0, 7*interval)
		}
	case RecurWeekdays:
		next = last
		for i := 0; i < interval; i++ {
			next = next.AddDate(0, 0, 1)
			for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
				next = next.AddDate(0, 0, 1)
			}
		}
	case RecurMonthly:
		// Plain calendar-month arithmetic; the day of month may shift when the
		// target month is shorter. rule.DayOfMonth is advisory only.
		next = last.AddDate(0, interval, 0)
	case RecurYearly:
		next = last.AddDate(interval, 0, 0)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRecurrenceType, rule.Type)
	}

	return time.Date(next.Year(), next.Month(), next.Day(),
		last.Hour(), last.Minute(), 0, 0, last.Location()), nil
}

// nextWeeklyOnDays advances to the next weekday index in days after last's
// weekday. When the current week has no matching day left it rolls to the
// week `interval` weeks ahead and takes the smallest index in the set.
func nextWeeklyOnDays(last time.Time, days []int, interval int) time.Time {
	cur := int(last.Weekday())
	nextInWeek := -1
	smallest := -1
	for _, d := range days {
		if d < 0 || d > 6 {
			continue
		}
		if smallest == -1 || d < smallest {
			smallest = d
		}
		if d > cur && (nextInWeek == -1 || d < nextInWeek) {
			nextInWeek = d
		}
	}
	if smallest == -1 {
		// Every listed day was out of range; behave like a plain weekly rule.
		return last.AddDate(0, 0, 7*interval)
	}
	if nextInWeek != -1 {
		return last.AddDate(0, 0, nextInWeek-cur)
	}
	sunday := last.AddDate(0, 0, -cur)
	return sunday.AddDate(0, 0, 7*interval+smallest)
}
