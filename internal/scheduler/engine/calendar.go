package engine

import "time"

// IsHoliday reports whether the given calendar day is eligible for automatic
// task placement. Only the date part of date is considered; events are matched
// by the calendar day their start falls on.
//
// A day with no events is free and therefore a holiday. A day-off event makes
// the day a holiday no matter what else is booked. Any other event (work shift
// or otherwise) without a day-off makes it a workday.
//
// The synthetic override markers (schedule-exclude, schedule-include) are not
// calendar state and are ignored here; the caller resolves them before asking.
func IsHoliday(date time.Time, events []WorkEvent) bool {
	hasEvent := false
	for _, ev := range events {
		if ev.Type == EventScheduleExclude || ev.Type == EventScheduleInclude {
			continue
		}
		if !sameDay(date, ev.Start) {
			continue
		}
		if ev.Type == EventDayOff {
			return true
		}
		hasEvent = true
	}
	return !hasEvent
}
