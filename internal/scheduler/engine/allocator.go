package engine

import "time"

// maxSlotProbes bounds how many candidate slots are tried per task before the
// allocator gives up on the day entirely. Together with the per-day task cap
// enforced by the reconciler this keeps a single day from being overpacked.
const maxSlotProbes = 8

// ScheduleTasksForHoliday assigns start times on the given date to the tasks
// in input order, skipping slots already taken by existingTasks. It returns
// fresh, non-completed schedule records for the tasks it could place.
//
// If the date is not a holiday, or there is nothing to place, the result is
// empty. When no free slot is found within maxSlotProbes probes the task at
// hand and everything after it are left unplaced; the caller retries them on
// a later date.
func ScheduleTasksForHoliday(date time.Time, tasksToSchedule []Task, events []WorkEvent, settings Settings, existingTasks []ScheduledTask) []ScheduledTask {
	if len(tasksToSchedule) == 0 || !IsHoliday(date, events) {
		return nil
	}

	startHour := settings.StartTimeMorning
	if end, ok := latestShiftEnd(date.AddDate(0, 0, -1), events); ok && end.Hour() < 12 {
		// The previous day's shift ran into this morning (night shift), so the
		// free part of the day starts in the afternoon.
		startHour = settings.StartTimeAfternoon
	}

	occupied := make(map[int64]struct{}, len(existingTasks))
	for _, st := range existingTasks {
		occupied[st.ScheduledTime.Unix()] = struct{}{}
	}

	step := time.Duration(settings.ScheduleInterval * float64(time.Hour))
	candidate := time.Date(date.Year(), date.Month(), date.Day(), startHour, 0, 0, 0, date.Location())

	var placed []ScheduledTask
	for _, task := range tasksToSchedule {
		slot := candidate
		found := false
		for i := 0; i < maxSlotProbes; i++ {
			if _, taken := occupied[slot.Unix()]; !taken {
				found = true
				break
			}
			slot = slot.Add(step)
		}
		if !found {
			break
		}
		occupied[slot.Unix()] = struct{}{}
		placed = append(placed, NewScheduledTask(task, slot))
		candidate = slot.Add(step)
	}
	return placed
}

// latestShiftEnd returns the end time of the work shift on day that finishes
// last. Only real shifts count; day-off and other events are ignored.
func latestShiftEnd(day time.Time, events []WorkEvent) (time.Time, bool) {
	var end time.Time
	found := false
	for _, ev := range events {
		if ev.Type != EventNightShift && ev.Type != EventDayShift {
			continue
		}
		if !sameDay(day, ev.Start) {
			continue
		}
		if !found || ev.End.After(end) {
			end = ev.End
			found = true
		}
	}
	return end, found
}
