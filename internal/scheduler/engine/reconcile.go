package engine

import (
	"sort"
	"time"
)

// horizonDays bounds how far into the future the reconciler looks for free
// holiday slots. Tasks that do not fit within the horizon stay unscheduled and
// roll forward on the next pass.
const horizonDays = 90

// ReschedulePendingTasks recomputes the full set of automatically placed
// schedules from the current backlog, calendar and settings. It is a full
// recompute rather than an incremental patch: the plan is rebuilt from
// scratch and every non-completed priority schedule that no longer matches it
// is marked obsolete. Rows identical to the rebuilt plan are left in place,
// so repeated calls over unchanged inputs return an empty diff.
//
// Completed schedules are never touched. User-pinned schedules (time and
// recurrence types) are never deleted or moved; they only block slots. The
// caller persists the diff delete-first, insert-second, as a pair.
func ReschedulePendingTasks(allTasks []Task, existingScheduledTasks []ScheduledTask, events []WorkEvent, settings Settings, today time.Time) ReconcileResult {
	var result ReconcileResult

	// Completed schedules are protected and keep their task out of the
	// candidate pool. Pinned schedules stay as occupancy. Everything else
	// (non-completed priority) is regenerated below.
	completedTaskIDs := make(map[uint]struct{})
	var allocation []ScheduledTask
	var regenerated []ScheduledTask
	for _, st := range existingScheduledTasks {
		switch {
		case st.IsCompleted:
			completedTaskIDs[st.TaskID] = struct{}{}
			allocation = append(allocation, st)
		case st.ScheduleType == SchedulePriority:
			regenerated = append(regenerated, st)
		default:
			allocation = append(allocation, st)
		}
	}

	// Pinned tasks without a schedule row yet still block their slot. The
	// synthetic entries exist only inside this computation and are never
	// written back.
	allocatedTaskIDs := make(map[uint]struct{}, len(allocation))
	for _, st := range allocation {
		allocatedTaskIDs[st.TaskID] = struct{}{}
	}
	for _, task := range allTasks {
		if task.ScheduleType != ScheduleTime && task.ScheduleType != ScheduleRecurrence {
			continue
		}
		if task.ManualTime == nil {
			continue
		}
		if _, ok := allocatedTaskIDs[task.ID]; ok {
			continue
		}
		allocation = append(allocation, NewScheduledTask(task, *task.ManualTime))
	}

	queue := make([]Task, 0, len(allTasks))
	for _, task := range allTasks {
		if task.ScheduleType != SchedulePriority {
			continue
		}
		if _, done := completedTaskIDs[task.ID]; done {
			continue
		}
		queue = append(queue, task)
	}
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Priority != queue[j].Priority {
			return queue[i].Priority > queue[j].Priority
		}
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})

	start := dateOnly(today)
	for d := 0; d < horizonDays && len(queue) > 0; d++ {
		date := start.AddDate(0, 0, d)
		if !IsHoliday(date, events) {
			continue
		}

		var dayAllocation []ScheduledTask
		for _, st := range allocation {
			if sameDay(date, st.ScheduledTime) {
				dayAllocation = append(dayAllocation, st)
			}
		}
		capacity := settings.MaxTasksPerDay - len(dayAllocation)
		if capacity <= 0 {
			continue
		}
		if capacity > len(queue) {
			capacity = len(queue)
		}

		placed := ScheduleTasksForHoliday(date, queue[:capacity], events, settings, dayAllocation)
		result.NewSchedules = append(result.NewSchedules, placed...)
		allocation = append(allocation, placed...)
		queue = queue[len(placed):]
	}

	// Cancel out regenerated entries that landed exactly where an existing row
	// already sits with the same task snapshot. A pass over unchanged inputs
	// then produces an empty diff instead of churning identical rows.
	for _, old := range regenerated {
		matched := false
		for i, st := range result.NewSchedules {
			if sameSnapshot(st, old) {
				result.NewSchedules = append(result.NewSchedules[:i], result.NewSchedules[i+1:]...)
				matched = true
				break
			}
		}
		if !matched {
			result.ObsoleteIDs = append(result.ObsoleteIDs, old.ID)
		}
	}

	return result
}

// sameSnapshot reports whether an existing row is indistinguishable from a
// regenerated one: same slot and the full denormalized task snapshot intact.
// A row with a stale snapshot is replaced rather than kept.
func sameSnapshot(a, b ScheduledTask) bool {
	return a.TaskID == b.TaskID &&
		a.ScheduledTime.Equal(b.ScheduledTime) &&
		a.Title == b.Title &&
		a.ScheduleType == b.ScheduleType &&
		a.Priority == b.Priority &&
		sameTimePtr(a.ManualTime, b.ManualTime) &&
		sameRule(a.Recurrence, b.Recurrence)
}

func sameTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sameRule(a, b *RecurrenceRule) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type != b.Type || a.Interval != b.Interval || a.DayOfMonth != b.DayOfMonth {
		return false
	}
	if len(a.DaysOfWeek) != len(b.DaysOfWeek) {
		return false
	}
	for i := range a.DaysOfWeek {
		if a.DaysOfWeek[i] != b.DaysOfWeek[i] {
			return false
		}
	}
	return true
}
