package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReschedulePlacesByPriorityThenAge(t *testing.T) {
	today := day(2024, time.January, 1)
	tasks := []Task{
		{ID: 1, Title: "low", ScheduleType: SchedulePriority, Priority: 1, CreatedAt: at(2024, time.January, 1, 0, 0)},
		{ID: 2, Title: "old-high", ScheduleType: SchedulePriority, Priority: 5, CreatedAt: at(2023, time.December, 1, 0, 0)},
		{ID: 3, Title: "new-high", ScheduleType: SchedulePriority, Priority: 5, CreatedAt: at(2023, time.December, 20, 0, 0)},
	}

	res := ReschedulePendingTasks(tasks, nil, nil, testSettings(), today)

	require.Len(t, res.NewSchedules, 3)
	assert.Empty(t, res.ObsoleteIDs)
	assert.Equal(t, "old-high", res.NewSchedules[0].Title)
	assert.Equal(t, "new-high", res.NewSchedules[1].Title)
	assert.Equal(t, "low", res.NewSchedules[2].Title)
	assert.Equal(t, at(2024, time.January, 1, 8, 0), res.NewSchedules[0].ScheduledTime)
	assert.Equal(t, at(2024, time.January, 1, 10, 0), res.NewSchedules[1].ScheduledTime)
	assert.Equal(t, at(2024, time.January, 1, 12, 0), res.NewSchedules[2].ScheduledTime)
}

func TestRescheduleSpillsOverCapacity(t *testing.T) {
	today := day(2024, time.January, 1)
	var tasks []Task
	for i := uint(1); i <= 5; i++ {
		tasks = append(tasks, Task{
			ID: i, Title: "t", ScheduleType: SchedulePriority, Priority: 3,
			CreatedAt: at(2024, time.January, 1, 0, int(i)),
		})
	}

	res := ReschedulePendingTasks(tasks, nil, nil, testSettings(), today)

	require.Len(t, res.NewSchedules, 5)
	perDay := map[time.Time]int{}
	for _, st := range res.NewSchedules {
		perDay[dateOnly(st.ScheduledTime)]++
	}
	assert.Equal(t, 3, perDay[day(2024, time.January, 1)])
	assert.Equal(t, 2, perDay[day(2024, time.January, 2)])
}

func TestRescheduleSkipsWorkdays(t *testing.T) {
	today := day(2024, time.January, 1)
	events := []WorkEvent{
		eventOn(day(2024, time.January, 1), EventDayShift),
		eventOn(day(2024, time.January, 2), EventNightShift),
	}
	tasks := []Task{{ID: 1, Title: "A", ScheduleType: SchedulePriority, Priority: 5}}

	res := ReschedulePendingTasks(tasks, nil, events, testSettings(), today)

	require.Len(t, res.NewSchedules, 1)
	assert.True(t, sameDay(day(2024, time.January, 3), res.NewSchedules[0].ScheduledTime))
}

func TestRescheduleProtectsCompleted(t *testing.T) {
	today := day(2024, time.January, 1)
	tasks := []Task{
		{ID: 1, Title: "done", ScheduleType: SchedulePriority, Priority: 5},
		{ID: 2, Title: "open", ScheduleType: SchedulePriority, Priority: 4},
	}
	existing := []ScheduledTask{{
		ID: 11, TaskID: 1, Title: "done", ScheduleType: SchedulePriority,
		ScheduledTime: at(2024, time.January, 1, 8, 0), IsCompleted: true,
	}}

	res := ReschedulePendingTasks(tasks, existing, nil, testSettings(), today)

	assert.NotContains(t, res.ObsoleteIDs, uint(11))
	require.Len(t, res.NewSchedules, 1)
	assert.Equal(t, uint(2), res.NewSchedules[0].TaskID)
	// The completed row still occupies 08:00.
	assert.Equal(t, at(2024, time.January, 1, 10, 0), res.NewSchedules[0].ScheduledTime)
}

func TestRescheduleKeepsPinnedSchedules(t *testing.T) {
	today := day(2024, time.January, 1)
	pinnedAt := at(2024, time.January, 1, 8, 0)
	tasks := []Task{
		{ID: 1, Title: "pinned", ScheduleType: ScheduleTime, ManualTime: &pinnedAt},
		{ID: 2, Title: "auto", ScheduleType: SchedulePriority, Priority: 5},
	}
	existing := []ScheduledTask{{
		ID: 21, TaskID: 1, Title: "pinned", ScheduleType: ScheduleTime,
		ManualTime: &pinnedAt, ScheduledTime: pinnedAt,
	}}

	res := ReschedulePendingTasks(tasks, existing, nil, testSettings(), today)

	assert.NotContains(t, res.ObsoleteIDs, uint(21))
	require.Len(t, res.NewSchedules, 1)
	assert.Equal(t, at(2024, time.January, 1, 10, 0), res.NewSchedules[0].ScheduledTime)
}

func TestReschedulePinnedTaskWithoutRowBlocksSlot(t *testing.T) {
	today := day(2024, time.January, 1)
	pinnedAt := at(2024, time.January, 1, 8, 0)
	tasks := []Task{
		{ID: 1, Title: "pinned", ScheduleType: ScheduleRecurrence, ManualTime: &pinnedAt,
			Recurrence: &RecurrenceRule{Type: RecurDaily}},
		{ID: 2, Title: "auto", ScheduleType: SchedulePriority, Priority: 5},
	}

	res := ReschedulePendingTasks(tasks, nil, nil, testSettings(), today)

	// The synthetic occupancy entry is never written back.
	require.Len(t, res.NewSchedules, 1)
	assert.Equal(t, uint(2), res.NewSchedules[0].TaskID)
	assert.Equal(t, at(2024, time.January, 1, 10, 0), res.NewSchedules[0].ScheduledTime)
}

func TestRescheduleObsoletesStaleAutoSchedules(t *testing.T) {
	today := day(2024, time.January, 1)
	existing := []ScheduledTask{{
		ID: 31, TaskID: 99, Title: "gone", ScheduleType: SchedulePriority,
		ScheduledTime: at(2024, time.January, 2, 8, 0),
	}}

	res := ReschedulePendingTasks(nil, existing, nil, testSettings(), today)

	assert.Equal(t, []uint{31}, res.ObsoleteIDs)
	assert.Empty(t, res.NewSchedules)
}

func TestRescheduleIgnoresNoneTasks(t *testing.T) {
	today := day(2024, time.January, 1)
	tasks := []Task{{ID: 1, Title: "someday", ScheduleType: ScheduleNone}}
	res := ReschedulePendingTasks(tasks, nil, nil, testSettings(), today)
	assert.Empty(t, res.NewSchedules)
	assert.Empty(t, res.ObsoleteIDs)
}

func TestRescheduleIdempotent(t *testing.T) {
	today := day(2024, time.January, 1)
	tasks := []Task{
		{ID: 1, Title: "A", ScheduleType: SchedulePriority, Priority: 5, CreatedAt: at(2023, time.December, 1, 0, 0)},
		{ID: 2, Title: "B", ScheduleType: SchedulePriority, Priority: 3, CreatedAt: at(2023, time.December, 2, 0, 0)},
	}

	first := ReschedulePendingTasks(tasks, nil, nil, testSettings(), today)
	require.Len(t, first.NewSchedules, 2)

	// Persisting the diff assigns row IDs; replay the pass over the stored state.
	var existing []ScheduledTask
	for i, st := range first.NewSchedules {
		st.ID = uint(100 + i)
		existing = append(existing, st)
	}

	second := ReschedulePendingTasks(tasks, existing, nil, testSettings(), today)
	assert.Empty(t, second.NewSchedules)
	assert.Empty(t, second.ObsoleteIDs)
}

func TestRescheduleRefreshesStaleSnapshots(t *testing.T) {
	today := day(2024, time.January, 1)
	staleTime := at(2024, time.January, 2, 9, 0)
	tasks := []Task{
		{ID: 1, Title: "A", ScheduleType: SchedulePriority, Priority: 5},
	}
	// Same task, slot, title and priority, but the row's denormalized manual
	// time no longer matches the task; it must be replaced, not kept.
	existing := []ScheduledTask{{
		ID: 61, TaskID: 1, Title: "A", ScheduleType: SchedulePriority, Priority: 5,
		ManualTime:    &staleTime,
		ScheduledTime: at(2024, time.January, 1, 8, 0),
	}}

	res := ReschedulePendingTasks(tasks, existing, nil, testSettings(), today)

	assert.Equal(t, []uint{61}, res.ObsoleteIDs)
	require.Len(t, res.NewSchedules, 1)
	assert.Nil(t, res.NewSchedules[0].ManualTime)
	assert.Equal(t, at(2024, time.January, 1, 8, 0), res.NewSchedules[0].ScheduledTime)
}

func TestRescheduleCapacityNeverExceeded(t *testing.T) {
	today := day(2024, time.January, 1)
	settings := testSettings()
	var tasks []Task
	for i := uint(1); i <= 10; i++ {
		tasks = append(tasks, Task{
			ID: i, Title: "t", ScheduleType: SchedulePriority, Priority: 2,
			CreatedAt: at(2024, time.January, 1, 0, int(i)),
		})
	}
	// A completed row already consumes one slot of day one's capacity.
	existing := []ScheduledTask{{
		ID: 41, TaskID: 50, ScheduleType: SchedulePriority, IsCompleted: true,
		ScheduledTime: at(2024, time.January, 1, 8, 0),
	}}

	res := ReschedulePendingTasks(tasks, existing, nil, settings, today)

	perDay := map[time.Time]int{}
	for _, st := range res.NewSchedules {
		perDay[dateOnly(st.ScheduledTime)]++
	}
	assert.Equal(t, settings.MaxTasksPerDay-1, perDay[day(2024, time.January, 1)])
	for d, n := range perDay {
		assert.LessOrEqual(t, n, settings.MaxTasksPerDay, "day %s over capacity", d)
	}
}
