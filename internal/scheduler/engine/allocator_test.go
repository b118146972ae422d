package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	return Settings{
		ScheduleInterval:   2,
		StartTimeMorning:   8,
		StartTimeAfternoon: 13,
		MaxTasksPerDay:     3,
	}
}

func priorityTask(id uint, title string, priority int) Task {
	return Task{ID: id, Title: title, ScheduleType: SchedulePriority, Priority: priority}
}

func TestScheduleTasksForHolidayBasicPlacement(t *testing.T) {
	d := day(2024, time.January, 6)
	tasks := []Task{priorityTask(1, "A", 5), priorityTask(2, "B", 3)}

	placed := ScheduleTasksForHoliday(d, tasks, nil, testSettings(), nil)

	require.Len(t, placed, 2)
	assert.Equal(t, at(2024, time.January, 6, 8, 0), placed[0].ScheduledTime)
	assert.Equal(t, at(2024, time.January, 6, 10, 0), placed[1].ScheduledTime)
	assert.Equal(t, "A", placed[0].Title)
	assert.Equal(t, uint(1), placed[0].TaskID)
	assert.False(t, placed[0].IsCompleted)
	assert.Zero(t, placed[0].ID)
}

func TestScheduleTasksForHolidayNonHoliday(t *testing.T) {
	d := day(2024, time.January, 8)
	events := []WorkEvent{eventOn(d, EventDayShift)}
	placed := ScheduleTasksForHoliday(d, []Task{priorityTask(1, "A", 5)}, events, testSettings(), nil)
	assert.Empty(t, placed)
}

func TestScheduleTasksForHolidayNoTasks(t *testing.T) {
	assert.Empty(t, ScheduleTasksForHoliday(day(2024, time.January, 6), nil, nil, testSettings(), nil))
}

func TestScheduleTasksForHolidayNightShiftOffset(t *testing.T) {
	d := day(2024, time.January, 6)
	// Night shift starting the previous evening and ending 06:00 the day
	// itself pushes the first slot to the afternoon hour.
	events := []WorkEvent{{
		Title: "night shift",
		Start: at(2024, time.January, 5, 22, 0),
		End:   at(2024, time.January, 6, 6, 0),
		Type:  EventNightShift,
	}}

	placed := ScheduleTasksForHoliday(d, []Task{priorityTask(1, "A", 5)}, events, testSettings(), nil)

	require.Len(t, placed, 1)
	assert.Equal(t, at(2024, time.January, 6, 13, 0), placed[0].ScheduledTime)
}

func TestScheduleTasksForHolidayEveningShiftKeepsMorning(t *testing.T) {
	d := day(2024, time.January, 6)
	events := []WorkEvent{{
		Title: "day shift",
		Start: at(2024, time.January, 5, 9, 0),
		End:   at(2024, time.January, 5, 17, 0),
		Type:  EventDayShift,
	}}

	placed := ScheduleTasksForHoliday(d, []Task{priorityTask(1, "A", 5)}, events, testSettings(), nil)

	require.Len(t, placed, 1)
	assert.Equal(t, at(2024, time.January, 6, 8, 0), placed[0].ScheduledTime)
}

func TestScheduleTasksForHolidaySkipsOccupiedSlots(t *testing.T) {
	d := day(2024, time.January, 6)
	existing := []ScheduledTask{{
		ID:            77,
		TaskID:        9,
		ScheduleType:  ScheduleTime,
		ScheduledTime: at(2024, time.January, 6, 8, 0),
	}}

	placed := ScheduleTasksForHoliday(d, []Task{priorityTask(1, "A", 5)}, nil, testSettings(), existing)

	require.Len(t, placed, 1)
	assert.Equal(t, at(2024, time.January, 6, 10, 0), placed[0].ScheduledTime)
}

func TestScheduleTasksForHolidayNoDoubleBooking(t *testing.T) {
	d := day(2024, time.January, 6)
	settings := testSettings()
	settings.ScheduleInterval = 0.5
	existing := []ScheduledTask{
		{ID: 1, ScheduledTime: at(2024, time.January, 6, 8, 30)},
		{ID: 2, ScheduledTime: at(2024, time.January, 6, 9, 30)},
	}
	tasks := []Task{
		priorityTask(1, "A", 5),
		priorityTask(2, "B", 4),
		priorityTask(3, "C", 3),
	}

	placed := ScheduleTasksForHoliday(d, tasks, nil, settings, existing)

	seen := map[int64]bool{}
	for _, st := range existing {
		seen[st.ScheduledTime.Unix()] = true
	}
	for _, st := range placed {
		assert.False(t, seen[st.ScheduledTime.Unix()], "slot %s double-booked", st.ScheduledTime)
		seen[st.ScheduledTime.Unix()] = true
	}
	require.Len(t, placed, 3)
	assert.Equal(t, at(2024, time.January, 6, 8, 0), placed[0].ScheduledTime)
	assert.Equal(t, at(2024, time.January, 6, 9, 0), placed[1].ScheduledTime)
	assert.Equal(t, at(2024, time.January, 6, 10, 0), placed[2].ScheduledTime)
}

func TestScheduleTasksForHolidayStopsWhenProbesExhausted(t *testing.T) {
	d := day(2024, time.January, 6)
	settings := testSettings()
	settings.ScheduleInterval = 1

	// Occupy eight consecutive hourly slots from 08:00 so the first task runs
	// out of probes; nothing after it may be placed either.
	var existing []ScheduledTask
	for h := 8; h < 16; h++ {
		existing = append(existing, ScheduledTask{ScheduledTime: at(2024, time.January, 6, h, 0)})
	}
	tasks := []Task{priorityTask(1, "A", 5), priorityTask(2, "B", 4)}

	assert.Empty(t, ScheduleTasksForHoliday(d, tasks, nil, settings, existing))
}

func TestScheduleTasksForHolidayPartialPlacement(t *testing.T) {
	d := day(2024, time.January, 6)
	settings := testSettings()
	settings.ScheduleInterval = 1

	// First task fits at 08:00, the second finds 09:00..16:00 all taken.
	var existing []ScheduledTask
	for h := 9; h < 17; h++ {
		existing = append(existing, ScheduledTask{ScheduledTime: at(2024, time.January, 6, h, 0)})
	}
	tasks := []Task{priorityTask(1, "A", 5), priorityTask(2, "B", 4)}

	placed := ScheduleTasksForHoliday(d, tasks, nil, settings, existing)

	require.Len(t, placed, 1)
	assert.Equal(t, "A", placed[0].Title)
	assert.Equal(t, at(2024, time.January, 6, 8, 0), placed[0].ScheduledTime)
}
