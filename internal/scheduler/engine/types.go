// Package engine implements the automatic rescheduling core: holiday
// classification, recurrence computation, per-day slot allocation and the
// reconciliation diff. Everything in this package is pure computation over
// in-memory snapshots; persistence and triggering live in the services layer.
package engine

import "time"

// ScheduleType describes how a task gets onto the calendar.
type ScheduleType string

const (
	SchedulePriority   ScheduleType = "priority"   // placed automatically by the reconciler
	ScheduleTime       ScheduleType = "time"       // pinned by the user to a fixed time
	ScheduleRecurrence ScheduleType = "recurrence" // pinned, rolls forward on completion
	ScheduleNone       ScheduleType = "none"       // backlog only, never placed
)

// RecurrenceType enumerates the supported recurrence rule kinds.
type RecurrenceType string

const (
	RecurDaily    RecurrenceType = "daily"
	RecurWeekly   RecurrenceType = "weekly"
	RecurWeekdays RecurrenceType = "weekdays"
	RecurMonthly  RecurrenceType = "monthly"
	RecurYearly   RecurrenceType = "yearly"
)

// RecurrenceRule describes when the next instance of a recurring task is due.
type RecurrenceRule struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval,omitempty"` // repeat every N units, <=0 means 1
	// DaysOfWeek holds weekday indices (0=Sunday) for weekly rules.
	DaysOfWeek []int `json:"daysOfWeek,omitempty"`
	// DayOfMonth is accepted for monthly rules but currently advisory; the
	// computed date is plain calendar-month arithmetic without a snap-back.
	DayOfMonth int `json:"dayOfMonth,omitempty"`
}

// Task is a backlog item. It is read-only to the engine.
type Task struct {
	ID           uint
	Title        string
	ScheduleType ScheduleType
	Priority     int // for priority tasks, higher is more urgent
	ManualTime   *time.Time
	Recurrence   *RecurrenceRule
	CreatedAt    time.Time // tie-break key for equally prioritized tasks
}

// ScheduledTask is a placement of a Task at a concrete time. Task fields are
// denormalized onto it so the UI can render a schedule row without a join;
// callers re-project them when the source task is edited.
type ScheduledTask struct {
	ID                 uint
	TaskID             uint
	Title              string
	ScheduleType       ScheduleType
	Priority           int
	ManualTime         *time.Time
	Recurrence         *RecurrenceRule
	ScheduledTime      time.Time
	IsCompleted        bool
	NotifiedAt         *time.Time
	RecurrenceSourceID uint // schedule that spawned this one on completion
}

// EventType classifies a work-calendar entry.
type EventType string

const (
	EventNightShift EventType = "night-shift"
	EventDayShift   EventType = "day-shift"
	EventDayOff     EventType = "day-off"
	EventOther      EventType = "other"

	// Synthetic markers written when the user toggles a calendar day. They are
	// resolved by the services layer and never evaluated by IsHoliday.
	EventScheduleExclude EventType = "schedule-exclude"
	EventScheduleInclude EventType = "schedule-include"
)

// WorkEvent is an external calendar entry, already validated upstream.
type WorkEvent struct {
	ID    uint
	Title string
	Start time.Time
	End   time.Time
	Type  EventType
}

// Settings is the scheduling-relevant subset of the application settings.
type Settings struct {
	ScheduleInterval   float64 // hours between candidate slots, fractions allowed
	StartTimeMorning   int     // hour of day the first slot starts on a normal holiday
	StartTimeAfternoon int     // hour of day used after a late previous-day shift
	MaxTasksPerDay     int     // cap on automatically placed tasks per holiday
}

// ReconcileResult is the diff produced by ReschedulePendingTasks. The caller
// must delete ObsoleteIDs before inserting NewSchedules, as a pair.
type ReconcileResult struct {
	NewSchedules []ScheduledTask
	ObsoleteIDs  []uint
}

// NewScheduledTask projects a task onto a concrete slot, producing a fresh
// non-completed schedule record. The ID is left zero for the persistence
// layer to assign.
func NewScheduledTask(task Task, at time.Time) ScheduledTask {
	return ScheduledTask{
		TaskID:        task.ID,
		Title:         task.Title,
		ScheduleType:  task.ScheduleType,
		Priority:      task.Priority,
		ManualTime:    task.ManualTime,
		Recurrence:    task.Recurrence,
		ScheduledTime: at,
	}
}

// ProjectTask refreshes the denormalized task fields on an existing schedule
// after the source task was edited. The slot itself is not moved.
func ProjectTask(st *ScheduledTask, task Task) {
	st.Title = task.Title
	st.ScheduleType = task.ScheduleType
	st.Priority = task.Priority
	st.ManualTime = task.ManualTime
	st.Recurrence = task.Recurrence
}

// sameDay reports whether two timestamps fall on the same calendar day,
// compared in a's location.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

// dateOnly truncates a timestamp to midnight of its calendar day.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
