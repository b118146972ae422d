package db

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-scheduler-service/internal/scheduler/engine"
)

// Task is a backlog item owned by the user.
type Task struct {
	gorm.Model             // Includes ID, CreatedAt, UpdatedAt, DeletedAt
	UserID              uint       `json:"user_id" gorm:"index"`
	Title               string     `json:"title" gorm:"index"`
	ScheduleType        string     `json:"schedule_type" gorm:"index"` // priority, time, recurrence, none
	Priority            int        `json:"priority"`                   // for priority tasks, higher is more urgent
	ManualScheduledTime *time.Time `json:"manual_scheduled_time,omitempty"`
	Recurrence          string     `json:"recurrence,omitempty" gorm:"type:json"` // serialized RecurrenceRule
}

// ScheduledTask is a placement of a task at a concrete time. Task fields are
// denormalized so a schedule row renders without a join; they are re-projected
// by the services layer when the source task changes.
type ScheduledTask struct {
	gorm.Model
	UserID              uint       `json:"user_id" gorm:"index"`
	TaskID              uint       `json:"task_id" gorm:"index"` // weak reference, correlation only
	Title               string     `json:"title"`
	ScheduleType        string     `json:"schedule_type" gorm:"index"`
	Priority            int        `json:"priority"`
	ManualScheduledTime *time.Time `json:"manual_scheduled_time,omitempty"`
	Recurrence          string     `json:"recurrence,omitempty" gorm:"type:json"`
	ScheduledTime       time.Time  `json:"scheduled_time" gorm:"index"`
	IsCompleted         bool       `json:"is_completed" gorm:"default:false;index"`
	NotifiedAt          *time.Time `json:"notified_at,omitempty"`
	RecurrenceSourceID  uint       `json:"recurrence_source_id,omitempty"` // schedule that spawned this one
}

// WorkEvent is an external calendar entry, or a synthetic override marker
// written when the user toggles a calendar day.
type WorkEvent struct {
	gorm.Model
	UserID    uint      `json:"user_id" gorm:"index"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time" gorm:"index"`
	EndTime   time.Time `json:"end_time"`
	EventType string    `json:"event_type" gorm:"index"` // night-shift, day-shift, day-off, other, schedule-exclude, schedule-include
}

// AppSettings holds the scheduling knobs, one row per user.
type AppSettings struct {
	gorm.Model
	UserID             uint    `json:"user_id" gorm:"uniqueIndex"`
	ScheduleInterval   float64 `json:"schedule_interval"`    // hours between candidate slots, fractions allowed
	StartTimeMorning   int     `json:"start_time_morning"`   // hour of day
	StartTimeAfternoon int     `json:"start_time_afternoon"` // hour of day
	MaxTasksPerDay     int     `json:"max_tasks_per_day"`
}

// DefaultSettings returns the settings row used before the user saves any.
func DefaultSettings(userID uint) AppSettings {
	return AppSettings{
		UserID:             userID,
		ScheduleInterval:   1,
		StartTimeMorning:   8,
		StartTimeAfternoon: 13,
		MaxTasksPerDay:     3,
	}
}

func decodeRule(raw string) (*engine.RecurrenceRule, error) {
	if raw == "" {
		return nil, nil
	}
	var rule engine.RecurrenceRule
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		return nil, fmt.Errorf("failed to decode recurrence rule %q: %w", raw, err)
	}
	return &rule, nil
}

func encodeRule(rule *engine.RecurrenceRule) (string, error) {
	if rule == nil {
		return "", nil
	}
	raw, err := json.Marshal(rule)
	if err != nil {
		return "", fmt.Errorf("failed to encode recurrence rule: %w", err)
	}
	return string(raw), nil
}

// ToEngine converts a stored task into the engine's snapshot type.
func (t Task) ToEngine() (engine.Task, error) {
	rule, err := decodeRule(t.Recurrence)
	if err != nil {
		return engine.Task{}, err
	}
	return engine.Task{
		ID:           t.ID,
		Title:        t.Title,
		ScheduleType: engine.ScheduleType(t.ScheduleType),
		Priority:     t.Priority,
		ManualTime:   t.ManualScheduledTime,
		Recurrence:   rule,
		CreatedAt:    t.CreatedAt,
	}, nil
}

// ToEngine converts a stored schedule row into the engine's snapshot type.
func (st ScheduledTask) ToEngine() (engine.ScheduledTask, error) {
	rule, err := decodeRule(st.Recurrence)
	if err != nil {
		return engine.ScheduledTask{}, err
	}
	return engine.ScheduledTask{
		ID:                 st.ID,
		TaskID:             st.TaskID,
		Title:              st.Title,
		ScheduleType:       engine.ScheduleType(st.ScheduleType),
		Priority:           st.Priority,
		ManualTime:         st.ManualScheduledTime,
		Recurrence:         rule,
		ScheduledTime:      st.ScheduledTime,
		IsCompleted:        st.IsCompleted,
		NotifiedAt:         st.NotifiedAt,
		RecurrenceSourceID: st.RecurrenceSourceID,
	}, nil
}

// ScheduledTaskFromEngine builds a persistable row from an engine record. The
// row ID stays zero so the database assigns it on insert.
func ScheduledTaskFromEngine(userID uint, st engine.ScheduledTask) (ScheduledTask, error) {
	raw, err := encodeRule(st.Recurrence)
	if err != nil {
		return ScheduledTask{}, err
	}
	return ScheduledTask{
		UserID:              userID,
		TaskID:              st.TaskID,
		Title:               st.Title,
		ScheduleType:        string(st.ScheduleType),
		Priority:            st.Priority,
		ManualScheduledTime: st.ManualTime,
		Recurrence:          raw,
		ScheduledTime:       st.ScheduledTime,
		IsCompleted:         st.IsCompleted,
		NotifiedAt:          st.NotifiedAt,
		RecurrenceSourceID:  st.RecurrenceSourceID,
	}, nil
}

// ToEngine converts a stored calendar event into the engine's snapshot type.
func (e WorkEvent) ToEngine() engine.WorkEvent {
	return engine.WorkEvent{
		ID:    e.ID,
		Title: e.Title,
		Start: e.StartTime,
		End:   e.EndTime,
		Type:  engine.EventType(e.EventType),
	}
}

// ToEngine converts a settings row into the engine's snapshot type.
func (s AppSettings) ToEngine() engine.Settings {
	return engine.Settings{
		ScheduleInterval:   s.ScheduleInterval,
		StartTimeMorning:   s.StartTimeMorning,
		StartTimeAfternoon: s.StartTimeAfternoon,
		MaxTasksPerDay:     s.MaxTasksPerDay,
	}
}
