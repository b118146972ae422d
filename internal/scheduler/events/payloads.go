package events

import "time"

// ReminderPayload is sent by the scheduler service to Kafka for the
// notification worker when a scheduled task comes due.
type ReminderPayload struct {
	ScheduleID    uint      `json:"schedule_id"`
	TaskID        uint      `json:"task_id"`
	UserID        uint      `json:"user_id"`
	Title         string    `json:"title"`
	ScheduledTime time.Time `json:"scheduled_time"`
	ScheduleType  string    `json:"schedule_type"`
	Priority      int       `json:"priority,omitempty"`
	// DeliveryType selects the worker-side deliverer; empty means console.
	DeliveryType string `json:"delivery_type,omitempty"`
}

// ScheduleUpdatedPayload is published after a reconciliation pass persists
// its diff, so downstream consumers can refresh their view.
type ScheduleUpdatedPayload struct {
	UserID       uint      `json:"user_id"`
	Inserted     int       `json:"inserted"`
	Deleted      int       `json:"deleted"`
	ReconciledAt time.Time `json:"reconciled_at"`
}
