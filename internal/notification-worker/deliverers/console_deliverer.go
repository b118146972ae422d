package deliverers

import (
	"log"
	"time"

	"task-scheduler-service/internal/scheduler/events"
)

// ConsoleDeliverer writes the reminder to the service log. It is the default
// channel and the fallback for local development.
type ConsoleDeliverer struct{}

// Deliver implements the Deliverer interface.
func (d *ConsoleDeliverer) Deliver(reminder events.ReminderPayload) error {
	log.Printf("Reminder for user %d: %q scheduled at %s (schedule %d, task %d)",
		reminder.UserID, reminder.Title,
		reminder.ScheduledTime.Format(time.RFC3339),
		reminder.ScheduleID, reminder.TaskID)
	return nil
}
