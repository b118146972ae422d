package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	schedDB "task-scheduler-service/internal/scheduler/db"
	"task-scheduler-service/internal/scheduler/engine"
	"task-scheduler-service/internal/scheduler/events"
)

// ReconcileService loads a user's scheduling snapshot, runs the engine and
// persists the resulting diff. The engine itself is pure; everything stateful
// lives here.
type ReconcileService struct {
	DB       *gorm.DB
	Producer *kafka.Writer    // schedule-updated events, not the reminder topic
	inFlight sync.Map         // userID -> struct{}, non-blocking per-user guard
	now      func() time.Time // swapped out in tests
}

func NewReconcileService(db *gorm.DB, producer *kafka.Writer) *ReconcileService {
	return &ReconcileService{DB: db, Producer: producer, now: time.Now}
}

// Reconcile runs one full reconciliation pass for the user. A request
// arriving while a pass for the same user is in flight is dropped, not
// queued; the in-flight pass is assumed to see sufficiently current state.
func (s *ReconcileService) Reconcile(ctx context.Context, userID uint) error {
	if _, held := s.inFlight.LoadOrStore(userID, struct{}{}); held {
		log.Printf("Reconcile for user %d already in flight, skipping.", userID)
		return nil
	}
	defer s.inFlight.Delete(userID)

	tasks, schedules, workEvents, settings, err := s.loadSnapshot(userID)
	if err != nil {
		return err
	}

	result := engine.ReschedulePendingTasks(
		tasks, schedules, ApplyCalendarOverrides(workEvents), settings, s.now())
	if len(result.NewSchedules) == 0 && len(result.ObsoleteIDs) == 0 {
		log.Printf("Reconcile for user %d: schedule already up to date.", userID)
		return nil
	}

	// Delete-then-insert as one transaction so a failed pass changes nothing.
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if len(result.ObsoleteIDs) > 0 {
			if err := tx.Delete(&schedDB.ScheduledTask{}, result.ObsoleteIDs).Error; err != nil {
				return fmt.Errorf("failed to delete obsolete schedules: %w", err)
			}
		}
		for _, st := range result.NewSchedules {
			row, err := schedDB.ScheduledTaskFromEngine(userID, st)
			if err != nil {
				return err
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert schedule for task %d: %w", st.TaskID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("Reconcile for user %d: inserted %d, deleted %d.",
		userID, len(result.NewSchedules), len(result.ObsoleteIDs))

	s.publishScheduleUpdated(ctx, userID, len(result.NewSchedules), len(result.ObsoleteIDs))
	return nil
}

// CompleteSchedule marks a schedule done. Completing a recurrence-typed
// schedule inserts the next instance with RecurrenceSourceID pointing back at
// the completed one; the stamp and the successor commit together, so a failed
// rollover leaves the schedule open for a retry instead of breaking the
// chain. A full reconciliation pass is deliberately not triggered.
func (s *ReconcileService) CompleteSchedule(ctx context.Context, userID, scheduleID uint) (*schedDB.ScheduledTask, error) {
	var row schedDB.ScheduledTask
	if err := s.DB.Where("user_id = ?", userID).First(&row, scheduleID).Error; err != nil {
		return nil, fmt.Errorf("schedule %d not found: %w", scheduleID, err)
	}
	if row.IsCompleted {
		return nil, nil
	}

	if engine.ScheduleType(row.ScheduleType) != engine.ScheduleRecurrence || row.Recurrence == "" {
		if err := s.DB.Model(&row).Update("is_completed", true).Error; err != nil {
			return nil, fmt.Errorf("failed to complete schedule %d: %w", scheduleID, err)
		}
		return nil, nil
	}

	snap, err := row.ToEngine()
	if err != nil {
		return nil, err
	}
	nextAt, err := engine.NextOccurrence(*snap.Recurrence, row.ScheduledTime)
	if err != nil {
		return nil, err
	}

	next := row
	next.ID = 0
	next.CreatedAt = time.Time{}
	next.UpdatedAt = time.Time{}
	next.ScheduledTime = nextAt
	next.ManualScheduledTime = &nextAt
	next.IsCompleted = false
	next.NotifiedAt = nil
	next.RecurrenceSourceID = row.ID
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&row).Update("is_completed", true).Error; err != nil {
			return fmt.Errorf("failed to complete schedule %d: %w", scheduleID, err)
		}
		if err := tx.Create(&next).Error; err != nil {
			return fmt.Errorf("failed to create recurrence successor for schedule %d: %w", scheduleID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Schedule %d completed, recurrence successor %d at %s.", row.ID, next.ID, nextAt)
	return &next, nil
}

// ProjectTaskEdits copies the denormalized task fields onto the task's
// non-completed schedules. Slots are not moved here; a reconcile pass follows
// every task edit and handles placement.
func (s *ReconcileService) ProjectTaskEdits(ctx context.Context, task schedDB.Task) error {
	updates := map[string]interface{}{
		"title":                 task.Title,
		"schedule_type":         task.ScheduleType,
		"priority":              task.Priority,
		"manual_scheduled_time": task.ManualScheduledTime,
		"recurrence":            task.Recurrence,
	}
	err := s.DB.Model(&schedDB.ScheduledTask{}).
		Where("task_id = ? AND user_id = ? AND is_completed = ?", task.ID, task.UserID, false).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to project task %d onto schedules: %w", task.ID, err)
	}
	return nil
}

func (s *ReconcileService) loadSnapshot(userID uint) ([]engine.Task, []engine.ScheduledTask, []engine.WorkEvent, engine.Settings, error) {
	var taskRows []schedDB.Task
	if err := s.DB.Where("user_id = ?", userID).Find(&taskRows).Error; err != nil {
		return nil, nil, nil, engine.Settings{}, fmt.Errorf("failed to load tasks: %w", err)
	}
	var scheduleRows []schedDB.ScheduledTask
	if err := s.DB.Where("user_id = ?", userID).Find(&scheduleRows).Error; err != nil {
		return nil, nil, nil, engine.Settings{}, fmt.Errorf("failed to load schedules: %w", err)
	}
	var eventRows []schedDB.WorkEvent
	if err := s.DB.Where("user_id = ?", userID).Find(&eventRows).Error; err != nil {
		return nil, nil, nil, engine.Settings{}, fmt.Errorf("failed to load work events: %w", err)
	}

	tasks := make([]engine.Task, 0, len(taskRows))
	for _, row := range taskRows {
		t, err := row.ToEngine()
		if err != nil {
			return nil, nil, nil, engine.Settings{}, err
		}
		tasks = append(tasks, t)
	}
	schedules := make([]engine.ScheduledTask, 0, len(scheduleRows))
	for _, row := range scheduleRows {
		st, err := row.ToEngine()
		if err != nil {
			return nil, nil, nil, engine.Settings{}, err
		}
		schedules = append(schedules, st)
	}
	workEvents := make([]engine.WorkEvent, 0, len(eventRows))
	for _, row := range eventRows {
		workEvents = append(workEvents, row.ToEngine())
	}

	settings, err := s.loadSettings(userID)
	if err != nil {
		return nil, nil, nil, engine.Settings{}, err
	}
	return tasks, schedules, workEvents, settings, nil
}

func (s *ReconcileService) loadSettings(userID uint) (engine.Settings, error) {
	var row schedDB.AppSettings
	err := s.DB.Where("user_id = ?", userID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return schedDB.DefaultSettings(userID).ToEngine(), nil
	}
	if err != nil {
		return engine.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return row.ToEngine(), nil
}

func (s *ReconcileService) publishScheduleUpdated(ctx context.Context, userID uint, inserted, deleted int) {
	if s.Producer == nil {
		return
	}
	payload := events.ScheduleUpdatedPayload{
		UserID:       userID,
		Inserted:     inserted,
		Deleted:      deleted,
		ReconciledAt: s.now(),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshalling ScheduleUpdatedPayload for user %d: %v", userID, err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(userID), 10)),
		Value: payloadBytes,
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.Producer.WriteMessages(writeCtx, msg); err != nil {
		// The diff is already durable; downstream refresh just lags a pass.
		log.Printf("Error publishing schedule update for user %d: %v", userID, err)
	}
}

// ApplyCalendarOverrides resolves the synthetic day-toggle markers before the
// engine sees the event list. An include marker strips the day's natural
// events so it classifies as a holiday; an exclude marker blocks the day with
// a synthetic non-work event. The engine itself never evaluates markers.
func ApplyCalendarOverrides(workEvents []engine.WorkEvent) []engine.WorkEvent {
	includeDays := make(map[string]struct{})
	excludeDays := make(map[string]time.Time)
	for _, ev := range workEvents {
		switch ev.Type {
		case engine.EventScheduleInclude:
			includeDays[dayKey(ev.Start)] = struct{}{}
		case engine.EventScheduleExclude:
			excludeDays[dayKey(ev.Start)] = ev.Start
		}
	}

	resolved := make([]engine.WorkEvent, 0, len(workEvents))
	for _, ev := range workEvents {
		if ev.Type == engine.EventScheduleInclude || ev.Type == engine.EventScheduleExclude {
			continue
		}
		if _, ok := includeDays[dayKey(ev.Start)]; ok {
			continue
		}
		resolved = append(resolved, ev)
	}
	for _, markerStart := range excludeDays {
		resolved = append(resolved, engine.WorkEvent{
			Title: "schedule excluded",
			Start: markerStart,
			End:   markerStart,
			Type:  engine.EventOther,
		})
	}
	return resolved
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
