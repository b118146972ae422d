package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	schedDB "task-scheduler-service/internal/scheduler/db"
	"task-scheduler-service/internal/scheduler/events"
)

const (
	DefaultNotifyLeadMinutes        = 30
	DefaultReminderScanSeconds      = 60
	DefaultReconcileIntervalMinutes = 15
)

// NotificationService runs the background jobs: a periodic scan that publishes
// reminders for due schedules, and a reconcile sweep that keeps unplaced tasks
// rolling forward without waiting for the next user mutation.
type NotificationService struct {
	DB         *gorm.DB
	Scheduler  gocron.Scheduler
	Producer   *kafka.Writer
	Reconciler *ReconcileService
	appContext context.Context
	lead       time.Duration
	now        func() time.Time
}

func NewNotificationService(ctx context.Context, db *gorm.DB, producer *kafka.Writer, reconciler *ReconcileService) (*NotificationService, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	lead := envMinutes("NOTIFY_LEAD_MINUTES", DefaultNotifyLeadMinutes)
	return &NotificationService{
		DB:         db,
		Scheduler:  s,
		Producer:   producer,
		Reconciler: reconciler,
		appContext: ctx,
		lead:       lead,
		now:        time.Now,
	}, nil
}

func (s *NotificationService) Start() error {
	log.Println("NotificationService starting...")

	_, err := s.Scheduler.NewJob(
		gocron.DurationJob(DefaultReminderScanSeconds*time.Second),
		gocron.NewTask(s.DispatchDueReminders),
		gocron.WithName("reminder-scan"),
		gocron.WithTags("reminder_scan"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reminder scan: %w", err)
	}

	reconcileEvery := envMinutes("RECONCILE_INTERVAL_MINUTES", DefaultReconcileIntervalMinutes)
	_, err = s.Scheduler.NewJob(
		gocron.DurationJob(reconcileEvery),
		gocron.NewTask(s.reconcileSweep),
		gocron.WithName("reconcile-sweep"),
		gocron.WithTags("reconcile_sweep"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reconcile sweep: %w", err)
	}

	s.Scheduler.Start()
	log.Printf("NotificationService started (lead %s, reconcile sweep every %s).", s.lead, reconcileEvery)
	return nil
}

func (s *NotificationService) Stop() {
	log.Println("NotificationService stopping...")
	if err := s.Scheduler.Shutdown(); err != nil {
		log.Printf("Error shutting down gocron scheduler: %v", err)
	} else {
		log.Println("Gocron scheduler shut down successfully.")
	}
}

// DispatchDueReminders publishes a reminder for every non-completed schedule
// inside the lead window that has not been notified yet, then stamps it.
// Exported so tests can drive a scan directly.
func (s *NotificationService) DispatchDueReminders() {
	cutoff := s.now().Add(s.lead)
	var due []schedDB.ScheduledTask
	err := s.DB.
		Where("is_completed = ? AND notified_at IS NULL AND scheduled_time <= ?", false, cutoff).
		Find(&due).Error
	if err != nil {
		log.Printf("Reminder scan: failed to load due schedules: %v", err)
		return
	}

	for _, row := range due {
		if err := s.publishReminder(row); err != nil {
			// Leave notified_at unset so the next scan retries.
			log.Printf("Reminder scan: failed to publish reminder for schedule %d: %v", row.ID, err)
			continue
		}
		notifiedAt := s.now()
		if err := s.DB.Model(&row).Update("notified_at", notifiedAt).Error; err != nil {
			log.Printf("Reminder scan: failed to stamp schedule %d: %v", row.ID, err)
			continue
		}
		log.Printf("Reminder scan: published reminder for schedule %d (%s).", row.ID, row.Title)
	}
}

func (s *NotificationService) publishReminder(row schedDB.ScheduledTask) error {
	if s.Producer == nil {
		return fmt.Errorf("no reminder producer configured")
	}
	payload := events.ReminderPayload{
		ScheduleID:    row.ID,
		TaskID:        row.TaskID,
		UserID:        row.UserID,
		Title:         row.Title,
		ScheduledTime: row.ScheduledTime,
		ScheduleType:  row.ScheduleType,
		Priority:      row.Priority,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder payload: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(row.ID), 10)),
		Value: payloadBytes,
	}
	writeCtx, cancel := context.WithTimeout(s.appContext, 10*time.Second)
	defer cancel()
	return s.Producer.WriteMessages(writeCtx, msg)
}

// reconcileSweep re-runs reconciliation for every user with backlog tasks so
// tasks left unplaced by a previous pass get another shot as days roll over.
func (s *NotificationService) reconcileSweep() {
	var userIDs []uint
	err := s.DB.Model(&schedDB.Task{}).Distinct("user_id").Pluck("user_id", &userIDs).Error
	if err != nil {
		log.Printf("Reconcile sweep: failed to list users: %v", err)
		return
	}
	for _, userID := range userIDs {
		if err := s.Reconciler.Reconcile(s.appContext, userID); err != nil {
			log.Printf("Reconcile sweep: user %d failed: %v", userID, err)
		}
	}
}

func envMinutes(name string, fallback int) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return time.Duration(fallback) * time.Minute
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("Invalid %s value %q, using default %d.", name, raw, fallback)
		return time.Duration(fallback) * time.Minute
	}
	return time.Duration(n) * time.Minute
}
