package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"task-scheduler-service/internal/notification-worker/deliverers"
	"task-scheduler-service/internal/scheduler/events"
)

const (
	DefaultKafkaBrokers  = "localhost:9092"
	DefaultReminderTopic = "schedule_reminders"
	DefaultGroupID       = "notification-worker-group"
)

func main() {
	log.Println("Starting Notification Worker...")

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		kafkaBrokers = DefaultKafkaBrokers
	}
	reminderTopic := os.Getenv("REMINDER_TOPIC")
	if reminderTopic == "" {
		reminderTopic = DefaultReminderTopic
	}
	groupID := os.Getenv("GROUP_ID")
	if groupID == "" {
		groupID = DefaultGroupID
	}
	brokerList := strings.Split(kafkaBrokers, ",")
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokerList, GroupID: groupID, Topic: reminderTopic,
		MinBytes: 10e3, MaxBytes: 10e6, CommitInterval: time.Second, MaxWait: 3 * time.Second,
	})
	defer reader.Close()
	log.Printf("Notification Worker Kafka consumer configured for brokers: %s, topic: %s, groupID: %s",
		kafkaBrokers, reminderTopic, groupID)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-signals
		log.Printf("Notification Worker: Shutdown signal received (%s). Cancelling context...", sig)
		cancel()
	}()

	log.Println("Notification Worker listening for reminders...")
	for {
		select {
		case <-ctx.Done():
			log.Println("Notification Worker: Context cancelled. Exiting message loop.")
			return
		default:
			readCtx, readLoopCancel := context.WithTimeout(ctx, 1*time.Second)
			m, err := reader.ReadMessage(readCtx)
			readLoopCancel()
			if err == context.DeadlineExceeded {
				continue
			}
			if err == context.Canceled {
				log.Println("Notification Worker: Read context cancelled, likely due to shutdown.")
				continue
			}
			if err == io.EOF {
				log.Println("Notification Worker: Kafka reader closed (EOF). Exiting.")
				return
			}
			if err != nil {
				log.Printf("Notification Worker: Kafka read error: %v. Retrying...", err)
				time.Sleep(1 * time.Second)
				continue
			}
			log.Printf("Notification Worker: Received message: Topic %s, Partition %d, Offset %d",
				m.Topic, m.Partition, m.Offset)

			var reminder events.ReminderPayload
			if err := json.Unmarshal(m.Value, &reminder); err != nil {
				log.Printf("Notification Worker: Unmarshal error for reminder payload: %v. Value: %s",
					err, string(m.Value))
				continue
			}

			deliverer, err := deliverers.GetDeliverer(reminder.DeliveryType)
			if err != nil {
				log.Printf("Notification Worker: %v. Falling back to console for schedule %d.",
					err, reminder.ScheduleID)
				deliverer, _ = deliverers.GetDeliverer(deliverers.DeliveryTypeConsole)
			}
			if err := deliverer.Deliver(reminder); err != nil {
				// Delivery failures are logged, not retried; the schedule row
				// keeps its notified_at stamp so the user is not spammed.
				log.Printf("Notification Worker: delivery failed for schedule %d: %v",
					reminder.ScheduleID, err)
				continue
			}
			log.Printf("Notification Worker: delivered reminder for schedule %d (%s).",
				reminder.ScheduleID, reminder.Title)
		}
	}
}
