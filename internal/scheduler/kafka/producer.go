package kafka

import (
	"log"
	"os"
	"strings"

	"github.com/segmentio/kafka-go"
)

const (
	DefaultKafkaBrokers        = "localhost:9092"
	DefaultReminderTopic       = "schedule_reminders"
	DefaultScheduleEventsTopic = "schedule_events"
)

// NewReminderProducer builds the writer for the reminder topic consumed by
// the notification worker.
func NewReminderProducer() *kafka.Writer {
	return newProducer(envOr("REMINDER_TOPIC", DefaultReminderTopic))
}

// NewScheduleEventsProducer builds the writer for schedule-updated events.
// These feed downstream view refreshes and stay off the reminder topic so
// the notification worker never sees them.
func NewScheduleEventsProducer() *kafka.Writer {
	return newProducer(envOr("SCHEDULE_EVENTS_TOPIC", DefaultScheduleEventsTopic))
}

func newProducer(topic string) *kafka.Writer {
	brokerList := strings.Split(envOr("KAFKA_BROKERS", DefaultKafkaBrokers), ",")
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokerList,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: int(kafka.RequireOne),
		Async:        false,
	})
	log.Printf("Scheduler Kafka producer configured for topic: %s", topic)
	return producer
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
