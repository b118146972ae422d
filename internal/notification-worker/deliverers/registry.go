package deliverers

import (
	"fmt"
	"log"

	"task-scheduler-service/internal/scheduler/events"
)

// DeliveryType constants
const (
	DeliveryTypeConsole = "console"
	DeliveryTypeWebhook = "webhook"
)

// Deliverer hands a reminder to the user over some channel.
type Deliverer interface {
	Deliver(reminder events.ReminderPayload) error
}

var Registry = make(map[string]Deliverer)

func init() {
	RegisterDeliverer(DeliveryTypeConsole, &ConsoleDeliverer{})
	RegisterDeliverer(DeliveryTypeWebhook, NewWebhookDeliverer())
	log.Println("Deliverer registry initialized with known deliverers.")
}

func RegisterDeliverer(deliveryType string, d Deliverer) {
	log.Printf("Registering deliverer for type: %s", deliveryType)
	Registry[deliveryType] = d
}

// GetDeliverer resolves a delivery type; an empty type means console.
func GetDeliverer(deliveryType string) (Deliverer, error) {
	if deliveryType == "" {
		deliveryType = DeliveryTypeConsole
	}
	d, exists := Registry[deliveryType]
	if !exists {
		return nil, fmt.Errorf("no deliverer registered for type: %s", deliveryType)
	}
	return d, nil
}
