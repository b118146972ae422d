package deliverers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"task-scheduler-service/internal/scheduler/events"
)

const DefaultWebhookTimeout = 10 * time.Second

// WebhookDeliverer POSTs the reminder as JSON to the URL configured via
// NOTIFY_WEBHOOK_URL. The receiving side (a push gateway, a chat bridge) is
// whatever the deployment wires up.
type WebhookDeliverer struct {
	URL    string
	Client *http.Client
}

func NewWebhookDeliverer() *WebhookDeliverer {
	return &WebhookDeliverer{
		URL:    os.Getenv("NOTIFY_WEBHOOK_URL"),
		Client: &http.Client{Timeout: DefaultWebhookTimeout},
	}
}

// Deliver implements the Deliverer interface.
func (d *WebhookDeliverer) Deliver(reminder events.ReminderPayload) error {
	if d.URL == "" {
		return fmt.Errorf("NOTIFY_WEBHOOK_URL is not configured")
	}
	body, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder for webhook: %w", err)
	}
	resp, err := d.Client.Post(d.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook POST failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
