// Package notify delivers out-of-band notifications to the address a
// user registered. On this wire the address is a webhook URL; a
// store-and-forward mesh messenger would slot in behind the same
// interface.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type WebhookSender struct {
	client *http.Client
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{client: &http.Client{Timeout: 10 * time.Second}}
}

// SendNotification posts the notification as JSON to the recipient URL.
func (w *WebhookSender) SendNotification(ctx context.Context, recipient, title, body string) error {
	b, err := json.Marshal(payload{Title: title, Body: body})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, recipient, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}
