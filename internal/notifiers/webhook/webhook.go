package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"stream-quality/internal/core/notify"
	"stream-quality/internal/notifiers/format"
)

type Notifier struct {
	NameValue string
	URL       string
	Timeout   time.Duration
}

// Payload is the JSON document posted to the endpoint. Text carries a
// plain rendering for chat receivers that ignore the structured fields.
type Payload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	notify.Alert
}

func (n *Notifier) Name() string {
	return n.NameValue
}

func (n *Notifier) Send(ctx context.Context, alert notify.Alert) error {
	if n.URL == "" {
		return fmt.Errorf("webhook url is required")
	}
	payload, err := json.Marshal(Payload{Title: alert.Title(), Text: format.PlainText(alert), Alert: alert})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: n.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
