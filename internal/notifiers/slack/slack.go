package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stream-quality/internal/core/notify"
	"stream-quality/internal/notifiers/format"
)

// MaxListed bounds how many failures or anomalies one message enumerates.
const MaxListed = 5

const (
	DefaultChannel   = "#alerts"
	DefaultUsername  = "Data Quality Monitor"
	DefaultIconEmoji = ":warning:"
)

type Notifier struct {
	NameValue string
	URL       string
	Channel   string
	Username  string
	IconEmoji string
	Timeout   time.Duration
}

type payload struct {
	Channel   string  `json:"channel,omitempty"`
	Username  string  `json:"username,omitempty"`
	IconEmoji string  `json:"icon_emoji,omitempty"`
	Text      string  `json:"text,omitempty"`
	Blocks    []block `json:"blocks,omitempty"`
}

type block struct {
	Type   string      `json:"type"`
	Text   *blockText  `json:"text,omitempty"`
	Fields []blockText `json:"fields,omitempty"`
}

type blockText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) Name() string {
	return n.NameValue
}

func (n *Notifier) Send(ctx context.Context, alert notify.Alert) error {
	if strings.TrimSpace(n.URL) == "" {
		return fmt.Errorf("slack url is required")
	}
	body, err := json.Marshal(n.render(alert))
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: n.Timeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
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
		return fmt.Errorf("slack status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) render(alert notify.Alert) payload {
	title := alert.Title()
	blocks := []block{
		{Type: "header", Text: &blockText{Type: "plain_text", Text: "🚨 " + title}},
		{Type: "section", Text: mrkdwn(overview(alert))},
		{Type: "divider"},
	}

	switch alert.Kind {
	case notify.KindAnomaly:
		if len(alert.Anomalies) > 0 {
			blocks = append(blocks, block{Type: "section", Text: mrkdwn("*Anomalies:*")})
			shown, rest := format.Truncate(alert.Anomalies, MaxListed)
			for _, r := range shown {
				blocks = append(blocks, block{Type: "section", Text: mrkdwn(fmt.Sprintf("*%s*\n```%s```", r.MetricName, format.AnomalyLine(r)))})
			}
			if rest > 0 {
				blocks = append(blocks, block{Type: "section", Text: mrkdwn(format.MoreAnomalies(rest))})
			}
		}
	default:
		if len(alert.Failures) > 0 {
			blocks = append(blocks, block{Type: "section", Text: mrkdwn("*Failed Checks:*")})
			shown, rest := format.Truncate(alert.Failures, MaxListed)
			for _, o := range shown {
				text := fmt.Sprintf("*%s*\n%s\n```%s```", format.OrNA(o.Name), format.OrNA(o.Description), format.OrNA(o.Text()))
				blocks = append(blocks, block{Type: "section", Text: mrkdwn(text)})
			}
			if rest > 0 {
				blocks = append(blocks, block{Type: "section", Text: mrkdwn(format.MoreFailures(rest))})
			}
		}
	}

	return payload{
		Channel:   orDefault(n.Channel, DefaultChannel),
		Username:  orDefault(n.Username, DefaultUsername),
		IconEmoji: orDefault(n.IconEmoji, DefaultIconEmoji),
		Text:      title,
		Blocks:    blocks,
	}
}

func overview(alert notify.Alert) string {
	lines := []string{fmt.Sprintf("*Time:* %s", alert.OccurredAt.Format(time.RFC3339))}
	if alert.Kind == notify.KindAnomaly {
		lines = append(lines, fmt.Sprintf("*Anomalies:* %d", len(alert.Anomalies)))
		return strings.Join(lines, "\n")
	}
	if s := alert.Summary; s != nil {
		lines = append(lines,
			fmt.Sprintf("*Total Checks:* %d", s.Total),
			fmt.Sprintf("*Passed:* %d", s.Passed),
			fmt.Sprintf("*Failed:* %d", s.Failed),
		)
	}
	return strings.Join(lines, "\n")
}

func mrkdwn(text string) *blockText {
	return &blockText{Type: "mrkdwn", Text: text}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
