package notify

import (
	"fmt"
	"time"

	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
)

type Kind string

const (
	KindQuality Kind = "quality"
	KindAnomaly Kind = "anomaly"
)

// Alert is what a channel renders. Quality alerts carry the summary and its
// failed outcomes; anomaly alerts carry the qualifying records.
type Alert struct {
	Kind       Kind              `json:"kind"`
	Summary    *check.Summary    `json:"summary,omitempty"`
	Failures   []check.Outcome   `json:"failures,omitempty"`
	Anomalies  []detector.Record `json:"anomalies,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func QualityAlert(s check.Summary, at time.Time) Alert {
	return Alert{
		Kind:       KindQuality,
		Summary:    &s,
		Failures:   s.Failures(),
		OccurredAt: at,
	}
}

func AnomalyAlert(records []detector.Record, at time.Time) Alert {
	return Alert{
		Kind:       KindAnomaly,
		Anomalies:  records,
		OccurredAt: at,
	}
}

// Title is the one-line headline shared by every channel.
func (a Alert) Title() string {
	if a.Kind == KindAnomaly {
		return fmt.Sprintf("Metric Anomaly Alert - %d anomalies detected", len(a.Anomalies))
	}
	rate := 0.0
	if a.Summary != nil {
		rate = a.Summary.PassRate
	}
	return fmt.Sprintf("Data Quality Alert - Pass Rate: %.2f%%", rate*100)
}
