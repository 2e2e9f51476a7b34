package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
)

func TestQualityAlert(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := check.NewSummary("run-1", []check.Outcome{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false, Message: "bad"},
	}, at)

	a := QualityAlert(s, at)
	assert.Equal(t, KindQuality, a.Kind)
	require.NotNil(t, a.Summary)
	require.Len(t, a.Failures, 1)
	assert.Equal(t, "b", a.Failures[0].Name)
	assert.Equal(t, "Data Quality Alert - Pass Rate: 50.00%", a.Title())
}

func TestAnomalyAlert(t *testing.T) {
	a := AnomalyAlert([]detector.Record{{MetricName: "hourly_events"}}, time.Now())
	assert.Equal(t, KindAnomaly, a.Kind)
	assert.Nil(t, a.Summary)
	assert.Equal(t, "Metric Anomaly Alert - 1 anomalies detected", a.Title())
}
