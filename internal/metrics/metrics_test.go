package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"stream-quality/internal/core/check"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.ObserveCheck(check.Outcome{Name: "a", Kind: check.KindNull, Passed: true}, time.Millisecond, false)
	r.ObserveCheck(check.Outcome{Name: "b", Kind: check.KindSchema}, time.Millisecond, true)
	r.ObserveSummary(check.Summary{PassRate: 0.5})
	r.ObserveAnomaly("hourly_events", "HIGH")
	r.ObserveAlert("slack", true)
	r.ObserveAlert("email", false)
	r.ObserveService("api", true)
	r.ObserveService("kafka", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.checks.WithLabelValues("a", "null_check", "PASS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.checks.WithLabelValues("b", "schema_check", "FAIL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.faults.WithLabelValues("b")))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.passRate))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.anomalies.WithLabelValues("hourly_events", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues("slack", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.alerts.WithLabelValues("email", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.services.WithLabelValues("api")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.services.WithLabelValues("kafka")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveCheck(check.Outcome{}, 0, true)
		r.ObserveSummary(check.Summary{})
		r.ObserveAnomaly("m", "LOW")
		r.ObserveAlert("c", false)
		r.ObserveService("s", true)
	})
}
