// Package metrics exposes the prometheus handle shared by the orchestrator,
// the detector and the dispatcher. A nil *Recorder discards everything.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"stream-quality/internal/core/check"
)

const namespace = "stream_quality"

type Recorder struct {
	checks    *prometheus.CounterVec
	faults    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	passRate  prometheus.Gauge
	runs      prometheus.Counter
	anomalies *prometheus.CounterVec
	alerts    *prometheus.CounterVec
	services  *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		checks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Check evaluations by outcome status.",
		}, []string{"check", "kind", "status"}),
		faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_faults_total",
			Help:      "Checks that returned an error or panicked.",
		}, []string{"check"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Time spent evaluating a single check.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"kind"}),
		passRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pass_rate",
			Help:      "Pass rate of the most recent run.",
		}),
		runs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed orchestrator runs.",
		}),
		anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_anomalies_total",
			Help:      "Anomaly records emitted by severity.",
		}, []string{"metric", "severity"}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert send attempts per channel.",
		}, []string{"channel", "result"}),
		services: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_up",
			Help:      "1 when the last check of a service was healthy.",
		}, []string{"service"}),
	}
}

func (r *Recorder) ObserveCheck(o check.Outcome, took time.Duration, faulted bool) {
	if r == nil {
		return
	}
	r.checks.WithLabelValues(o.Name, string(o.Kind), string(o.Status())).Inc()
	r.duration.WithLabelValues(string(o.Kind)).Observe(took.Seconds())
	if faulted {
		r.faults.WithLabelValues(o.Name).Inc()
	}
}

func (r *Recorder) ObserveSummary(s check.Summary) {
	if r == nil {
		return
	}
	r.runs.Inc()
	r.passRate.Set(s.PassRate)
}

func (r *Recorder) ObserveAnomaly(metric, severity string) {
	if r == nil {
		return
	}
	r.anomalies.WithLabelValues(metric, severity).Inc()
}

func (r *Recorder) ObserveAlert(channel string, sent bool) {
	if r == nil {
		return
	}
	result := "sent"
	if !sent {
		result = "failed"
	}
	r.alerts.WithLabelValues(channel, result).Inc()
}

func (r *Recorder) ObserveService(name string, healthy bool) {
	if r == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	r.services.WithLabelValues(name).Set(v)
}
