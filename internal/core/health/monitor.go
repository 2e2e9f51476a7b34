package health

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"stream-quality/internal/metrics"
	"stream-quality/internal/utils/logger"
)

type Monitor struct {
	checkers []Checker
	log     *logger.Logger
	rec     *metrics.Recorder
	now     func() time.Time
}

type Option func(*Monitor)

func WithLogger(l *logger.Logger) Option {
	return func(m *Monitor) {
		m.log = l
	}
}

func WithRecorder(rec *metrics.Recorder) Option {
	return func(m *Monitor) {
		m.rec = rec
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

func NewMonitor(checkers []Checker, opts ...Option) *Monitor {
	m := &Monitor{checkers: checkers, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Services() int {
	return len(m.checkers)
}

// CheckAll checks every service concurrently and keeps configuration order
// in the report. A checker that panics is reported as StatusError.
func (m *Monitor) CheckAll(ctx context.Context) Report {
	results := make([]Result, len(m.checkers))
	var g errgroup.Group
	for i, c := range m.checkers {
		g.Go(func() error {
			results[i] = m.check(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report := Rollup(results, m.now())
	for _, res := range results {
		m.rec.ObserveService(res.Name, res.Status == StatusHealthy)
		if res.Status != StatusHealthy {
			m.log.Warnf("service %s: %s %s", res.Name, res.Status, res.Message)
		}
	}
	m.log.Infof("services: %s (%d/%d healthy)", report.OverallStatus, report.HealthyServices, report.TotalServices)
	return report
}

func (m *Monitor) check(ctx context.Context, p Checker) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Name:      p.Name(),
				Status:    StatusError,
				Message:   fmt.Sprintf("Error checking service: %v", r),
				Timestamp: m.now(),
			}
		}
	}()
	return p.Check(ctx)
}
