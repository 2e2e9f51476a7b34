package api

import (
	"sync"
	"time"

	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/health"
)

// State holds the most recently published results. Writers replace whole
// values so readers never see a partial run.
type State struct {
	mu          sync.RWMutex
	summary     *check.Summary
	anomalies   []detector.Record
	anomaliesAt time.Time
	services    *health.Report
}

func (s *State) SetSummary(summary check.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &summary
}

func (s *State) Summary() (check.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return check.Summary{}, false
	}
	return *s.summary, true
}

func (s *State) SetAnomalies(records []detector.Record, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anomalies = append([]detector.Record(nil), records...)
	s.anomaliesAt = at
}

func (s *State) Anomalies() ([]detector.Record, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]detector.Record(nil), s.anomalies...), s.anomaliesAt
}

func (s *State) SetServices(report health.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = &report
}

func (s *State) Services() (health.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.services == nil {
		return health.Report{}, false
	}
	return *s.services, true
}
