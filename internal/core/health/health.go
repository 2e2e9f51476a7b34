// Package health checks the services around the pipeline and rolls their
// states up into one report.
package health

import (
	"context"
	"fmt"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
	StatusError     Status = "error"
)

const (
	OverallHealthy  = "healthy"
	OverallDegraded = "degraded"
)

type Result struct {
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Status    Status         `json:"status"`
	Message   string         `json:"message"`
	Metrics   map[string]any `json:"metrics,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Checker checks one service. Check never fails: transport problems are
// reported as StatusError or StatusUnhealthy in the result.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

type Report struct {
	Timestamp       time.Time `json:"timestamp"`
	OverallStatus   string    `json:"overall_status"`
	HealthyServices int       `json:"healthy_services"`
	TotalServices   int       `json:"total_services"`
	Services        []Result  `json:"services"`
}

// Rollup is healthy only when every service is healthy. No services counts
// as healthy.
func Rollup(results []Result, at time.Time) Report {
	r := Report{
		Timestamp:     at,
		TotalServices: len(results),
		Services:      results,
	}
	for _, res := range results {
		if res.Status == StatusHealthy {
			r.HealthyServices++
		}
	}
	r.OverallStatus = OverallHealthy
	if r.HealthyServices != r.TotalServices {
		r.OverallStatus = OverallDegraded
	}
	return r
}

func (r Report) Degraded() []Result {
	var out []Result
	for _, res := range r.Services {
		if res.Status != StatusHealthy {
			out = append(out, res)
		}
	}
	return out
}

// Unknown stands in for a service whose type has no checker.
type Unknown struct {
	NameValue string
	Type      string
}

func (u *Unknown) Name() string {
	return u.NameValue
}

func (u *Unknown) Check(_ context.Context) Result {
	return Result{
		Name:      u.NameValue,
		Type:      u.Type,
		Status:    StatusUnknown,
		Message:   fmt.Sprintf("Unknown service type: %s", u.Type),
		Timestamp: time.Now(),
	}
}
