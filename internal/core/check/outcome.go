package check

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// ErrorPrefix marks outcomes of checks that malfunctioned rather than found bad data.
const ErrorPrefix = "Error: "

// Outcome is the immutable result of one check evaluation.
type Outcome struct {
	Name         string    `json:"name"`
	Kind         Kind      `json:"kind"`
	Description  string    `json:"description"`
	Passed       bool      `json:"passed"`
	Message      string    `json:"message,omitempty"`
	Detail       any       `json:"detail,omitempty"`
	FailureCount int       `json:"failure_count"`
	TotalRecords int       `json:"total_records"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

func (o Outcome) Status() Status {
	if o.Passed {
		return StatusPass
	}
	return StatusFail
}

// Text renders the message for humans. Outcomes that carry only a structured
// detail are rendered as JSON.
func (o Outcome) Text() string {
	if o.Message != "" || o.Detail == nil {
		return o.Message
	}
	raw, err := json.Marshal(o.Detail)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Faulted builds the outcome recorded when a check returned an error or panicked.
func Faulted(c Check, cause string, at time.Time) Outcome {
	return Outcome{
		Name:        c.Name(),
		Kind:        c.Kind(),
		Description: c.Description(),
		Passed:      false,
		Message:     ErrorPrefix + cause,
		EvaluatedAt: at,
	}
}

// Summary aggregates one orchestrator run.
type Summary struct {
	RunID       string    `json:"run_id"`
	Total       int       `json:"total_checks"`
	Passed      int       `json:"passed_checks"`
	Failed      int       `json:"failed_checks"`
	PassRate    float64   `json:"pass_rate"`
	EvaluatedAt time.Time `json:"evaluated_at"`
	Results     []Outcome `json:"results"`
}

func NewSummary(runID string, results []Outcome, at time.Time) Summary {
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	s := Summary{
		RunID:       runID,
		Total:       len(results),
		Passed:      passed,
		Failed:      len(results) - passed,
		EvaluatedAt: at,
		Results:     results,
	}
	if s.Total > 0 {
		s.PassRate = float64(passed) / float64(s.Total)
	}
	return s
}

func (s Summary) Failures() []Outcome {
	var out []Outcome
	for _, r := range s.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
