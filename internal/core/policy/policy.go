// Package policy decides whether a run or a set of metric anomalies is
// worth an alert, globally and per channel.
package policy

import (
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/stats"
)

// Rule is the alerting part of one channel's configuration.
type Rule struct {
	Name        string
	Enabled     bool
	Threshold   float64
	MinSeverity stats.Severity
}

// CombinedThreshold is the highest threshold across all rules, enabled or not.
func CombinedThreshold(rules []Rule) float64 {
	var highest float64
	for i, r := range rules {
		if i == 0 || r.Threshold > highest {
			highest = r.Threshold
		}
	}
	return highest
}

// ShouldAlert is the "fire at all" gate: passRate below the combined threshold.
func ShouldAlert(passRate float64, rules []Rule) bool {
	if len(rules) == 0 {
		return false
	}
	return passRate < CombinedThreshold(rules)
}

// Fires re-checks the channel's own threshold. Disabled rules never fire.
func (r Rule) Fires(passRate float64) bool {
	return r.Enabled && passRate < r.Threshold
}

// Qualifying filters records at or above the rule's minimum severity.
// An unset minimum means HIGH.
func (r Rule) Qualifying(records []detector.Record) []detector.Record {
	if !r.Enabled {
		return nil
	}
	floor := r.MinSeverity
	if floor == "" {
		floor = stats.SeverityHigh
	}
	var out []detector.Record
	for _, rec := range records {
		if rec.Severity.AtLeast(floor) {
			out = append(out, rec)
		}
	}
	return out
}
