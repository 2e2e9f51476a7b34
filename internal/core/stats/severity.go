package stats

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= min.Rank()
}

func ParseSeverity(raw string) (Severity, error) {
	switch Severity(strings.ToUpper(strings.TrimSpace(raw))) {
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	default:
		return "", fmt.Errorf("unknown severity %q", raw)
	}
}

// SeverityPolicy holds the z-score boundaries shared by the metric detector
// and the default threshold of column anomaly checks.
type SeverityPolicy struct {
	Medium float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`
	High   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
}

func DefaultSeverityPolicy() SeverityPolicy {
	return SeverityPolicy{Medium: 2.0, High: 3.0}
}

func (p SeverityPolicy) Validate() error {
	if p.Medium <= 0 {
		return fmt.Errorf("medium threshold must be positive, got %v", p.Medium)
	}
	if p.High < p.Medium {
		return fmt.Errorf("high threshold %v is below medium threshold %v", p.High, p.Medium)
	}
	return nil
}

// Classify maps an absolute deviation to a tier: above High is HIGH,
// above Medium is MEDIUM, anything else is LOW.
func (p SeverityPolicy) Classify(absZ float64) Severity {
	switch {
	case absZ > p.High:
		return SeverityHigh
	case absZ > p.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
