package format

import (
	"fmt"
	"strings"

	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/notify"
)

const NotAvailable = "N/A"

func Percent(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}

// Truncate keeps the first limit items and reports how many were dropped.
func Truncate[T any](items []T, limit int) ([]T, int) {
	if limit < 0 || len(items) <= limit {
		return items, 0
	}
	return items[:limit], len(items) - limit
}

func MoreFailures(n int) string {
	return fmt.Sprintf("... and %d more failed checks.", n)
}

func MoreAnomalies(n int) string {
	return fmt.Sprintf("... and %d more anomalies.", n)
}

func OrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

// SummaryLines lists the run counters, one "label: value" per line.
func SummaryLines(a notify.Alert) []string {
	if a.Summary == nil {
		return nil
	}
	s := a.Summary
	return []string{
		fmt.Sprintf("Total Checks: %d", s.Total),
		fmt.Sprintf("Passed Checks: %d", s.Passed),
		fmt.Sprintf("Failed Checks: %d", s.Failed),
		fmt.Sprintf("Pass Rate: %s", Percent(s.PassRate)),
	}
}

func AnomalyLine(r detector.Record) string {
	return fmt.Sprintf("%s: value %.2f, expected %.2f (z=%.2f, %s)",
		r.MetricName, r.Value, r.ExpectedValue, r.ZScore, r.Severity)
}

// Bullets renders lines as a dash list, or "n/a" when there are none.
func Bullets(lines []string) string {
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		out = append(out, "- "+l)
	}
	if len(out) == 0 {
		return "n/a"
	}
	return strings.Join(out, "\n")
}

// PlainText renders an alert for receivers that only display a text field:
// the title, the run counters and one bullet per failure or anomaly.
func PlainText(a notify.Alert) string {
	var items []string
	switch a.Kind {
	case notify.KindAnomaly:
		for _, r := range a.Anomalies {
			items = append(items, AnomalyLine(r))
		}
	default:
		for _, o := range a.Failures {
			items = append(items, fmt.Sprintf("%s: %s", o.Name, OrNA(o.Text())))
		}
	}
	parts := []string{a.Title()}
	if lines := SummaryLines(a); len(lines) > 0 {
		parts = append(parts, Bullets(lines))
	}
	parts = append(parts, Bullets(items))
	return strings.Join(parts, "\n\n")
}
