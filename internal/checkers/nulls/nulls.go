package nulls

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/check"
)

// Check fails when the share of nulls in any listed column exceeds Threshold.
type Check struct {
	NameValue string
	Columns   []string
	Threshold float64
}

func (c *Check) Name() string {
	return c.NameValue
}

func (c *Check) Kind() check.Kind {
	return check.KindNull
}

func (c *Check) Description() string {
	return "Check for null values in columns: " + strings.Join(c.Columns, ", ")
}

func (c *Check) Evaluate(_ context.Context, b *batch.Batch) (check.Outcome, error) {
	out := check.Outcome{
		Name:         c.NameValue,
		Kind:         check.KindNull,
		Description:  c.Description(),
		TotalRecords: b.Len(),
		EvaluatedAt:  time.Now(),
	}
	if missing := b.Missing(c.Columns); len(missing) > 0 {
		out.Message = "Columns not found in data: " + strings.Join(missing, ", ")
		out.FailureCount = len(missing)
		return out, nil
	}

	rows := b.Len()
	failing := make(map[string]float64)
	var parts []string
	for _, name := range c.Columns {
		col, _ := b.Column(name)
		nulls := 0
		for _, v := range col.Values {
			if batch.IsNull(v) {
				nulls++
			}
		}
		ratio := 0.0
		if rows > 0 {
			ratio = float64(nulls) / float64(rows)
		}
		if ratio > c.Threshold {
			failing[name] = ratio
			parts = append(parts, fmt.Sprintf("%s=%.4f", name, ratio))
			out.FailureCount += nulls
		}
	}

	if len(failing) > 0 {
		out.Message = "Columns with too many null values: " + strings.Join(parts, ", ")
		out.Detail = failing
		return out, nil
	}
	out.Passed = true
	out.Message = "All columns have acceptable null value percentages"
	return out, nil
}
