package ranges

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/check"
)

type Bound struct {
	Column string
	Min    float64
	Max    float64
}

// Violation counts the non-null values of one column outside its bound.
type Violation struct {
	BelowMin   int     `json:"below_min"`
	AboveMax   int     `json:"above_max"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

type Check struct {
	NameValue string
	Bounds    []Bound
}

func (c *Check) Name() string {
	return c.NameValue
}

func (c *Check) Kind() check.Kind {
	return check.KindValueRange
}

func (c *Check) Description() string {
	return "Check if values are within expected ranges for columns: " + strings.Join(c.columns(), ", ")
}

func (c *Check) columns() []string {
	out := make([]string, 0, len(c.Bounds))
	for _, bd := range c.Bounds {
		out = append(out, bd.Column)
	}
	return out
}

func (c *Check) Evaluate(_ context.Context, b *batch.Batch) (check.Outcome, error) {
	out := check.Outcome{
		Name:         c.NameValue,
		Kind:         check.KindValueRange,
		Description:  c.Description(),
		TotalRecords: b.Len(),
		EvaluatedAt:  time.Now(),
	}
	if missing := b.Missing(c.columns()); len(missing) > 0 {
		out.Message = "Columns not found in data: " + strings.Join(missing, ", ")
		out.FailureCount = len(missing)
		return out, nil
	}

	violations := make(map[string]Violation)
	for _, bd := range c.Bounds {
		col, _ := b.Column(bd.Column)
		var v Violation
		valid := 0
		for i, raw := range col.Values {
			if batch.IsNull(raw) {
				continue
			}
			f, ok := batch.Float(raw)
			if !ok {
				return check.Outcome{}, fmt.Errorf("column %q row %d: cannot compare %T value %v with numeric bounds", bd.Column, i, raw, raw)
			}
			valid++
			if f < bd.Min {
				v.BelowMin++
			}
			if f > bd.Max {
				v.AboveMax++
			}
		}
		v.Total = v.BelowMin + v.AboveMax
		if v.Total == 0 {
			continue
		}
		if valid > 0 {
			v.Percentage = float64(v.Total) / float64(valid)
		}
		violations[bd.Column] = v
		out.FailureCount += v.Total
	}

	if len(violations) > 0 {
		raw, err := json.Marshal(violations)
		if err != nil {
			return check.Outcome{}, err
		}
		out.Message = "Columns with values outside expected ranges: " + string(raw)
		out.Detail = violations
		return out, nil
	}
	out.Passed = true
	out.Message = "All values are within expected ranges"
	return out, nil
}
