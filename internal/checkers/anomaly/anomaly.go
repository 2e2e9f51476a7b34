package anomaly

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/check"
	"stream-quality/internal/core/stats"
)

type Method string

const (
	MethodZScore Method = "zscore"
	MethodIQR    Method = "iqr"
)

func ParseMethod(raw string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MethodZScore:
		return MethodZScore, nil
	case MethodIQR:
		return MethodIQR, nil
	default:
		return "", fmt.Errorf("unknown anomaly method %q", raw)
	}
}

// Result describes what the check found, including the fences it used.
type Result struct {
	Method    Method    `json:"method"`
	Threshold float64   `json:"threshold"`
	Mean      float64   `json:"mean,omitempty"`
	Std       float64   `json:"std,omitempty"`
	Lower     float64   `json:"lower_bound,omitempty"`
	Upper     float64   `json:"upper_bound,omitempty"`
	Anomalies []float64 `json:"anomalies"`
}

type Check struct {
	NameValue string
	Column    string
	Method    Method
	Threshold float64
}

func (c *Check) Name() string {
	return c.NameValue
}

func (c *Check) Kind() check.Kind {
	return check.KindAnomaly
}

func (c *Check) Description() string {
	return fmt.Sprintf("Check for anomalies in column: %s using %s method", c.Column, c.Method)
}

func (c *Check) Evaluate(_ context.Context, b *batch.Batch) (check.Outcome, error) {
	out := check.Outcome{
		Name:         c.NameValue,
		Kind:         check.KindAnomaly,
		Description:  c.Description(),
		TotalRecords: b.Len(),
		EvaluatedAt:  time.Now(),
	}
	col, ok := b.Column(c.Column)
	if !ok {
		out.Message = "Column not found in data: " + c.Column
		out.FailureCount = 1
		return out, nil
	}

	values := Numeric(col.Values)
	if len(values) == 0 {
		out.Message = "No valid numeric values in column: " + c.Column
		return out, nil
	}

	res := Result{Method: c.Method, Threshold: c.Threshold, Anomalies: []float64{}}
	switch c.Method {
	case MethodZScore:
		res.Mean = stats.Mean(values)
		res.Std = stats.SampleStd(values)
		if res.Std == 0 {
			out.Passed = true
			out.Message = fmt.Sprintf("No variation in column: %s, all values are the same", c.Column)
			return out, nil
		}
		for _, v := range values {
			if math.Abs(v-res.Mean)/res.Std > c.Threshold {
				res.Anomalies = append(res.Anomalies, v)
			}
		}
	case MethodIQR:
		q1 := stats.Quantile(values, 0.25)
		q3 := stats.Quantile(values, 0.75)
		iqr := q3 - q1
		res.Lower = q1 - c.Threshold*iqr
		res.Upper = q3 + c.Threshold*iqr
		for _, v := range values {
			if v < res.Lower || v > res.Upper {
				res.Anomalies = append(res.Anomalies, v)
			}
		}
	default:
		return check.Outcome{}, fmt.Errorf("unknown anomaly method %q", c.Method)
	}

	out.Detail = res
	if n := len(res.Anomalies); n > 0 {
		out.FailureCount = n
		out.Message = fmt.Sprintf("Found %d anomalies in column: %s", n, c.Column)
		return out, nil
	}
	out.Passed = true
	out.Message = "No anomalies found in column: " + c.Column
	return out, nil
}

// Numeric coerces values to float64, dropping nulls and anything that does not
// parse as a number.
func Numeric(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if batch.IsNull(v) {
			continue
		}
		if _, isBool := v.(bool); isBool {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		out = append(out, f)
	}
	return out
}
