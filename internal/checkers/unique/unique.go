package unique

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/check"
)

// Check asserts that columns are free of duplicates, or, with
// ShouldBeUnique=false, that each column does contain repeats.
type Check struct {
	NameValue      string
	Columns        []string
	ShouldBeUnique bool
}

type nullKey struct{}

func (c *Check) Name() string {
	return c.NameValue
}

func (c *Check) Kind() check.Kind {
	return check.KindUniqueness
}

func (c *Check) Description() string {
	want := "unique"
	if !c.ShouldBeUnique {
		want = "not unique"
	}
	return fmt.Sprintf("Check if values are %s in columns: %s", want, strings.Join(c.Columns, ", "))
}

func (c *Check) Evaluate(_ context.Context, b *batch.Batch) (check.Outcome, error) {
	out := check.Outcome{
		Name:         c.NameValue,
		Kind:         check.KindUniqueness,
		Description:  c.Description(),
		TotalRecords: b.Len(),
		EvaluatedAt:  time.Now(),
	}
	if missing := b.Missing(c.Columns); len(missing) > 0 {
		out.Message = "Columns not found in data: " + strings.Join(missing, ", ")
		out.FailureCount = len(missing)
		return out, nil
	}

	offending := make(map[string]int)
	var parts, names []string
	for _, name := range c.Columns {
		col, _ := b.Column(name)
		dups := Duplicates(col.Values)
		switch {
		case c.ShouldBeUnique && dups > 0:
			offending[name] = dups
			parts = append(parts, fmt.Sprintf("%s=%d", name, dups))
			out.FailureCount += dups
		case !c.ShouldBeUnique && dups == 0:
			offending[name] = 0
			names = append(names, name)
			out.FailureCount++
		}
	}

	if len(offending) > 0 {
		out.Detail = offending
		if c.ShouldBeUnique {
			out.Message = "Columns with duplicate values: " + strings.Join(parts, ", ")
		} else {
			out.Message = "Columns with no duplicate values: " + strings.Join(names, ", ")
		}
		return out, nil
	}
	out.Passed = true
	if c.ShouldBeUnique {
		out.Message = "All columns have unique values"
	} else {
		out.Message = "All columns have duplicate values as expected"
	}
	return out, nil
}

// Duplicates counts values that repeat an earlier one. Numbers compare by
// value regardless of Go type and all nulls are equal to each other.
func Duplicates(values []any) int {
	seen := make(map[any]struct{}, len(values))
	dups := 0
	for _, v := range values {
		k := key(v)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// key folds numbers onto one comparable form. Integers stay exact as int64
// (uint64 above MaxInt64 stays uint64); floats become int64 only when they
// are integral and in range, so 1 and 1.0 collide but 2^53 and 2^53+1 do not.
func key(v any) any {
	if batch.IsNull(v) {
		return nullKey{}
	}
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return uintKey(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return uintKey(x)
	case float32:
		return floatKey(float64(x))
	case float64:
		return floatKey(x)
	}
	return v
}

func uintKey(u uint64) any {
	if u <= math.MaxInt64 {
		return int64(u)
	}
	return u
}

func floatKey(f float64) any {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}
