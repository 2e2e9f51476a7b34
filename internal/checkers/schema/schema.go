package schema

import (
	"context"
	"sort"
	"strings"
	"time"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/check"
)

type TypeMismatch struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Diff is the structured message of a failed schema check.
type Diff struct {
	MissingColumns  []string                `json:"missing_columns"`
	ExtraColumns    []string                `json:"extra_columns"`
	MismatchedTypes map[string]TypeMismatch `json:"mismatched_types"`
}

func (d Diff) Empty() bool {
	return len(d.MissingColumns) == 0 && len(d.ExtraColumns) == 0 && len(d.MismatchedTypes) == 0
}

// Check compares the inferred column types of a batch with Expected.
// Type names match when either contains the other, so "int" accepts "int64".
type Check struct {
	NameValue string
	Expected  map[string]string
}

func (c *Check) Name() string {
	return c.NameValue
}

func (c *Check) Kind() check.Kind {
	return check.KindSchema
}

func (c *Check) Description() string {
	return "Check if the data schema matches the expected schema"
}

func (c *Check) Evaluate(_ context.Context, b *batch.Batch) (check.Outcome, error) {
	out := check.Outcome{
		Name:         c.NameValue,
		Kind:         check.KindSchema,
		Description:  c.Description(),
		TotalRecords: b.Len(),
		EvaluatedAt:  time.Now(),
	}

	diff := Compare(c.Expected, b.Schema())
	if !diff.Empty() {
		out.Detail = diff
		out.FailureCount = len(diff.MissingColumns) + len(diff.ExtraColumns) + len(diff.MismatchedTypes)
		return out, nil
	}
	out.Passed = true
	out.Message = "Data schema matches the expected schema"
	return out, nil
}

func Compare(expected, actual map[string]string) Diff {
	diff := Diff{
		MissingColumns:  []string{},
		ExtraColumns:    []string{},
		MismatchedTypes: map[string]TypeMismatch{},
	}
	for col, want := range expected {
		got, ok := actual[col]
		if !ok {
			diff.MissingColumns = append(diff.MissingColumns, col)
			continue
		}
		if !strings.Contains(got, want) && !strings.Contains(want, got) {
			diff.MismatchedTypes[col] = TypeMismatch{Expected: want, Actual: got}
		}
	}
	for col := range actual {
		if _, ok := expected[col]; !ok {
			diff.ExtraColumns = append(diff.ExtraColumns, col)
		}
	}
	sort.Strings(diff.MissingColumns)
	sort.Strings(diff.ExtraColumns)
	return diff
}
