// Package batchtest provides canned batches for tests.
package batchtest

import (
	"testing"

	"stream-quality/internal/core/batch"
)

// Sample is a small user table: id has no nulls, name and age have one null each.
func Sample(t testing.TB) *batch.Batch {
	t.Helper()
	return Build(t,
		batch.Column{Name: "id", Values: []any{1, 2, 3, 4, 5}},
		batch.Column{Name: "name", Values: []any{"Alice", "Bob", "Charlie", "David", nil}},
		batch.Column{Name: "age", Values: []any{25, 30, nil, 40, 45}},
		batch.Column{Name: "score", Values: []any{95.5, 87.3, 76.8, 92.1, 65.2}},
		batch.Column{Name: "active", Values: []any{true, false, true, true, false}},
	)
}

// WithAnomaly has a single spike at 100 among values around 11.
func WithAnomaly(t testing.TB) *batch.Batch {
	t.Helper()
	return Build(t,
		batch.Column{Name: "id", Values: []any{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		batch.Column{Name: "value", Values: []any{10, 12, 11, 13, 9, 14, 100, 11, 12, 13}},
	)
}

func Build(t testing.TB, cols ...batch.Column) *batch.Batch {
	t.Helper()
	b, err := batch.New(cols...)
	if err != nil {
		t.Fatalf("build batch: %v", err)
	}
	return b
}
