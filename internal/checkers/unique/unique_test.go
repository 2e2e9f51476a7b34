package unique

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/batch/batchtest"
	"stream-quality/internal/source"
)

func TestUniqueCheckPasses(t *testing.T) {
	c := &Check{NameValue: "id_uniqueness_check", Columns: []string{"id"}, ShouldBeUnique: true}
	out, err := c.Evaluate(context.Background(), batchtest.Sample(t))
	require.NoError(t, err)
	assert.True(t, out.Passed)
}

func TestUniqueCheckFailsOnDuplicate(t *testing.T) {
	b := batchtest.Build(t, batch.Column{Name: "id", Values: []any{1, 2, 3, 4, 5, 1}})
	c := &Check{NameValue: "id_uniqueness_check", Columns: []string{"id"}, ShouldBeUnique: true}
	out, err := c.Evaluate(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.Contains(t, out.Message, "duplicate values")
	assert.Equal(t, map[string]int{"id": 1}, out.Detail)
	assert.Equal(t, 1, out.FailureCount)
}

func TestNonUniqueExpectation(t *testing.T) {
	b := batchtest.Build(t,
		batch.Column{Name: "country", Values: []any{"NL", "NL", "DE"}},
		batch.Column{Name: "id", Values: []any{1, 2, 3}},
	)

	repeated := &Check{NameValue: "repeats", Columns: []string{"country"}, ShouldBeUnique: false}
	out, err := repeated.Evaluate(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, out.Passed)
	assert.Equal(t, "All columns have duplicate values as expected", out.Message)

	distinct := &Check{NameValue: "repeats", Columns: []string{"country", "id"}, ShouldBeUnique: false}
	out, err = distinct.Evaluate(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.Equal(t, "Columns with no duplicate values: id", out.Message)
}

func TestDuplicatesNormalizesNumbersAndNulls(t *testing.T) {
	assert.Equal(t, 1, Duplicates([]any{1, 1.0}))
	assert.Equal(t, 1, Duplicates([]any{nil, nil, "a"}))
	assert.Equal(t, 0, Duplicates([]any{"1", 1}))
	assert.Equal(t, 3, Duplicates([]any{"a", "a", "a", "a"}))
}

func TestUniqueCheckMissingColumn(t *testing.T) {
	c := &Check{NameValue: "x", Columns: []string{"nope"}, ShouldBeUnique: true}
	out, err := c.Evaluate(context.Background(), batchtest.Sample(t))
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.Contains(t, out.Message, "not found")
}

func TestDuplicatesKeepsLargeIntegersExact(t *testing.T) {
	assert.Equal(t, 0, Duplicates([]any{int64(9007199254740992), int64(9007199254740993)}))
	assert.Equal(t, 1, Duplicates([]any{int64(9007199254740992), float64(9007199254740992)}))
	assert.Equal(t, 0, Duplicates([]any{uint64(math.MaxUint64), uint64(math.MaxUint64 - 1)}))
	assert.Equal(t, 0, Duplicates([]any{1.5, int64(1)}))
}

func TestUniqueCheckOnLargeCSVIDs(t *testing.T) {
	b, err := source.ReadCSV(strings.NewReader("id\n9007199254740992\n9007199254740993\n"))
	require.NoError(t, err)
	c := &Check{NameValue: "event_id_unique", Columns: []string{"id"}, ShouldBeUnique: true}
	out, err := c.Evaluate(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, out.Passed, out.Message)
	assert.Zero(t, out.FailureCount)
}
