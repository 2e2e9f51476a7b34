package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/batch/batchtest"
)

var rollupColumns = RollupColumns{
	Timestamp:     "timestamp",
	User:          "user_id",
	Event:         "event_type",
	PurchaseEvent: "purchase",
	Quantity:      "quantity",
	Price:         "product_price",
}

func TestRollupGroupsByHour(t *testing.T) {
	b := batchtest.Build(t,
		batch.Column{Name: "timestamp", Values: []any{
			"2026-01-01 11:05:00", "2026-01-01 10:59:59", "2026-01-01 10:00:00", nil, "not a time", "2026-01-01T10:30:00Z",
		}},
		batch.Column{Name: "user_id", Values: []any{"u1", "u1", "u2", "u3", "u4", nil}},
		batch.Column{Name: "event_type", Values: []any{"view", "purchase", "purchase", "purchase", "view", "purchase"}},
		batch.Column{Name: "quantity", Values: []any{nil, int64(2), int64(1), int64(1), nil, nil}},
		batch.Column{Name: "product_price", Values: []any{nil, 9.5, 20.0, 1.0, nil, 3.0}},
	)

	rows, skipped, err := Rollup(b, rollupColumns)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, rows, 2)

	ten := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	assert.True(t, rows[0].Hour.Equal(ten))
	assert.Equal(t, int64(3), rows[0].TotalEvents)
	assert.Equal(t, int64(2), rows[0].UniqueUsers)
	assert.Equal(t, int64(3), rows[0].PurchaseCount)
	assert.InDelta(t, 39.0, rows[0].Revenue, 1e-9)

	assert.True(t, rows[1].Hour.Equal(ten.Add(time.Hour)))
	assert.Equal(t, int64(1), rows[1].TotalEvents)
	assert.Equal(t, int64(0), rows[1].PurchaseCount)
}

func TestRollupWithoutPriceColumns(t *testing.T) {
	b := batchtest.Build(t,
		batch.Column{Name: "timestamp", Values: []any{"2026-01-01 10:00:00"}},
		batch.Column{Name: "user_id", Values: []any{1}},
		batch.Column{Name: "event_type", Values: []any{"purchase"}},
	)
	rows, _, err := Rollup(b, rollupColumns)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].PurchaseCount)
	assert.Zero(t, rows[0].Revenue)
}

func TestRollupMissingColumns(t *testing.T) {
	_, _, err := Rollup(batchtest.Sample(t), rollupColumns)
	require.EqualError(t, err, "rollup columns not found in data: timestamp, user_id, event_type")
}
