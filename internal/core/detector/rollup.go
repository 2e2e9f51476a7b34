package detector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"stream-quality/internal/core/batch"
)

// RollupColumns maps event batch columns onto the hourly aggregate.
// Quantity and Price are optional; without them revenue stays zero.
type RollupColumns struct {
	Timestamp     string
	User          string
	Event         string
	PurchaseEvent string
	Quantity      string
	Price         string
}

// Rollup aggregates an event batch into hourly rows, oldest first: events
// per hour, distinct non-null users, purchase events and the sum of
// quantity*price over purchases. Rows whose timestamp is null or cannot be
// parsed are dropped and counted in skipped.
func Rollup(b *batch.Batch, cols RollupColumns) (rows []HourlyRollup, skipped int, err error) {
	if missing := b.Missing([]string{cols.Timestamp, cols.User, cols.Event}); len(missing) > 0 {
		return nil, 0, fmt.Errorf("rollup columns not found in data: %s", strings.Join(missing, ", "))
	}
	ts, _ := b.Column(cols.Timestamp)
	users, _ := b.Column(cols.User)
	events, _ := b.Column(cols.Event)
	quantity, hasQty := b.Column(cols.Quantity)
	price, hasPrice := b.Column(cols.Price)

	type acc struct {
		row   HourlyRollup
		users map[string]struct{}
	}
	byHour := make(map[time.Time]*acc)
	for i := 0; i < b.Len(); i++ {
		if batch.IsNull(ts.Values[i]) {
			skipped++
			continue
		}
		at, err := cast.ToTimeE(ts.Values[i])
		if err != nil {
			skipped++
			continue
		}
		hour := at.UTC().Truncate(time.Hour)
		a, ok := byHour[hour]
		if !ok {
			a = &acc{row: HourlyRollup{Hour: hour}, users: make(map[string]struct{})}
			byHour[hour] = a
		}
		a.row.TotalEvents++
		if !batch.IsNull(users.Values[i]) {
			a.users[cast.ToString(users.Values[i])] = struct{}{}
		}
		if batch.IsNull(events.Values[i]) || cast.ToString(events.Values[i]) != cols.PurchaseEvent {
			continue
		}
		a.row.PurchaseCount++
		if hasQty && hasPrice {
			a.row.Revenue += product(quantity.Values[i], price.Values[i])
		}
	}

	rows = make([]HourlyRollup, 0, len(byHour))
	for _, a := range byHour {
		a.row.UniqueUsers = int64(len(a.users))
		rows = append(rows, a.row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Hour.Before(rows[j].Hour) })
	return rows, skipped, nil
}

func product(q, p any) float64 {
	if batch.IsNull(q) || batch.IsNull(p) {
		return 0
	}
	qf, err := cast.ToFloat64E(q)
	if err != nil {
		return 0
	}
	pf, err := cast.ToFloat64E(p)
	if err != nil {
		return 0
	}
	return qf * pf
}
