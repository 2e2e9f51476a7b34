package detector

import "time"

// HourlyRollup is one row of the hourly aggregate table.
type HourlyRollup struct {
	Hour          time.Time
	TotalEvents   int64
	UniqueUsers   int64
	PurchaseCount int64
	Revenue       float64
}

const (
	MetricHourlyEvents      = "hourly_events"
	MetricHourlyRevenue     = "hourly_revenue"
	MetricHourlyUniqueUsers = "hourly_unique_users"
	MetricHourlyPurchases   = "hourly_purchases"
)

// FromHourly splits rollups (oldest first) into one series per metric.
func FromHourly(rows []HourlyRollup) []Series {
	events := Series{Metric: MetricHourlyEvents}
	revenue := Series{Metric: MetricHourlyRevenue}
	users := Series{Metric: MetricHourlyUniqueUsers}
	purchases := Series{Metric: MetricHourlyPurchases}
	for _, r := range rows {
		events.Points = append(events.Points, Point{At: r.Hour, Value: float64(r.TotalEvents)})
		revenue.Points = append(revenue.Points, Point{At: r.Hour, Value: r.Revenue})
		users.Points = append(users.Points, Point{At: r.Hour, Value: float64(r.UniqueUsers)})
		purchases.Points = append(purchases.Points, Point{At: r.Hour, Value: float64(r.PurchaseCount)})
	}
	return []Series{events, revenue, users, purchases}
}
