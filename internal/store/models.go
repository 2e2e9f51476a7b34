package store

import "time"

// QualityCheck is one persisted check outcome.
type QualityCheck struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RunID          string    `gorm:"size:36;index" json:"run_id"`
	CheckName      string    `gorm:"size:255;not null" json:"check_name"`
	CheckType      string    `gorm:"size:50;not null" json:"check_type"`
	Status         string    `gorm:"size:10;not null" json:"status"`
	FailureCount   int       `json:"failure_count"`
	TotalRecords   int       `json:"total_records"`
	CheckTimestamp time.Time `gorm:"not null;index" json:"check_timestamp"`
	Details        string    `gorm:"type:text" json:"details"`
	CreatedAt      time.Time `json:"created_at"`
}

func (QualityCheck) TableName() string {
	return "data_quality_checks"
}

type AnomalyResult struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	MetricName          string    `gorm:"size:100;not null;index" json:"metric_name"`
	Timestamp           time.Time `gorm:"not null;index" json:"timestamp"`
	Value               float64   `json:"value"`
	ExpectedValue       float64   `json:"expected_value"`
	DeviationPercentage float64   `json:"deviation_percentage"`
	ZScore              float64   `json:"z_score"`
	Severity            string    `gorm:"size:10;not null" json:"severity"`
	CreatedAt           time.Time `json:"created_at"`
}

func (AnomalyResult) TableName() string {
	return "anomaly_detection_results"
}

// HourlyMetric is written by the aggregation job and read by the detector.
type HourlyMetric struct {
	HourTimestamp time.Time `gorm:"primaryKey" json:"hour_timestamp"`
	TotalEvents   int64     `json:"total_events"`
	UniqueUsers   int64     `json:"unique_users"`
	PurchaseCount int64     `json:"purchase_count"`
	Revenue       float64   `json:"revenue"`
}

func (HourlyMetric) TableName() string {
	return "hourly_metrics"
}
