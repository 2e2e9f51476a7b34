// Package store persists check outcomes and anomaly records, and serves the
// hourly metric rollups the detector reads.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	db *gorm.DB
}

// Open connects with the named driver and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3":
		dialector = sqlite.Open(dsn)
	case DriverPostgres, "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialector.Name() == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// an in-memory database exists per connection
		sqlDB.SetMaxOpenConns(1)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&QualityCheck{}, &AnomalyResult{}, &HourlyMetric{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type details struct {
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
	Detail      any    `json:"detail,omitempty"`
}

// SaveSummary writes one row per outcome in a single transaction.
func (s *Store) SaveSummary(ctx context.Context, summary check.Summary) error {
	if len(summary.Results) == 0 {
		return nil
	}
	rows := make([]QualityCheck, 0, len(summary.Results))
	for _, o := range summary.Results {
		raw, err := json.Marshal(details{Description: o.Description, Message: o.Message, Detail: o.Detail})
		if err != nil {
			return fmt.Errorf("encode details of %s: %w", o.Name, err)
		}
		at := o.EvaluatedAt
		if at.IsZero() {
			at = summary.EvaluatedAt
		}
		rows = append(rows, QualityCheck{
			RunID:          summary.RunID,
			CheckName:      o.Name,
			CheckType:      o.Kind.Category(),
			Status:         string(o.Status()),
			FailureCount:   o.FailureCount,
			TotalRecords:   o.TotalRecords,
			CheckTimestamp: at.UTC(),
			Details:        string(raw),
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}

func (s *Store) SaveAnomalies(ctx context.Context, records []detector.Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]AnomalyResult, 0, len(records))
	for _, r := range records {
		rows = append(rows, AnomalyResult{
			MetricName:          r.MetricName,
			Timestamp:           r.Timestamp.UTC(),
			Value:               r.Value,
			ExpectedValue:       r.ExpectedValue,
			DeviationPercentage: r.DeviationPercentage,
			ZScore:              r.ZScore,
			Severity:            string(r.Severity),
		})
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// HourlyMetrics returns rollups at or after since, oldest first.
func (s *Store) HourlyMetrics(ctx context.Context, since time.Time) ([]detector.HourlyRollup, error) {
	var rows []HourlyMetric
	err := s.db.WithContext(ctx).
		Where("hour_timestamp >= ?", since.UTC()).
		Order("hour_timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]detector.HourlyRollup, 0, len(rows))
	for _, r := range rows {
		out = append(out, detector.HourlyRollup{
			Hour:          r.HourTimestamp,
			TotalEvents:   r.TotalEvents,
			UniqueUsers:   r.UniqueUsers,
			PurchaseCount: r.PurchaseCount,
			Revenue:       r.Revenue,
		})
	}
	return out, nil
}

// UpsertHourly inserts or replaces rollups keyed by hour.
func (s *Store) UpsertHourly(ctx context.Context, rows []detector.HourlyRollup) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]HourlyMetric, 0, len(rows))
	for _, r := range rows {
		models = append(models, HourlyMetric{
			HourTimestamp: r.Hour.UTC(),
			TotalEvents:   r.TotalEvents,
			UniqueUsers:   r.UniqueUsers,
			PurchaseCount: r.PurchaseCount,
			Revenue:       r.Revenue,
		})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&models).Error
}

// RecentChecks returns the latest persisted outcomes, newest first.
func (s *Store) RecentChecks(ctx context.Context, limit int) ([]QualityCheck, error) {
	var rows []QualityCheck
	err := s.db.WithContext(ctx).Order("check_timestamp DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// RecentAnomalies returns the latest anomaly rows, newest first.
func (s *Store) RecentAnomalies(ctx context.Context, limit int) ([]AnomalyResult, error) {
	var rows []AnomalyResult
	err := s.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
