package config

import (
	"fmt"
	"strings"
	"time"

	"stream-quality/internal/checkers"
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/stats"
)

type Config struct {
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Schedule     ScheduleConfig     `yaml:"schedule" mapstructure:"schedule"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Anomaly      AnomalyConfig      `yaml:"anomaly" mapstructure:"anomaly"`
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	Watch        bool               `yaml:"watch" mapstructure:"watch"`
	ChecksFile   string             `yaml:"checks_file" mapstructure:"checks_file"`
	Alerting     AlertingConfig     `yaml:"alerting" mapstructure:"alerting"`
	Services     []ServiceConfig    `yaml:"services" mapstructure:"services"`
	Rollup       RollupConfig       `yaml:"rollup" mapstructure:"rollup"`

	// Decoded with yaml.v3 so column names keep their case.
	Checks []checkers.Descriptor `yaml:"checks" mapstructure:"-"`
}

func DefaultConfig() Config {
	policy := stats.DefaultSeverityPolicy()
	return Config{
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{MetricsWindow: 24 * time.Hour},
		Anomaly: AnomalyConfig{
			MediumThreshold: policy.Medium,
			HighThreshold:   policy.High,
			ZeroVariance:    string(detector.ZeroVarianceSkip),
		},
		Alerting: AlertingConfig{Timeout: 10 * time.Second},
		Rollup:   DefaultRollupConfig(),
	}
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

type SourceConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
}

type StoreConfig struct {
	Driver        string        `yaml:"driver" mapstructure:"driver"`
	DSN           string        `yaml:"dsn" mapstructure:"dsn"`
	MetricsWindow time.Duration `yaml:"metrics_window" mapstructure:"metrics_window"`
}

// ScheduleConfig drives the app loops. A cron expression wins over Interval.
type ScheduleConfig struct {
	Checks    string        `yaml:"checks" mapstructure:"checks"`
	Anomalies string        `yaml:"anomalies" mapstructure:"anomalies"`
	Services  string        `yaml:"services" mapstructure:"services"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
	RunOnce   bool          `yaml:"run_once" mapstructure:"run_once"`
}

type OrchestratorConfig struct {
	Parallelism int `yaml:"parallelism" mapstructure:"parallelism"`
}

type AnomalyConfig struct {
	MediumThreshold float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`
	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	ZeroVariance    string  `yaml:"zero_variance" mapstructure:"zero_variance"`
}

func (a AnomalyConfig) Policy() stats.SeverityPolicy {
	return stats.SeverityPolicy{Medium: a.MediumThreshold, High: a.HighThreshold}
}

type APIConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

type AlertingConfig struct {
	Timeout  time.Duration   `yaml:"timeout" mapstructure:"timeout"`
	Cooldown time.Duration   `yaml:"cooldown" mapstructure:"cooldown"`
	Channels []ChannelConfig `yaml:"channels" mapstructure:"channels"`
}

const (
	ChannelEmail   = "email"
	ChannelSlack   = "slack"
	ChannelWebhook = "webhook"
)

type ChannelConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Type        string        `yaml:"type" mapstructure:"type"`
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Threshold   float64       `yaml:"threshold" mapstructure:"threshold"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MinSeverity string        `yaml:"min_severity" mapstructure:"min_severity"`

	Recipients        []string `yaml:"recipients" mapstructure:"recipients"`
	From              string   `yaml:"from" mapstructure:"from"`
	Subject           string   `yaml:"subject" mapstructure:"subject"`
	SMTPHost          string   `yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort          int      `yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUsername      string   `yaml:"smtp_username" mapstructure:"smtp_username"`
	SMTPPassword      string   `yaml:"smtp_password" mapstructure:"smtp_password"`
	SMTPImplicitTLS   bool     `yaml:"smtp_implicit_tls" mapstructure:"smtp_implicit_tls"`
	SMTPSkipVerifyTLS bool     `yaml:"smtp_skip_verify" mapstructure:"smtp_skip_verify"`

	URL       string `yaml:"url" mapstructure:"url"`
	Channel   string `yaml:"channel" mapstructure:"channel"`
	Username  string `yaml:"username" mapstructure:"username"`
	IconEmoji string `yaml:"icon_emoji" mapstructure:"icon_emoji"`
}

const (
	ServiceHTTP  = "http"
	ServiceKafka = "kafka"
)

// ServiceConfig is one monitored service. Types without a checker are
// reported as unknown rather than rejected.
type ServiceConfig struct {
	Name           string            `yaml:"name" mapstructure:"name"`
	Type           string            `yaml:"type" mapstructure:"type"`
	Timeout        time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	URL            string            `yaml:"url" mapstructure:"url"`
	Headers        map[string]string `yaml:"headers" mapstructure:"headers"`
	ExpectedStatus int               `yaml:"expected_status" mapstructure:"expected_status"`
	Brokers        []string          `yaml:"bootstrap_servers" mapstructure:"bootstrap_servers"`
}

// RollupConfig names the batch columns aggregated into hourly_metrics after
// each quality run.
type RollupConfig struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	TimestampColumn string `yaml:"timestamp_column" mapstructure:"timestamp_column"`
	UserColumn      string `yaml:"user_column" mapstructure:"user_column"`
	EventColumn     string `yaml:"event_column" mapstructure:"event_column"`
	PurchaseEvent   string `yaml:"purchase_event" mapstructure:"purchase_event"`
	QuantityColumn  string `yaml:"quantity_column" mapstructure:"quantity_column"`
	PriceColumn     string `yaml:"price_column" mapstructure:"price_column"`
}

func DefaultRollupConfig() RollupConfig {
	return RollupConfig{
		TimestampColumn: "timestamp",
		UserColumn:      "user_id",
		EventColumn:     "event_type",
		PurchaseEvent:   "purchase",
		QuantityColumn:  "quantity",
		PriceColumn:     "product_price",
	}
}

// Validate reports configuration defects that would otherwise surface as
// silent no-ops at run time. Check descriptors are validated when built.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.Path) == "" {
		return fmt.Errorf("source.path is required")
	}
	if err := c.Anomaly.Policy().Validate(); err != nil {
		return fmt.Errorf("anomaly: %w", err)
	}
	if _, err := detector.ParseZeroVariance(c.Anomaly.ZeroVariance); err != nil {
		return fmt.Errorf("anomaly: %w", err)
	}
	if c.Store.MetricsWindow < 0 {
		return fmt.Errorf("store.metrics_window must not be negative")
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("schedule.interval must not be negative")
	}
	if c.Rollup.Enabled && c.Store.Driver == "" {
		return fmt.Errorf("rollup.enabled requires store.driver")
	}
	services := make(map[string]struct{}, len(c.Services))
	for i, svc := range c.Services {
		if strings.TrimSpace(svc.Name) == "" {
			return fmt.Errorf("service at index %d: name is required", i)
		}
		if _, dup := services[svc.Name]; dup {
			return fmt.Errorf("service at index %d: duplicate name %q", i, svc.Name)
		}
		services[svc.Name] = struct{}{}
		if svc.Type == ServiceHTTP && strings.TrimSpace(svc.URL) == "" {
			return fmt.Errorf("service at index %d (name=%q): url is required", i, svc.Name)
		}
	}
	seen := make(map[string]struct{}, len(c.Alerting.Channels))
	for i, ch := range c.Alerting.Channels {
		if strings.TrimSpace(ch.Name) == "" {
			return fmt.Errorf("channel at index %d: name is required", i)
		}
		if _, dup := seen[ch.Name]; dup {
			return fmt.Errorf("channel at index %d: duplicate name %q", i, ch.Name)
		}
		seen[ch.Name] = struct{}{}
		switch ch.Type {
		case ChannelEmail, ChannelSlack, ChannelWebhook:
		default:
			return fmt.Errorf("unknown channel type at index %d (name=%q): %q", i, ch.Name, ch.Type)
		}
		if ch.Threshold < 0 || ch.Threshold > 1 {
			return fmt.Errorf("channel at index %d (name=%q): threshold %v outside [0,1]", i, ch.Name, ch.Threshold)
		}
		if ch.MinSeverity != "" {
			if _, err := stats.ParseSeverity(ch.MinSeverity); err != nil {
				return fmt.Errorf("channel at index %d (name=%q): %w", i, ch.Name, err)
			}
		}
	}
	return nil
}
