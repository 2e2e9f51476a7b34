package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"stream-quality/internal/checkers"
)

// Load reads the YAML config file after expanding ${VARS}, then applies
// environment overrides. The dotenv file next to the config is read first.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := ReadEnv(filepath.Dir(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = []byte(os.ExpandEnv(string(data)))

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBuffer(data)); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	var doc struct {
		Checks []checkers.Descriptor `yaml:"checks"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode checks: %w", err)
	}
	cfg.Checks = doc.Checks

	if cfg.ChecksFile != "" {
		extra, err := loadChecksFile(resolve(path, cfg.ChecksFile))
		if err != nil {
			return nil, err
		}
		cfg.Checks = append(cfg.Checks, extra...)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadChecksFile(path string) ([]checkers.Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return checkers.Parse(f)
}

// resolve makes rel relative to the directory of the config file.
func resolve(configPath, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(filepath.Dir(configPath), rel)
}

type envOverrides struct {
	LogLevel  string `envconfig:"LOG_LEVEL"`
	LogFormat string `envconfig:"LOG_FORMAT"`
	LogFile   string `envconfig:"LOG_FILE"`

	SourcePath   string `envconfig:"SOURCE_PATH"`
	SourceFormat string `envconfig:"SOURCE_FORMAT"`

	StoreDriver        string        `envconfig:"STORE_DRIVER"`
	StoreDSN           string        `envconfig:"STORE_DSN"`
	StoreMetricsWindow time.Duration `envconfig:"STORE_METRICS_WINDOW"`

	APIListen string `envconfig:"API_LISTEN"`

	ScheduleChecks    string        `envconfig:"SCHEDULE_CHECKS"`
	ScheduleAnomalies string        `envconfig:"SCHEDULE_ANOMALIES"`
	ScheduleServices  string        `envconfig:"SCHEDULE_SERVICES"`
	ScheduleInterval  time.Duration `envconfig:"SCHEDULE_INTERVAL"`
	ScheduleRunOnce   bool          `envconfig:"SCHEDULE_RUN_ONCE"`
}

func applyEnvOverrides(cfg *Config) error {
	if !hasAnyEnv(envKeys()) {
		return nil
	}
	var eo envOverrides
	if err := envconfig.Process("", &eo); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}

	if envNonEmpty("LOG_LEVEL") {
		cfg.Log.Level = eo.LogLevel
	}
	if envNonEmpty("LOG_FORMAT") {
		cfg.Log.Format = eo.LogFormat
	}
	if envNonEmpty("LOG_FILE") {
		cfg.Log.File = eo.LogFile
	}
	if envNonEmpty("SOURCE_PATH") {
		cfg.Source.Path = eo.SourcePath
	}
	if envNonEmpty("SOURCE_FORMAT") {
		cfg.Source.Format = eo.SourceFormat
	}
	if envNonEmpty("STORE_DRIVER") {
		cfg.Store.Driver = eo.StoreDriver
	}
	if envNonEmpty("STORE_DSN") {
		cfg.Store.DSN = eo.StoreDSN
	}
	if envNonEmpty("STORE_METRICS_WINDOW") {
		cfg.Store.MetricsWindow = eo.StoreMetricsWindow
	}
	if envExists("API_LISTEN") {
		cfg.API.Listen = eo.APIListen
	}
	if envNonEmpty("SCHEDULE_CHECKS") {
		cfg.Schedule.Checks = eo.ScheduleChecks
	}
	if envNonEmpty("SCHEDULE_ANOMALIES") {
		cfg.Schedule.Anomalies = eo.ScheduleAnomalies
	}
	if envNonEmpty("SCHEDULE_SERVICES") {
		cfg.Schedule.Services = eo.ScheduleServices
	}
	if envNonEmpty("SCHEDULE_INTERVAL") {
		cfg.Schedule.Interval = eo.ScheduleInterval
	}
	if envNonEmpty("SCHEDULE_RUN_ONCE") {
		cfg.Schedule.RunOnce = eo.ScheduleRunOnce
	}
	return nil
}

func envKeys() []string {
	return []string{
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
		"SOURCE_PATH", "SOURCE_FORMAT",
		"STORE_DRIVER", "STORE_DSN", "STORE_METRICS_WINDOW",
		"API_LISTEN",
		"SCHEDULE_CHECKS", "SCHEDULE_ANOMALIES", "SCHEDULE_SERVICES", "SCHEDULE_INTERVAL", "SCHEDULE_RUN_ONCE",
	}
}

func hasAnyEnv(keys []string) bool {
	for _, key := range keys {
		if envExists(key) {
			return true
		}
	}
	return false
}

func envExists(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func envNonEmpty(key string) bool {
	val, ok := os.LookupEnv(key)
	if !ok {
		return false
	}
	return strings.TrimSpace(val) != ""
}
