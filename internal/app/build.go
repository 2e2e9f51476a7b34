package app

import (
	"fmt"
	"os"
	"time"

	"stream-quality/internal/checkers"
	httpcheck "stream-quality/internal/checkers/http"
	kafkacheck "stream-quality/internal/checkers/kafka"
	"stream-quality/internal/config"
	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/health"
	"stream-quality/internal/core/notify"
	"stream-quality/internal/core/orchestrator"
	"stream-quality/internal/core/stats"
	"stream-quality/internal/dispatcher"
	"stream-quality/internal/metrics"
	"stream-quality/internal/notifiers/slack"
	"stream-quality/internal/notifiers/smtp"
	"stream-quality/internal/notifiers/webhook"
	"stream-quality/internal/source"
	"stream-quality/internal/utils/logger"
)

const defaultChannelTimeout = 5 * time.Second

func buildLogger(cfg config.LogConfig) (*logger.Logger, func(), error) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}

	if cfg.File == "" {
		return logger.New(logger.Config{Level: cfg.Level, Format: cfg.Format}), nil, nil
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		_ = file.Close()
	}
	return logger.New(logger.Config{Level: cfg.Level, Format: cfg.Format, Output: file}), closeFn, nil
}

func buildRunner(cfg *config.Config, log *logger.Logger, rec *metrics.Recorder) (*orchestrator.Runner, error) {
	checks, err := checkers.Build(cfg.Checks, cfg.Anomaly.Policy())
	if err != nil {
		return nil, err
	}
	return orchestrator.New(checks,
		orchestrator.WithParallelism(cfg.Orchestrator.Parallelism),
		orchestrator.WithLogger(log.Named("orchestrator")),
		orchestrator.WithRecorder(rec),
	), nil
}

func buildDetector(cfg *config.Config, log *logger.Logger, rec *metrics.Recorder) (*detector.Detector, error) {
	zv, err := detector.ParseZeroVariance(cfg.Anomaly.ZeroVariance)
	if err != nil {
		return nil, err
	}
	return detector.New(cfg.Anomaly.Policy(),
		detector.WithZeroVariance(zv),
		detector.WithLogger(log.Named("detector")),
		detector.WithRecorder(rec),
	), nil
}

func buildSource(cfg *config.Config) (source.Source, error) {
	format, err := source.ParseFormat(cfg.Source.Format, cfg.Source.Path)
	if err != nil {
		return nil, err
	}
	return source.File{Path: cfg.Source.Path, Format: format}, nil
}

func buildDispatcher(cfg *config.Config, log *logger.Logger, rec *metrics.Recorder) (*dispatcher.Dispatcher, error) {
	var channels []dispatcher.Channel
	for i, c := range cfg.Alerting.Channels {
		n, err := buildNotifier(i, c)
		if err != nil {
			return nil, err
		}
		var minSeverity stats.Severity
		if c.MinSeverity != "" {
			if minSeverity, err = stats.ParseSeverity(c.MinSeverity); err != nil {
				return nil, fmt.Errorf("channel at index %d (name=%q): %w", i, c.Name, err)
			}
		}
		channels = append(channels, dispatcher.Channel{
			Name:        c.Name,
			Enabled:     c.Enabled,
			Threshold:   c.Threshold,
			MinSeverity: minSeverity,
			Notifier:    n,
		})
	}
	return dispatcher.New(channels,
		dispatcher.WithTimeout(cfg.Alerting.Timeout),
		dispatcher.WithCooldown(cfg.Alerting.Cooldown),
		dispatcher.WithLogger(log.Named("dispatcher")),
		dispatcher.WithRecorder(rec),
	), nil
}

func buildNotifier(i int, c config.ChannelConfig) (notify.Notifier, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = defaultChannelTimeout
	}
	switch c.Type {
	case config.ChannelEmail:
		return &smtp.Notifier{
			NameValue:     c.Name,
			Host:          c.SMTPHost,
			Port:          c.SMTPPort,
			Username:      c.SMTPUsername,
			Password:      c.SMTPPassword,
			From:          c.From,
			To:            c.Recipients,
			Subject:       c.Subject,
			Timeout:       timeout,
			ImplicitTLS:   c.SMTPImplicitTLS,
			SkipVerifyTLS: c.SMTPSkipVerifyTLS,
		}, nil
	case config.ChannelSlack:
		return &slack.Notifier{
			NameValue: c.Name,
			URL:       c.URL,
			Channel:   c.Channel,
			Username:  c.Username,
			IconEmoji: c.IconEmoji,
			Timeout:   timeout,
		}, nil
	case config.ChannelWebhook:
		return &webhook.Notifier{
			NameValue: c.Name,
			URL:       c.URL,
			Timeout:   timeout,
		}, nil
	default:
		return nil, fmt.Errorf("unknown channel type at index %d (name=%q): %q", i, c.Name, c.Type)
	}
}

func buildMonitor(cfg *config.Config, log *logger.Logger, rec *metrics.Recorder) *health.Monitor {
	list := make([]health.Checker, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		list = append(list, buildServiceChecker(svc))
	}
	return health.NewMonitor(list,
		health.WithLogger(log.Named("services")),
		health.WithRecorder(rec),
	)
}

func buildServiceChecker(svc config.ServiceConfig) health.Checker {
	timeout := svc.Timeout
	if timeout == 0 {
		timeout = defaultChannelTimeout
	}
	switch svc.Type {
	case config.ServiceHTTP:
		return &httpcheck.Checker{
			NameValue:      svc.Name,
			URL:            svc.URL,
			Timeout:        timeout,
			Headers:        svc.Headers,
			ExpectedStatus: svc.ExpectedStatus,
		}
	case config.ServiceKafka:
		return &kafkacheck.Checker{
			NameValue: svc.Name,
			Brokers:   svc.Brokers,
			Timeout:   timeout,
		}
	default:
		return &health.Unknown{NameValue: svc.Name, Type: svc.Type}
	}
}

func rollupColumns(c config.RollupConfig) detector.RollupColumns {
	return detector.RollupColumns{
		Timestamp:     c.TimestampColumn,
		User:          c.UserColumn,
		Event:         c.EventColumn,
		PurchaseEvent: c.PurchaseEvent,
		Quantity:      c.QuantityColumn,
		Price:         c.PriceColumn,
	}
}

func logSummary(log *logger.Logger, s check.Summary) {
	for _, o := range s.Results {
		if o.Passed {
			log.Infof("check %s: %s", o.Name, o.Status())
			continue
		}
		log.Warnf("check %s: %s %s", o.Name, o.Status(), o.Text())
	}
	log.Infof("run %s: %d/%d passed (%.2f%%)", s.RunID, s.Passed, s.Total, s.PassRate*100)
}
