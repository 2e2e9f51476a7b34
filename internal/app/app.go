package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"stream-quality/internal/api"
	"stream-quality/internal/config"
	"stream-quality/internal/core/batch"
	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/health"
	"stream-quality/internal/core/orchestrator"
	"stream-quality/internal/core/scheduler"
	"stream-quality/internal/dispatcher"
	"stream-quality/internal/metrics"
	"stream-quality/internal/source"
	"stream-quality/internal/store"
	"stream-quality/internal/utils/logger"
)

func Run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := buildLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if closeLog != nil {
		defer closeLog()
	}
	log.Infof("config loaded: %s", configPath)

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Errorf("close store: %v", err)
		}
	}()

	return a.Serve(ctx, configPath)
}

// App owns the long-lived pieces. Everything derived from the check and
// alerting config is swapped as a unit on reload.
type App struct {
	log   *logger.Logger
	reg   *prometheus.Registry
	rec   *metrics.Recorder
	store *store.Store
	state *api.State
	now   func() time.Time

	mu         sync.RWMutex
	cfg        *config.Config
	source     source.Source
	runner     *orchestrator.Runner
	detector   *detector.Detector
	dispatcher *dispatcher.Dispatcher
	monitor    *health.Monitor
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a := &App{
		log:   log,
		reg:   reg,
		rec:   metrics.New(reg),
		state: &api.State{},
		now:   time.Now,
	}
	if err := a.apply(cfg); err != nil {
		return nil, err
	}
	log.Infof("checks ready: %d", len(a.runner.Checks()))
	for i, ch := range cfg.Alerting.Channels {
		log.Infof("channel[%d]: name=%q type=%q enabled=%t threshold=%.2f", i, ch.Name, ch.Type, ch.Enabled, ch.Threshold)
	}

	if cfg.Store.Driver != "" {
		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		a.store = st
	}
	return a, nil
}

func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) apply(cfg *config.Config) error {
	src, err := buildSource(cfg)
	if err != nil {
		return fmt.Errorf("build source: %w", err)
	}
	runner, err := buildRunner(cfg, a.log, a.rec)
	if err != nil {
		return fmt.Errorf("build checks: %w", err)
	}
	det, err := buildDetector(cfg, a.log, a.rec)
	if err != nil {
		return fmt.Errorf("build detector: %w", err)
	}
	disp, err := buildDispatcher(cfg, a.log, a.rec)
	if err != nil {
		return fmt.Errorf("build notifiers: %w", err)
	}

	mon := buildMonitor(cfg, a.log, a.rec)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg = cfg
	a.source = src
	a.runner = runner
	a.detector = det
	a.dispatcher = disp
	a.monitor = mon
	return nil
}

// Reload swaps in cfg. A config that fails to build leaves the running one
// untouched. Schedules, store and API address only change on restart.
func (a *App) Reload(cfg *config.Config) {
	if err := a.apply(cfg); err != nil {
		a.log.Errorf("reload rejected, keeping previous config: %v", err)
		return
	}
	a.log.Infof("config reloaded: %d checks, %d channels", len(cfg.Checks), len(cfg.Alerting.Channels))
}

func (a *App) config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// RunChecks loads a batch, evaluates every check, then persists, publishes
// and dispatches the summary. With rollup enabled the batch is also
// aggregated into hourly_metrics for the detector.
func (a *App) RunChecks(ctx context.Context) (check.Summary, error) {
	a.mu.RLock()
	cfg, src, runner, disp := a.cfg, a.source, a.runner, a.dispatcher
	a.mu.RUnlock()

	b, err := src.Load(ctx)
	if err != nil {
		return check.Summary{}, fmt.Errorf("load batch: %w", err)
	}
	summary, err := runner.Run(ctx, b)
	if err != nil {
		return check.Summary{}, err
	}
	logSummary(a.log, summary)

	if a.store != nil {
		if err := a.store.SaveSummary(ctx, summary); err != nil {
			a.log.Errorf("save summary %s: %v", summary.RunID, err)
		}
	}
	if a.store != nil && cfg.Rollup.Enabled {
		a.rollup(ctx, b, cfg.Rollup)
	}
	a.state.SetSummary(summary)
	disp.Dispatch(ctx, summary)
	return summary, nil
}

// rollup upserts the hours covered by b. A batch is taken as the full
// contents of those hours, so a rerun replaces rather than adds.
func (a *App) rollup(ctx context.Context, b *batch.Batch, c config.RollupConfig) {
	rows, skipped, err := detector.Rollup(b, rollupColumns(c))
	if err != nil {
		a.log.Errorf("hourly rollup: %v", err)
		return
	}
	if skipped > 0 {
		a.log.Warnf("hourly rollup: skipped %d rows without a usable timestamp", skipped)
	}
	if err := a.store.UpsertHourly(ctx, rows); err != nil {
		a.log.Errorf("save hourly rollup: %v", err)
		return
	}
	a.log.Infof("hourly rollup: %d hours updated", len(rows))
}

// RunServices checks every configured service and publishes the report.
func (a *App) RunServices(ctx context.Context) health.Report {
	a.mu.RLock()
	mon := a.monitor
	a.mu.RUnlock()

	report := mon.CheckAll(ctx)
	a.state.SetServices(report)
	return report
}

// RunAnomalies scores the hourly rollups inside the configured window. It is
// a no-op without a store.
func (a *App) RunAnomalies(ctx context.Context) ([]detector.Record, error) {
	if a.store == nil {
		a.log.Debugf("no store configured, skipping anomaly detection")
		return nil, nil
	}
	a.mu.RLock()
	cfg, det, disp := a.cfg, a.detector, a.dispatcher
	a.mu.RUnlock()

	rows, err := a.store.HourlyMetrics(ctx, a.now().Add(-cfg.Store.MetricsWindow))
	if err != nil {
		return nil, fmt.Errorf("hourly metrics: %w", err)
	}
	records, err := det.Detect(ctx, detector.FromHourly(rows))
	if err != nil {
		return nil, err
	}
	a.log.Infof("anomaly detection: %d hourly rows, %d records", len(rows), len(records))

	if err := a.store.SaveAnomalies(ctx, records); err != nil {
		a.log.Errorf("save anomalies: %v", err)
	}
	a.state.SetAnomalies(records, a.now())
	disp.DispatchAnomalies(ctx, records)
	return records, nil
}

func (a *App) Handler() http.Handler {
	var history api.History
	if a.store != nil {
		history = a.store
	}
	return api.NewRouter(a.state, history, a.reg, a.log.Named("api"))
}

// Serve runs every job once, then keeps them on their schedules alongside
// the API and the config watcher until ctx is done.
func (a *App) Serve(ctx context.Context, configPath string) error {
	cfg := a.config()
	if cfg.Schedule.RunOnce {
		a.checksJob(ctx)
		a.anomaliesJob(ctx)
		if len(cfg.Services) > 0 {
			a.servicesJob(ctx)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.API.Listen != "" {
		g.Go(func() error {
			return api.Serve(gctx, cfg.API.Listen, a.Handler(), a.log.Named("api"))
		})
	}
	if cfg.Watch && configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, a.log.Named("config"), a.Reload)
		})
	}
	g.Go(func() error {
		return a.loop(gctx, "checks", cfg.Schedule.Checks, cfg.Schedule.Interval, a.checksJob)
	})
	g.Go(func() error {
		return a.loop(gctx, "anomalies", cfg.Schedule.Anomalies, cfg.Schedule.Interval, a.anomaliesJob)
	})
	if len(cfg.Services) > 0 {
		g.Go(func() error {
			return a.loop(gctx, "services", cfg.Schedule.Services, cfg.Schedule.Interval, a.servicesJob)
		})
	}
	return g.Wait()
}

func (a *App) loop(ctx context.Context, name, spec string, interval time.Duration, job scheduler.Job) error {
	job(ctx)

	sched, err := scheduler.New(spec, interval, job)
	if err != nil {
		return fmt.Errorf("%s schedule: %w", name, err)
	}
	if sched == nil {
		return nil
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("%s schedule: %w", name, err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

func (a *App) checksJob(ctx context.Context) {
	if _, err := a.RunChecks(ctx); err != nil && !isCancel(err) {
		a.log.Errorf("quality run: %v", err)
	}
}

func (a *App) anomaliesJob(ctx context.Context) {
	if _, err := a.RunAnomalies(ctx); err != nil && !isCancel(err) {
		a.log.Errorf("anomaly run: %v", err)
	}
}

func (a *App) servicesJob(ctx context.Context) {
	a.RunServices(ctx)
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
