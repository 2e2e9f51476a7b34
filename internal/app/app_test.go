package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-quality/internal/checkers"
	"stream-quality/internal/config"
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/health"
	"stream-quality/internal/core/stats"
	"stream-quality/internal/utils/logger"
)

const batchCSV = `id,name,age,score,active
1,Alice,25,95.5,true
2,Bob,30,87.3,false
3,Charlie,,76.8,true
4,David,40,92.1,true
5,,45,65.2,false
`

type hook struct {
	mu    sync.Mutex
	kinds []string
	rates []float64
}

func (h *hook) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Kind    string `json:"kind"`
			Summary *struct {
				PassRate float64 `json:"pass_rate"`
			} `json:"summary"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.mu.Lock()
		h.kinds = append(h.kinds, body.Kind)
		if body.Summary != nil {
			h.rates = append(h.rates, body.Summary.PassRate)
		}
		h.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (h *hook) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.kinds...)
}

func writeConfig(t *testing.T, hookURL string, extra string) string {
	t.Helper()
	t.Setenv("ENV", "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "batch.csv"), []byte(batchCSV), 0o644))

	body := fmt.Sprintf(`
log: {level: error}
source: {path: %s}
store: {driver: sqlite, dsn: ":memory:", metrics_window: 24h}
checks:
  - name: name_nulls
    type: null_check
    columns: [name]
    threshold: 0
  - name: unique_ids
    type: uniqueness_check
    columns: [id]
alerting:
  timeout: 2s
  channels:
    - name: hook
      type: webhook
      enabled: true
      threshold: 0.9
      url: %s
%s`, filepath.Join(dir, "batch.csv"), hookURL, extra)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newApp(t *testing.T, path string) *App {
	t.Helper()
	cfg, err := config.Load(path)
	require.NoError(t, err)
	a, err := New(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRunChecksPersistsPublishesAndAlerts(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	a := newApp(t, writeConfig(t, srv.URL, ""))

	summary, err := a.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Passed)
	assert.Equal(t, 0.5, summary.PassRate)
	assert.Equal(t, "name_nulls", summary.Results[0].Name)
	assert.False(t, summary.Results[0].Passed)

	assert.Equal(t, []string{"quality"}, h.seen())

	rows, err := a.store.RecentChecks(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	api := httptest.NewServer(a.Handler())
	defer api.Close()
	resp, err := http.Get(api.URL + "/v1/summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, summary.RunID, got["run_id"])
}

func TestRunAnomaliesOnHourlyRollups(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	a := newApp(t, writeConfig(t, srv.URL, ""))

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	events := []int64{100, 100, 100, 110, 110, 110, 500}
	var rows []detector.HourlyRollup
	for i, e := range events {
		rows = append(rows, detector.HourlyRollup{
			Hour:          base.Add(time.Duration(i) * time.Hour),
			TotalEvents:   e,
			UniqueUsers:   10,
			PurchaseCount: 2,
			Revenue:       50,
		})
	}
	require.NoError(t, a.store.UpsertHourly(context.Background(), rows))
	a.now = func() time.Time { return base.Add(7 * time.Hour) }

	records, err := a.RunAnomalies(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, detector.MetricHourlyEvents, records[0].MetricName)
	assert.Equal(t, stats.SeverityHigh, records[0].Severity)

	assert.Equal(t, []string{"anomaly"}, h.seen())
	got, _ := a.state.Anomalies()
	assert.Len(t, got, 1)
}

func TestReloadKeepsPreviousOnBadConfig(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	a := newApp(t, writeConfig(t, srv.URL, ""))
	before := a.runner

	bad := *a.config()
	bad.Checks = append([]checkers.Descriptor(nil), bad.Checks...)
	bad.Checks = append(bad.Checks, checkers.Descriptor{Name: "x", Type: "row_count"})
	a.Reload(&bad)
	assert.Same(t, before, a.runner)

	good := *a.config()
	good.Checks = good.Checks[:1]
	a.Reload(&good)
	assert.Len(t, a.runner.Checks(), 1)
}

func TestRunOnce(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	path := writeConfig(t, srv.URL, "schedule: {run_once: true}\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Run(ctx, path))
	assert.Equal(t, []string{"quality"}, h.seen())
}

func TestRunWithIntervalStopsOnCancel(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	path := writeConfig(t, srv.URL, "schedule: {interval: 50ms}\n")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, path)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for app run")
	}
	assert.GreaterOrEqual(t, len(h.seen()), 2)
}

func TestRunRejectsUnknownCheckType(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	path := writeConfig(t, srv.URL, "")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw = append(raw, []byte("checks_file: extra.yaml\n")...)
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "extra.yaml"),
		[]byte("checks:\n  - {name: rows, type: row_count_check}\n"), 0o644))

	err = Run(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, checkers.ErrUnknownKind)
}

func TestRunChecksRollsUpHourlyMetrics(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	path := writeConfig(t, srv.URL, "rollup: {enabled: true}\n")

	events := filepath.Join(filepath.Dir(path), "events.csv")
	require.NoError(t, os.WriteFile(events, []byte(`timestamp,user_id,event_type,quantity,product_price
2026-01-01 10:05:00,u1,purchase,2,10.0
2026-01-01 10:20:00,u2,view,,
2026-01-01 11:00:00,u1,purchase,1,5.5
`), 0o644))
	t.Setenv("SOURCE_PATH", events)
	a := newApp(t, path)

	_, err := a.RunChecks(context.Background())
	require.NoError(t, err)
	// a rerun of the same batch replaces the hours instead of adding to them
	_, err = a.RunChecks(context.Background())
	require.NoError(t, err)

	rows, err := a.store.HourlyMetrics(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].TotalEvents)
	assert.Equal(t, int64(2), rows[0].UniqueUsers)
	assert.Equal(t, int64(1), rows[0].PurchaseCount)
	assert.InDelta(t, 20.0, rows[0].Revenue, 1e-9)
	assert.Equal(t, int64(1), rows[1].TotalEvents)
	assert.InDelta(t, 5.5, rows[1].Revenue, 1e-9)
}

func TestRunServicesPublishesReport(t *testing.T) {
	h := &hook{}
	srv := h.server(t)
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	a := newApp(t, writeConfig(t, srv.URL, fmt.Sprintf(`services:
  - name: api
    type: http
    url: "%s"
    timeout: 2s
  - name: spark
    type: spark
`, up.URL)))

	report := a.RunServices(context.Background())
	assert.Equal(t, health.OverallDegraded, report.OverallStatus)
	assert.Equal(t, 1, report.HealthyServices)
	require.Len(t, report.Services, 2)
	assert.Equal(t, health.StatusHealthy, report.Services[0].Status)
	assert.Equal(t, health.StatusUnknown, report.Services[1].Status)

	api := httptest.NewServer(a.Handler())
	defer api.Close()
	resp, err := http.Get(api.URL + "/v1/services")
	require.NoError(t, err)
	defer resp.Body.Close()
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "degraded", got["overall_status"])
	assert.Equal(t, 2.0, got["total_services"])
}
