package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stream-quality/internal/core/check"
	"stream-quality/internal/core/detector"
	"stream-quality/internal/core/health"
	"stream-quality/internal/core/stats"
	"stream-quality/internal/metrics"
	"stream-quality/internal/store"
	"stream-quality/internal/utils/logger"
)

type fakeHistory struct {
	checks []store.QualityCheck
	err    error
	limit  int
}

func (f *fakeHistory) RecentChecks(ctx context.Context, limit int) ([]store.QualityCheck, error) {
	f.limit = limit
	return f.checks, f.err
}

func (f *fakeHistory) RecentAnomalies(ctx context.Context, limit int) ([]store.AnomalyResult, error) {
	f.limit = limit
	return nil, f.err
}

func newServer(t *testing.T, state *State, history History) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	rec.ObserveSummary(check.Summary{PassRate: 0.75})
	srv := httptest.NewServer(NewRouter(state, history, reg, logger.Discard()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, &State{}, nil)
	var body map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestSummaryBeforeAndAfterRun(t *testing.T) {
	state := &State{}
	srv := newServer(t, state, nil)

	var errBody errorResponse
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/summary", &errBody))
	assert.NotEmpty(t, errBody.Error)

	state.SetSummary(check.NewSummary("run-7", []check.Outcome{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false, Message: "bad"},
	}, time.Now()))

	var got map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/summary", &got))
	assert.Equal(t, "run-7", got["run_id"])
	assert.Equal(t, 2.0, got["total_checks"])
	assert.Equal(t, 0.5, got["pass_rate"])
}

func TestAnomalies(t *testing.T) {
	state := &State{}
	srv := newServer(t, state, nil)

	var empty anomaliesResponse
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/anomalies", &empty))
	assert.Empty(t, empty.Anomalies)
	assert.Nil(t, empty.DetectedAt)

	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	state.SetAnomalies([]detector.Record{{MetricName: "hourly_events", Severity: stats.SeverityHigh}}, at)

	var got anomaliesResponse
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/anomalies", &got))
	require.Len(t, got.Anomalies, 1)
	assert.Equal(t, stats.SeverityHigh, got.Anomalies[0].Severity)
	require.NotNil(t, got.DetectedAt)
	assert.True(t, at.Equal(*got.DetectedAt))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, &State{}, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "stream_quality_pass_rate 0.75")
}

func TestHistory(t *testing.T) {
	h := &fakeHistory{checks: []store.QualityCheck{{CheckName: "nulls", Status: "PASS"}}}
	srv := newServer(t, &State{}, h)

	var rows []store.QualityCheck
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/history/checks?limit=5", &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "nulls", rows[0].CheckName)
	assert.Equal(t, 5, h.limit)

	var anomalies []store.AnomalyResult
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/history/anomalies", &anomalies))
	assert.Empty(t, anomalies)
	assert.Equal(t, defaultLimit, h.limit)

	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/v1/history/checks?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/v1/history/checks?limit=0", nil))

	h.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, get(t, srv.URL+"/v1/history/checks", nil))
}

func TestHistoryWithoutStore(t *testing.T) {
	srv := newServer(t, &State{}, nil)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/history/checks", nil))
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), logger.Discard())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServicesBeforeAndAfterCheck(t *testing.T) {
	state := &State{}
	srv := newServer(t, state, nil)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/services", nil))

	state.SetServices(health.Rollup([]health.Result{
		{Name: "api", Status: health.StatusHealthy},
		{Name: "kafka", Status: health.StatusUnhealthy, Message: "down"},
	}, time.Now()))

	var report health.Report
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/v1/services", &report))
	assert.Equal(t, health.OverallDegraded, report.OverallStatus)
	assert.Equal(t, 1, report.HealthyServices)
	require.Len(t, report.Services, 2)
	assert.Equal(t, "down", report.Services[1].Message)
}
