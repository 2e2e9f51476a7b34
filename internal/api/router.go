// Package api serves the status surface: health, prometheus metrics and the
// latest published results.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"

	"stream-quality/internal/core/detector"
	"stream-quality/internal/store"
	"stream-quality/internal/utils/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

// History is the persisted view; the store satisfies it.
type History interface {
	RecentChecks(ctx context.Context, limit int) ([]store.QualityCheck, error)
	RecentAnomalies(ctx context.Context, limit int) ([]store.AnomalyResult, error)
}

type handler struct {
	state   *State
	history History
	log     *logger.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type anomaliesResponse struct {
	DetectedAt *time.Time        `json:"detected_at,omitempty"`
	Anomalies  []detector.Record `json:"anomalies"`
}

// NewRouter builds the handler. history may be nil when no store is configured.
func NewRouter(state *State, history History, gatherer prometheus.Gatherer, log *logger.Logger) http.Handler {
	h := &handler{state: state, history: history, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/anomalies", h.anomalies)
		r.Get("/services", h.services)
		r.Get("/history/checks", h.historyChecks)
		r.Get("/history/anomalies", h.historyAnomalies)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok", Timestamp: time.Now()})
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	s, ok := h.state.Summary()
	if !ok {
		fail(w, r, http.StatusNotFound, "no run has completed yet")
		return
	}
	render.JSON(w, r, s)
}

func (h *handler) anomalies(w http.ResponseWriter, r *http.Request) {
	recs, at := h.state.Anomalies()
	resp := anomaliesResponse{Anomalies: recs}
	if resp.Anomalies == nil {
		resp.Anomalies = []detector.Record{}
	}
	if !at.IsZero() {
		resp.DetectedAt = &at
	}
	render.JSON(w, r, resp)
}

func (h *handler) services(w http.ResponseWriter, r *http.Request) {
	report, ok := h.state.Services()
	if !ok {
		fail(w, r, http.StatusNotFound, "no service check has completed yet")
		return
	}
	render.JSON(w, r, report)
}

func (h *handler) historyChecks(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	rows, err := h.history.RecentChecks(r.Context(), limit)
	if err != nil {
		h.log.Errorf("history checks: %v", err)
		fail(w, r, http.StatusInternalServerError, "history unavailable")
		return
	}
	if rows == nil {
		rows = []store.QualityCheck{}
	}
	render.JSON(w, r, rows)
}

func (h *handler) historyAnomalies(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r)
	if !ok {
		return
	}
	rows, err := h.history.RecentAnomalies(r.Context(), limit)
	if err != nil {
		h.log.Errorf("history anomalies: %v", err)
		fail(w, r, http.StatusInternalServerError, "history unavailable")
		return
	}
	if rows == nil {
		rows = []store.AnomalyResult{}
	}
	render.JSON(w, r, rows)
}

// limit also rejects the request when no history is configured.
func (h *handler) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	if h.history == nil {
		fail(w, r, http.StatusNotFound, "no store configured")
		return 0, false
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := cast.ToIntE(raw)
	if err != nil || n <= 0 || n > maxLimit {
		fail(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
		return 0, false
	}
	return n, true
}

func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

// Serve runs the HTTP server until ctx is done, then shuts it down.
func Serve(ctx context.Context, addr string, h http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("api listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
