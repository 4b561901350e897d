package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/miradorstack/wpdiag/internal/config"
	"github.com/miradorstack/wpdiag/internal/models"
)

// SnapshotEvaluator turns a decoded snapshot into a report.
type SnapshotEvaluator interface {
	Evaluate(ctx context.Context, snapshot models.Snapshot) models.Report
}

// HTTPHandler serves the JSON evaluate/export endpoints.
type HTTPHandler struct {
	router    *chi.Mux
	evaluator SnapshotEvaluator
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewHTTPHandler wires routes and middleware. metrics may be nil to skip /metrics.
func NewHTTPHandler(evaluator SnapshotEvaluator, cfg config.ExportConfig, metrics http.Handler, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	h := &HTTPHandler{
		router:    chi.NewRouter(),
		evaluator: evaluator,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
	}
	h.routes(metrics)
	return h
}

// DefaultMetricsHandler exposes the default Prometheus registry.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func (h *HTTPHandler) routes(metrics http.Handler) {
	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "SERVING"})
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	r.Route("/api/v1/snapshots", func(r chi.Router) {
		r.Use(h.rateLimit)
		r.Post("/evaluate", h.evaluate)
		r.Post("/export", h.export)
	})
}

// ServeHTTP makes HTTPHandler a standard http.Handler.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *HTTPHandler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// evaluate returns the report as the response body.
// POST /api/v1/snapshots/evaluate
func (h *HTTPHandler) evaluate(w http.ResponseWriter, r *http.Request) {
	report, ok := h.decodeAndEvaluate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// export returns the same report as a downloadable JSON attachment.
// POST /api/v1/snapshots/export
func (h *HTTPHandler) export(w http.ResponseWriter, r *http.Request) {
	report, ok := h.decodeAndEvaluate(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFilename(report)))
	writeJSON(w, http.StatusOK, report)
}

func (h *HTTPHandler) decodeAndEvaluate(w http.ResponseWriter, r *http.Request) (models.Report, bool) {
	if h.evaluator == nil {
		writeError(w, http.StatusServiceUnavailable, "evaluator not configured")
		return models.Report{}, false
	}
	snapshot, err := DecodeSnapshot(r.Body)
	if err != nil {
		h.logger.Debug("rejecting snapshot", slog.String("request_id", middleware.GetReqID(r.Context())), slog.Any("error", err))
		writeError(w, http.StatusBadRequest, err.Error())
		return models.Report{}, false
	}
	return h.evaluator.Evaluate(r.Context(), snapshot), true
}

// ExportFilename names the downloadable report file.
func ExportFilename(report models.Report) string {
	return "wpdiag-report-" + report.ID + ".json"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
