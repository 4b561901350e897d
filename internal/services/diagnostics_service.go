package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/wpdiag/internal/api"
	"github.com/miradorstack/wpdiag/internal/cache"
	"github.com/miradorstack/wpdiag/internal/engine"
	"github.com/miradorstack/wpdiag/internal/grpc/diagnosticsv1"
	"github.com/miradorstack/wpdiag/internal/metrics"
	"github.com/miradorstack/wpdiag/internal/models"
	"github.com/miradorstack/wpdiag/internal/utils"
)

// Fact names used for collection-failure metrics.
const (
	FactLoopback  = "loopback"
	FactHeaders   = "headers"
	FactErrorLog  = "error_log"
	FactRoundTrip = "cache_round_trip"
)

// SiteProbe performs outbound requests against the diagnosed site.
type SiteProbe interface {
	ProbeLoopback(ctx context.Context) models.ProbeResult
	ProbeHeaders(ctx context.Context) (map[string]string, models.ProbeResult)
}

// LogSource reads the tail of an error log.
type LogSource interface {
	Tail(ctx context.Context, path string) *models.LogFacts
}

// Collectors fill facts a snapshot did not carry. Every field is optional. CacheErr holds
// the error from setting up the cache backend; when set, the round trip is reported as
// failed with it instead of being run.
type Collectors struct {
	Site      SiteProbe
	Logs      LogSource
	LogPath   string
	Cache     cache.Provider
	CacheErr  error
	CacheKeys int
	CacheTTL  time.Duration
}

// DiagnosticsService implements the gRPC DiagnosticsEngine service and backs the HTTP
// surface.
type DiagnosticsService struct {
	diagnosticsv1.UnimplementedDiagnosticsEngineServer

	logger     *slog.Logger
	evaluator  *engine.Evaluator
	collectors Collectors
	latencies  *utils.LatencyTracker
}

// NewDiagnosticsService constructs the service facade. A nil evaluator uses the default
// thresholds and rule table.
func NewDiagnosticsService(logger *slog.Logger, evaluator *engine.Evaluator, collectors Collectors) *DiagnosticsService {
	if logger == nil {
		logger = slog.Default()
	}
	if evaluator == nil {
		evaluator = engine.NewEvaluator(logger, engine.DefaultThresholds(), nil)
	}
	return &DiagnosticsService{
		logger:     logger,
		evaluator:  evaluator,
		collectors: collectors,
		latencies:  utils.NewLatencyTracker(1024),
	}
}

// EvaluateSnapshot decodes the request struct, evaluates it and returns the report struct.
func (s *DiagnosticsService) EvaluateSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}

	snapshot, err := api.FromProtoSnapshot(req)
	if err != nil {
		metrics.ObserveEvaluation(0, metrics.OutcomeError)
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	report := s.evaluate(ctx, snapshot, utils.SurfaceGRPC)
	out, err := api.ToProtoReport(report)
	if err != nil {
		s.logger.Error("report conversion failed", slog.String("report_id", report.ID), slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode report")
	}
	return out, nil
}

// Evaluate collects missing facts and runs the evaluators for the HTTP surface. It never
// fails: collection problems degrade the affected report sections.
func (s *DiagnosticsService) Evaluate(ctx context.Context, snapshot models.Snapshot) models.Report {
	return s.evaluate(ctx, snapshot, utils.SurfaceHTTP)
}

func (s *DiagnosticsService) evaluate(ctx context.Context, snapshot models.Snapshot, surface string) models.Report {
	start := time.Now()
	s.collect(ctx, &snapshot)
	report := s.evaluator.Evaluate(snapshot)
	duration := time.Since(start)

	for _, rec := range report.InvalidRecords {
		metrics.ObserveInvalidRecord(rec.Section)
	}
	metrics.ObserveEvaluation(duration, metrics.OutcomeSuccess)
	if observed := s.latencies.Observe(surface, duration); observed%20 == 0 {
		summary := s.latencies.Summary(surface)
		s.logger.Info("evaluation latency",
			slog.String("surface", surface),
			slog.Duration("p50", summary.P50),
			slog.Duration("p95", summary.P95),
			slog.Duration("max", summary.Max),
			slog.Int("window", summary.Window),
		)
	}

	s.logger.Info("snapshot evaluated",
		slog.String("report_id", report.ID),
		slog.String("site_url", report.SiteURL),
		slog.String("risk_level", string(report.Risk.Level)),
		slog.Duration("duration", duration),
	)
	return report
}

// collect runs the configured collectors concurrently. Each writes a distinct part of the
// snapshot, so no locking is needed. Sections are copied first so the caller's facts stay
// untouched.
func (s *DiagnosticsService) collect(ctx context.Context, snapshot *models.Snapshot) {
	c := s.collectors
	if snapshot.Cron != nil {
		cron := *snapshot.Cron
		snapshot.Cron = &cron
	}
	if snapshot.Cache != nil {
		facts := *snapshot.Cache
		snapshot.Cache = &facts
	}
	g, gctx := errgroup.WithContext(ctx)

	if c.Site != nil && snapshot.Cron != nil && snapshot.Cron.Loopback.Status == models.ProbeUnknown {
		cron := snapshot.Cron
		g.Go(func() error {
			cron.Loopback = c.Site.ProbeLoopback(gctx)
			s.recordFailure(FactLoopback, cron.Loopback)
			return nil
		})
	}

	if snapshot.Cache != nil {
		facts := snapshot.Cache
		if c.Site != nil && facts.HeaderProbe.Status == models.ProbeUnknown && len(facts.Headers) == 0 {
			g.Go(func() error {
				facts.Headers, facts.HeaderProbe = c.Site.ProbeHeaders(gctx)
				s.recordFailure(FactHeaders, facts.HeaderProbe)
				return nil
			})
		}
		if c.CacheErr != nil && facts.RoundTrip == nil {
			facts.RoundTrip = &models.RoundTripResult{Probe: models.ProbeFailure(fmt.Errorf("cache backend unavailable: %w", c.CacheErr))}
			s.recordFailure(FactRoundTrip, facts.RoundTrip.Probe)
		} else if c.Cache != nil && facts.RoundTrip == nil {
			g.Go(func() error {
				rt := cache.RoundTrip(gctx, c.Cache, c.CacheKeys, c.CacheTTL)
				facts.RoundTrip = &rt
				s.recordFailure(FactRoundTrip, rt.Probe)
				return nil
			})
		}
	}

	if c.Logs != nil && c.LogPath != "" && snapshot.Logs == nil {
		g.Go(func() error {
			snapshot.Logs = c.Logs.Tail(gctx, c.LogPath)
			s.recordFailure(FactErrorLog, snapshot.Logs.Read)
			return nil
		})
	}

	_ = g.Wait()
}

func (s *DiagnosticsService) recordFailure(fact string, result models.ProbeResult) {
	if !result.Failed() {
		return
	}
	metrics.ObserveCollectionFailure(fact)
	s.logger.Warn("fact collection failed", slog.String("fact", fact), slog.String("error", result.Error))
}

// LatencySummaries returns the recent latency window of every surface that served an
// evaluation.
func (s *DiagnosticsService) LatencySummaries() map[string]utils.LatencySummary {
	out := make(map[string]utils.LatencySummary)
	if s.latencies == nil {
		return out
	}
	for _, surface := range s.latencies.Surfaces() {
		out[surface] = s.latencies.Summary(surface)
	}
	return out
}
