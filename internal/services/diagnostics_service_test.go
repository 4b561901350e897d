package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/wpdiag/internal/cache"
	"github.com/miradorstack/wpdiag/internal/engine"
	"github.com/miradorstack/wpdiag/internal/models"
)

type siteProbeStub struct {
	loopback    models.ProbeResult
	headers     map[string]string
	headerProbe models.ProbeResult
	calls       atomic.Int32
}

func (s *siteProbeStub) ProbeLoopback(context.Context) models.ProbeResult {
	s.calls.Add(1)
	return s.loopback
}

func (s *siteProbeStub) ProbeHeaders(context.Context) (map[string]string, models.ProbeResult) {
	s.calls.Add(1)
	return s.headers, s.headerProbe
}

type logSourceStub struct {
	facts *models.LogFacts
	path  string
}

func (l *logSourceStub) Tail(_ context.Context, path string) *models.LogFacts {
	l.path = path
	return l.facts
}

func fixedEvaluator() *engine.Evaluator {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return engine.NewEvaluator(nil, engine.DefaultThresholds(), nil, engine.WithClock(func() time.Time { return now }))
}

func TestEvaluateFillsMissingFacts(t *testing.T) {
	site := &siteProbeStub{
		loopback:    models.ProbeSucceeded(200, 12),
		headers:     map[string]string{"cf-ray": "abc"},
		headerProbe: models.ProbeSucceeded(200, 30),
	}
	logs := &logSourceStub{facts: &models.LogFacts{Lines: []string{"PHP Fatal error: boom"}, Read: models.ProbeSucceeded(0, 1)}}
	service := NewDiagnosticsService(nil, fixedEvaluator(), Collectors{
		Site:      site,
		Logs:      logs,
		LogPath:   "/var/log/php/error.log",
		Cache:     cache.NewMemoryProvider(),
		CacheKeys: 4,
	})

	input := models.Snapshot{
		Cron:  &models.CronFacts{Table: models.CronTable{}},
		Cache: &models.CacheFacts{ObjectCacheEnabled: true},
	}
	report := service.Evaluate(context.Background(), input)

	if site.calls.Load() != 2 {
		t.Fatalf("expected loopback and header probes, got %d calls", site.calls.Load())
	}
	if !report.Cron.LoopbackOK {
		t.Fatalf("expected collected loopback result in report")
	}
	if report.Cache.CDNType != "Cloudflare" {
		t.Fatalf("expected CDN from probed headers, got %q", report.Cache.CDNType)
	}
	if report.Cache.HitRatePct == nil || *report.Cache.HitRatePct != 100 {
		t.Fatalf("expected full hit rate from memory round trip, got %v", report.Cache.HitRatePct)
	}
	if logs.path != "/var/log/php/error.log" || report.Errors.Status != models.SectionComplete {
		t.Fatalf("expected log tail to be collected, path=%q status=%s", logs.path, report.Errors.Status)
	}
	if input.Cron.Loopback.Status != models.ProbeUnknown || input.Cache.RoundTrip != nil {
		t.Fatalf("collectors must not mutate the caller's snapshot")
	}
}

func TestEvaluateKeepsSuppliedFacts(t *testing.T) {
	site := &siteProbeStub{}
	service := NewDiagnosticsService(nil, fixedEvaluator(), Collectors{Site: site})

	service.Evaluate(context.Background(), models.Snapshot{
		Cron:  &models.CronFacts{Loopback: models.ProbeSucceeded(200, 1)},
		Cache: &models.CacheFacts{Headers: map[string]string{"server": "nginx"}, HeaderProbe: models.ProbeSucceeded(200, 1)},
	})
	if site.calls.Load() != 0 {
		t.Fatalf("expected no probes when facts are supplied, got %d", site.calls.Load())
	}
}

func TestEvaluateDegradesOnCollectionFailure(t *testing.T) {
	site := &siteProbeStub{
		loopback:    models.ProbeFailure(errors.New("connection refused")),
		headerProbe: models.ProbeFailure(errors.New("connection refused")),
	}
	service := NewDiagnosticsService(nil, fixedEvaluator(), Collectors{Site: site})

	report := service.Evaluate(context.Background(), models.Snapshot{
		Cron:  &models.CronFacts{},
		Cache: &models.CacheFacts{},
	})
	if report.Cron.Status != models.SectionDegraded {
		t.Fatalf("expected degraded cron section, got %s", report.Cron.Status)
	}
	if len(report.Cron.Issues) != 1 {
		t.Fatalf("expected loopback issue, got %v", report.Cron.Issues)
	}
	if report.Cache.Status != models.SectionDegraded {
		t.Fatalf("expected degraded cache section, got %s", report.Cache.Status)
	}
}

func TestEvaluateSnapshotGRPC(t *testing.T) {
	service := NewDiagnosticsService(nil, fixedEvaluator(), Collectors{})

	req, err := structpb.NewStruct(map[string]any{
		"site_url": "https://blog.example.com",
		"samples": []any{
			map[string]any{"label": "plugins_loaded", "elapsed_ms": 40.0},
			map[string]any{"label": "total_execution", "elapsed_ms": 200.0},
		},
		"hooks": map[string]any{"init": 3.0},
	})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	resp, err := service.EvaluateSnapshot(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fields := resp.GetFields()
	if fields["site_url"].GetStringValue() != "https://blog.example.com" {
		t.Fatalf("unexpected site_url: %v", fields["site_url"])
	}
	if fields["id"].GetStringValue() == "" {
		t.Fatalf("expected report id")
	}
	timing := fields["timing"].GetStructValue().GetFields()
	if timing["status"].GetStringValue() != string(models.SectionComplete) {
		t.Fatalf("unexpected timing status: %v", timing["status"])
	}
	if rows := timing["rows"].GetListValue().GetValues(); len(rows) != 2 {
		t.Fatalf("expected 2 timing rows, got %d", len(rows))
	}
}

func TestEvaluateSnapshotInvalidRequest(t *testing.T) {
	service := NewDiagnosticsService(nil, nil, Collectors{})

	if _, err := service.EvaluateSnapshot(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for nil request, got %v", err)
	}

	req, _ := structpb.NewStruct(map[string]any{"samples": "not-a-list"})
	if _, err := service.EvaluateSnapshot(context.Background(), req); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for malformed snapshot, got %v", err)
	}
}

func TestEvaluateReportsUnreachableCacheAsFailure(t *testing.T) {
	input := models.Snapshot{
		Cache: &models.CacheFacts{ObjectCacheEnabled: true, HeaderProbe: models.ProbeSucceeded(200, 1)},
	}

	cases := map[string]Collectors{
		"dial error": {CacheErr: errors.New("dial tcp 10.0.0.5:6379: connect: connection refused"), CacheKeys: 10},
		"noop cache": {Cache: cache.NoopProvider{}, CacheKeys: 10},
	}
	for name, collectors := range cases {
		t.Run(name, func(t *testing.T) {
			report := NewDiagnosticsService(nil, fixedEvaluator(), collectors).Evaluate(context.Background(), input)

			if report.Cache.HitRatePct != nil {
				t.Fatalf("an unreachable cache must not produce a hit rate, got %v", *report.Cache.HitRatePct)
			}
			if report.Cache.Status != models.SectionDegraded {
				t.Fatalf("expected degraded cache section, got %s", report.Cache.Status)
			}
			for _, rec := range report.Cache.Recommendations {
				if strings.Contains(rec, "hit rate is below target") {
					t.Fatalf("unexpected hit-rate recommendation: %v", report.Cache.Recommendations)
				}
			}
		})
	}
}

func TestCollectKeepsCacheDialError(t *testing.T) {
	service := NewDiagnosticsService(nil, fixedEvaluator(), Collectors{CacheErr: errors.New("connection refused")})
	snapshot := models.Snapshot{Cache: &models.CacheFacts{}}

	service.collect(context.Background(), &snapshot)

	rt := snapshot.Cache.RoundTrip
	if rt == nil || !rt.Probe.Failed() {
		t.Fatalf("expected failed round trip, got %+v", rt)
	}
	if rt.Probe.Error != "cache backend unavailable: connection refused" {
		t.Fatalf("unexpected round trip error %q", rt.Probe.Error)
	}
}
