package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/miradorstack/wpdiag/internal/config"
	"github.com/miradorstack/wpdiag/internal/models"
)

type evaluatorStub struct {
	got models.Snapshot
}

func (e *evaluatorStub) Evaluate(_ context.Context, snapshot models.Snapshot) models.Report {
	e.got = snapshot
	return models.Report{ID: "report-1", SiteURL: snapshot.SiteURL}
}

const snapshotBody = `{"site_url":"https://blog.example.com","hooks":{"init":2},"cron":{"table":{"1700000000":{"wp_version_check":[[]]}}}}`

func TestEvaluateEndpoint(t *testing.T) {
	stub := &evaluatorStub{}
	handler := NewHTTPHandler(stub, config.ExportConfig{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots/evaluate", strings.NewReader(snapshotBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.got.SiteURL != "https://blog.example.com" || stub.got.Hooks["init"] != 2 {
		t.Fatalf("snapshot not decoded: %+v", stub.got)
	}
	if hooks := stub.got.Cron.Table[1_700_000_000]; len(hooks["wp_version_check"]) != 1 {
		t.Fatalf("cron table not decoded: %+v", stub.got.Cron.Table)
	}
	var report models.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.ID != "report-1" {
		t.Fatalf("unexpected report id %s", report.ID)
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Fatalf("evaluate must not be an attachment")
	}
}

func TestExportEndpointIsAttachment(t *testing.T) {
	handler := NewHTTPHandler(&evaluatorStub{}, config.ExportConfig{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots/export", strings.NewReader(snapshotBody))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := `attachment; filename="wpdiag-report-report-1.json"`
	if got := rec.Header().Get("Content-Disposition"); got != want {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestEvaluateEndpointRejectsMalformedBody(t *testing.T) {
	handler := NewHTTPHandler(&evaluatorStub{}, config.ExportConfig{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots/evaluate", strings.NewReader(`{"samples": 3}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
		t.Fatalf("expected JSON error body, got %s", rec.Body.String())
	}
}

func TestSnapshotRoutesAreRateLimited(t *testing.T) {
	handler := NewHTTPHandler(&evaluatorStub{}, config.ExportConfig{RatePerSecond: 0.001, Burst: 1}, nil, nil)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/snapshots/evaluate", strings.NewReader(snapshotBody))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %v", codes)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("wpdiag_evaluations_total 1\n"))
	})
	handler := NewHTTPHandler(nil, config.ExportConfig{}, metrics, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "SERVING") {
		t.Fatalf("unexpected healthz response %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "wpdiag_evaluations_total") {
		t.Fatalf("metrics handler not mounted")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/snapshots/evaluate", strings.NewReader("{}")))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without evaluator, got %d", rec.Code)
	}
}
