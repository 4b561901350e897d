package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WPDIAG_CONFIG", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":50051" {
		t.Fatalf("unexpected grpc address %s", cfg.Server.Address)
	}
	if cfg.Thresholds.CronGrace != 300*time.Second {
		t.Fatalf("expected default grace 300s, got %v", cfg.Thresholds.CronGrace)
	}
	if got := cfg.Thresholds.Engine().SlowQueryMs; got != 50 {
		t.Fatalf("expected slow query threshold 50, got %v", got)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wpdiag.yaml")
	data := `
server:
  address: ":6000"
thresholds:
  slowQueryMs: 80
  cronGrace: 10m
probe:
  siteURL: https://blog.example.com
logs:
  path: /var/log/php/error.log
  maxLines: 200
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("WPDIAG_HTTP_ADDRESS", ":9090")
	t.Setenv("WPDIAG_CACHE_ENABLED", "true")
	t.Setenv("WPDIAG_PROBE_ATTEMPTS", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":6000" || cfg.Server.HTTPAddress != ":9090" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Thresholds.SlowQueryMs != 80 || cfg.Thresholds.CronGrace != 10*time.Minute {
		t.Fatalf("thresholds not loaded: %+v", cfg.Thresholds)
	}
	if cfg.Thresholds.MaxQueries != 50 {
		t.Fatalf("expected unspecified threshold to keep default, got %d", cfg.Thresholds.MaxQueries)
	}
	if !cfg.Cache.Enabled || cfg.Probe.Attempts != 5 {
		t.Fatalf("env overrides not applied: cache=%v attempts=%d", cfg.Cache.Enabled, cfg.Probe.Attempts)
	}
	if cfg.Logs.MaxLines != 200 || cfg.Probe.SiteURL != "https://blog.example.com" {
		t.Fatalf("unexpected probe/log config %+v %+v", cfg.Probe, cfg.Logs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
