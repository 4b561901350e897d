package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/wpdiag/internal/engine"
)

// Config captures the settings required to boot the diagnostics engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Rules      RulesConfig      `yaml:"rules"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Probe      ProbeConfig      `yaml:"probe"`
	Logs       LogsConfig       `yaml:"logs"`
	Cache      CacheConfig      `yaml:"cache"`
	Export     ExportConfig     `yaml:"export"`
}

// ServerConfig controls gRPC and HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	HTTPAddress     string        `yaml:"httpAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig points at the optional error-pattern rule pack.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// ThresholdsConfig overrides evaluator policy constants. Zero values keep the defaults.
type ThresholdsConfig struct {
	TotalLabel      string        `yaml:"totalLabel"`
	SlowSampleMs    float64       `yaml:"slowSampleMs"`
	WarnSampleMs    float64       `yaml:"warnSampleMs"`
	HighMemoryMb    float64       `yaml:"highMemoryMb"`
	WarnMemoryMb    float64       `yaml:"warnMemoryMb"`
	TopHooks        int           `yaml:"topHooks"`
	SlowQueryMs     float64       `yaml:"slowQueryMs"`
	MaxQueries      int           `yaml:"maxQueries"`
	MaxSlowQueries  int           `yaml:"maxSlowQueries"`
	MaxQueryTimeMs  float64       `yaml:"maxQueryTimeMs"`
	CronGrace       time.Duration `yaml:"cronGrace"`
	MaxOverdueJobs  int           `yaml:"maxOverdueJobs"`
	MinCacheHitRate float64       `yaml:"minCacheHitRate"`
	RiskHighScore   float64       `yaml:"riskHighScore"`
	RiskMediumScore float64       `yaml:"riskMediumScore"`
}

// Engine converts the configured values into evaluator thresholds.
func (t ThresholdsConfig) Engine() engine.Thresholds {
	return engine.Thresholds{
		TotalLabel:      t.TotalLabel,
		SlowSampleMs:    t.SlowSampleMs,
		WarnSampleMs:    t.WarnSampleMs,
		HighMemoryMb:    t.HighMemoryMb,
		WarnMemoryMb:    t.WarnMemoryMb,
		TopHooks:        t.TopHooks,
		SlowQueryMs:     t.SlowQueryMs,
		MaxQueries:      t.MaxQueries,
		MaxSlowQueries:  t.MaxSlowQueries,
		MaxQueryTimeMs:  t.MaxQueryTimeMs,
		CronGrace:       t.CronGrace,
		MaxOverdueJobs:  t.MaxOverdueJobs,
		MinCacheHitRate: t.MinCacheHitRate,
		RiskHighScore:   t.RiskHighScore,
		RiskMediumScore: t.RiskMediumScore,
	}
}

// ProbeConfig configures the site self-probe used for loopback and header facts.
type ProbeConfig struct {
	SiteURL      string        `yaml:"siteURL"`
	LoopbackPath string        `yaml:"loopbackPath"`
	Timeout      time.Duration `yaml:"timeout"`
	Attempts     uint          `yaml:"attempts"`
}

// LogsConfig bounds the error-log tail reader.
type LogsConfig struct {
	Path     string `yaml:"path"`
	MaxLines int    `yaml:"maxLines"`
	MaxBytes int64  `yaml:"maxBytes"`
}

// CacheConfig controls the Redis/Valkey connection used by the cache round-trip test.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ProbeKeys    int           `yaml:"probeKeys"`
	ProbeTTL     time.Duration `yaml:"probeTTL"`
}

// ExportConfig rate-limits the HTTP evaluate/export endpoints.
type ExportConfig struct {
	RatePerSecond float64 `yaml:"ratePerSecond"`
	Burst         int     `yaml:"burst"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WPDIAG_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	th := engine.DefaultThresholds()
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			HTTPAddress:     ":8080",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{Path: "configs/rules/default.yaml"},
		Thresholds: ThresholdsConfig{
			TotalLabel:      th.TotalLabel,
			SlowSampleMs:    th.SlowSampleMs,
			WarnSampleMs:    th.WarnSampleMs,
			HighMemoryMb:    th.HighMemoryMb,
			WarnMemoryMb:    th.WarnMemoryMb,
			TopHooks:        th.TopHooks,
			SlowQueryMs:     th.SlowQueryMs,
			MaxQueries:      th.MaxQueries,
			MaxSlowQueries:  th.MaxSlowQueries,
			MaxQueryTimeMs:  th.MaxQueryTimeMs,
			CronGrace:       th.CronGrace,
			MaxOverdueJobs:  th.MaxOverdueJobs,
			MinCacheHitRate: th.MinCacheHitRate,
			RiskHighScore:   th.RiskHighScore,
			RiskMediumScore: th.RiskMediumScore,
		},
		Probe: ProbeConfig{
			LoopbackPath: "/wp-cron.php",
			Timeout:      5 * time.Second,
			Attempts:     3,
		},
		Logs: LogsConfig{MaxLines: 1000, MaxBytes: 1 << 20},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ProbeKeys:    10,
			ProbeTTL:     time.Minute,
		},
		Export: ExportConfig{RatePerSecond: 5, Burst: 10},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WPDIAG_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("WPDIAG_HTTP_ADDRESS"); v != "" {
		cfg.Server.HTTPAddress = v
	}
	if v := os.Getenv("WPDIAG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WPDIAG_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("WPDIAG_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("WPDIAG_SLOW_QUERY_MS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Thresholds.SlowQueryMs = f
		}
	}
	if v := os.Getenv("WPDIAG_CRON_GRACE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Thresholds.CronGrace = d
		}
	}
	if v := os.Getenv("WPDIAG_SITE_URL"); v != "" {
		cfg.Probe.SiteURL = v
	}
	if v := os.Getenv("WPDIAG_PROBE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Probe.Timeout = d
		}
	}
	if v := os.Getenv("WPDIAG_PROBE_ATTEMPTS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Probe.Attempts = uint(n)
		}
	}
	if v := os.Getenv("WPDIAG_ERROR_LOG"); v != "" {
		cfg.Logs.Path = v
	}
	if v := os.Getenv("WPDIAG_LOG_MAX_LINES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Logs.MaxLines = n
		}
	}
	if v := os.Getenv("WPDIAG_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("WPDIAG_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("WPDIAG_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("WPDIAG_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("WPDIAG_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("WPDIAG_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("WPDIAG_EXPORT_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Export.RatePerSecond = f
		}
	}
}
