package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/wpdiag/internal/api"
	"github.com/miradorstack/wpdiag/internal/cache"
	"github.com/miradorstack/wpdiag/internal/config"
	"github.com/miradorstack/wpdiag/internal/engine"
	"github.com/miradorstack/wpdiag/internal/metrics"
	"github.com/miradorstack/wpdiag/internal/repo"
	"github.com/miradorstack/wpdiag/internal/services"
	"github.com/miradorstack/wpdiag/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting wpdiag engine", slog.String("grpc_address", cfg.Server.Address), slog.String("http_address", cfg.Server.HTTPAddress))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		cacheProvider cache.Provider
		cacheErr      error
	)
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			// Every report then carries a failed round trip and a degraded cache section.
			logger.Warn("redis cache unavailable", slog.Any("error", err))
			cacheErr = err
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	classifier, err := engine.NewClassifier(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load error rule pack", slog.Any("error", err))
		os.Exit(1)
	}
	evaluator := engine.NewEvaluator(logger, cfg.Thresholds.Engine(), classifier)

	collectors := services.Collectors{
		Cache:     cacheProvider,
		CacheErr:  cacheErr,
		CacheKeys: cfg.Cache.ProbeKeys,
		CacheTTL:  cfg.Cache.ProbeTTL,
	}
	if cfg.Probe.SiteURL != "" {
		collectors.Site = repo.NewSiteProber(cfg.Probe.SiteURL, cfg.Probe.LoopbackPath, cfg.Probe.Timeout, cfg.Probe.Attempts, logger)
	}
	if cfg.Logs.Path != "" {
		collectors.Logs = repo.NewLogTailer(cfg.Logs.MaxLines, cfg.Logs.MaxBytes)
		collectors.LogPath = cfg.Logs.Path
	}

	diagnostics := services.NewDiagnosticsService(logger, evaluator, collectors)

	server, err := api.NewServer(cfg.Server, diagnostics)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddress != "" {
		httpServer = &http.Server{
			Addr:         cfg.Server.HTTPAddress,
			Handler:      api.NewHTTPHandler(diagnostics, cfg.Export, api.DefaultMetricsHandler(), logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start()
	})
	if httpServer != nil {
		g.Go(func() error {
			logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
		defer cancel()
		server.Shutdown(shutdownCtx)
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("http server shutdown", slog.Any("error", err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
	}
	for surface, summary := range diagnostics.LatencySummaries() {
		logger.Info("evaluation latency", slog.String("surface", surface), slog.Duration("p95", summary.P95), slog.Int("observed", summary.Observed))
	}
	logger.Info("wpdiag engine stopped")
}
