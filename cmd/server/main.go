// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/api"
	"github.com/tayawaaean/mediatiger-sub002/internal/config"
	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/middleware"
	"github.com/tayawaaean/mediatiger-sub002/internal/proxy"
	"github.com/tayawaaean/mediatiger-sub002/internal/supervisor"
	"github.com/tayawaaean/mediatiger-sub002/internal/supervisor/services"
	"github.com/tayawaaean/mediatiger-sub002/internal/upstream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	metrics.SetAppInfo(version, runtime.Version())

	logging.Info().
		Str("version", version).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("api_key", logging.Redact(cfg.Upstream.APIKey)).
		Str("environment", cfg.Server.Environment).
		Msg("Starting MediaTiger proxy with supervisor tree")

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS")
	}
	if !cfg.Analytics.SampleFallback {
		logging.Info().Msg("Sample data fallback disabled; analytics failures are returned to clients")
	}

	// The breaker sits outside the backoff loop, so an upstream outage
	// short-circuits retries instead of multiplying them.
	client := upstream.NewCircuitBreakerClient(&cfg.Upstream)
	svc := proxy.NewFromConfig(cfg, client)

	perf := middleware.NewPerformanceMonitor(1000, 2*time.Second)
	handler := api.NewHandler(svc, perf, version)
	chiMiddleware := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security))
	router := api.NewRouter(handler, chiMiddleware, perf)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		// Leave room for the HTTP drain on top of suture's own bookkeeping.
		ShutdownTimeout: cfg.Server.ShutdownTimeout + 5*time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddCoreService(services.NewDispatcherService(svc.Queue()))
	tree.AddCoreService(services.NewSweeperService(svc, cfg.Cache.SweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// The channel is never closed; it carries exactly one result.
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop within timeout")
	}

	st := svc.Stats()
	logging.Info().
		Int64("cache_hits", st.Cache.Hits).
		Int64("cache_misses", st.Cache.Misses).
		Msg("Proxy stopped gracefully")
}
