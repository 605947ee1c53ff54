package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gatekeep/internal/api"
	"gatekeep/internal/config"
	"gatekeep/internal/logger"
	"gatekeep/internal/models"
	"gatekeep/internal/observability"
	"gatekeep/internal/ratelimit"
	"gatekeep/internal/ssrf"
	"gatekeep/internal/storage"
	"gatekeep/internal/version"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging with secret redaction
	log, closer, err := logger.Setup(cfg.Logging, cfg.Environment, version.GetInfo())
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	// Initialize observability (OpenTelemetry)
	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, version.GetInfo())
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	// Initialize audit event storage
	storageInstance, err := storage.New(cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer storageInstance.Close()

	// Wrap storage with instrumentation if metrics are enabled
	var activeStorage storage.Storage = storageInstance
	var securityMetrics *observability.SecurityMetrics
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented

		securityMetrics, err = observability.NewSecurityMetrics()
		if err != nil {
			slog.Error("Failed to create security metrics", "error", err)
			os.Exit(1)
		}
	}

	// Initialize the guarded fetch client
	fetcher := ssrf.NewClient(cfg.Egress)

	// Initialize HTTP handlers
	handlerOpts := []api.HandlerOption{}
	if securityMetrics != nil {
		handlerOpts = append(handlerOpts, api.WithEgressHooks(
			securityMetrics.RecordEgressDenial,
			securityMetrics.RecordEgressFetch,
		))
	}
	handlers := api.NewHandlers(activeStorage, fetcher, cfg, handlerOpts...)

	// Setup routes with middleware
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	// Initialize rate limiters if enabled
	if cfg.Security.RateLimit.Enabled {
		rlCfg := cfg.Security.RateLimit

		// Authenticated clients get double the anonymous budget
		authCfg := rlCfg
		authCfg.Requests = rlCfg.Requests * 2
		authCfg.BurstSize = rlCfg.BurstSize * 2

		anonLimiter, err := ratelimit.New(rlCfg)
		if err != nil {
			slog.Error("Failed to create rate limiter", "error", err)
			os.Exit(1)
		}
		authLimiter, err := ratelimit.New(authCfg)
		if err != nil {
			slog.Error("Failed to create rate limiter", "error", err)
			os.Exit(1)
		}
		defer anonLimiter.Close()
		defer authLimiter.Close()

		deniedHook := func(r *http.Request, key string, info ratelimit.Info) {
			_, authenticated := r.Context().Value("api_key").(*models.APIKey)
			if securityMetrics != nil {
				securityMetrics.RecordRateLimitDenial(r.Context(), authenticated)
			}
			requestID, _ := r.Context().Value("request_id").(string)
			event := models.NewAuditEvent(models.EventKindRateLimited, requestID, ratelimit.ClientIP(r), key, "")
			if err := activeStorage.RecordEvent(r.Context(), event); err != nil {
				slog.Error("Failed to record rate limit event", "error", err)
			}
		}

		routeOpts = append(routeOpts, api.WithRateLimiter(
			ratelimit.Middleware(anonLimiter, authLimiter, ratelimit.WithDeniedHook(deniedHook))))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	// Start metrics server if enabled
	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Starting server", "addr", server.Addr, "environment", cfg.Environment)

		var err error
		if cfg.Server.TLSEnabled {
			if cfg.Server.TLSCertFile == "" || cfg.Server.TLSKeyFile == "" {
				slog.Error("TLS is enabled but cert file or key file is not specified")
				os.Exit(1)
			}
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}
