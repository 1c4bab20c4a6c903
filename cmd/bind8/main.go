package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bind8/internal/api"
	"bind8/internal/config"
	"bind8/internal/logger"
	"bind8/internal/models"
	"bind8/internal/observability"
	"bind8/internal/ratelimit"
	"bind8/internal/storage"
	"bind8/internal/version"
	"bind8/internal/wedding"
)

var (
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	ver := version.GetInfo()
	if *showVersion {
		fmt.Println(ver.String())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
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

	storageInstance, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err, "type", cfg.Storage.Type)
		os.Exit(1)
	}
	defer storageInstance.Close()

	var activeStorage storage.Storage = storageInstance
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented
	}

	weddingService := wedding.NewService(activeStorage,
		wedding.WithPurgeLimits(cfg.Expiration.PurgeBatchLimit, cfg.Expiration.PurgeRate),
	)

	handlerOpts := []api.HandlerOption{api.WithStorage(activeStorage)}

	if cfg.RateLimit.Enabled {
		limitStore, err := initializeLimitStore(context.Background(), cfg)
		if err != nil {
			slog.Error("Failed to initialize rate limit store", "error", err, "store", cfg.RateLimit.Store)
			os.Exit(1)
		}
		defer limitStore.Close()

		limits, err := ratelimit.NewSet(limitStore, ratelimit.PoliciesFromConfig(cfg.RateLimit.Policies)...)
		if err != nil {
			slog.Error("Invalid rate limit policy", "error", err)
			os.Exit(1)
		}
		for _, p := range limits.Policies() {
			slog.Info("Rate limit policy active", "policy", p.Name, "max_requests", p.MaxRequests, "window", p.Window)
		}
		handlerOpts = append(handlerOpts, api.WithRateLimits(limits, limitStore, cfg.RateLimit.Store))
	} else {
		slog.Warn("Rate limiting disabled")
	}

	handlers := api.NewHandlers(weddingService, handlerOpts...)

	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Starting server", "addr", server.Addr, "version", ver.Version)

		var err error
		if cfg.Server.TLSEnabled {
			slog.Info("Starting HTTPS server with TLS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server")
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

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

// initializeLimitStore builds the window store named by the rate limit config,
// instrumented when metrics are enabled.
func initializeLimitStore(ctx context.Context, cfg *models.Config) (ratelimit.Store, error) {
	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case models.RateLimitStoreMemory, "":
		store = ratelimit.NewMemoryStore()
	case models.RateLimitStoreRedis:
		rs, err := ratelimit.NewRedisStore(ctx, ratelimit.RedisStoreConfig{
			Addr:      cfg.RateLimit.Redis.Addr,
			Password:  cfg.RateLimit.Redis.Password,
			DB:        cfg.RateLimit.Redis.DB,
			KeyPrefix: cfg.RateLimit.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		store = rs
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.RateLimit.Store)
	}

	if !cfg.Metrics.Enabled {
		return store, nil
	}
	instrumented, err := observability.NewInstrumentedLimitStore(store, cfg.RateLimit.Store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return instrumented, nil
}
