package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/estatehub/pkg/api"
	"github.com/platinummonkey/estatehub/pkg/audit"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/config"
	"github.com/platinummonkey/estatehub/pkg/middleware"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage/cache"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).WithField("version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("estatehub exited with error")
		os.Exit(1)
	}
	logger.Info("estatehub stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	// Initialize OpenTelemetry
	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	// Initialize metrics
	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	health := observability.NewHealthChecker(version)

	// Redis backs the collection cache and the shared rate limiter
	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" && (cfg.Storage.CacheEnabled || cfg.RateLimit.Backend == "redis") {
		redisClient, err = cache.NewRedisClient(cfg.Storage)
		if err != nil {
			return err
		}
		health.AddRedis("redis", redisClient)
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	// Initialize storage
	store, sqlStore, err := openStore(ctx, cfg.Storage, logger, metrics)
	if err != nil {
		return err
	}
	shutdown.RegisterShutdownFunc("storage", func(context.Context) error {
		return store.Close()
	})
	if sqlStore != nil {
		health.AddDatabase("database", sqlStore.Connections().Primary())
		sqlStore.Connections().StartHealthCheckRoutine(ctx, 30*time.Second)
	}
	if cfg.Storage.CacheEnabled {
		store = cache.New(store, redisClient, cache.Options{
			L1Entries:     cfg.Storage.L1CacheEntries,
			CollectionTTL: cfg.Storage.CollectionTTL,
		}, logger, metrics)
	}
	health.AddStore("storage", store)

	// Audit trail: durable JSON lines plus a searchable ring of recent events
	auditSink := audit.NewStreamLogger(os.Stdout)
	if cfg.Observability.AuditLogFile != "" {
		auditSink, err = audit.NewFileLogger(cfg.Observability.AuditLogFile)
		if err != nil {
			return err
		}
	}
	recentAudit := audit.NewMemoryLogger(cfg.Observability.AuditMemoryEvents)
	auditLog := audit.NewMultiLogger(auditSink, recentAudit)
	shutdown.RegisterShutdownFunc("audit", func(context.Context) error {
		return auditLog.Close()
	})

	// Domain services
	sessions, err := auth.NewSessionCodec(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	services := api.NewServices(store, auth.NewPasswordHasher(cfg.Auth.BcryptCost), sessions, resource.Deps{
		Logger:  logger,
		Metrics: metrics,
		Audit:   auditLog,
	})
	if err := bootstrapAdmin(ctx, cfg.Bootstrap, services.Users, logger); err != nil {
		return fmt.Errorf("failed to bootstrap administrator: %w", err)
	}

	tenantLimiter, publicLimiter, localLimiters, err := newLimiters(cfg.RateLimit, redisClient, metrics)
	if err != nil {
		return err
	}

	// Scheduled maintenance
	scheduler := cron.New()
	if err := scheduleJobs(ctx, scheduler, store, sqlStore, localLimiters, metrics, logger); err != nil {
		return err
	}
	scheduler.Start()
	shutdown.RegisterShutdownFunc("scheduler", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	// HTTP servers
	server := api.NewServer(services, api.Options{
		Logger:        logger,
		Metrics:       metrics,
		Auth:          middleware.NewAuthMiddleware(sessions, services.Users, services.Integrations),
		TenantLimiter: tenantLimiter,
		PublicLimiter: publicLimiter,
		AuditLog:      recentAudit,
		CORSOrigins:   cfg.Server.CORSOrigins,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
	})
	apiServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:              cfg.Server.HealthAddr(),
		Handler:           api.NewHealthMux(health, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	shutdown.AddServer(apiServer)
	shutdown.AddServer(healthServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		return serve(healthServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s failed: %w", srv.Addr, err)
	}
	return nil
}
