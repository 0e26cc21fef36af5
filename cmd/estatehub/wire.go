package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/config"
	"github.com/platinummonkey/estatehub/pkg/middleware"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/platinummonkey/estatehub/pkg/storage/sqlstore"
	"github.com/platinummonkey/estatehub/pkg/users"
)

// openStore opens the configured backend. The SQL store is returned as well
// when one is in use so callers can reach its connection pool.
func openStore(ctx context.Context, cfg storage.Config, logger *observability.Logger, metrics *observability.Metrics) (storage.Store, *sqlstore.Store, error) {
	if cfg.Type == "memory" {
		logger.Warn("using in-memory storage; data is lost on restart")
		return storage.NewMemoryStore(), nil, nil
	}

	dialect, err := sqlstore.ParseDialect(cfg.Type)
	if err != nil {
		return nil, nil, err
	}
	conn := sqlstore.ConnectionConfig{
		Dialect:     dialect,
		PrimaryURL:  cfg.PostgresURL,
		ReplicaURLs: cfg.PostgresReplicaURLs,
		MaxConns:    cfg.PostgresMaxConns,
		MinConns:    cfg.PostgresMinConns,
		Timeout:     cfg.PostgresTimeout,
	}
	if dialect == sqlstore.DialectSQLite {
		conn = sqlstore.ConnectionConfig{Dialect: dialect, PrimaryURL: cfg.SQLitePath, MaxConns: 1}
	}

	store, err := sqlstore.Open(ctx, conn, logger, metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.Type, err)
	}
	return store, store, nil
}

// newLimiters builds the per-tenant and per-IP rate limit middleware. The
// in-memory limiters are returned so their idle buckets can be pruned.
func newLimiters(cfg config.RateLimitConfig, redisClient *redis.Client, metrics *observability.Metrics) (tenant, public *middleware.RateLimitMiddleware, local []*middleware.RateLimiter, err error) {
	if !cfg.Enabled {
		return nil, nil, nil, nil
	}

	tenantCfg := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RequestsPerWindow,
		WindowDuration:    cfg.Window,
		BurstSize:         cfg.Burst,
	}
	publicCfg := middleware.AnonymousRateLimitConfig()
	if cfg.AnonymousRequests > 0 {
		publicCfg.RequestsPerWindow = cfg.AnonymousRequests
		publicCfg.WindowDuration = cfg.Window
	}

	var tenantLimiter, publicLimiter middleware.Limiter
	switch cfg.Backend {
	case "redis":
		if redisClient == nil {
			return nil, nil, nil, errors.New("redis rate limiting requires a redis client")
		}
		tenantLimiter = middleware.NewDistributedRateLimiter(redisClient, tenantCfg, "ratelimit:tenant")
		publicLimiter = middleware.NewDistributedRateLimiter(redisClient, publicCfg, "ratelimit:ip")
	default:
		t := middleware.NewRateLimiter(tenantCfg)
		p := middleware.NewRateLimiter(publicCfg)
		local = append(local, t, p)
		tenantLimiter, publicLimiter = t, p
	}

	tenant = middleware.NewRateLimitMiddleware(tenantLimiter, metrics, cfg.FailOpen)
	public = middleware.NewRateLimitMiddleware(publicLimiter, metrics, cfg.FailOpen)
	return tenant, public, local, nil
}

// bootstrapAdmin creates the configured administrator. An existing account
// with the same email is left untouched.
func bootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig, svc *users.Service, logger *observability.Logger) error {
	if !cfg.Enabled() {
		return nil
	}
	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}

	_, err := svc.Bootstrap(ctx, cfg.TenantID, users.CreateUserRequest{
		Email:    cfg.Email,
		Name:     name,
		Role:     rbac.RoleTenantAdmin,
		Password: cfg.Password,
	})
	if apperrors.IsConflict(err) {
		logger.WithField("tenant_id", cfg.TenantID).Info("bootstrap administrator already exists")
		return nil
	}
	return err
}

// refreshRecordGauge publishes the number of stored records per kind
func refreshRecordGauge(ctx context.Context, store storage.Store, metrics *observability.Metrics) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	for kind, n := range stats {
		metrics.SetRecords(string(kind), n)
	}
	return nil
}

// scheduleJobs registers the periodic maintenance jobs on c
func scheduleJobs(ctx context.Context, c *cron.Cron, store storage.Store, sqlStore *sqlstore.Store, limiters []*middleware.RateLimiter, metrics *observability.Metrics, logger *observability.Logger) error {
	jobs := map[string]struct {
		spec string
		fn   func()
	}{
		"records-gauge": {"@every 1m", func() {
			if err := refreshRecordGauge(ctx, store, metrics); err != nil {
				logger.WithError(err).Warn("failed to refresh records gauge")
			}
		}},
		"rate-limit-cleanup": {"@every 5m", func() {
			removed := 0
			for _, l := range limiters {
				removed += l.Cleanup()
			}
			if removed > 0 {
				logger.Debugf("pruned %d idle rate limit buckets", removed)
			}
		}},
	}
	if sqlStore != nil {
		jobs["db-stats"] = struct {
			spec string
			fn   func()
		}{"@every 15s", func() {
			metrics.UpdateDBStats(sqlStore.Connections().Stats())
		}}
	}

	for name, job := range jobs {
		if _, err := c.AddFunc(job.spec, observability.Job(logger, name, job.fn)); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", name, err)
		}
	}
	return nil
}
