// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Structured Logging
//
// The Logger wraps logrus with a JSON formatter:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("tenant_id", tenantID).Info("bootstrapped tenant")
//
// Request handlers use FromContext, which adds the request, user, tenant and
// trace ids stored on the context:
//
//	observability.FromContext(r.Context()).WithError(err).Error("write failed")
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//	metrics.RecordResourceOperation("property", "create", "success")
//
// Metrics methods are safe to call on a nil *Metrics.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version).
//		AddStore("store", store).
//		AddRedis("redis", redisClient)
//	observability.RegisterHealthRoutes(mux, checker) // /healthz, /readyz
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:  true,
//		Endpoint: "otel-collector:4317",
//	}, logger)
//	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
//		return observability.ShutdownOTel(ctx, providers, logger)
//	})
package observability
