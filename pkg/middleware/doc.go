// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: session token or integration key authentication
//
//	authMW := middleware.NewAuthMiddleware(sessions, userService, integrationService)
//	router.Use(authMW.Handler)
//	// "Authorization: Bearer <jwt>" or "X-API-Key: ehk_..." with "X-Tenant-ID"
//
// The actor is reloaded through the ActorResolver on every request, so a
// deactivated user is locked out even while their token is still valid.
//
// RequireRole: hierarchical role gate
//
//	router.Handle("/analytics/summary", middleware.RequireRole(rbac.RoleManager)(h))
//
// RateLimitMiddleware: per-tenant limits, per-IP before authentication
//
//	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
//	// or middleware.NewDistributedRateLimiter(redisClient, cfg, "ratelimit")
//	router.Use(middleware.NewRateLimitMiddleware(limiter, metrics, true).Handler)
//
// # Rate Limiting
//
// Tenant (authenticated): 600 req/min, 60 burst
// Anonymous (per IP): 30 req/min, 10 burst
//
// The in-memory limiter is a token bucket. The Redis limiter is a fixed
// window and ignores BurstSize.
package middleware
