// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here. This keeps
// the values stored on a request context discoverable in one place.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/estatehub/pkg/contextkeys"
//	ctx = contextkeys.WithActor(ctx, actor)
//	actor, ok := ctx.Value(contextkeys.ActorKey).(auth.Actor)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains auth.Actor
	// Set by: AuthMiddleware.Handler (pkg/middleware/auth.go)
	// Required by: every tenant-scoped service operation
	// Type: auth.Actor
	ActorKey Key = "actor"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail, error responses
	// Type: string
	RequestIDKey Key = "request_id"

	// TenantIDKey contains the tenant ID string of the authenticated actor
	// Set by: AuthMiddleware.Handler
	// Used by: Logger, rate limiter
	// Type: string
	TenantIDKey Key = "tenant_id"

	// UserIDKey contains user ID string
	// Set by: AuthMiddleware.Handler
	// Used by: Logger, audit trail
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// BypassRecordCacheKey marks a read that must skip the in-process record cache
	// Set by: users.Service.Resolve
	// Used by: cache.Store.FetchRecord
	// Type: bool
	BypassRecordCacheKey Key = "bypass_record_cache"
)

// WithActor adds the authenticated actor to the context
func WithActor(ctx context.Context, actor interface{}) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithTenantID adds tenant ID to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithoutRecordCache asks caching stores to read the record from the backing store
func WithoutRecordCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, BypassRecordCacheKey, true)
}

// BypassesRecordCache reports whether WithoutRecordCache was applied to ctx
func BypassesRecordCache(ctx context.Context) bool {
	bypass, _ := ctx.Value(BypassRecordCacheKey).(bool)
	return bypass
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetTenantID retrieves tenant ID from context
func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(TenantIDKey).(string); ok {
		return tenantID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
