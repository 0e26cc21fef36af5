package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/contextkeys"
	"github.com/platinummonkey/estatehub/pkg/httputil"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/tenant"
)

const (
	// APIKeyHeader carries an integration key
	APIKeyHeader = "X-API-Key"
	// TenantHeader names the tenant an integration key belongs to
	TenantHeader = "X-Tenant-ID"
)

// ActorResolver reloads the actor behind a session so that deactivation and
// role changes take effect before the token expires
type ActorResolver interface {
	Resolve(ctx context.Context, actor auth.Actor) (auth.Actor, error)
}

// KeyAuthenticator verifies integration API keys
type KeyAuthenticator interface {
	AuthenticateKey(ctx context.Context, tenantID, key string) (auth.Actor, error)
}

// AuthMiddleware authenticates requests with a session token or an
// integration key and stores the actor on the request context
type AuthMiddleware struct {
	sessions *auth.SessionCodec
	resolver ActorResolver
	keys     KeyAuthenticator
}

// NewAuthMiddleware creates a new authentication middleware. resolver and
// keys are optional.
func NewAuthMiddleware(sessions *auth.SessionCodec, resolver ActorResolver, keys KeyAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		resolver: resolver,
		keys:     keys,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.authenticate(r)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Debug("authentication failed")
			httputil.WriteAppError(w, r, err)
			return
		}
		if !actor.IsActive {
			httputil.WriteUnauthorized(w, "account is inactive")
			return
		}

		ctx := tenant.WithActor(r.Context(), actor)
		ctx = contextkeys.WithUserID(ctx, actor.ID)
		ctx = contextkeys.WithTenantID(ctx, actor.TenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (auth.Actor, error) {
	ctx := r.Context()

	if key := r.Header.Get(APIKeyHeader); key != "" {
		return m.authenticateKey(ctx, r.Header.Get(TenantHeader), key)
	}

	// Format: "Bearer <token>"
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return auth.Actor{}, apperrors.Authentication("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return auth.Actor{}, apperrors.Authentication("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])

	if strings.HasPrefix(token, auth.APIKeyPrefix) {
		return m.authenticateKey(ctx, r.Header.Get(TenantHeader), token)
	}

	actor, err := m.sessions.Verify(token)
	if err != nil {
		return auth.Actor{}, err
	}
	if m.resolver != nil {
		return m.resolver.Resolve(ctx, actor)
	}
	return actor, nil
}

func (m *AuthMiddleware) authenticateKey(ctx context.Context, tenantID, key string) (auth.Actor, error) {
	if m.keys == nil {
		return auth.Actor{}, apperrors.Authentication("api keys are not accepted")
	}
	if tenantID == "" {
		return auth.Actor{}, apperrors.Authentication(TenantHeader + " header is required with an api key")
	}
	return m.keys.AuthenticateKey(ctx, tenantID, key)
}

// RequireRole creates middleware that admits actors at or above min
func RequireRole(min rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := httputil.RequireActor(w, r)
			if !ok {
				return
			}
			if !actor.HasRole(min) {
				httputil.WriteForbidden(w, "requires role "+string(min))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
