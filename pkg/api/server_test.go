package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/estatehub/pkg/audit"
	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/httputil"
	"github.com/platinummonkey/estatehub/pkg/middleware"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/resource"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/platinummonkey/estatehub/pkg/users"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	server   *Server
	services Services
	metrics  *observability.Metrics
	audit    *audit.MemoryLogger
}

func newTestEnv(t *testing.T, configure func(*Options)) *testEnv {
	t.Helper()

	sessions, err := auth.NewSessionCodec(testSecret, "estatehub-test", time.Hour)
	require.NoError(t, err)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	auditLog := audit.NewMemoryLogger(100)

	services := NewServices(storage.NewMemoryStore(), auth.NewPasswordHasher(bcrypt.MinCost), sessions,
		resource.Deps{Metrics: metrics, Audit: auditLog})

	opts := Options{
		Metrics:     metrics,
		Auth:        middleware.NewAuthMiddleware(sessions, services.Users, services.Integrations),
		CORSOrigins: []string{"https://app.example.com"},
		AuditLog:    auditLog,
	}
	if configure != nil {
		configure(&opts)
	}

	env := &testEnv{
		server:   NewServer(services, opts),
		services: services,
		metrics:  metrics,
		audit:    auditLog,
	}
	env.seed(t, "admin@acme.example.com", rbac.RoleTenantAdmin)
	env.seed(t, "agent@acme.example.com", rbac.RoleAgent)
	return env
}

func (e *testEnv) seed(t *testing.T, email string, role rbac.Role) {
	t.Helper()
	_, err := e.services.Users.Bootstrap(context.Background(), "acme", users.CreateUserRequest{
		Email:    email,
		Name:     string(role),
		Role:     role,
		Password: "correct-horse",
	})
	require.NoError(t, err)
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, r)
	return w
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/v1/auth/login",
		`{"tenant_id":"acme","email":"`+email+`","password":"correct-horse"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data auth.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)
	return env.Data.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestServer_LoginAndAccess(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := e.login(t, "admin@acme.example.com")
	w = e.do(http.MethodGet, "/api/v1/auth/me", "", bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"role":"TENANT_ADMIN"`)
	assert.NotEmpty(t, w.Header().Get(httputil.RequestIDHeader))

	w = e.do(http.MethodGet, "/api/v1/auth/me", "", bearer(token+"x"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/v1/auth/login",
		`{"tenant_id":"acme","email":"admin@acme.example.com","password":"wrong-horse"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_ResourceRoutes(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.login(t, "agent@acme.example.com")

	w := e.do(http.MethodPost, "/api/v1/properties",
		`{"title":"Cottage","type":"HOUSE","listingType":"SALE","price":250000,"address":"1 Main St","city":"Springfield"}`,
		bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = e.do(http.MethodPost, "/api/v1/inquiries",
		`{"propertyId":"`+created.Data.ID+`","name":"Pat","email":"pat@example.com","subject":"Viewing","message":"Is Saturday possible?"}`,
		bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/api/v1/inquiries?search=saturday", "", bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = e.do(http.MethodPost, "/api/v1/properties", `{"title":"x"}`,
		map[string]string{"Authorization": "Bearer " + token, "Content-Type": "text/plain"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_AnalyticsRequiresManager(t *testing.T) {
	e := newTestEnv(t, nil)

	w := e.do(http.MethodGet, "/api/v1/analytics/summary", "", bearer(e.login(t, "agent@acme.example.com")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/api/v1/analytics/summary", "", bearer(e.login(t, "admin@acme.example.com")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"tenantId":"acme"`)
}

func TestServer_AuditTrail(t *testing.T) {
	e := newTestEnv(t, nil)
	adminToken := e.login(t, "admin@acme.example.com")

	w := e.do(http.MethodPost, "/api/v1/properties",
		`{"title":"Loft","type":"APARTMENT","listingType":"RENT","price":1800,"address":"9 Dock Rd","city":"Springfield"}`,
		bearer(adminToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(http.MethodGet, "/api/v1/audit/events?kind=properties", "", bearer(e.login(t, "agent@acme.example.com")))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodGet, "/api/v1/audit/events?kind=properties", "", bearer(adminToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), `"tenant_id":"acme"`)

	w = e.do(http.MethodGet, "/api/v1/audit/events?limit=5000", "", bearer(adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_IntegrationKey(t *testing.T) {
	e := newTestEnv(t, nil)
	token := e.login(t, "admin@acme.example.com")

	w := e.do(http.MethodPost, "/api/v1/integrations", `{"system":"mls","name":"Listings feed"}`, bearer(token))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			APIKey string `json:"apiKey"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.True(t, strings.HasPrefix(created.Data.APIKey, auth.APIKeyPrefix))

	keyHeaders := map[string]string{
		middleware.APIKeyHeader: created.Data.APIKey,
		middleware.TenantHeader: "acme",
	}
	w = e.do(http.MethodGet, "/api/v1/properties", "", keyHeaders)
	assert.Equal(t, http.StatusOK, w.Code, "integration keys can read")

	w = e.do(http.MethodPost, "/api/v1/properties", `{"title":"x"}`, keyHeaders)
	assert.Equal(t, http.StatusForbidden, w.Code, "integration keys act as viewers")

	keyHeaders[middleware.TenantHeader] = "other"
	w = e.do(http.MethodGet, "/api/v1/properties", "", keyHeaders)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_RateLimits(t *testing.T) {
	strict := &middleware.RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Hour}
	e := newTestEnv(t, func(o *Options) {
		o.PublicLimiter = middleware.NewRateLimitMiddleware(middleware.NewRateLimiter(strict), o.Metrics, false)
	})

	body := `{"tenant_id":"acme","email":"admin@acme.example.com","password":"nope-nope"}`
	for i := 0; i < 2; i++ {
		w := e.do(http.MethodPost, "/api/v1/auth/login", body, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := e.do(http.MethodPost, "/api/v1/auth/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.RateLimitedTotal.WithLabelValues("ip")))
}

func TestServer_TenantRateLimit(t *testing.T) {
	strict := &middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Hour}
	e := newTestEnv(t, func(o *Options) {
		o.TenantLimiter = middleware.NewRateLimitMiddleware(middleware.NewRateLimiter(strict), o.Metrics, false)
	})
	admin := bearer(e.login(t, "admin@acme.example.com"))
	agent := bearer(e.login(t, "agent@acme.example.com"))

	w := e.do(http.MethodGet, "/api/v1/properties", "", admin)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, "/api/v1/properties", "", agent)
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "the budget is shared by the tenant")
}

func TestServer_Plumbing(t *testing.T) {
	e := newTestEnv(t, nil)

	t.Run("unknown route", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/v1/nowhere", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})

	t.Run("cors preflight", func(t *testing.T) {
		w := e.do(http.MethodOptions, "/api/v1/properties", "", map[string]string{"Origin": "https://app.example.com"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

		w = e.do(http.MethodOptions, "/api/v1/properties", "", map[string]string{"Origin": "https://evil.example.com"})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("request id is echoed", func(t *testing.T) {
		id := "3f2b8c1e-9a4d-4e7f-8b6a-2c5d1e0f9a7b"
		w := e.do(http.MethodGet, "/api/v1/nowhere", "", map[string]string{httputil.RequestIDHeader: id})
		assert.Equal(t, id, w.Header().Get(httputil.RequestIDHeader))
	})

	t.Run("request metrics use route templates", func(t *testing.T) {
		token := e.login(t, "admin@acme.example.com")
		e.do(http.MethodGet, "/api/v1/users/missing", "", bearer(token))
		assert.Equal(t, 1.0, testutil.ToFloat64(
			e.metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/users/{id}", "404")))
	})

	t.Run("otel wrapper serves", func(t *testing.T) {
		w := httptest.NewRecorder()
		e.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nowhere", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNewHealthMux(t *testing.T) {
	registry := prometheus.NewRegistry()
	observability.NewMetrics(registry)
	serveMux := NewHealthMux(observability.NewHealthChecker("test").AddStore("store", storage.NewMemoryStore()), registry)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		serveMux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
