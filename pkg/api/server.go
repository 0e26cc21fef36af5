package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/estatehub/pkg/analytics"
	"github.com/platinummonkey/estatehub/pkg/audit"
	"github.com/platinummonkey/estatehub/pkg/httputil"
	"github.com/platinummonkey/estatehub/pkg/inquiries"
	"github.com/platinummonkey/estatehub/pkg/integrations"
	"github.com/platinummonkey/estatehub/pkg/middleware"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/properties"
	"github.com/platinummonkey/estatehub/pkg/rbac"
	"github.com/platinummonkey/estatehub/pkg/users"
)

// APIPrefix is the path prefix of every versioned route
const APIPrefix = "/api/v1"

// Services are the domain services exposed over HTTP
type Services struct {
	Users        *users.Service
	Properties   *properties.Service
	Inquiries    *inquiries.Service
	Integrations *integrations.Service
	Analytics    *analytics.Service
}

// Options configures the cross-cutting behaviour of the server
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Auth authenticates every route except login. Required.
	Auth *middleware.AuthMiddleware
	// TenantLimiter throttles authenticated requests per tenant; nil disables it
	TenantLimiter *middleware.RateLimitMiddleware
	// PublicLimiter throttles unauthenticated requests per client IP; nil disables it
	PublicLimiter *middleware.RateLimitMiddleware
	// AuditLog serves the tenant audit trail to managers; nil hides the route
	AuditLog audit.Searcher

	CORSOrigins  []string
	MaxBodyBytes int64
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	opts    Options
}

// NewServer creates a new API server
func NewServer(services Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
	}
	s.setupRoutes(services)

	s.handler = httputil.Chain(
		httputil.RecoveryMiddleware,
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(opts.Logger),
		httputil.CORSMiddleware(opts.CORSOrigins),
		httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
		httputil.ContentTypeMiddleware,
	)(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(services Services) {
	// Route templates label the request metrics, so the middleware runs inside the router.
	s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteNotFound(w, "route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteErrorCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	api := s.router.PathPrefix(APIPrefix).Subrouter()

	// Public routes
	public := api.NewRoute().Subrouter()
	if s.opts.PublicLimiter != nil {
		public.Use(s.opts.PublicLimiter.Handler)
	}
	userHandlers := users.NewHandlers(services.Users)
	userHandlers.RegisterPublicRoutes(public)

	// Authenticated routes
	authed := api.NewRoute().Subrouter()
	authed.Use(s.opts.Auth.Handler)
	if s.opts.TenantLimiter != nil {
		authed.Use(s.opts.TenantLimiter.Handler)
	}

	// Manager routes
	managers := authed.NewRoute().Subrouter()
	managers.Use(middleware.RequireRole(rbac.RoleManager))
	if services.Analytics != nil {
		analytics.NewHandlers(services.Analytics).RegisterRoutes(managers)
	}
	if s.opts.AuditLog != nil {
		audit.NewHandlers(s.opts.AuditLog).RegisterRoutes(managers)
	}

	userHandlers.RegisterRoutes(authed)
	if services.Properties != nil {
		properties.NewHandlers(services.Properties).RegisterRoutes(authed)
	}
	if services.Inquiries != nil {
		inquiries.NewHandlers(services.Inquiries).RegisterRoutes(authed)
	}
	if services.Integrations != nil {
		integrations.NewHandlers(services.Integrations).RegisterRoutes(authed)
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Handler returns the server wrapped in OpenTelemetry HTTP instrumentation
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s, "estatehub-api")
}

// NewHealthMux returns the handler served on the health port: liveness and
// readiness checks plus the Prometheus scrape endpoint when registry is set.
func NewHealthMux(checker *observability.HealthChecker, registry *prometheus.Registry) *http.ServeMux {
	serveMux := http.NewServeMux()
	observability.RegisterHealthRoutes(serveMux, checker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(serveMux, registry)
	}
	return serveMux
}
