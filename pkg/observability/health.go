package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger is a dependency that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

type dependency struct {
	name string
	// critical dependencies make the service unhealthy, others only degraded
	critical bool
	check    func(ctx context.Context) DependencyStatus
}

// HealthChecker aggregates dependency checks for the readiness endpoint
type HealthChecker struct {
	version string
	mu      sync.RWMutex
	deps    []dependency
}

// NewHealthChecker creates a health checker with no dependencies
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{version: version}
}

func (h *HealthChecker) add(d dependency) *HealthChecker {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deps = append(h.deps, d)
	return h
}

// AddStore registers the record store. A failing store makes the service unhealthy.
func (h *HealthChecker) AddStore(name string, store Pinger) *HealthChecker {
	return h.add(dependency{name: name, critical: true, check: func(ctx context.Context) DependencyStatus {
		start := time.Now()
		err := store.Ping(ctx)
		return finish(start, err, "")
	}})
}

// AddDatabase registers a SQL database. An exhausted pool reports degraded.
func (h *HealthChecker) AddDatabase(name string, db *sql.DB) *HealthChecker {
	return h.add(dependency{name: name, critical: true, check: func(ctx context.Context) DependencyStatus {
		start := time.Now()
		if err := db.PingContext(ctx); err != nil {
			return finish(start, err, "")
		}
		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			return finish(start, err, "query failed: ")
		}
		status := finish(start, nil, "")
		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			status.Status = StatusDegraded
			status.Message = "connection pool exhausted"
		}
		return status
	}})
}

// AddRedis registers Redis. Redis backs caching and rate limiting, so an
// outage degrades the service without failing readiness.
func (h *HealthChecker) AddRedis(name string, client *redis.Client) *HealthChecker {
	return h.add(dependency{name: name, critical: false, check: func(ctx context.Context) DependencyStatus {
		start := time.Now()
		return finish(start, client.Ping(ctx).Err(), "")
	}})
}

func finish(start time.Time, err error, prefix string) DependencyStatus {
	status := DependencyStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now(),
	}
	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = prefix + err.Error()
	}
	return status
}

// Check runs every dependency check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	deps := append([]dependency(nil), h.deps...)
	h.mu.RUnlock()

	sort.Slice(deps, func(i, j int) bool { return deps[i].name < deps[j].name })

	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(deps)),
	}
	for _, d := range deps {
		ds := d.check(ctx)
		status.Dependencies[d.name] = ds

		switch {
		case ds.Status == StatusHealthy:
		case d.critical && ds.Status == StatusUnhealthy:
			status.Status = StatusUnhealthy
		case status.Status != StatusUnhealthy:
			status.Status = StatusDegraded
		}
	}
	return status
}

// Liveness reports that the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
	})
}

// Readiness checks dependencies and answers 503 when a critical one is down
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// RegisterHealthRoutes registers the liveness and readiness endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
}
