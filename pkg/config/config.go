package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/estatehub/pkg/auth"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

const (
	// EnvPrefix prefixes every environment variable read by LoadConfig
	EnvPrefix = "ESTATEHUB_"
	// ConfigFileEnv names the optional YAML overlay file
	ConfigFileEnv = EnvPrefix + "CONFIG_FILE"
	// DotEnvFile is loaded, when present, before the environment is read
	DotEnvFile = ".env"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	// Auth configuration
	Auth AuthConfig `yaml:"auth"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`

	// RateLimit configuration
	RateLimit RateLimitConfig `yaml:"rateLimit"`

	// Bootstrap creates the first administrator on startup when set
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
	CORSOrigins     []string      `yaml:"corsOrigins"`

	// Health/metrics server (separate port for k8s health checks)
	HealthPort string `yaml:"healthPort"`
}

// Addr returns the API listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// HealthAddr returns the health and metrics listen address
func (s ServerConfig) HealthAddr() string {
	return s.Host + ":" + s.HealthPort
}

// AuthConfig holds credential and session settings
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwtSecret"`
	Issuer     string        `yaml:"issuer"`
	SessionTTL time.Duration `yaml:"sessionTtl"`
	BcryptCost int           `yaml:"bcryptCost"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"logLevel"`

	// Metrics
	MetricsEnabled bool `yaml:"metricsEnabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otelEnabled"`
	OTelEndpoint       string  `yaml:"otelEndpoint"`
	OTelServiceName    string  `yaml:"otelServiceName"`
	OTelServiceVersion string  `yaml:"otelServiceVersion"`
	OTelInsecure       bool    `yaml:"otelInsecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otelSampleRatio"`

	// AuditLogFile receives audit events as JSON lines; empty writes them to stdout
	AuditLogFile string `yaml:"auditLogFile"`
	// AuditMemoryEvents is how many recent events the audit endpoint can search
	AuditMemoryEvents int `yaml:"auditMemoryEvents"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel returns the OpenTelemetry settings in the form InitOTel takes
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// RateLimitConfig holds request throttling settings
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend is "memory" for a per-process token bucket or "redis" for a
	// fixed window shared by every instance
	Backend           string        `yaml:"backend"`
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
	Burst             int           `yaml:"burst"`
	// AnonymousRequests limits unauthenticated calls per client IP
	AnonymousRequests int  `yaml:"anonymousRequests"`
	FailOpen          bool `yaml:"failOpen"`
}

// BootstrapConfig describes the administrator created on an empty tenant
type BootstrapConfig struct {
	TenantID string `yaml:"tenantId"`
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// Enabled reports whether any bootstrap setting was provided
func (b BootstrapConfig) Enabled() bool {
	return b.TenantID != "" || b.Email != "" || b.Password != ""
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Auth: AuthConfig{
			Issuer:     auth.DefaultIssuer,
			SessionTTL: auth.DefaultSessionTTL,
			BcryptCost: 12,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    observability.DefaultServiceName,
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
			AuditMemoryEvents:  10000,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Backend:           "memory",
			RequestsPerWindow: 600,
			Window:            time.Minute,
			Burst:             60,
			AnonymousRequests: 30,
			FailOpen:          true,
		},
	}
}

// LoadConfig loads configuration. Precedence from lowest to highest is the
// built-in defaults, the YAML file named by ESTATEHUB_CONFIG_FILE, then the
// environment. A .env file in the working directory is merged into the
// environment first without overriding variables that are already set.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	cfg := Default()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Server = loadServerConfig(cfg.Server)
	cfg.Storage = loadStorageConfig(cfg.Storage)
	cfg.Auth = loadAuthConfig(cfg.Auth)
	cfg.Observability = loadObservabilityConfig(cfg.Observability)
	cfg.RateLimit = loadRateLimitConfig(cfg.RateLimit)
	cfg.Bootstrap = loadBootstrapConfig(cfg.Bootstrap)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig(base ServerConfig) ServerConfig {
	return ServerConfig{
		Host:            getEnv(EnvPrefix+"HOST", base.Host),
		Port:            getEnv(EnvPrefix+"PORT", base.Port),
		ReadTimeout:     getEnvDuration(EnvPrefix+"READ_TIMEOUT", base.ReadTimeout),
		WriteTimeout:    getEnvDuration(EnvPrefix+"WRITE_TIMEOUT", base.WriteTimeout),
		IdleTimeout:     getEnvDuration(EnvPrefix+"IDLE_TIMEOUT", base.IdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvPrefix+"SHUTDOWN_TIMEOUT", base.ShutdownTimeout),
		MaxBodyBytes:    getEnvInt64(EnvPrefix+"MAX_BODY_BYTES", base.MaxBodyBytes),
		CORSOrigins:     getEnvList(EnvPrefix+"CORS_ORIGINS", base.CORSOrigins),
		HealthPort:      getEnv(EnvPrefix+"HEALTH_PORT", base.HealthPort),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig(cfg storage.Config) storage.Config {
	cfg.Type = strings.ToLower(getEnv(EnvPrefix+"STORAGE_TYPE", cfg.Type))

	// PostgreSQL config
	cfg.PostgresURL = getEnv(EnvPrefix+"POSTGRES_URL", cfg.PostgresURL)
	cfg.PostgresReplicaURLs = getEnvList(EnvPrefix+"POSTGRES_REPLICA_URLS", cfg.PostgresReplicaURLs)
	if maxConns := getEnvInt(EnvPrefix+"POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt(EnvPrefix+"POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration(EnvPrefix+"POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	// SQLite config
	cfg.SQLitePath = getEnv(EnvPrefix+"SQLITE_PATH", cfg.SQLitePath)

	// Redis config
	cfg.RedisURL = getEnv(EnvPrefix+"REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv(EnvPrefix+"REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt(EnvPrefix+"REDIS_DB", cfg.RedisDB)
	if maxRetries := getEnvInt(EnvPrefix+"REDIS_MAX_RETRIES", 0); maxRetries > 0 {
		cfg.RedisMaxRetries = maxRetries
	}
	if poolSize := getEnvInt(EnvPrefix+"REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.RedisPoolSize = poolSize
	}

	// Cache config
	cfg.CacheEnabled = getEnvBool(EnvPrefix+"CACHE_ENABLED", cfg.CacheEnabled)
	cfg.CollectionTTL = getEnvDuration(EnvPrefix+"CACHE_TTL", cfg.CollectionTTL)
	cfg.L1CacheEntries = getEnvInt(EnvPrefix+"L1_CACHE_ENTRIES", cfg.L1CacheEntries)

	return cfg
}

// loadAuthConfig loads credential and session configuration from environment
func loadAuthConfig(base AuthConfig) AuthConfig {
	return AuthConfig{
		JWTSecret:  getEnv(EnvPrefix+"JWT_SECRET", base.JWTSecret),
		Issuer:     getEnv(EnvPrefix+"JWT_ISSUER", base.Issuer),
		SessionTTL: getEnvDuration(EnvPrefix+"SESSION_TTL", base.SessionTTL),
		BcryptCost: getEnvInt(EnvPrefix+"BCRYPT_COST", base.BcryptCost),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig(base ObservabilityConfig) ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           getEnv(EnvPrefix+"LOG_LEVEL", base.LogLevel),
		MetricsEnabled:     getEnvBool(EnvPrefix+"METRICS_ENABLED", base.MetricsEnabled),
		OTelEnabled:        getEnvBool(EnvPrefix+"OTEL_ENABLED", base.OTelEnabled),
		OTelEndpoint:       getEnv(EnvPrefix+"OTEL_ENDPOINT", base.OTelEndpoint),
		OTelServiceName:    getEnv(EnvPrefix+"OTEL_SERVICE_NAME", base.OTelServiceName),
		OTelServiceVersion: getEnv(EnvPrefix+"OTEL_SERVICE_VERSION", base.OTelServiceVersion),
		OTelInsecure:       getEnvBool(EnvPrefix+"OTEL_INSECURE", base.OTelInsecure),
		OTelSampleRatio:    getEnvFloat(EnvPrefix+"OTEL_SAMPLE_RATIO", base.OTelSampleRatio),
		AuditLogFile:       getEnv(EnvPrefix+"AUDIT_LOG_FILE", base.AuditLogFile),
		AuditMemoryEvents:  getEnvInt(EnvPrefix+"AUDIT_MEMORY_EVENTS", base.AuditMemoryEvents),
	}
}

// loadRateLimitConfig loads throttling configuration from environment
func loadRateLimitConfig(base RateLimitConfig) RateLimitConfig {
	return RateLimitConfig{
		Enabled:           getEnvBool(EnvPrefix+"RATE_LIMIT_ENABLED", base.Enabled),
		Backend:           strings.ToLower(getEnv(EnvPrefix+"RATE_LIMIT_BACKEND", base.Backend)),
		RequestsPerWindow: getEnvInt(EnvPrefix+"RATE_LIMIT_REQUESTS", base.RequestsPerWindow),
		Window:            getEnvDuration(EnvPrefix+"RATE_LIMIT_WINDOW", base.Window),
		Burst:             getEnvInt(EnvPrefix+"RATE_LIMIT_BURST", base.Burst),
		AnonymousRequests: getEnvInt(EnvPrefix+"RATE_LIMIT_ANONYMOUS_REQUESTS", base.AnonymousRequests),
		FailOpen:          getEnvBool(EnvPrefix+"RATE_LIMIT_FAIL_OPEN", base.FailOpen),
	}
}

// loadBootstrapConfig loads the first administrator from environment
func loadBootstrapConfig(base BootstrapConfig) BootstrapConfig {
	return BootstrapConfig{
		TenantID: getEnv(EnvPrefix+"BOOTSTRAP_TENANT", base.TenantID),
		Email:    getEnv(EnvPrefix+"BOOTSTRAP_EMAIL", base.Email),
		Name:     getEnv(EnvPrefix+"BOOTSTRAP_NAME", base.Name),
		Password: getEnv(EnvPrefix+"BOOTSTRAP_PASSWORD", base.Password),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, postgres, or sqlite)", c.Storage.Type)
	}

	// Validate auth config
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 bytes")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	// Validate rate limit config
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "memory":
		case "redis":
			if c.Storage.RedisURL == "" {
				return fmt.Errorf("redis URL is required for the redis rate limit backend")
			}
		default:
			return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
		}
		if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit requests and window must be positive")
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	// Validate bootstrap config
	if c.Bootstrap.Enabled() {
		if c.Bootstrap.TenantID == "" || c.Bootstrap.Email == "" || c.Bootstrap.Password == "" {
			return fmt.Errorf("bootstrap requires tenant, email and password")
		}
		if len(c.Bootstrap.Password) < auth.MinPasswordLength {
			return fmt.Errorf("bootstrap password must be at least %d characters", auth.MinPasswordLength)
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default.
// Empty entries are dropped.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
