package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/estatehub/pkg/observability"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "ESTATEHUB_TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "ESTATEHUB_TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"TRUE", "TRUE", false, true},
		{"one", "1", false, true},
		{"false", "false", true, false},
		{"garbage is false", "yes", true, false},
		{"unset uses default", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ESTATEHUB_TEST_BOOL", tt.envValue)
			if got := getEnvBool("ESTATEHUB_TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvNumbers tests the numeric helpers
func TestGetEnvNumbers(t *testing.T) {
	t.Run("int", func(t *testing.T) {
		t.Setenv("ESTATEHUB_TEST_INT", "42")
		if got := getEnvInt("ESTATEHUB_TEST_INT", 1); got != 42 {
			t.Errorf("getEnvInt() = %d, want 42", got)
		}
		t.Setenv("ESTATEHUB_TEST_INT", "forty-two")
		if got := getEnvInt("ESTATEHUB_TEST_INT", 1); got != 1 {
			t.Errorf("getEnvInt() = %d, want default 1", got)
		}
	})

	t.Run("int64", func(t *testing.T) {
		t.Setenv("ESTATEHUB_TEST_INT64", "9223372036854775807")
		if got := getEnvInt64("ESTATEHUB_TEST_INT64", 0); got != 9223372036854775807 {
			t.Errorf("getEnvInt64() = %d", got)
		}
	})

	t.Run("float", func(t *testing.T) {
		t.Setenv("ESTATEHUB_TEST_FLOAT", "0.25")
		if got := getEnvFloat("ESTATEHUB_TEST_FLOAT", 1); got != 0.25 {
			t.Errorf("getEnvFloat() = %v, want 0.25", got)
		}
		t.Setenv("ESTATEHUB_TEST_FLOAT", "quarter")
		if got := getEnvFloat("ESTATEHUB_TEST_FLOAT", 1); got != 1 {
			t.Errorf("getEnvFloat() = %v, want default", got)
		}
	})

	t.Run("duration", func(t *testing.T) {
		t.Setenv("ESTATEHUB_TEST_DURATION", "90s")
		if got := getEnvDuration("ESTATEHUB_TEST_DURATION", time.Second); got != 90*time.Second {
			t.Errorf("getEnvDuration() = %v", got)
		}
		t.Setenv("ESTATEHUB_TEST_DURATION", "90")
		if got := getEnvDuration("ESTATEHUB_TEST_DURATION", time.Second); got != time.Second {
			t.Errorf("getEnvDuration() = %v, want default", got)
		}
	})
}

// TestGetEnvList tests comma separated values
func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"unset uses default", "", []string{"default"}},
		{"single", "a", []string{"a"}},
		{"trims and drops empties", " a, ,b ,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ESTATEHUB_TEST_LIST", tt.value)
			got := getEnvList("ESTATEHUB_TEST_LIST", []string{"default"})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("getEnvList() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestLoadConfig_Defaults checks the values used when only the secret is set
func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("ESTATEHUB_JWT_SECRET", testSecret)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Server.Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Server.HealthAddr() != "0.0.0.0:9090" {
		t.Errorf("Server.HealthAddr() = %s", cfg.Server.HealthAddr())
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("Storage.Type = %s, want memory", cfg.Storage.Type)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("Auth.SessionTTL = %v", cfg.Auth.SessionTTL)
	}
	if cfg.Observability.Level() != observability.InfoLevel {
		t.Errorf("Observability.Level() = %v", cfg.Observability.Level())
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Backend != "memory" {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Bootstrap.Enabled() {
		t.Error("Bootstrap should be disabled by default")
	}
}

// TestLoadConfig_Environment checks that every section reads its variables
func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	env := map[string]string{
		"ESTATEHUB_JWT_SECRET":            testSecret,
		"ESTATEHUB_PORT":                  "8000",
		"ESTATEHUB_HEALTH_PORT":           "8001",
		"ESTATEHUB_CORS_ORIGINS":          "https://a.example.com,https://b.example.com",
		"ESTATEHUB_STORAGE_TYPE":          "Postgres",
		"ESTATEHUB_POSTGRES_URL":          "postgres://localhost/estatehub",
		"ESTATEHUB_POSTGRES_REPLICA_URLS": "postgres://r1/estatehub,postgres://r2/estatehub",
		"ESTATEHUB_POSTGRES_MAX_CONNS":    "50",
		"ESTATEHUB_CACHE_ENABLED":         "true",
		"ESTATEHUB_REDIS_URL":             "redis://localhost:6379/0",
		"ESTATEHUB_SESSION_TTL":           "2h",
		"ESTATEHUB_BCRYPT_COST":           "10",
		"ESTATEHUB_LOG_LEVEL":             "debug",
		"ESTATEHUB_OTEL_SAMPLE_RATIO":     "0.5",
		"ESTATEHUB_AUDIT_MEMORY_EVENTS":   "500",
		"ESTATEHUB_RATE_LIMIT_BACKEND":    "REDIS",
		"ESTATEHUB_RATE_LIMIT_REQUESTS":   "100",
		"ESTATEHUB_BOOTSTRAP_TENANT":      "acme",
		"ESTATEHUB_BOOTSTRAP_EMAIL":       "admin@acme.example.com",
		"ESTATEHUB_BOOTSTRAP_PASSWORD":    "change-me-now",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "8000" || cfg.Server.HealthPort != "8001" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Storage.Type != "postgres" {
		t.Errorf("Storage.Type = %s, want postgres", cfg.Storage.Type)
	}
	if len(cfg.Storage.PostgresReplicaURLs) != 2 || cfg.Storage.PostgresMaxConns != 50 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if !cfg.Storage.CacheEnabled {
		t.Error("Storage.CacheEnabled = false")
	}
	if cfg.Auth.SessionTTL != 2*time.Hour || cfg.Auth.BcryptCost != 10 {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Observability.Level() != observability.DebugLevel {
		t.Errorf("Observability.Level() = %v", cfg.Observability.Level())
	}
	if cfg.Observability.OTel().SampleRatio != 0.5 {
		t.Errorf("OTel().SampleRatio = %v", cfg.Observability.OTel().SampleRatio)
	}
	if cfg.Observability.AuditMemoryEvents != 500 {
		t.Errorf("Observability.AuditMemoryEvents = %d, want 500", cfg.Observability.AuditMemoryEvents)
	}
	if cfg.RateLimit.Backend != "redis" || cfg.RateLimit.RequestsPerWindow != 100 {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if !cfg.Bootstrap.Enabled() || cfg.Bootstrap.TenantID != "acme" {
		t.Errorf("Bootstrap = %+v", cfg.Bootstrap)
	}
}

// TestLoadConfig_File checks the YAML overlay and that the environment wins over it
func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "estatehub.yaml")
	content := `
server:
  port: "7000"
  readTimeout: 5s
storage:
  type: sqlite
  sqlitePath: /var/lib/estatehub/data.db
auth:
  jwtSecret: 0123456789abcdef0123456789abcdef
  issuer: estatehub-test
rateLimit:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("ESTATEHUB_PORT", "7100")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Port != "7100" {
		t.Errorf("Server.Port = %s, want environment value 7100", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 15*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want default 15s", cfg.Server.WriteTimeout)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLitePath != "/var/lib/estatehub/data.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Auth.Issuer != "estatehub-test" {
		t.Errorf("Auth.Issuer = %s", cfg.Auth.Issuer)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = true, want false from file")
	}
}

func TestLoadConfig_FileErrors(t *testing.T) {
	t.Setenv("ESTATEHUB_JWT_SECRET", testSecret)

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := LoadConfig(); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		t.Setenv(ConfigFileEnv, path)
		if _, err := LoadConfig(); err == nil {
			t.Error("expected error for malformed config file")
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ESTATEHUB_TEST_DOTENV=from-file\nESTATEHUB_TEST_DOTENV_SET=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ESTATEHUB_TEST_DOTENV_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("ESTATEHUB_TEST_DOTENV") })

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv() error = %v", err)
	}
	if got := os.Getenv("ESTATEHUB_TEST_DOTENV"); got != "from-file" {
		t.Errorf("ESTATEHUB_TEST_DOTENV = %q", got)
	}
	if got := os.Getenv("ESTATEHUB_TEST_DOTENV_SET"); got != "from-env" {
		t.Errorf("existing variable was overridden: %q", got)
	}

	if err := loadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "same ports",
			mutate:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "must be different",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage.Type = "filesystem" },
			wantErr: "invalid storage type",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Storage.Type = "postgres" },
			wantErr: "postgres URL is required",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Storage.Type = "sqlite"
				c.Storage.SQLitePath = ""
			},
			wantErr: "sqlite path is required",
		},
		{
			name:    "short secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "short" },
			wantErr: "JWT secret",
		},
		{
			name:    "redis rate limit without redis",
			mutate:  func(c *Config) { c.RateLimit.Backend = "redis" },
			wantErr: "redis URL is required",
		},
		{
			name: "disabled rate limit ignores backend",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.Backend = "carrier-pigeon"
			},
		},
		{
			name: "sample ratio out of range",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelSampleRatio = 2
			},
			wantErr: "sample ratio",
		},
		{
			name:    "partial bootstrap",
			mutate:  func(c *Config) { c.Bootstrap.Email = "admin@example.com" },
			wantErr: "bootstrap requires",
		},
		{
			name: "weak bootstrap password",
			mutate: func(c *Config) {
				c.Bootstrap = BootstrapConfig{TenantID: "t1", Email: "admin@example.com", Password: "short"}
			},
			wantErr: "bootstrap password",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
