// Package config provides application configuration management.
//
// # Overview
//
// Configuration is assembled in three layers, lowest precedence first:
// built-in defaults, an optional YAML file named by ESTATEHUB_CONFIG_FILE,
// and environment variables. A .env file in the working directory is merged
// into the environment before it is read; variables already set win.
//
// # Configuration Structure
//
// Server settings:
//
//	ESTATEHUB_HOST="0.0.0.0"
//	ESTATEHUB_PORT="8080"
//	ESTATEHUB_HEALTH_PORT="9090"
//	ESTATEHUB_READ_TIMEOUT="15s"
//	ESTATEHUB_CORS_ORIGINS="https://app.example.com"
//
// Storage settings:
//
//	ESTATEHUB_STORAGE_TYPE="postgres"  # memory, postgres, sqlite
//	ESTATEHUB_POSTGRES_URL="postgres://localhost/estatehub"
//	ESTATEHUB_POSTGRES_REPLICA_URLS="postgres://replica/estatehub"
//	ESTATEHUB_SQLITE_PATH="estatehub.db"
//
// Cache settings:
//
//	ESTATEHUB_CACHE_ENABLED="true"
//	ESTATEHUB_REDIS_URL="redis://localhost:6379"
//	ESTATEHUB_CACHE_TTL="30s"
//
// Auth settings:
//
//	ESTATEHUB_JWT_SECRET="at least 32 bytes of secret"
//	ESTATEHUB_SESSION_TTL="24h"
//	ESTATEHUB_BCRYPT_COST="12"
//
// Rate limiting:
//
//	ESTATEHUB_RATE_LIMIT_BACKEND="redis"  # memory, redis
//	ESTATEHUB_RATE_LIMIT_REQUESTS="600"
//	ESTATEHUB_RATE_LIMIT_WINDOW="1m"
//
// The same keys in YAML form:
//
//	server:
//	  port: "8080"
//	storage:
//	  type: sqlite
//	  sqlitePath: /var/lib/estatehub/data.db
//	auth:
//	  sessionTtl: 12h
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout)
package config
