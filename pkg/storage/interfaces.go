package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Kind names a resource collection
type Kind string

const (
	KindUsers               Kind = "users"
	KindProperties          Kind = "properties"
	KindInquiries           Kind = "inquiries"
	KindExternalSystemAuths Kind = "external_system_auths"
)

// Kinds returns every collection kind
func Kinds() []Kind {
	return []Kind{KindUsers, KindProperties, KindInquiries, KindExternalSystemAuths}
}

// ErrNotFound is returned when a record id does not exist in a collection
var ErrNotFound = errors.New("record not found")

// Document is one persisted record. Data holds the JSON encoded entity;
// the other fields are indexed copies used by stores for lookup and ordering.
type Document struct {
	Kind      Kind            `json:"kind"`
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CollectionReader reads tenant collections and single records
type CollectionReader interface {
	// FetchTenantCollection returns every record of kind owned by tenantID, in insertion order
	FetchTenantCollection(ctx context.Context, tenantID string, kind Kind) ([]Document, error)
	// FetchRecord returns a record by id regardless of tenant, or ErrNotFound
	FetchRecord(ctx context.Context, kind Kind, id string) (Document, error)
}

// CollectionWriter applies single id-keyed mutations
type CollectionWriter interface {
	// WriteRecord inserts or replaces the record with doc.Kind and doc.ID
	WriteRecord(ctx context.Context, doc Document) (Document, error)
	// DeleteRecord removes a record, or returns ErrNotFound
	DeleteRecord(ctx context.Context, kind Kind, id string) error
}

// HealthChecker reports backend health
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Store is the persistence boundary used by the resource services.
// Implementations must provide at least read-committed visibility: a fetch
// never observes a half-written record.
type Store interface {
	CollectionReader
	CollectionWriter
	HealthChecker

	// Stats returns the number of records per kind
	Stats(ctx context.Context) (map[Kind]int, error)
	Close() error
}

// Config for storage backend
type Config struct {
	Type string `yaml:"type"` // "memory", "postgres", "sqlite"

	// PostgreSQL config
	PostgresURL         string        `yaml:"postgresUrl"`
	PostgresReplicaURLs []string      `yaml:"postgresReplicaUrls"`
	PostgresMaxConns    int           `yaml:"postgresMaxConns"`
	PostgresMinConns    int           `yaml:"postgresMinConns"`
	PostgresTimeout     time.Duration `yaml:"postgresTimeout"`

	// SQLite config
	SQLitePath string `yaml:"sqlitePath"`

	// Redis config
	RedisURL        string `yaml:"redisUrl"`
	RedisPassword   string `yaml:"redisPassword"`
	RedisDB         int    `yaml:"redisDb"`
	RedisMaxRetries int    `yaml:"redisMaxRetries"`
	RedisPoolSize   int    `yaml:"redisPoolSize"`

	// Cache config
	CacheEnabled   bool          `yaml:"cacheEnabled"`
	CollectionTTL  time.Duration `yaml:"collectionTtl"`
	L1CacheEntries int           `yaml:"l1CacheEntries"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "memory",
		SQLitePath:       "estatehub.db",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     false,
		CollectionTTL:    30 * time.Second,
		L1CacheEntries:   4096,
	}
}
