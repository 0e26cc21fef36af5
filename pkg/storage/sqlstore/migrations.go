package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect selects SQL flavor and driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driverName() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// ParseDialect maps a storage type name to a Dialect
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", s)
	}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		seq        BIGSERIAL PRIMARY KEY,
		kind       TEXT NOT NULL,
		id         TEXT NOT NULL,
		tenant_id  TEXT NOT NULL,
		data       JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (kind, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_tenant_kind ON records (tenant_id, kind, seq)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		kind       TEXT NOT NULL,
		id         TEXT NOT NULL,
		tenant_id  TEXT NOT NULL,
		data       TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (kind, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_tenant_kind ON records (tenant_id, kind, seq)`,
}

// Migrate creates the records table and its indexes if they do not exist
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	statements := postgresSchema
	if dialect == DialectSQLite {
		statements = sqliteSchema
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration step %d: %w", i+1, err)
		}
	}
	return nil
}
