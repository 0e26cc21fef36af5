package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

const (
	queryTenantCollection = `
		SELECT id, tenant_id, data, created_at, updated_at
		FROM records
		WHERE tenant_id = $1 AND kind = $2
		ORDER BY seq`

	queryRecord = `
		SELECT id, tenant_id, data, created_at, updated_at
		FROM records
		WHERE kind = $1 AND id = $2`

	upsertRecord = `
		INSERT INTO records (kind, id, tenant_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kind, id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			data = excluded.data,
			updated_at = excluded.updated_at`

	deleteRecord = `DELETE FROM records WHERE kind = $1 AND id = $2`

	countByKind = `SELECT kind, COUNT(*) FROM records GROUP BY kind`
)

// Store implements storage.Store on a single records table.
//
// Collection reads go to a replica when one is configured; single record reads
// go to the primary so a read that precedes a mutation sees the latest write.
type Store struct {
	conns   *ConnectionManager
	dialect Dialect
	metrics *observability.Metrics
	logger  *observability.Logger
}

var _ storage.Store = (*Store)(nil)

// Open connects, migrates and returns a store
func Open(ctx context.Context, config ConnectionConfig, logger *observability.Logger, metrics *observability.Metrics) (*Store, error) {
	conns, err := NewConnectionManager(config, logger)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, conns.Primary(), config.Dialect); err != nil {
		conns.Close()
		return nil, err
	}
	return New(conns, config.Dialect, logger, metrics), nil
}

// New wraps an existing connection manager. The schema must already exist.
func New(conns *ConnectionManager, dialect Dialect, logger *observability.Logger, metrics *observability.Metrics) *Store {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Store{
		conns:   conns,
		dialect: dialect,
		metrics: metrics,
		logger:  logger.WithField("component", "sqlstore"),
	}
}

// Connections returns the underlying connection manager
func (s *Store) Connections() *ConnectionManager {
	return s.conns
}

// FetchTenantCollection returns every record of kind owned by tenantID, in insertion order
func (s *Store) FetchTenantCollection(ctx context.Context, tenantID string, kind storage.Kind) (docs []storage.Document, err error) {
	defer s.observe("fetch_collection", time.Now(), &err)

	rows, err := s.conns.Replica().QueryContext(ctx, queryTenantCollection, tenantID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind, err)
	}
	defer rows.Close()

	docs = make([]storage.Document, 0)
	for rows.Next() {
		d := storage.Document{Kind: kind}
		var data []byte
		if err := rows.Scan(&d.ID, &d.TenantID, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		d.Data = data
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", kind, err)
	}
	return docs, nil
}

// FetchRecord returns a record by id, or storage.ErrNotFound
func (s *Store) FetchRecord(ctx context.Context, kind storage.Kind, id string) (doc storage.Document, err error) {
	defer s.observe("fetch_record", time.Now(), &err)

	d := storage.Document{Kind: kind}
	var data []byte
	err = s.conns.Primary().QueryRowContext(ctx, queryRecord, string(kind), id).
		Scan(&d.ID, &d.TenantID, &data, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Document{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Document{}, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	d.Data = data
	return d, nil
}

// WriteRecord upserts a record keyed by (kind, id)
func (s *Store) WriteRecord(ctx context.Context, doc storage.Document) (_ storage.Document, err error) {
	defer s.observe("write_record", time.Now(), &err)

	if doc.Kind == "" || doc.ID == "" {
		return storage.Document{}, errors.New("document kind and id are required")
	}

	_, err = s.conns.Primary().ExecContext(ctx, upsertRecord,
		string(doc.Kind),
		doc.ID,
		doc.TenantID,
		string(doc.Data),
		doc.CreatedAt.UTC(),
		doc.UpdatedAt.UTC(),
	)
	if err != nil {
		return storage.Document{}, fmt.Errorf("failed to write %s %s: %w", doc.Kind, doc.ID, err)
	}
	return doc, nil
}

// DeleteRecord removes a record, or returns storage.ErrNotFound
func (s *Store) DeleteRecord(ctx context.Context, kind storage.Kind, id string) (err error) {
	defer s.observe("delete_record", time.Now(), &err)

	res, err := s.conns.Primary().ExecContext(ctx, deleteRecord, string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Stats returns the number of records per kind
func (s *Store) Stats(ctx context.Context) (stats map[storage.Kind]int, err error) {
	defer s.observe("stats", time.Now(), &err)

	rows, err := s.conns.Replica().QueryContext(ctx, countByKind)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	stats = make(map[storage.Kind]int, len(storage.Kinds()))
	for _, k := range storage.Kinds() {
		stats[k] = 0
	}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan record count: %w", err)
		}
		stats[storage.Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate record counts: %w", err)
	}

	s.metrics.UpdateDBStats(s.conns.Stats())
	return stats, nil
}

// Ping checks the primary and replicas
func (s *Store) Ping(ctx context.Context) error {
	return s.conns.HealthCheck(ctx)
}

// Close closes every connection
func (s *Store) Close() error {
	return s.conns.Close()
}

func (s *Store) observe(op string, start time.Time, errp *error) {
	err := *errp
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	s.metrics.ObserveStorage(op, string(s.dialect), start, err)
	if err != nil {
		s.logger.WithError(err).WithField("operation", op).Warn("storage operation failed")
	}
}
