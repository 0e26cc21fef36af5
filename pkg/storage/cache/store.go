package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/estatehub/pkg/contextkeys"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/storage"
)

const (
	keyPrefix = "estatehub:coll"
	genPrefix = "estatehub:gen"

	// generationTTL keeps generation counters far longer than any read can take
	generationTTL = 24 * time.Hour

	// DefaultRecordTTL bounds how long a record stays in the in-process cache.
	// Other instances' writes become visible after at most this long.
	DefaultRecordTTL = 5 * time.Second
)

// Options configures the caching decorator
type Options struct {
	// L1Entries is the maximum number of records kept in process; 0 disables L1
	L1Entries int
	// RecordTTL is the L1 entry lifetime
	RecordTTL time.Duration
	// CollectionTTL is the Redis entry lifetime for tenant collections
	CollectionTTL time.Duration
}

// Store decorates a storage.Store with a two-level cache: an in-process LRU for
// single records and Redis for tenant collections. Every write or delete
// invalidates both levels for the affected record and tenant collection.
// Cache failures are logged and the call falls through to the backing store.
type Store struct {
	next    storage.Store
	l1      *expirable.LRU[string, storage.Document]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *observability.Logger
}

var _ storage.Store = (*Store)(nil)

// New creates the caching decorator. redisClient may be nil to run with L1 only.
func New(next storage.Store, redisClient *redis.Client, opts Options, logger *observability.Logger, metrics *observability.Metrics) *Store {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = DefaultRecordTTL
	}
	if opts.CollectionTTL <= 0 {
		opts.CollectionTTL = 30 * time.Second
	}

	s := &Store{
		next:    next,
		redis:   redisClient,
		ttl:     opts.CollectionTTL,
		metrics: metrics,
		logger:  logger.WithField("component", "cache"),
	}
	if opts.L1Entries > 0 {
		s.l1 = expirable.NewLRU[string, storage.Document](opts.L1Entries, func(string, storage.Document) {
			metrics.RecordCacheEviction("l1", "capacity")
		}, opts.RecordTTL)
	}
	return s
}

func recordKey(kind storage.Kind, id string) string {
	return string(kind) + "/" + id
}

func collectionKey(tenantID string, kind storage.Kind) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, tenantID, kind)
}

// generationKey counts invalidations of a tenant collection. A fill is only
// stored when the counter has not moved since the read began.
func generationKey(tenantID string, kind storage.Kind) string {
	return fmt.Sprintf("%s:%s:%s", genPrefix, tenantID, kind)
}

// fillScript sets KEYS[1] only while KEYS[2] still holds the generation ARGV[1]
var fillScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// FetchTenantCollection serves from Redis when possible
func (s *Store) FetchTenantCollection(ctx context.Context, tenantID string, kind storage.Kind) ([]storage.Document, error) {
	if s.redis == nil {
		return s.next.FetchTenantCollection(ctx, tenantID, kind)
	}

	key := collectionKey(tenantID, kind)
	genKey := generationKey(tenantID, kind)

	start := time.Now()
	pipe := s.redis.Pipeline()
	getCmd := pipe.Get(ctx, key)
	genCmd := pipe.Get(ctx, genKey)
	_, _ = pipe.Exec(ctx)
	cached, err := getCmd.Bytes()
	s.metrics.ObserveRedis("get", start, ignoreNil(err))

	switch {
	case err == nil:
		var docs []storage.Document
		if jsonErr := json.Unmarshal(cached, &docs); jsonErr == nil {
			s.metrics.RecordCacheHit("l2", "collection")
			return docs, nil
		}
		// corrupt entry
		s.redis.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		s.logger.WithError(err).Warn("redis get failed, falling back to store")
	}
	s.metrics.RecordCacheMiss("l2", "collection")

	gen, genErr := genCmd.Result()
	switch {
	case errors.Is(genErr, redis.Nil):
		gen = "0"
	case genErr != nil:
		// without a generation the fill could resurrect deleted records
		return s.next.FetchTenantCollection(ctx, tenantID, kind)
	}

	docs, err := s.next.FetchTenantCollection(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(docs); err == nil {
		start = time.Now()
		stored, err := fillScript.Run(ctx, s.redis, []string{key, genKey}, gen, data, s.ttl.Milliseconds()).Int()
		s.metrics.ObserveRedis("set", start, err)
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("redis set failed")
		case stored == 0:
			s.logger.WithField("tenant_id", tenantID).Debug("collection changed during read, not caching")
		}
	}
	return docs, nil
}

// FetchRecord serves from the in-process LRU when possible. Reads marked with
// contextkeys.WithoutRecordCache go to the backing store and refresh the entry.
func (s *Store) FetchRecord(ctx context.Context, kind storage.Kind, id string) (storage.Document, error) {
	if s.l1 == nil {
		return s.next.FetchRecord(ctx, kind, id)
	}

	key := recordKey(kind, id)
	if contextkeys.BypassesRecordCache(ctx) {
		d, err := s.next.FetchRecord(ctx, kind, id)
		if err != nil {
			s.l1.Remove(key)
			return d, err
		}
		s.l1.Add(key, cloneDocument(d))
		return d, nil
	}
	if d, ok := s.l1.Get(key); ok {
		s.metrics.RecordCacheHit("l1", "record")
		return cloneDocument(d), nil
	}
	s.metrics.RecordCacheMiss("l1", "record")

	d, err := s.next.FetchRecord(ctx, kind, id)
	if err != nil {
		return d, err
	}
	s.l1.Add(key, cloneDocument(d))
	return d, nil
}

// WriteRecord writes through and invalidates the affected entries
func (s *Store) WriteRecord(ctx context.Context, doc storage.Document) (storage.Document, error) {
	out, err := s.next.WriteRecord(ctx, doc)
	if err != nil {
		return out, err
	}
	s.invalidate(ctx, doc.Kind, doc.ID, doc.TenantID)
	return out, nil
}

// DeleteRecord deletes through and invalidates the affected entries
func (s *Store) DeleteRecord(ctx context.Context, kind storage.Kind, id string) error {
	var tenantID string
	if d, err := s.next.FetchRecord(ctx, kind, id); err == nil {
		tenantID = d.TenantID
	}

	if err := s.next.DeleteRecord(ctx, kind, id); err != nil {
		return err
	}
	s.invalidate(ctx, kind, id, tenantID)
	return nil
}

func (s *Store) invalidate(ctx context.Context, kind storage.Kind, id, tenantID string) {
	if s.l1 != nil && s.l1.Remove(recordKey(kind, id)) {
		s.metrics.RecordCacheEviction("l1", "invalidate")
	}
	if s.redis == nil || tenantID == "" {
		return
	}

	genKey := generationKey(tenantID, kind)
	start := time.Now()
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, collectionKey(tenantID, kind))
		return nil
	})
	s.metrics.ObserveRedis("del", start, err)
	if err != nil {
		s.logger.WithError(err).WithField("tenant_id", tenantID).Warn("redis invalidation failed")
	}
}

// Stats delegates to the backing store
func (s *Store) Stats(ctx context.Context) (map[storage.Kind]int, error) {
	return s.next.Stats(ctx)
}

// Ping checks the backing store and Redis
func (s *Store) Ping(ctx context.Context) error {
	if err := s.next.Ping(ctx); err != nil {
		return err
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unhealthy: %w", err)
		}
	}
	return nil
}

// Close closes Redis and the backing store
func (s *Store) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.l1 != nil {
		s.l1.Purge()
	}
	if err := s.next.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func ignoreNil(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func cloneDocument(d storage.Document) storage.Document {
	out := d
	if d.Data != nil {
		out.Data = append([]byte(nil), d.Data...)
	}
	return out
}
