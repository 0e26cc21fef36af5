package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/platinummonkey/estatehub/pkg/contextkeys"
	"github.com/platinummonkey/estatehub/pkg/observability"
	"github.com/platinummonkey/estatehub/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often reads reach the backing store
type countingStore struct {
	*storage.MemoryStore
	collectionReads int
	recordReads     int
}

func (c *countingStore) FetchTenantCollection(ctx context.Context, tenantID string, kind storage.Kind) ([]storage.Document, error) {
	c.collectionReads++
	return c.MemoryStore.FetchTenantCollection(ctx, tenantID, kind)
}

func (c *countingStore) FetchRecord(ctx context.Context, kind storage.Kind, id string) (storage.Document, error) {
	c.recordReads++
	return c.MemoryStore.FetchRecord(ctx, kind, id)
}

func setupCacheTest(t *testing.T) (*Store, *countingStore, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(storage.Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)

	backing := &countingStore{MemoryStore: storage.NewMemoryStore()}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := New(backing, client, Options{L1Entries: 16, CollectionTTL: time.Minute},
		observability.NewLogger(observability.ErrorLevel, nil), metrics)
	t.Cleanup(func() { _ = s.Close() })

	return s, backing, mr, metrics
}

func doc(kind storage.Kind, id, tenantID string) storage.Document {
	data, _ := json.Marshal(map[string]string{"id": id, "tenantId": tenantID})
	return storage.Document{Kind: kind, ID: id, TenantID: tenantID, Data: data}
}

func TestNewRedisClient(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		_, err := NewRedisClient(storage.Config{RedisURL: "not-a-url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid redis URL")
	})

	t.Run("unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = NewRedisClient(storage.Config{RedisURL: "redis://" + addr})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to redis")
	})

	t.Run("overrides", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		client, err := NewRedisClient(storage.Config{
			RedisURL:        "redis://" + mr.Addr(),
			RedisDB:         2,
			RedisPoolSize:   5,
			RedisMaxRetries: 1,
		})
		require.NoError(t, err)
		defer client.Close()

		assert.Equal(t, 2, client.Options().DB)
		assert.Equal(t, 5, client.Options().PoolSize)
		assert.Equal(t, 1, client.Options().MaxRetries)
	})
}

func TestStore_CollectionCache(t *testing.T) {
	ctx := context.Background()
	s, backing, mr, metrics := setupCacheTest(t)

	_, err := s.WriteRecord(ctx, doc(storage.KindProperties, "p1", "t1"))
	require.NoError(t, err)
	_, err = s.WriteRecord(ctx, doc(storage.KindProperties, "p2", "t1"))
	require.NoError(t, err)

	first, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, mr.Exists(collectionKey("t1", storage.KindProperties)))

	second, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.collectionReads, "second read is served from redis")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.JSONEq(t, string(first[0].Data), string(second[0].Data))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("l2", "collection")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("l2", "collection")))

	// writes invalidate the tenant's collection
	_, err = s.WriteRecord(ctx, doc(storage.KindProperties, "p3", "t1"))
	require.NoError(t, err)
	assert.False(t, mr.Exists(collectionKey("t1", storage.KindProperties)))

	third, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	assert.Len(t, third, 3)
	assert.Equal(t, 2, backing.collectionReads)
}

func TestStore_CollectionsAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	s, _, _, _ := setupCacheTest(t)

	_, err := s.WriteRecord(ctx, doc(storage.KindInquiries, "i1", "t1"))
	require.NoError(t, err)
	_, err = s.WriteRecord(ctx, doc(storage.KindInquiries, "i2", "t2"))
	require.NoError(t, err)

	for _, tenantID := range []string{"t1", "t2", "t1", "t2"} {
		docs, err := s.FetchTenantCollection(ctx, tenantID, storage.KindInquiries)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, tenantID, docs[0].TenantID)
	}
}

func TestStore_DeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	s, backing, mr, _ := setupCacheTest(t)

	_, err := s.WriteRecord(ctx, doc(storage.KindUsers, "u1", "t1"))
	require.NoError(t, err)

	_, err = s.FetchTenantCollection(ctx, "t1", storage.KindUsers)
	require.NoError(t, err)
	_, err = s.FetchRecord(ctx, storage.KindUsers, "u1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, storage.KindUsers, "u1"))
	assert.False(t, mr.Exists(collectionKey("t1", storage.KindUsers)))

	_, err = s.FetchRecord(ctx, storage.KindUsers, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	docs, err := s.FetchTenantCollection(ctx, "t1", storage.KindUsers)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 2, backing.collectionReads)

	err = s.DeleteRecord(ctx, storage.KindUsers, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// interleavedStore runs afterRead once, between the backing collection read
// and the cache fill that follows it
type interleavedStore struct {
	*storage.MemoryStore
	afterRead func()
}

func (i *interleavedStore) FetchTenantCollection(ctx context.Context, tenantID string, kind storage.Kind) ([]storage.Document, error) {
	docs, err := i.MemoryStore.FetchTenantCollection(ctx, tenantID, kind)
	if hook := i.afterRead; hook != nil {
		i.afterRead = nil
		hook()
	}
	return docs, err
}

func TestStore_ConcurrentDeleteIsNotCached(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(storage.Config{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)

	backing := &interleavedStore{MemoryStore: storage.NewMemoryStore()}
	s := New(backing, client, Options{L1Entries: 16, CollectionTTL: time.Minute},
		observability.NewLogger(observability.ErrorLevel, nil), nil)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.WriteRecord(ctx, doc(storage.KindProperties, "p1", "t1"))
	require.NoError(t, err)

	backing.afterRead = func() {
		require.NoError(t, s.DeleteRecord(ctx, storage.KindProperties, "p1"))
	}
	stale, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	assert.Len(t, stale, 1, "the racing read still sees its snapshot")
	assert.False(t, mr.Exists(collectionKey("t1", storage.KindProperties)), "stale snapshot must not be cached")

	docs, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	assert.Empty(t, docs)
	_, err = s.FetchRecord(ctx, storage.KindProperties, "p1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// with no writer in between the next read fills normally
	again, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.True(t, mr.Exists(collectionKey("t1", storage.KindProperties)))
}

func TestStore_RecordCache(t *testing.T) {
	ctx := context.Background()
	s, backing, _, metrics := setupCacheTest(t)

	_, err := s.WriteRecord(ctx, doc(storage.KindProperties, "p1", "t1"))
	require.NoError(t, err)

	got, err := s.FetchRecord(ctx, storage.KindProperties, "p1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.TenantID)

	// mutating a returned copy never leaks into the cache
	got.Data[0] = 'X'

	again, err := s.FetchRecord(ctx, storage.KindProperties, "p1")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again.Data[0])
	assert.Equal(t, 1, backing.recordReads)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("l1", "record")))

	updated := doc(storage.KindProperties, "p1", "t1")
	updated.Data = json.RawMessage(`{"id":"p1","tenantId":"t1","title":"new"}`)
	_, err = s.WriteRecord(ctx, updated)
	require.NoError(t, err)

	fresh, err := s.FetchRecord(ctx, storage.KindProperties, "p1")
	require.NoError(t, err)
	assert.JSONEq(t, string(updated.Data), string(fresh.Data))
}

func TestStore_RecordCacheBypass(t *testing.T) {
	ctx := context.Background()
	s, backing, _, _ := setupCacheTest(t)

	_, err := s.WriteRecord(ctx, doc(storage.KindUsers, "u1", "t1"))
	require.NoError(t, err)
	_, err = s.FetchRecord(ctx, storage.KindUsers, "u1")
	require.NoError(t, err)

	// another instance updates the record behind this cache
	changed := doc(storage.KindUsers, "u1", "t1")
	changed.Data = json.RawMessage(`{"id":"u1","tenantId":"t1","isActive":false}`)
	_, err = backing.MemoryStore.WriteRecord(ctx, changed)
	require.NoError(t, err)

	stale, err := s.FetchRecord(ctx, storage.KindUsers, "u1")
	require.NoError(t, err)
	assert.NotContains(t, string(stale.Data), "isActive")

	fresh, err := s.FetchRecord(contextkeys.WithoutRecordCache(ctx), storage.KindUsers, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, string(changed.Data), string(fresh.Data))

	cached, err := s.FetchRecord(ctx, storage.KindUsers, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, string(changed.Data), string(cached.Data), "bypassed read refreshes the entry")

	require.NoError(t, backing.MemoryStore.DeleteRecord(ctx, storage.KindUsers, "u1"))
	_, err = s.FetchRecord(contextkeys.WithoutRecordCache(ctx), storage.KindUsers, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.FetchRecord(ctx, storage.KindUsers, "u1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "missing record drops the entry")
}

func TestStore_RedisFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	s, backing, mr, _ := setupCacheTest(t)

	_, err := s.WriteRecord(ctx, doc(storage.KindProperties, "p1", "t1"))
	require.NoError(t, err)

	mr.Close()

	docs, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, backing.collectionReads)

	assert.Error(t, s.Ping(ctx))
}

func TestStore_CorruptEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	s, backing, mr, _ := setupCacheTest(t)

	_, err := s.WriteRecord(ctx, doc(storage.KindProperties, "p1", "t1"))
	require.NoError(t, err)
	require.NoError(t, mr.Set(collectionKey("t1", storage.KindProperties), "not json"))

	docs, err := s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, 1, backing.collectionReads)

	cached, err := mr.Get(collectionKey("t1", storage.KindProperties))
	require.NoError(t, err)
	assert.NotEqual(t, "not json", cached)
}

func TestStore_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	backing := &countingStore{MemoryStore: storage.NewMemoryStore()}
	s := New(backing, nil, Options{}, nil, nil)

	_, err := s.WriteRecord(ctx, doc(storage.KindProperties, "p1", "t1"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = s.FetchTenantCollection(ctx, "t1", storage.KindProperties)
		require.NoError(t, err)
		_, err = s.FetchRecord(ctx, storage.KindProperties, "p1")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backing.collectionReads)
	assert.Equal(t, 2, backing.recordReads)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats[storage.KindProperties])
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())
}
