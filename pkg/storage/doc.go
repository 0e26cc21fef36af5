// Package storage is the persistence boundary of estatehub.
//
// Every resource is stored as a Document: an id-keyed JSON payload tagged with
// its collection Kind and owning tenant. Services never hold references into a
// store; they read snapshots through FetchTenantCollection and FetchRecord and
// change state through single id-keyed WriteRecord and DeleteRecord calls.
//
// # Backends
//
//   - MemoryStore: in-process, insertion ordered, for development and tests.
//   - sqlstore.Store: PostgreSQL (lib/pq) or SQLite (mattn/go-sqlite3) behind
//     one records table, with primary and read replica connections.
//   - cache.Store: decorator adding an in-process LRU for single records and a
//     Redis cache for tenant collections, invalidated on every write.
//
// # Typed access
//
// Repository wraps a Store for one entity type:
//
//	users := storage.NewRepository[users.User](store, storage.KindUsers)
//	list, err := users.List(ctx, tenantID)
//	u, found, err := users.Get(ctx, id)
//
// Collections are always returned in insertion order so that the query
// engine's stable sort yields reproducible pages.
package storage
