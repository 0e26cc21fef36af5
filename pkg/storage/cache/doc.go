// Package cache provides a read-through caching decorator for storage.Store.
//
// Single records are kept in an in-process expiring LRU. Tenant collections are
// kept in Redis under estatehub:coll:<tenant>:<kind>. Writes and deletes go to
// the backing store first and then invalidate both levels.
package cache
