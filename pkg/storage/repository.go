package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Record is an entity that can be stored as a Document
type Record interface {
	GetID() string
	GetTenantID() string
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// Codec converts between an entity and its stored JSON form
type Codec[T any] interface {
	Encode(T) (json.RawMessage, error)
	Decode(json.RawMessage) (T, error)
}

// JSONCodec stores an entity with its standard JSON encoding
type JSONCodec[T any] struct{}

// Encode implements Codec
func (JSONCodec[T]) Encode(v T) (json.RawMessage, error) {
	return json.Marshal(v)
}

// Decode implements Codec
func (JSONCodec[T]) Decode(data json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// Repository is a typed view of one collection kind in a Store
type Repository[T Record] struct {
	store Store
	kind  Kind
	codec Codec[T]
}

// NewRepository creates a repository using the default JSON codec
func NewRepository[T Record](store Store, kind Kind) *Repository[T] {
	return NewRepositoryWithCodec[T](store, kind, JSONCodec[T]{})
}

// NewRepositoryWithCodec creates a repository with a custom codec
func NewRepositoryWithCodec[T Record](store Store, kind Kind, codec Codec[T]) *Repository[T] {
	return &Repository[T]{store: store, kind: kind, codec: codec}
}

// Kind returns the collection kind
func (r *Repository[T]) Kind() Kind {
	return r.kind
}

// List returns every record of the tenant in insertion order
func (r *Repository[T]) List(ctx context.Context, tenantID string) ([]T, error) {
	docs, err := r.store.FetchTenantCollection(ctx, tenantID, r.kind)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s collection: %w", r.kind, err)
	}

	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := r.codec.Decode(d.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s %s: %w", r.kind, d.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Get returns a record by id. found is false when the id does not exist.
func (r *Repository[T]) Get(ctx context.Context, id string) (v T, found bool, err error) {
	d, err := r.store.FetchRecord(ctx, r.kind, id)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("failed to fetch %s %s: %w", r.kind, id, err)
	}

	v, err = r.codec.Decode(d.Data)
	if err != nil {
		return v, false, fmt.Errorf("failed to decode %s %s: %w", r.kind, id, err)
	}
	return v, true, nil
}

// Put writes a record
func (r *Repository[T]) Put(ctx context.Context, v T) (T, error) {
	data, err := r.codec.Encode(v)
	if err != nil {
		return v, fmt.Errorf("failed to encode %s %s: %w", r.kind, v.GetID(), err)
	}

	_, err = r.store.WriteRecord(ctx, Document{
		Kind:      r.kind,
		ID:        v.GetID(),
		TenantID:  v.GetTenantID(),
		Data:      data,
		CreatedAt: v.GetCreatedAt(),
		UpdatedAt: v.GetUpdatedAt(),
	})
	if err != nil {
		return v, fmt.Errorf("failed to write %s %s: %w", r.kind, v.GetID(), err)
	}
	return v, nil
}

// Delete removes a record. Deleting a missing id returns ErrNotFound.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteRecord(ctx, r.kind, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete %s %s: %w", r.kind, id, err)
	}
	return nil
}
