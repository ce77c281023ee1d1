package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// RawStore is the whole-collection contract a Repository is built on.
// Implemented by *Store.
type RawStore interface {
	ReadRaw(ctx context.Context, name string) ([]byte, error)
	WriteRaw(ctx context.Context, name string, data []byte) (Stamp, error)
}

// Repository is a typed view of one collection. Records that do not decode
// into T are rejected at this boundary instead of reaching callers.
type Repository[T any] struct {
	store RawStore
	name  string
}

// NewRepository returns a repository for the named collection.
func NewRepository[T any](s RawStore, name string) *Repository[T] {
	return &Repository[T]{store: s, name: name}
}

// Name returns the collection name.
func (r *Repository[T]) Name() string {
	return r.name
}

// LoadAll reads the whole collection. A collection never written loads as empty.
func (r *Repository[T]) LoadAll(ctx context.Context) ([]T, error) {
	data, err := r.store.ReadRaw(ctx, r.name)
	if err != nil {
		return nil, err
	}
	records := []T{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.name, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// SaveAll replaces the whole collection with records.
func (r *Repository[T]) SaveAll(ctx context.Context, records []T) (Stamp, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return Stamp{}, fmt.Errorf("encode %s: %w", r.name, err)
	}
	return r.store.WriteRaw(ctx, r.name, data)
}
