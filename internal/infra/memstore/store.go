// Package memstore is an in-process RecordStore, the default backend for
// local runs and tests.
package memstore

import (
	"context"
	"sync"
)

// Store keeps records in insertion order, keyed by the key function.
type Store[T any] struct {
	mu    sync.RWMutex
	key   func(T) string
	order []string
	items map[string]T
}

// New returns a store holding records. Later records overwrite earlier ones
// sharing a key.
func New[T any](key func(T) string, records ...T) *Store[T] {
	s := &Store[T]{key: key, items: make(map[string]T)}
	for _, r := range records {
		s.put(key(r), r)
	}
	return s
}

func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.items[k])
	}
	return out, nil
}

func (s *Store[T]) Save(ctx context.Context, records []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.items = make(map[string]T, len(records))
	for _, r := range records {
		s.put(s.key(r), r)
	}
	return nil
}

func (s *Store[T]) Upsert(ctx context.Context, key string, record T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(key, record)
	return nil
}

// put must be called with mu held (or before the store is shared).
func (s *Store[T]) put(key string, record T) {
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = record
}
