// Package storage provides the key-value byte store used to persist
// notification records and read state.
//
// Two implementations exist: an in-memory map for tests and ephemeral runs,
// and a SQLite-backed store for persistence across restarts. Writers do a
// plain read-modify-write; concurrent processes sharing one database file
// race with last-writer-wins semantics.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when the key has never been set or was removed.
var ErrNotFound = errors.New("key not found")

// Store is a minimal key-value byte store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore keeps values in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Close is a no-op so MemoryStore can stand in wherever a closable store is expected.
func (s *MemoryStore) Close() error {
	return nil
}
