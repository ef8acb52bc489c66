package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development.
// Each key carries a revision counter; Update re-reads and retries when the
// revision moved underneath it, mirroring the Redis WATCH behavior.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
	revs   map[string]uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string][]byte),
		revs:   make(map[string]uint64),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		current, exists := s.values[key]
		rev := s.revs[key]
		var snapshot []byte
		if exists {
			snapshot = make([]byte, len(current))
			copy(snapshot, current)
		}
		s.mu.Unlock()

		next, err := fn(snapshot)
		if err != nil {
			return err
		}

		s.mu.Lock()
		if s.revs[key] != rev {
			s.mu.Unlock()
			continue
		}
		s.set(key, next)
		s.mu.Unlock()
		return nil
	}
	return ErrTxConflict
}

// set stores a copy and bumps the revision. Caller holds the lock.
func (s *MemoryStore) set(key string, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	s.revs[key]++
}
