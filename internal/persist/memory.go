package persist

import (
	"context"
	"sync"
)

// InMemoryKV is an in-memory implementation of KV.
// Used for testing and single-process development. Thread-safe via RWMutex.
type InMemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewInMemoryKV creates a new in-memory key-value store.
func NewInMemoryKV() *InMemoryKV {
	return &InMemoryKV{
		values: make(map[string][]byte),
	}
}

// Get returns the stored value for key, or ErrNotFound.
func (s *InMemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to avoid external modification
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set stores value under key, replacing any previous value.
func (s *InMemoryKV) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.values[key] = stored
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *InMemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

// FailingKV wraps a KV and fails every operation with the given error.
// Used in tests to exercise persistence-unavailable paths.
type FailingKV struct {
	Err error
}

// Get always fails with the configured error.
func (s *FailingKV) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, s.Err
}

// Set always fails with the configured error.
func (s *FailingKV) Set(ctx context.Context, key string, value []byte) error {
	return s.Err
}

// Delete always fails with the configured error.
func (s *FailingKV) Delete(ctx context.Context, key string) error {
	return s.Err
}
