package fallback

import (
	"sync"
)

// Store is same-context persistent key/value storage used when the
// channel is unavailable or exhausted. Operations are synchronous and
// may fail (quota exceeded, storage disabled); callers inside the
// bridge always go through Guarded, which catches those failures at
// the boundary.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// MemoryStore is an in-process Store. It never fails; it exists for
// tests and for running the bridge without durable local storage.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the stored value and whether the key exists.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Compile-time interface satisfaction check.
var _ Store = (*MemoryStore)(nil)
