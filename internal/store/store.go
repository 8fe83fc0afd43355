// Package store provides the process-wide in-memory cache keyed by dataset
// identifier. Entries are replaced wholesale on Put, so a reader either sees
// a complete snapshot or nothing; there is no partial invalidation below the
// dataset level.
package store

import (
	"sort"
	"sync"
)

// Store maps a dataset identifier to a materialized snapshot of type V.
// Construct one per concern (records, facets) and share it by reference;
// nothing here relies on package-level state, so tests can build isolated
// instances.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// New creates an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{entries: make(map[string]V)}
}

// Get returns the snapshot for key, if present.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.entries[key]
	return v, ok
}

// Put replaces (never merges) any existing snapshot for key.
func (s *Store[V]) Put(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = value
}

// Invalidate removes the snapshot for key. Removing an absent key is a no-op.
func (s *Store[V]) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Clear removes all snapshots.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]V)
}

// Len reports the number of cached datasets.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Keys returns the cached dataset identifiers, sorted.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
