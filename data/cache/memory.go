package cache

import (
	"sync"
	"time"
)

type memoryEntry struct {
	value     any
	updatedAt time.Time
	ttl       time.Duration
}

// MemoryStore is the in-process cache tier shared by every cache kind. Entries
// carry their own TTL so finality-aware callers can mix lifetimes in one store.
// It lives for the process lifetime only; the persistent tier outlives restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || time.Since(entry.updatedAt) >= entry.ttl {
		return nil, false
	}
	return entry.value, true
}

func (s *MemoryStore) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: value, updatedAt: time.Now(), ttl: ttl}
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// ClearExpired prunes entries past their TTL and returns how many were removed.
func (s *MemoryStore) ClearExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if time.Since(entry.updatedAt) >= entry.ttl {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
