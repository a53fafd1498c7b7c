// internal/store/store.go
package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store is the persistence medium for per-session slots (the credential and
// the serialized user snapshot). A missing key is not an error: Get returns
// an empty string, the same way an absent browser-storage slot reads as null.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// SlotKey builds the storage key for one slot of one browser session.
func SlotKey(sessionID, slot string) string {
	return fmt.Sprintf("sess:%s:%s", sessionID, slot)
}

// MemoryStore is an in-process Store used when no Redis is configured and by
// tests. Entries expire lazily on read.
type MemoryStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore. A zero TTL means entries never expire.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, m: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{value: value}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.m[key] = entry
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.m[key]
	if !ok {
		return "", nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(s.m, key)
		return "", nil
	}
	return entry.value, nil
}

func (s *MemoryStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.m, key)
	return nil
}
