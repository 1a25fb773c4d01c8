package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the hit log in process memory. It is only correct when
// a single process serves all requests; use SQLiteStore otherwise.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

func (m *MemoryStore) Count(_ context.Context, key string, since time.Time) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.prune(key, since)
	if len(live) == 0 {
		return 0, time.Time{}, nil
	}
	return len(live), live[0], nil
}

func (m *MemoryStore) Add(_ context.Context, key string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(key, at)
	return nil
}

func (m *MemoryStore) TryAdd(_ context.Context, key string, now, since time.Time, limit int) (int, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.prune(key, since)
	var oldest time.Time
	if len(live) > 0 {
		oldest = live[0]
	}
	if len(live) >= limit {
		return len(live), oldest, false, nil
	}
	m.insert(key, now)
	if oldest.IsZero() {
		oldest = now
	}
	return len(live), oldest, true, nil
}

// prune drops hits at or before since. Callers hold mu.
func (m *MemoryStore) prune(key string, since time.Time) []time.Time {
	hits := m.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(since) {
		i++
	}
	hits = hits[i:]
	if len(hits) == 0 {
		delete(m.hits, key)
		return nil
	}
	m.hits[key] = hits
	return hits
}

// insert keeps the log sorted. Callers hold mu.
func (m *MemoryStore) insert(key string, at time.Time) {
	hits := m.hits[key]
	i := len(hits)
	for i > 0 && hits[i-1].After(at) {
		i--
	}
	hits = append(hits, time.Time{})
	copy(hits[i+1:], hits[i:])
	hits[i] = at
	m.hits[key] = hits
}
