package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload []byte
	expires time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu         sync.Mutex
	generation int64
	entries    map[string]memoryEntry
	now        func() time.Time
}

// NewMemory creates an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *Memory) Generation(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation, nil
}

// Bump also drops stored entries since none of them can be read again.
func (m *Memory) Bump(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generation++
	m.entries = make(map[string]memoryEntry)
	return m.generation, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.payload))
	copy(out, e.payload)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	e := memoryEntry{payload: make([]byte, len(payload))}
	copy(e.payload, payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}
