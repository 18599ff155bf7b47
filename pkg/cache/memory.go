package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryStore is the default single-process cache backend.
type MemoryStore struct {
	store map[string]memoryEntry
	mu    sync.RWMutex
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		store: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	m.mu.RLock()
	me, ok := m.store[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !me.expiresAt.IsZero() && m.now().After(me.expiresAt) {
		m.mu.Lock()
		delete(m.store, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	e := me.entry
	return &e, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	me := memoryEntry{entry: *entry}
	if ttl > 0 {
		me.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.store[key] = me
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteByPrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	for k := range m.store {
		if strings.HasPrefix(k, prefix) {
			delete(m.store, k)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
