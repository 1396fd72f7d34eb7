package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps all profiles in process memory.
type MemoryStorage struct {
	mu       sync.RWMutex
	profiles map[string]map[string]string
}

// NewMemoryStorage returns an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{profiles: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, profile, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.profiles[profile][key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, profile, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.profiles[profile]
	if !ok {
		items = make(map[string]string)
		m.profiles[profile] = items
	}
	items[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, profile, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.profiles[profile]
	if !ok {
		return nil
	}
	delete(items, key)
	if len(items) == 0 {
		delete(m.profiles, profile)
	}
	return nil
}
