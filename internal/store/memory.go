package store

import (
	"context"
	"sync"
)

// Memory is an in-memory Store for tests and ephemeral runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Load returns the payload stored under key.
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	payload, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	cpy := make([]byte, len(payload))
	copy(cpy, payload)
	return cpy, nil
}

// Save writes the payload under key.
func (m *Memory) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cpy := make([]byte, len(payload))
	copy(cpy, payload)
	m.data[key] = cpy
	return nil
}

// Keys returns all keys currently present in the store.
func (m *Memory) Keys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}
