package kv

import (
	"context"
	"sync"
)

// Memory implements Store backed by process memory. Intended for tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Driver returns the backend identifier.
func (m *Memory) Driver() Driver { return DriverMemory }

// Load returns a copy of the payload stored under key.
func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp, nil
}

// Save replaces the payload under key with a copy of payload.
func (m *Memory) Save(_ context.Context, key string, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

// Delete removes the payload under key. Deleting an absent key is a no-op.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
