package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps documents in process memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, doc json.RawMessage) error {
	if key == "" {
		return ErrEmptyKey
	}
	cp := make([]byte, len(doc))
	copy(cp, doc)

	m.mu.Lock()
	m.docs[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	delete(m.docs, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// Keys returns the stored keys, in no particular order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	return keys
}
