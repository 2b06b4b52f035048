package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a map-backed Store for tests and local development. Unlike
// the shared cache it never evicts; repositories expect durable semantics.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]Record, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []Record
	for key, value := range m.records {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out := make([]byte, len(value))
		copy(out, value)
		records = append(records, Record{Key: key, Value: out})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	_ = ctx
	stored := make([]byte, len(value))
	copy(stored, value)
	m.mu.Lock()
	m.records[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	delete(m.records, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	_ = ctx
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
