package cache

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrNotFound = errors.New("key not found")

// Bounded so a busy storefront cannot grow the dev-mode cache without limit.
const memoryCacheEntries = 10_000

// MemoryProvider is the single-process fallback used when no redis is
// configured. Entries carry their own deadline; expiry is lazy, on read.
type MemoryProvider struct {
	cache *lru.Cache[string, memoryEntry]
}

type memoryEntry struct {
	value    string
	deadline time.Time
}

func NewMemoryProvider() (*MemoryProvider, error) {
	c, err := lru.New[string, memoryEntry](memoryCacheEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryProvider{cache: c}, nil
}

func (m *MemoryProvider) Get(_ context.Context, key string) (string, error) {
	entry, exists := m.cache.Get(key)
	if !exists {
		return "", ErrNotFound
	}
	if time.Now().After(entry.deadline) {
		m.cache.Remove(key)
		return "", ErrNotFound
	}
	return entry.value, nil
}

func (m *MemoryProvider) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.cache.Add(key, memoryEntry{value: value, deadline: time.Now().Add(ttl)})
	return nil
}

func (m *MemoryProvider) Delete(_ context.Context, key string) error {
	m.cache.Remove(key)
	return nil
}

func (m *MemoryProvider) Close() error {
	return nil
}
