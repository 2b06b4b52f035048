// Package cache provides a shared TTL cache used for catalog responses and
// for deduplicating bursts of reconciliation triggers. It is an optimization
// only; correctness never depends on a cache hit.
package cache

import (
	"context"
	"fmt"
	"time"
)

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// ReconcileKey dedupes reconciliation triggers (callback, postMessage relay,
// IPN) that fire for the same tracking id within a short window.
func ReconcileKey(trackingID string) string {
	return fmt.Sprintf("reconcile:%s", trackingID)
}

// CatalogKey caches the rendered catalog listing.
func CatalogKey() string {
	return "catalog:listing"
}
