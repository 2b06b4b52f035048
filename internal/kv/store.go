package kv

// Package kv provides the key-value store backing catalog and order records.
// Values are opaque JSON blobs; typed decoding happens at the repository
// boundary, not here.

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound signals key absence. Callers distinguish it from store failure
// with errors.Is.
var ErrNotFound = errors.New("key not found")

// Record pairs a key with its raw JSON value.
type Record struct {
	Key   string
	Value []byte
}

// Store is a durable key to JSON-value store with prefix scan. Reads of a
// single key observe the latest committed write for that key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Record, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

const (
	OrderPrefix    = "order:"
	ProductPrefix  = "product:"
	CategoryPrefix = "category:"
)

func OrderKey(id string) string    { return OrderPrefix + id }
func ProductKey(id string) string  { return ProductPrefix + id }
func CategoryKey(id string) string { return CategoryPrefix + id }

type Config struct {
	Provider    string
	DatabaseURL string
}

// NewStore builds a Store from config. The postgres provider is the durable
// production store; memory exists for tests and local development.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Provider {
	case "postgres", "":
		return NewPostgresStore(ctx, cfg.DatabaseURL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported kv provider: %s", cfg.Provider)
	}
}
