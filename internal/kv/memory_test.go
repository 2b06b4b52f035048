package kv

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "order:1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err := store.Get(ctx, "order:1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("Get() = %q, want %q", got, `{"a":1}`)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "order:missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListPrefix(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	for _, key := range []string{"order:b", "order:a", "product:x"} {
		if err := store.Set(ctx, key, []byte("v")); err != nil {
			t.Fatalf("Set(%q) error: %v", key, err)
		}
	}

	records, err := store.List(ctx, "order:")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if records[0].Key != "order:a" || records[1].Key != "order:b" {
		t.Fatalf("List() keys = %q, %q; want sorted order:a, order:b", records[0].Key, records[1].Key)
	}
}

func TestMemoryStoreValueIsolation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte("abc")
	if err := store.Set(ctx, "k", original); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	original[0] = 'z'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value mutated through caller slice: got %q", got)
	}

	got[0] = 'z'
	again, _ := store.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: got %q", again)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestOrderKeyHelpers(t *testing.T) {
	t.Parallel()

	if got := OrderKey("abc"); got != "order:abc" {
		t.Fatalf("OrderKey() = %q, want order:abc", got)
	}
	if got := ProductKey("p1"); got != "product:p1" {
		t.Fatalf("ProductKey() = %q, want product:p1", got)
	}
	if got := CategoryKey("c1"); got != "category:c1" {
		t.Fatalf("CategoryKey() = %q, want category:c1", got)
	}
}
