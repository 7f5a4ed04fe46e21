package bigcache

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/adeilh/go-shopcache/cache"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSetGetDelete(t *testing.T) {
	store := newTestStore(t, Options{Shards: 4, MaxSizeMB: 1})
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	payload, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(payload) != "v" {
		t.Fatalf("Get() = %q, want %q", payload, "v")
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "k"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("Delete(absent) error = %v, want ErrNotFound", err)
	}
}

func TestStoreKeys(t *testing.T) {
	store := newTestStore(t, Options{Shards: 4, MaxSizeMB: 1})
	ctx := context.Background()
	for _, k := range []string{"b", "a", "c"} {
		if err := store.Set(ctx, k, []byte("1")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if !slices.Equal(keys, []string{"a", "b", "c"}) {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestStoreOversizedEntryIsAMissThroughManager(t *testing.T) {
	store := newTestStore(t, Options{Shards: 2, MaxSizeMB: 1})
	m := cache.NewManager(store)
	ctx := context.Background()

	huge := strings.Repeat("x", 2<<20)
	m.SetItem(ctx, "huge", huge)

	var got string
	if m.GetItem(ctx, "huge", &got) {
		t.Fatalf("GetItem() hit for an entry larger than the cache")
	}
}

func TestManagerValidityOnBigcache(t *testing.T) {
	store := newTestStore(t, Options{Shards: 4, MaxSizeMB: 1})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := cache.NewManager(store, cache.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	m.SetWithTimestamp(ctx, cache.KeyFAQs, []string{"q"})
	if !m.IsCacheValid(ctx, cache.KeyFAQs, time.Hour) {
		t.Fatalf("IsCacheValid() = false right after write")
	}
	now = now.Add(time.Hour)
	if m.IsCacheValid(ctx, cache.KeyFAQs, time.Hour) {
		t.Fatalf("IsCacheValid() = true after one hour")
	}
}
