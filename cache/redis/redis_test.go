package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeilh/go-shopcache/cache"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := NewStore(Options{Addr: mr.Addr(), Prefix: "test:"})
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestStoreSetGetDelete(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cachedProducts", []byte(`[{"id":1}]`)))

	raw, err := mr.Get("test:cachedProducts")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, raw, "key should be stored under the prefix")

	payload, err := store.Get(ctx, "cachedProducts")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(payload))

	require.NoError(t, store.Delete(ctx, "cachedProducts"))

	_, err = store.Get(ctx, "cachedProducts")
	assert.ErrorIs(t, err, cache.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "cachedProducts"), cache.ErrNotFound)
}

func TestStoreSetHasNoExpiry(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "savedProducts", []byte("[1,2]")))
	mr.FastForward(24 * time.Hour)

	payload, err := store.Get(ctx, "savedProducts")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(payload))
}

func TestStoreKeysOnlyReturnsPrefixedKeys(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("foreign", "x"))
	for i := 0; i < 250; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("k%03d", i), []byte("1")))
	}

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 250)
	sort.Strings(keys)
	assert.Equal(t, "k000", keys[0])
	assert.NotContains(t, keys, "foreign")
}

func TestStoreDeleteMany(t *testing.T) {
	mr, store := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Set(ctx, "b", []byte("1")))
	require.NoError(t, store.Set(ctx, "c", []byte("1")))

	require.NoError(t, store.DeleteMany(ctx, "a", "b", "missing"))

	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("test:c"))
}

func TestStoreWatchReceivesChanges(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Set(context.Background(), "savedProducts", []byte("[1]")))
	require.NoError(t, store.Delete(context.Background(), "savedProducts"))

	var got []cache.Change
	for len(got) < 2 {
		select {
		case change := <-changes:
			got = append(got, change)
		case <-ctx.Done():
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []cache.Change{
		{Key: "savedProducts", Kind: cache.ChangeSet},
		{Key: "savedProducts", Kind: cache.ChangeDelete},
	}, got)
}

func TestStoreWorksWithManager(t *testing.T) {
	_, store := setupMiniRedis(t)
	ctx := context.Background()
	m := cache.NewManager(store)

	m.SetWithTimestamp(ctx, cache.KeyPolls, []int{1})
	m.SetItem(ctx, "theme", "dark")
	assert.True(t, m.IsCacheValid(ctx, cache.KeyPolls, time.Minute))

	assert.Equal(t, 2, m.ClearUserCache(ctx))

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"theme"}, keys)
}

func TestNewStoreFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewStoreFromURL(context.Background(), "redis://"+mr.Addr(), Options{})
	require.NoError(t, err)
	defer store.Close()

	_, err = NewStoreFromURL(context.Background(), "invalid://url::", Options{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse url")
}

func TestStoreConcurrentSetGet(t *testing.T) {
	_, store := setupMiniRedis(t)

	const workers = 8
	const opsPerWorker = 25

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("concurrent:%d:%d", worker, i)
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if err := store.Set(ctx, key, []byte(key)); err != nil {
					cancel()
					errCh <- fmt.Errorf("worker %d set failed: %w", worker, err)
					return
				}
				payload, err := store.Get(ctx, key)
				cancel()
				if err != nil {
					errCh <- fmt.Errorf("worker %d get failed: %w", worker, err)
					return
				}
				if string(payload) != key {
					errCh <- fmt.Errorf("worker %d mismatch: got %q want %q", worker, payload, key)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent op failed: %v", err)
	}
}
