package bigcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/adeilh/go-shopcache/cache"
)

// Options configures the bigcache-backed store.
type Options struct {
	// Shards must be a power of two.
	Shards int
	// MaxSizeMB caps memory use; writes beyond it fail and Manager treats
	// them as "nothing cached".
	MaxSizeMB int
	// MaxEntryBytes hints the typical entry size for preallocation.
	MaxEntryBytes int
	// LifeWindow bounds how long bigcache keeps an entry. Validity of cached
	// resources is tracked with timestamps, so this only guards memory.
	LifeWindow time.Duration
}

func (o Options) withDefaults() Options {
	if o.Shards <= 0 || o.Shards&(o.Shards-1) != 0 {
		o.Shards = 64
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = 64
	}
	if o.MaxEntryBytes <= 0 {
		o.MaxEntryBytes = 4096
	}
	if o.LifeWindow <= 0 {
		o.LifeWindow = 30 * 24 * time.Hour
	}
	return o
}

// Store implements cache.Store on top of an in-process bigcache instance,
// suited to large catalog payloads that should not pressure the GC.
type Store struct {
	cache *bigcache.BigCache
}

var _ cache.Store = (*Store)(nil)

// NewStore allocates the underlying bigcache.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	cfg := opts.withDefaults()
	bc := bigcache.DefaultConfig(cfg.LifeWindow)
	bc.Shards = cfg.Shards
	bc.HardMaxCacheSize = cfg.MaxSizeMB
	bc.MaxEntrySize = cfg.MaxEntryBytes
	bc.CleanWindow = 0
	bc.Verbose = false

	c, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("bigcache: new: %w", err)
	}
	return &Store{cache: c}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := s.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("bigcache: get: %w", err)
	}
	return payload, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.cache.Set(key, value); err != nil {
		return fmt.Errorf("bigcache: set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.cache.Delete(key); err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return cache.ErrNotFound
		}
		return fmt.Errorf("bigcache: delete: %w", err)
	}
	return nil
}

// Keys walks every shard with the bigcache iterator.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var keys []string
	it := s.cache.Iterator()
	for it.SetNext() {
		entry, err := it.Value()
		if err != nil {
			continue
		}
		keys = append(keys, entry.Key())
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int { return s.cache.Len() }

// Close stops the bigcache instance.
func (s *Store) Close() error { return s.cache.Close() }
