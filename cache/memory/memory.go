package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/adeilh/go-shopcache/cache"
)

var ErrQuotaExceeded = errors.New("memory: quota exceeded")

// Options controls the in-memory store.
type Options struct {
	// Quota caps the total size of keys plus values in bytes. Zero means
	// unlimited.
	Quota int
	// WatchBuffer sizes each watcher's channel; slow watchers miss changes.
	WatchBuffer int
}

func (o Options) withDefaults() Options {
	if o.Quota < 0 {
		o.Quota = 0
	}
	if o.WatchBuffer <= 0 {
		o.WatchBuffer = 32
	}
	return o
}

// Store is a map-backed cache.Store. Every process sharing one Store sees
// the others' writes, and watchers are told about them.
type Store struct {
	opts Options

	mu   sync.RWMutex
	data map[string][]byte
	used int

	watchMu  sync.Mutex
	watchers map[chan cache.Change]struct{}
}

var (
	_ cache.Store        = (*Store)(nil)
	_ cache.BatchDeleter = (*Store)(nil)
	_ cache.Notifier     = (*Store)(nil)
)

func NewStore(opts Options) *Store {
	return &Store{
		opts:     opts.withDefaults(),
		data:     make(map[string][]byte),
		watchers: make(map[chan cache.Change]struct{}),
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	used := s.used
	if old, ok := s.data[key]; ok {
		used -= len(key) + len(old)
	}
	used += len(key) + len(value)
	if s.opts.Quota > 0 && used > s.opts.Quota {
		s.mu.Unlock()
		return ErrQuotaExceeded
	}
	s.data[key] = append([]byte(nil), value...)
	s.used = used
	s.mu.Unlock()

	s.publish(cache.Change{Key: key, Kind: cache.ChangeSet})
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.remove(key) {
		return cache.ErrNotFound
	}
	s.publish(cache.Change{Key: key, Kind: cache.ChangeDelete})
	return nil
}

// DeleteMany removes all given keys; absent keys are ignored.
func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		if s.remove(key) {
			s.publish(cache.Change{Key: key, Kind: cache.ChangeDelete})
		}
	}
	return nil
}

// Keys returns the stored keys in lexical order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Watch subscribes to writes until ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan cache.Change, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan cache.Change, s.opts.WatchBuffer)
	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.watchMu.Unlock()
	}()
	return ch, nil
}

func (s *Store) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.data[key]
	if !ok {
		return false
	}
	s.used -= len(key) + len(old)
	delete(s.data, key)
	return true
}

func (s *Store) publish(change cache.Change) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- change:
		default:
		}
	}
}
