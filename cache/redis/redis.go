package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/adeilh/go-shopcache/cache"
	goredis "github.com/redis/go-redis/v9"
)

// Store implements cache.Store on Redis. Every write is published on
// Options.Channel so other processes sharing the prefix can react.
type Store struct {
	opts   Options
	client *goredis.Client
}

var (
	_ cache.Store        = (*Store)(nil)
	_ cache.BatchDeleter = (*Store)(nil)
	_ cache.Notifier     = (*Store)(nil)
)

// NewStore builds a Redis-backed cache store.
func NewStore(opts Options) *Store {
	cfg := opts.withDefaults()
	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	return &Store{opts: cfg, client: client}
}

// NewStoreFromURL parses a redis:// URL and verifies the connection.
func NewStoreFromURL(ctx context.Context, redisURL string, opts Options) (*Store, error) {
	parsed, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	opts.Addr = parsed.Addr
	opts.Password = parsed.Password
	opts.DB = parsed.DB
	store := NewStore(opts)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get: %w", err)
	}
	return payload, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	note, err := s.notification(key, cache.ChangeSet)
	if err != nil {
		return err
	}
	_, err = s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.key(key), value, 0)
		p.Publish(ctx, s.opts.Channel, note)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	if n == 0 {
		return cache.ErrNotFound
	}
	s.publish(ctx, key, cache.ChangeDelete)
	return nil
}

// DeleteMany removes keys in a single pipeline; absent keys are ignored.
func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, key := range keys {
			note, err := s.notification(key, cache.ChangeDelete)
			if err != nil {
				return err
			}
			p.Del(ctx, s.key(key))
			p.Publish(ctx, s.opts.Channel, note)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete many: %w", err)
	}
	return nil
}

// Keys enumerates keys under the store prefix with SCAN.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.opts.Prefix+"*", s.opts.ScanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: scan: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.opts.Prefix))
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Watch subscribes to the change channel until ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan cache.Change, error) {
	sub := s.client.Subscribe(ctx, s.opts.Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis: subscribe: %w", err)
	}
	out := make(chan cache.Change, 32)
	go func() {
		defer close(out)
		defer sub.Close()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change cache.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(key string) string { return s.opts.Prefix + key }

func (s *Store) notification(key string, kind cache.ChangeKind) (string, error) {
	payload, err := json.Marshal(cache.Change{Key: key, Kind: kind})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (s *Store) publish(ctx context.Context, key string, kind cache.ChangeKind) {
	note, err := s.notification(key, kind)
	if err != nil {
		return
	}
	_ = s.client.Publish(ctx, s.opts.Channel, note).Err()
}
