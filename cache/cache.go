package cache

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cache: key not found")

// Store is the durable key/value port the cache is built on. Values are
// JSON text; implementations may be backed by memory, Redis, Postgres or any
// other KV store. Set may fail (quota, availability); Manager absorbs that.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// BatchDeleter is implemented by stores that can remove many keys in one
// round-trip. Manager falls back to Delete per key otherwise.
type BatchDeleter interface {
	DeleteMany(ctx context.Context, keys ...string) error
}

// ChangeKind describes what happened to a key.
type ChangeKind string

const (
	ChangeSet    ChangeKind = "set"
	ChangeDelete ChangeKind = "delete"
)

// Change is emitted by a Notifier whenever a key is written or removed by
// any writer sharing the store.
type Change struct {
	Key  string     `json:"key"`
	Kind ChangeKind `json:"kind"`
}

// Notifier is implemented by stores that can push writes made by other
// writers. Delivery is best-effort; the channel closes when ctx is done.
type Notifier interface {
	Watch(ctx context.Context) (<-chan Change, error)
}
