package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Typed binds a key to a value type and an optional shape check. A stored
// value that fails to decode or fails the check is treated as a miss.
type Typed[T any] struct {
	m        *Manager
	key      string
	validate func(T) error
}

// NewTyped returns a typed view of key. validate may be nil.
func NewTyped[T any](m *Manager, key string, validate func(T) error) Typed[T] {
	return Typed[T]{m: m, key: key, validate: validate}
}

func (t Typed[T]) Key() string { return t.key }

// Get returns the cached value and whether it was usable.
func (t Typed[T]) Get(ctx context.Context) (T, bool) {
	var value T
	if !t.m.GetItem(ctx, t.key, &value) {
		var zero T
		return zero, false
	}
	if t.validate != nil {
		if err := t.validate(value); err != nil {
			t.m.log.WithFields(logrus.Fields{"op": "validate", "key": t.key}).WithError(err).Warn("cached value rejected")
			var zero T
			return zero, false
		}
	}
	return value, true
}

// Set writes value without touching the timestamp sibling.
func (t Typed[T]) Set(ctx context.Context, value T) { t.m.SetItem(ctx, t.key, value) }

// SetWithTimestamp writes value and refreshes its timestamp.
func (t Typed[T]) SetWithTimestamp(ctx context.Context, value T) {
	t.m.SetWithTimestamp(ctx, t.key, value)
}

// Valid reports whether the entry was written less than ttl ago.
func (t Typed[T]) Valid(ctx context.Context, ttl time.Duration) bool {
	return t.m.IsCacheValid(ctx, t.key, ttl)
}

// Remove deletes the value and its timestamp.
func (t Typed[T]) Remove(ctx context.Context) {
	t.m.RemoveItem(ctx, t.key)
	t.m.RemoveItem(ctx, TimestampKey(t.key))
}
