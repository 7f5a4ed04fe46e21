package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrWatchUnsupported = errors.New("cache: store does not support change notifications")

// Manager is a failure-safe facade over a Store. None of its operations
// return storage errors: every fault is logged and surfaces as a miss.
type Manager struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time
}

type ManagerOption func(*Manager)

// WithLogger routes absorbed storage faults to the given logger.
func WithLogger(log logrus.FieldLogger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the time source used for timestamps and validity checks.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager wraps store. A nil store behaves as permanently empty.
func NewManager(store Store, opts ...ManagerOption) *Manager {
	if store == nil {
		store = nopStore{}
	}
	m := &Manager{store: store, log: discardLogger(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time { return m.now() }

// Store exposes the underlying port.
func (m *Manager) Store() Store { return m.store }

// SetItem serializes value and writes it under key.
func (m *Manager) SetItem(ctx context.Context, key string, value any) {
	m.setItem(ctx, key, value)
}

func (m *Manager) setItem(ctx context.Context, key string, value any) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		m.fault("set", key, err)
		return false
	}
	if err := m.store.Set(ctx, key, payload); err != nil {
		m.fault("set", key, err)
		return false
	}
	return true
}

// GetItem decodes the value under key into dst. It reports false when the
// key is absent, holds JSON null, or cannot be decoded into dst.
func (m *Manager) GetItem(ctx context.Context, key string, dst any) bool {
	payload, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.fault("get", key, err)
		}
		return false
	}
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		m.fault("decode", key, err)
		return false
	}
	return true
}

// RemoveItem deletes key. Removing an absent key is not a fault.
func (m *Manager) RemoveItem(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		m.fault("delete", key, err)
	}
}

// SetWithTimestamp writes value and then the current time in milliseconds
// under the timestamp sibling. The two writes are not atomic; a value
// without a timestamp is never considered valid. When the value write fails
// the old timestamp is dropped, so whatever value remains reads as stale.
func (m *Manager) SetWithTimestamp(ctx context.Context, key string, value any) {
	if !m.setItem(ctx, key, value) {
		m.RemoveItem(ctx, TimestampKey(key))
		return
	}
	m.setItem(ctx, TimestampKey(key), m.now().UnixMilli())
}

// Timestamp returns the recorded write time of key.
func (m *Manager) Timestamp(ctx context.Context, key string) (time.Time, bool) {
	var ms int64
	if !m.GetItem(ctx, TimestampKey(key), &ms) || ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// IsCacheValid reports whether key was written with a timestamp less than
// d ago.
func (m *Manager) IsCacheValid(ctx context.Context, key string, d time.Duration) bool {
	written, ok := m.Timestamp(ctx, key)
	if !ok {
		return false
	}
	return m.now().Sub(written) < d
}

// ClearUserCache removes every key belonging to UserNamespaces. It is the
// sign-out boundary.
func (m *Manager) ClearUserCache(ctx context.Context) int {
	return m.Clear(ctx, UserNamespaces...)
}

// Clear removes every stored key matching any of the namespaces and returns
// how many keys were targeted.
func (m *Manager) Clear(ctx context.Context, namespaces ...Namespace) int {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		m.fault("keys", "*", err)
		return 0
	}
	var doomed []string
	for _, key := range keys {
		if MatchAny(key, namespaces...) {
			doomed = append(doomed, key)
		}
	}
	if len(doomed) == 0 {
		return 0
	}
	if batch, ok := m.store.(BatchDeleter); ok {
		if err := batch.DeleteMany(ctx, doomed...); err != nil {
			m.fault("delete", "*", err)
		}
		return len(doomed)
	}
	for _, key := range doomed {
		m.RemoveItem(ctx, key)
	}
	return len(doomed)
}

// Watch streams changes to keys in the given namespaces (all keys when none
// are given). It requires a Store implementing Notifier.
func (m *Manager) Watch(ctx context.Context, namespaces ...Namespace) (<-chan Change, error) {
	notifier, ok := m.store.(Notifier)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	src, err := notifier.Watch(ctx)
	if err != nil {
		return nil, err
	}
	if len(namespaces) == 0 {
		return src, nil
	}
	out := make(chan Change, 16)
	go func() {
		defer close(out)
		for change := range src {
			if !MatchAny(change.Key, namespaces...) {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (m *Manager) fault(op, key string, err error) {
	m.log.WithFields(logrus.Fields{"op": op, "key": key}).WithError(err).Error("cache operation failed")
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type nopStore struct{}

func (nopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
func (nopStore) Set(context.Context, string, []byte) error   { return nil }
func (nopStore) Delete(context.Context, string) error        { return nil }
func (nopStore) Keys(context.Context) ([]string, error)      { return nil, nil }
