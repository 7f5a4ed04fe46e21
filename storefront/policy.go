package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adeilh/go-shopcache/cache"
)

// resource describes how one category of server data is cached.
type resource[T any] struct {
	name  string
	entry cache.Typed[T]
	// ttl of zero means a cached value never expires on its own.
	ttl time.Duration
	// fallback answers a failed fetch when nothing is cached. Nil propagates
	// the fetch error.
	fallback func(err error) (T, error)
}

func (r resource[T]) fresh(ctx context.Context) bool {
	if r.ttl <= 0 {
		return true
	}
	return r.entry.Valid(ctx, r.ttl)
}

func (r resource[T]) store(ctx context.Context, value T) {
	if r.ttl <= 0 {
		r.entry.Set(ctx, value)
		return
	}
	r.entry.SetWithTimestamp(ctx, value)
}

// readThrough serves a fresh cached value, otherwise fetches and caches. A
// failed fetch falls back to whatever is cached, however old, except for
// authentication failures which always propagate.
func readThrough[T any](ctx context.Context, s *Service, r resource[T], fetch func(context.Context) (T, error)) (T, error) {
	log := s.log.WithFields(logrus.Fields{"resource": r.name, "key": r.entry.Key()})

	cached, hit := r.entry.Get(ctx)
	if hit && r.fresh(ctx) {
		log.Debug("cache hit")
		return cached, nil
	}

	value, err := fetch(ctx)
	if err == nil {
		r.store(ctx, value)
		log.Info("refreshed from network")
		return value, nil
	}

	var zero T
	if errors.Is(err, ErrUnauthorized) {
		return zero, err
	}
	if hit {
		log.WithError(err).Warn("serving stale cache")
		if s.onStale != nil {
			s.onStale(r.name, err)
		}
		return cached, nil
	}
	if r.fallback != nil {
		return r.fallback(err)
	}
	return zero, err
}
