package cache

import (
	"context"
	"slices"
)

// OptimisticSet mirrors a server-owned set of values in the cache so local
// mutations can be shown before the server confirms them. It keeps no
// rollback log: when the confirming call fails, the caller reconciles with
// the server's answer.
//
// Add and Remove rewrite the whole list and are not serialized against each
// other; two concurrent mutations of the same set race and the last write
// wins.
type OptimisticSet[T comparable] struct {
	entry Typed[[]T]
}

// NewOptimisticSet returns a set stored under key.
func NewOptimisticSet[T comparable](m *Manager, key string) *OptimisticSet[T] {
	return &OptimisticSet[T]{entry: NewTyped[[]T](m, key, nil)}
}

func (s *OptimisticSet[T]) Key() string { return s.entry.Key() }

// Items returns the cached members and whether the set is cached at all.
func (s *OptimisticSet[T]) Items(ctx context.Context) ([]T, bool) {
	return s.entry.Get(ctx)
}

// Contains reports whether v is a cached member.
func (s *OptimisticSet[T]) Contains(ctx context.Context, v T) bool {
	items, _ := s.entry.Get(ctx)
	return slices.Contains(items, v)
}

// Add inserts v unless it is already present and returns the resulting set.
func (s *OptimisticSet[T]) Add(ctx context.Context, v T) []T {
	items, _ := s.entry.Get(ctx)
	if slices.Contains(items, v) {
		return items
	}
	next := append(slices.Clone(items), v)
	s.entry.Set(ctx, next)
	return next
}

// Remove drops every occurrence of v and returns the resulting set.
func (s *OptimisticSet[T]) Remove(ctx context.Context, v T) []T {
	items, _ := s.entry.Get(ctx)
	next := make([]T, 0, len(items))
	for _, item := range items {
		if item != v {
			next = append(next, item)
		}
	}
	s.entry.Set(ctx, next)
	return next
}

// Toggle removes v when present and adds it otherwise. It reports whether v
// is a member afterwards.
func (s *OptimisticSet[T]) Toggle(ctx context.Context, v T) bool {
	if s.Contains(ctx, v) {
		s.Remove(ctx, v)
		return false
	}
	s.Add(ctx, v)
	return true
}

// Reconcile replaces the cached set with the server's view.
func (s *OptimisticSet[T]) Reconcile(ctx context.Context, truth []T) []T {
	if truth == nil {
		truth = []T{}
	}
	s.entry.Set(ctx, truth)
	return truth
}

// Clear removes the set from the cache.
func (s *OptimisticSet[T]) Clear(ctx context.Context) { s.entry.Remove(ctx) }
