package storefront

import (
	"context"

	"github.com/adeilh/go-shopcache/cache"
)

// WatchSavedProducts calls fn with the current saved set whenever it is
// written, by this Service or by another writer sharing the store. Delivery
// is best effort; it stops when ctx is done.
// Stores without change notifications yield cache.ErrWatchUnsupported.
func (s *Service) WatchSavedProducts(ctx context.Context, fn func([]int64)) error {
	return s.watchSet(ctx, s.saved, cache.NamespaceSavedProducts, fn)
}

// WatchCart is WatchSavedProducts for the cart.
func (s *Service) WatchCart(ctx context.Context, fn func([]int64)) error {
	return s.watchSet(ctx, s.cart, cache.NamespaceCart, fn)
}

func (s *Service) watchSet(ctx context.Context, set *cache.OptimisticSet[int64], ns cache.Namespace, fn func([]int64)) error {
	changes, err := s.cache.Watch(ctx, ns)
	if err != nil {
		return err
	}
	go func() {
		for change := range changes {
			if change.Key != set.Key() {
				continue
			}
			items, _ := set.Items(ctx)
			if items == nil {
				items = []int64{}
			}
			fn(items)
		}
	}()
	return nil
}
