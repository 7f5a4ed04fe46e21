package storefront

import (
	"context"
	"fmt"

	"github.com/adeilh/go-shopcache/cache"
)

type productRef struct {
	ProductID int64 `json:"productId"`
}

// SavedProducts returns the ids of bookmarked products. A cached set never
// expires; it is kept current by the mutations below.
func (s *Service) SavedProducts(ctx context.Context) ([]int64, error) {
	return s.idSet(ctx, "saved products", s.saved, "/saved-products/ids")
}

// BoughtProducts returns the ids of purchased products.
func (s *Service) BoughtProducts(ctx context.Context) ([]int64, error) {
	return s.idSet(ctx, "bought products", s.bought, "/bought-products/ids")
}

func (s *Service) idSet(ctx context.Context, name string, set *cache.OptimisticSet[int64], path string) ([]int64, error) {
	r := resource[[]int64]{name: name, entry: cache.NewTyped[[]int64](s.cache, set.Key(), nil)}
	return readThrough(ctx, s, r, func(ctx context.Context) ([]int64, error) {
		return s.fetchIDs(ctx, name, path)
	})
}

func (s *Service) fetchIDs(ctx context.Context, name, path string) ([]int64, error) {
	var resp envelope[[]int64]
	if err := s.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, invalidResponse(name, resp.Error)
	}
	if resp.Data == nil {
		resp.Data = []int64{}
	}
	return resp.Data, nil
}

// SaveProduct bookmarks a product on the server, then mirrors it locally.
func (s *Service) SaveProduct(ctx context.Context, productID int64) error {
	if err := s.saveRemote(ctx, productID); err != nil {
		return err
	}
	s.saved.Add(ctx, productID)
	return nil
}

// UnsaveProduct removes a bookmark on the server, then locally.
func (s *Service) UnsaveProduct(ctx context.Context, productID int64) error {
	if err := s.unsaveRemote(ctx, productID); err != nil {
		return err
	}
	s.saved.Remove(ctx, productID)
	return nil
}

// ToggleSaved flips the bookmark locally before asking the server, so the
// new state is visible immediately. The local set is then reconciled with
// the server's list; if that list cannot be fetched after a failed call, the
// local flip is undone. It reports whether the product ends up saved.
func (s *Service) ToggleSaved(ctx context.Context, productID int64) (bool, error) {
	if productID <= 0 {
		return false, fmt.Errorf("%w: product id %d", ErrInvalidInput, productID)
	}
	saved := s.saved.Toggle(ctx, productID)

	var err error
	if saved {
		err = s.saveRemote(ctx, productID)
	} else {
		err = s.unsaveRemote(ctx, productID)
	}

	truth, fetchErr := s.fetchIDs(ctx, "saved products", "/saved-products/ids")
	switch {
	case fetchErr == nil:
		s.saved.Reconcile(ctx, truth)
	case err != nil:
		s.saved.Toggle(ctx, productID)
	}
	if err != nil {
		s.log.WithError(err).WithField("product_id", productID).Warn("bookmark toggle rejected")
		return s.saved.Contains(ctx, productID), err
	}
	return s.saved.Contains(ctx, productID), nil
}

func (s *Service) saveRemote(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return fmt.Errorf("%w: product id %d", ErrInvalidInput, productID)
	}
	var resp ack
	if err := s.post(ctx, "/saved-products", productRef{ProductID: productID}, &resp); err != nil {
		return err
	}
	return resp.err("save product")
}

func (s *Service) unsaveRemote(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return fmt.Errorf("%w: product id %d", ErrInvalidInput, productID)
	}
	var resp ack
	if err := s.delete(ctx, idPath("/saved-products", productID), &resp); err != nil {
		return err
	}
	return resp.err("unsave product")
}

// BuyProduct records a purchase and mirrors it in the bought set.
func (s *Service) BuyProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return fmt.Errorf("%w: product id %d", ErrInvalidInput, productID)
	}
	var resp ack
	if err := s.post(ctx, "/bought-products", productRef{ProductID: productID}, &resp); err != nil {
		return err
	}
	if err := resp.err("buy product"); err != nil {
		return err
	}
	s.bought.Add(ctx, productID)
	return nil
}

func (s *Service) ClearSavedProductsCache(ctx context.Context)  { s.saved.Clear(ctx) }
func (s *Service) ClearBoughtProductsCache(ctx context.Context) { s.bought.Clear(ctx) }

// Cart is a purely local set of product ids. It is not part of the
// user-scoped eviction, so it survives sign-out.
func (s *Service) Cart() *cache.OptimisticSet[int64] { return s.cart }
