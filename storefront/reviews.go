package storefront

import (
	"context"
	"fmt"
	"strings"

	"github.com/adeilh/go-shopcache/cache"
)

func (s *Service) reviewedSet(scope string) *cache.OptimisticSet[int64] {
	return cache.NewOptimisticSet[int64](s.cache, cache.NamespaceReviewedProducts.KeyFor(scope))
}

// ReviewedProducts returns the ids the signed-in user already reviewed.
// With nothing cached and the backend unreachable it answers an empty set.
func (s *Service) ReviewedProducts(ctx context.Context) ([]int64, error) {
	scope, err := s.userScope(ctx)
	if err != nil {
		return nil, err
	}
	set := s.reviewedSet(scope)
	r := resource[[]int64]{
		name:  "reviewed products",
		entry: cache.NewTyped[[]int64](s.cache, set.Key(), nil),
		ttl:   s.ttls.ReviewedProducts,
		fallback: func(err error) ([]int64, error) {
			s.log.WithError(err).Warn("reviewed products unavailable, assuming none")
			return []int64{}, nil
		},
	}
	return readThrough(ctx, s, r, func(ctx context.Context) ([]int64, error) {
		return s.fetchIDs(ctx, "reviewed products", "/reviews/mine/ids")
	})
}

// SubmitReview posts a review. On success the products cache is dropped,
// since product ratings change server-side, and the product joins the
// reviewed set if that set is cached.
func (s *Service) SubmitReview(ctx context.Context, in ReviewInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if strings.TrimSpace(in.MaterialName) == "" {
		return fmt.Errorf("%w: material name is required", ErrInvalidInput)
	}

	var resp ack
	if err := s.post(ctx, "/reviews", in, &resp); err != nil {
		return err
	}
	if err := resp.err("submit review"); err != nil {
		return err
	}

	s.ClearProductsCache(ctx)
	if in.ProductID > 0 {
		if user, ok := s.profile.Get(ctx); ok {
			set := s.reviewedSet(scopeOf(user))
			if _, cached := set.Items(ctx); cached {
				set.Add(ctx, in.ProductID)
			}
		}
	}
	return nil
}

// ReviewsByProduct lists reviews of a product. Failures yield an empty list.
func (s *Service) ReviewsByProduct(ctx context.Context, productID int64) []Review {
	var reviews []Review
	if err := s.get(ctx, idPath("/reviews/product", productID), &reviews); err != nil {
		s.log.WithError(err).WithField("product_id", productID).Debug("reviews unavailable")
		return []Review{}
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews
}
