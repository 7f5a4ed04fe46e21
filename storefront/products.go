package storefront

import (
	"context"
	"fmt"
)

// Products returns the catalog. Cached for ProductsTTL; on failure an
// expired copy is served when one exists.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	r := resource[[]Product]{name: "products", entry: s.products, ttl: s.ttls.Products}
	return readThrough(ctx, s, r, func(ctx context.Context) ([]Product, error) {
		var products []Product
		if err := s.get(ctx, "/products", &products); err != nil {
			return nil, err
		}
		if products == nil {
			products = []Product{}
		}
		return products, nil
	})
}

// ProductByID fetches a single product. It is not cached.
func (s *Service) ProductByID(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: product id %d", ErrInvalidInput, id)
	}
	var p Product
	if err := s.get(ctx, idPath("/products", id), &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// ClearProductsCache drops the cached catalog so the next read refetches.
func (s *Service) ClearProductsCache(ctx context.Context) {
	s.products.Remove(ctx)
	s.log.Debug("products cache cleared")
}
