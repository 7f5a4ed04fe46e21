package storefront

import (
	"context"
	"fmt"
	"strings"

	"github.com/adeilh/go-shopcache/cache"
)

type ordersResponse struct {
	Success        bool            `json:"success"`
	PersonalOrders []PersonalOrder `json:"personalOrders"`
	Error          string          `json:"error,omitempty"`
}

type orderResponse struct {
	Success       bool           `json:"success"`
	PersonalOrder *PersonalOrder `json:"personalOrder"`
	Error         string         `json:"error,omitempty"`
}

func (r orderResponse) order(what string) (PersonalOrder, error) {
	if !r.Success || r.PersonalOrder == nil {
		return PersonalOrder{}, invalidResponse(what, r.Error)
	}
	return *r.PersonalOrder, nil
}

func (s *Service) ordersEntry(scope string) cache.Typed[[]PersonalOrderSummary] {
	return cache.NewTyped(s.cache, cache.NamespacePersonalOrders.KeyFor(scope), validateOrders)
}

// PersonalOrders lists the signed-in user's commissioned orders. The list
// is cached per user for PersonalOrdersTTL.
func (s *Service) PersonalOrders(ctx context.Context) ([]PersonalOrderSummary, error) {
	scope, err := s.userScope(ctx)
	if err != nil {
		return nil, err
	}
	r := resource[[]PersonalOrderSummary]{
		name:  "personal orders",
		entry: s.ordersEntry(scope),
		ttl:   s.ttls.PersonalOrders,
	}
	return readThrough(ctx, s, r, func(ctx context.Context) ([]PersonalOrderSummary, error) {
		var resp ordersResponse
		if err := s.get(ctx, "/personal-orders", &resp); err != nil {
			return nil, err
		}
		if !resp.Success || resp.PersonalOrders == nil {
			return nil, invalidResponse("personal orders", resp.Error)
		}
		summaries := make([]PersonalOrderSummary, 0, len(resp.PersonalOrders))
		for _, o := range resp.PersonalOrders {
			summaries = append(summaries, o.Summary())
		}
		return summaries, nil
	})
}

// PersonalOrder fetches one order in full. It is not cached.
func (s *Service) PersonalOrder(ctx context.Context, orderID int64) (PersonalOrder, error) {
	var resp orderResponse
	if err := s.get(ctx, idPath("/personal-orders", orderID), &resp); err != nil {
		return PersonalOrder{}, err
	}
	return resp.order("personal order")
}

// AllPersonalOrders lists every user's orders. Only admins may call it; it
// is not cached.
func (s *Service) AllPersonalOrders(ctx context.Context) ([]PersonalOrder, error) {
	if !s.Authenticated(ctx) {
		return nil, ErrNotAuthenticated
	}
	var resp ordersResponse
	if err := s.get(ctx, "/personal-orders/all", &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.PersonalOrders == nil {
		return nil, invalidResponse("all personal orders", resp.Error)
	}
	return resp.PersonalOrders, nil
}

// CreatePersonalOrder submits a new order. Status defaults to pending.
func (s *Service) CreatePersonalOrder(ctx context.Context, in CreatePersonalOrderInput) (PersonalOrder, error) {
	if strings.TrimSpace(in.OrderTitle) == "" || strings.TrimSpace(in.OrderDescription) == "" {
		return PersonalOrder{}, fmt.Errorf("%w: order title and description are required", ErrInvalidInput)
	}
	if in.OrderPrice < 0 {
		return PersonalOrder{}, fmt.Errorf("%w: negative price", ErrInvalidInput)
	}
	if in.OrderStatus == "" {
		in.OrderStatus = OrderPending
	}

	var resp orderResponse
	if err := s.post(ctx, "/personal-orders", in, &resp); err != nil {
		return PersonalOrder{}, err
	}
	order, err := resp.order("create personal order")
	if err != nil {
		return PersonalOrder{}, err
	}
	s.invalidateOrders(ctx)
	return order, nil
}

func (s *Service) UpdatePersonalOrder(ctx context.Context, orderID int64, in UpdatePersonalOrderInput) (PersonalOrder, error) {
	var resp orderResponse
	if err := s.put(ctx, idPath("/personal-orders", orderID), in, &resp); err != nil {
		return PersonalOrder{}, err
	}
	order, err := resp.order("update personal order")
	if err != nil {
		return PersonalOrder{}, err
	}
	s.invalidateOrders(ctx)
	return order, nil
}

func (s *Service) DeletePersonalOrder(ctx context.Context, orderID int64) error {
	var resp ack
	if err := s.delete(ctx, idPath("/personal-orders", orderID), &resp); err != nil {
		return err
	}
	if err := resp.err("delete personal order"); err != nil {
		return err
	}
	s.invalidateOrders(ctx)
	return nil
}

// invalidateOrders drops the cached order list of the current user. Without
// a cached profile there is nothing scoped to drop.
func (s *Service) invalidateOrders(ctx context.Context) {
	user, ok := s.profile.Get(ctx)
	if !ok {
		return
	}
	s.ordersEntry(scopeOf(user)).Remove(ctx)
}
