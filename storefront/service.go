// Package storefront is the client side of the shop backend. Every read goes
// through a per-resource cache policy: fresh cached data is served without a
// request, expired data is refreshed, and a failed refresh falls back to the
// last cached copy.
package storefront

import (
	"context"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/adeilh/go-shopcache/cache"
	"github.com/adeilh/go-shopcache/httpx"
)

// Service talks to the storefront API and keeps its answers in a cache.Manager.
// It is safe for concurrent use; concurrent mutations of the same ID set
// follow the last-write-wins rule of cache.OptimisticSet.
type Service struct {
	client  *httpx.Client
	cache   *cache.Manager
	log     logrus.FieldLogger
	ttls    TTLs
	onStale StaleHandler

	products cache.Typed[[]Product]
	faqs     cache.Typed[[]FAQItem]
	polls    cache.Typed[[]Poll]
	profile  cache.Typed[AuthUser]
	token    cache.Typed[string]
	saved    *cache.OptimisticSet[int64]
	bought   *cache.OptimisticSet[int64]
	cart     *cache.OptimisticSet[int64]
}

func NewService(client *httpx.Client, m *cache.Manager, opts ...Option) *Service {
	if m == nil {
		m = cache.NewManager(nil)
	}
	s := &Service{
		client:   client,
		cache:    m,
		log:      discardLogger(),
		ttls:     DefaultTTLs(),
		products: cache.NewTyped(m, cache.KeyProducts, validateProducts),
		faqs:     cache.NewTyped(m, cache.KeyFAQs, validateFAQs),
		polls:    cache.NewTyped(m, cache.KeyPolls, validatePolls),
		profile:  cache.NewTyped(m, cache.KeyUserProfile, validateProfile),
		token:    cache.NewTyped[string](m, cache.KeyAuthToken, nil),
		saved:    cache.NewOptimisticSet[int64](m, cache.KeySavedProducts),
		bought:   cache.NewOptimisticSet[int64](m, cache.KeyBoughtProducts),
		cart:     cache.NewOptimisticSet[int64](m, cache.KeyCartItems),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Cache exposes the underlying manager.
func (s *Service) Cache() *cache.Manager { return s.cache }

func (s *Service) get(ctx context.Context, path string, out any) error {
	_, err := s.client.Get(ctx, path, out, s.bearer(ctx))
	return classify(err)
}

func (s *Service) post(ctx context.Context, path string, body, out any) error {
	_, err := s.client.Post(ctx, path, body, out, s.bearer(ctx))
	return classify(err)
}

func (s *Service) put(ctx context.Context, path string, body, out any) error {
	_, err := s.client.Put(ctx, path, body, out, s.bearer(ctx))
	return classify(err)
}

func (s *Service) delete(ctx context.Context, path string, out any) error {
	_, err := s.client.Delete(ctx, path, out, s.bearer(ctx))
	return classify(err)
}

func (s *Service) bearer(ctx context.Context) httpx.RequestOption {
	return httpx.WithBearer(s.Token(ctx))
}

// envelope is the {success, data, error} wrapper most endpoints use.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

type ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (a ack) err(what string) error {
	if a.Success {
		return nil
	}
	return invalidResponse(what, a.Error)
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
