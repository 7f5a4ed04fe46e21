package storefront_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"github.com/adeilh/go-shopcache/cache"
	"github.com/adeilh/go-shopcache/cache/memory"
	"github.com/adeilh/go-shopcache/httpx"
	"github.com/adeilh/go-shopcache/internal/mockapi"
	"github.com/adeilh/go-shopcache/storefront"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	api   *mockapi.Server
	url   string
	store *memory.Store
	clock *fakeClock
	svc   *storefront.Service
}

func newHarness(t *testing.T, opts ...storefront.Option) *harness {
	t.Helper()
	log, _ := test.NewNullLogger()
	api, err := mockapi.New(mockapi.Options{Logger: log, BcryptCost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("mockapi.New() error = %v", err)
	}
	ts := httpx.NewTestServer(api.Handler())
	t.Cleanup(ts.Close)

	h := &harness{
		api:   api,
		url:   ts.BaseURL() + "/api",
		store: memory.NewStore(memory.Options{}),
		clock: &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.svc = h.service(h.store, opts...)
	return h
}

// service builds another client against the same backend.
func (h *harness) service(store cache.Store, opts ...storefront.Option) *storefront.Service {
	m := cache.NewManager(store, cache.WithClock(h.clock.Now))
	return storefront.NewService(httpx.NewClient(httpx.WithBaseURL(h.url)), m, opts...)
}

func (h *harness) login(t *testing.T) storefront.AuthUser {
	t.Helper()
	user, err := h.svc.Login(context.Background(), mockapi.DemoUserEmail, mockapi.DemoPassword)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return user
}

func TestProductsServedFromCacheWithinTTL(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Products(ctx)
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("Products() returned %d items, want 3", len(first))
	}

	h.clock.Advance(4 * time.Minute)
	if _, err := h.svc.Products(ctx); err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if got := h.api.Hits("GET", "/api/products"); got != 1 {
		t.Fatalf("requests within TTL = %d, want 1", got)
	}

	h.clock.Advance(2 * time.Minute)
	if _, err := h.svc.Products(ctx); err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if got := h.api.Hits("GET", "/api/products"); got != 2 {
		t.Fatalf("requests after TTL = %d, want 2", got)
	}
}

func TestProductsServeStaleOnFailure(t *testing.T) {
	var staleResources []string
	h := newHarness(t, storefront.WithStaleHandler(func(resource string, cause error) {
		staleResources = append(staleResources, resource)
	}))
	ctx := context.Background()

	if _, err := h.svc.Products(ctx); err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	h.clock.Advance(time.Hour)
	h.api.Fail("GET", "/api/products", httpx.StatusInternalError)

	products, err := h.svc.Products(ctx)
	if err != nil {
		t.Fatalf("Products() with stale cache error = %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("stale Products() returned %d items", len(products))
	}
	if !slices.Equal(staleResources, []string{"products"}) {
		t.Fatalf("stale handler calls = %v", staleResources)
	}
}

func TestProductsWithoutCachePropagateFailure(t *testing.T) {
	h := newHarness(t)
	h.api.Fail("GET", "/api/products", httpx.StatusServiceUnavailable)

	products, err := h.svc.Products(context.Background())
	if err == nil {
		t.Fatalf("Products() error = nil, want failure")
	}
	if httpx.StatusCode(err) != httpx.StatusServiceUnavailable {
		t.Fatalf("StatusCode() = %d, want 503", httpx.StatusCode(err))
	}
	if products != nil {
		t.Fatalf("Products() = %v, want nil", products)
	}
}

func TestCorruptCacheIsRefetched(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_ = h.store.Set(ctx, cache.KeyProducts, []byte("{not json"))
	_ = h.store.Set(ctx, cache.TimestampKey(cache.KeyProducts), []byte("1709294400000"))

	products, err := h.svc.Products(ctx)
	if err != nil || len(products) != 3 {
		t.Fatalf("Products() = %d items, %v", len(products), err)
	}
	if got := h.api.Hits("GET", "/api/products"); got != 1 {
		t.Fatalf("requests = %d, want 1", got)
	}

	// well-formed JSON of the wrong shape is also a miss
	_ = h.store.Set(ctx, cache.KeyProducts, []byte(`[{"title":"no id"}]`))
	if _, err := h.svc.Products(ctx); err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if got := h.api.Hits("GET", "/api/products"); got != 2 {
		t.Fatalf("requests after shape mismatch = %d, want 2", got)
	}
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (brokenStore) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (brokenStore) Delete(context.Context, string) error        { return errors.New("disk gone") }
func (brokenStore) Keys(context.Context) ([]string, error)      { return nil, errors.New("disk gone") }

func TestStorageFaultsFallThroughToNetwork(t *testing.T) {
	h := newHarness(t)
	svc := h.service(brokenStore{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		products, err := svc.Products(ctx)
		if err != nil || len(products) != 3 {
			t.Fatalf("Products() = %d items, %v", len(products), err)
		}
	}
	if got := h.api.Hits("GET", "/api/products"); got != 2 {
		t.Fatalf("requests = %d, want 2", got)
	}
	if n := svc.Logout(ctx); n != 0 {
		t.Fatalf("Logout() evicted %d keys from a broken store", n)
	}
}

func TestPollsWithoutCacheReportUnavailable(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.api.Fail("GET", "/api/polls", httpx.StatusInternalError)

	polls, err := h.svc.Polls(context.Background())
	if !errors.Is(err, storefront.ErrPollsUnavailable) {
		t.Fatalf("Polls() error = %v, want ErrPollsUnavailable", err)
	}
	if polls != nil {
		t.Fatalf("Polls() = %v, want nil", polls)
	}
}

func TestPollsMapping(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	polls, err := h.svc.Polls(context.Background())
	if err != nil {
		t.Fatalf("Polls() error = %v", err)
	}
	if len(polls) != 2 {
		t.Fatalf("Polls() returned %d polls, want 2", len(polls))
	}
	if len(polls[0].Options) != 3 || polls[0].Options[0] != "New Year" {
		t.Fatalf("unexpected options: %v", polls[0].Options)
	}
	if len(polls[0].Voters) != 0 {
		t.Fatalf("poll without votes has voters: %v", polls[0].Voters)
	}
	if polls[1].VoteCount != 5 || len(polls[1].Voters) != 3 {
		t.Fatalf("poll 2: count=%d voters=%d, want 5 and 3", polls[1].VoteCount, len(polls[1].Voters))
	}
	if polls[0].SelectedOption != nil || polls[0].HasVoted {
		t.Fatalf("fresh poll should have no selection")
	}
}

func TestVoteRemovesPollFromCache(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	if _, err := h.svc.Polls(ctx); err != nil {
		t.Fatalf("Polls() error = %v", err)
	}
	if err := h.svc.Vote(ctx, 1, 9); !errors.Is(err, storefront.ErrInvalidInput) {
		t.Fatalf("Vote(bad option) error = %v, want ErrInvalidInput", err)
	}
	if err := h.svc.Vote(ctx, 1, 1); err != nil {
		t.Fatalf("Vote() error = %v", err)
	}

	polls, err := h.svc.Polls(ctx)
	if err != nil {
		t.Fatalf("Polls() error = %v", err)
	}
	if len(polls) != 1 || polls[0].ID != 2 {
		t.Fatalf("Polls() after vote = %+v, want only poll 2", polls)
	}
	if got := h.api.Hits("GET", "/api/polls"); got != 1 {
		t.Fatalf("polls requests = %d, want 1", got)
	}

	// the server now filters the voted poll out as well
	h.clock.Advance(storefront.PollsTTL)
	polls, _ = h.svc.Polls(ctx)
	if len(polls) != 1 {
		t.Fatalf("refetched polls = %d, want 1", len(polls))
	}
}

func TestUnauthorizedNeverServesStale(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	if _, err := h.svc.Polls(ctx); err != nil {
		t.Fatalf("Polls() error = %v", err)
	}
	h.clock.Advance(time.Hour)
	h.api.RevokeTokens()

	polls, err := h.svc.Polls(ctx)
	if !errors.Is(err, storefront.ErrUnauthorized) {
		t.Fatalf("Polls() error = %v, want ErrUnauthorized", err)
	}
	if polls != nil {
		t.Fatalf("Polls() served %d stale polls despite 401", len(polls))
	}
}

func TestFAQs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	faqs, err := h.svc.FAQs(ctx)
	if err != nil {
		t.Fatalf("FAQs() error = %v", err)
	}
	if len(faqs) != 2 || faqs[0].Question == "" {
		t.Fatalf("FAQs() = %+v", faqs)
	}
	h.clock.Advance(59 * time.Minute)
	_, _ = h.svc.FAQs(ctx)
	if got := h.api.Hits("GET", "/api/faqs"); got != 1 {
		t.Fatalf("faq requests = %d, want 1", got)
	}
}

func TestWithTTLsOverride(t *testing.T) {
	h := newHarness(t, storefront.WithTTLs(storefront.TTLs{FAQs: time.Minute}))
	ctx := context.Background()

	_, _ = h.svc.FAQs(ctx)
	h.clock.Advance(2 * time.Minute)
	_, _ = h.svc.FAQs(ctx)
	if got := h.api.Hits("GET", "/api/faqs"); got != 2 {
		t.Fatalf("faq requests = %d, want 2", got)
	}

	// unset fields keep their defaults
	_, _ = h.svc.Products(ctx)
	h.clock.Advance(2 * time.Minute)
	_, _ = h.svc.Products(ctx)
	if got := h.api.Hits("GET", "/api/products"); got != 1 {
		t.Fatalf("product requests = %d, want 1", got)
	}
}
