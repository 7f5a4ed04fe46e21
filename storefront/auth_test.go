package storefront_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/adeilh/go-shopcache/cache"
	"github.com/adeilh/go-shopcache/httpx"
	"github.com/adeilh/go-shopcache/internal/mockapi"
	"github.com/adeilh/go-shopcache/storefront"
)

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.Login(ctx, mockapi.DemoUserEmail, "nope"); !errors.Is(err, storefront.ErrUnauthorized) {
		t.Fatalf("Login(bad password) error = %v, want ErrUnauthorized", err)
	}
	if h.svc.Authenticated(ctx) {
		t.Fatalf("Authenticated() after failed login")
	}
	if _, err := h.svc.Login(ctx, "", ""); !errors.Is(err, storefront.ErrInvalidInput) {
		t.Fatalf("Login(empty) error = %v, want ErrInvalidInput", err)
	}

	user := h.login(t)
	if user.Name != "Olena" || user.AuthProvider != "email" {
		t.Fatalf("Login() user = %+v", user)
	}
	if h.svc.Token(ctx) == "" {
		t.Fatalf("Token() empty after login")
	}

	profile, err := h.svc.Profile(ctx)
	if err != nil || profile != user {
		t.Fatalf("Profile() = %+v, %v", profile, err)
	}
	if got := h.api.Hits("GET", "/api/users/profile"); got != 0 {
		t.Fatalf("profile requests = %d, want 0 after login cached it", got)
	}
}

func TestProfileRejectsCorruptCache(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	_ = h.store.Set(ctx, cache.KeyUserProfile, []byte(`{"id":1,"name":"","email":"olena@example.com"}`))

	profile, err := h.svc.Profile(ctx)
	if err != nil || profile.Name != "Olena" {
		t.Fatalf("Profile() = %+v, %v", profile, err)
	}
	if got := h.api.Hits("GET", "/api/users/profile"); got != 1 {
		t.Fatalf("profile requests = %d, want 1", got)
	}
}

func TestUpdateName(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	if err := h.svc.UpdateName(ctx, "   "); !errors.Is(err, storefront.ErrInvalidInput) {
		t.Fatalf("UpdateName(blank) error = %v", err)
	}
	if err := h.svc.UpdateName(ctx, "Olena K."); err != nil {
		t.Fatalf("UpdateName() error = %v", err)
	}
	profile, _ := h.svc.Profile(ctx)
	if profile.Name != "Olena K." {
		t.Fatalf("cached profile name = %q", profile.Name)
	}
}

func TestLogoutEvictsUserScope(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	_, _ = h.svc.Products(ctx)
	_, _ = h.svc.FAQs(ctx)
	_, _ = h.svc.Polls(ctx)
	_, _ = h.svc.SavedProducts(ctx)
	_, _ = h.svc.BoughtProducts(ctx)
	_, _ = h.svc.PersonalOrders(ctx)
	_, _ = h.svc.ReviewedProducts(ctx)
	h.svc.Cart().Add(ctx, 7)
	_ = h.store.Set(ctx, "theme", []byte(`"dark"`))

	if n := h.svc.Logout(ctx); n == 0 {
		t.Fatalf("Logout() evicted nothing")
	}

	keys, _ := h.store.Keys(ctx)
	if !slices.Equal(keys, []string{cache.KeyCartItems, "theme"}) {
		t.Fatalf("keys after logout = %v, want only cart and theme", keys)
	}
	if h.svc.Authenticated(ctx) {
		t.Fatalf("still authenticated after logout")
	}
	if _, err := h.svc.Profile(ctx); !errors.Is(err, storefront.ErrNotAuthenticated) {
		t.Fatalf("Profile() after logout error = %v", err)
	}
}

func TestSubmitReviewInvalidatesProducts(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()

	before, _ := h.svc.Products(ctx)
	if ids, err := h.svc.ReviewedProducts(ctx); err != nil || len(ids) != 0 {
		t.Fatalf("ReviewedProducts() = %v, %v", ids, err)
	}

	err := h.svc.SubmitReview(ctx, storefront.ReviewInput{
		ProductID:    2,
		MaterialName: "Treasure hunt quest",
		PurchaseDate: "2024-02-10",
		Rating:       1,
		ReviewText:   "too long for us",
	})
	if err != nil {
		t.Fatalf("SubmitReview() error = %v", err)
	}

	after, err := h.svc.Products(ctx)
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if got := h.api.Hits("GET", "/api/products"); got != 2 {
		t.Fatalf("product requests = %d, want 2 after review", got)
	}
	if after[1].Rating == before[1].Rating {
		t.Fatalf("rating unchanged, stale products served: %v", after[1].Rating)
	}

	ids, _ := h.svc.ReviewedProducts(ctx)
	if !slices.Equal(ids, []int64{2}) {
		t.Fatalf("ReviewedProducts() = %v, want [2]", ids)
	}
	if got := h.api.Hits("GET", "/api/reviews/mine/ids"); got != 1 {
		t.Fatalf("reviewed id requests = %d, want 1", got)
	}

	reviews := h.svc.ReviewsByProduct(ctx, 2)
	if len(reviews) != 1 || reviews[0].UserName != "Olena" {
		t.Fatalf("ReviewsByProduct() = %+v", reviews)
	}
}

func TestSubmitReviewValidatesRating(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	err := h.svc.SubmitReview(context.Background(), storefront.ReviewInput{MaterialName: "x", Rating: 6})
	if !errors.Is(err, storefront.ErrInvalidInput) {
		t.Fatalf("SubmitReview() error = %v, want ErrInvalidInput", err)
	}
}

func TestReviewedProductsFallBackToEmpty(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.api.Fail("GET", "/api/reviews/mine/ids", httpx.StatusInternalError)

	ids, err := h.svc.ReviewedProducts(context.Background())
	if err != nil {
		t.Fatalf("ReviewedProducts() error = %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Fatalf("ReviewedProducts() = %#v, want empty set", ids)
	}
}

func TestReviewsByProductSwallowsFailures(t *testing.T) {
	h := newHarness(t)
	h.api.Fail("GET", "/api/reviews/product/:id", httpx.StatusNotFound)

	reviews := h.svc.ReviewsByProduct(context.Background(), 1)
	if reviews == nil || len(reviews) != 0 {
		t.Fatalf("ReviewsByProduct() = %#v, want empty", reviews)
	}
}

func TestProductByID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	p, err := h.svc.ProductByID(ctx, 2)
	if err != nil || p.Title != "Treasure hunt quest" {
		t.Fatalf("ProductByID() = %+v, %v", p, err)
	}
	if _, err := h.svc.ProductByID(ctx, 99); !errors.Is(err, storefront.ErrNotFound) {
		t.Fatalf("ProductByID(99) error = %v, want ErrNotFound", err)
	}
}
