// Package mockapi is an in-process fake of the storefront backend. It serves
// the same routes and envelopes as the real API and lets tests inject
// failures and count requests per route.
package mockapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/adeilh/go-shopcache/httpx"
	"github.com/adeilh/go-shopcache/storefront"
)

var errUnknownToken = errors.New("mockapi: unknown token")

type Server struct {
	opts Options
	srv  *httpx.Server
	now  func() time.Time

	mu         sync.Mutex
	nextUserID int64
	users      map[int64]*user
	pending    map[string]*pendingUser
	tokens     map[string]int64
	products   []storefront.Product
	saved      map[int64][]int64
	bought     map[int64][]int64
	orders     map[int64]*storefront.PersonalOrder
	nextOrder  int64
	reviews    []storefront.Review
	reviewed   map[int64][]int64
	polls      []*poll
	faqs       []storefront.FAQItem
	hits       map[string]int
	failures   map[string]int
}

// New builds a server with seeded demo data unless Options.Seed is false.
func New(opts Options) (*Server, error) {
	cfg := opts.withDefaults()
	s := &Server{
		opts:      cfg,
		now:       time.Now,
		users:     map[int64]*user{},
		pending:   map[string]*pendingUser{},
		tokens:    map[string]int64{},
		saved:     map[int64][]int64{},
		bought:    map[int64][]int64{},
		orders:    map[int64]*storefront.PersonalOrder{},
		nextOrder: ForeignOrderID,
		reviewed:  map[int64][]int64{},
		hits:      map[string]int{},
		failures:  map[string]int{},
	}
	if *cfg.Seed {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}

	s.srv = httpx.NewServer(
		httpx.WithAddress(cfg.Address),
		httpx.WithLogger(cfg.Logger),
		httpx.AppendMiddlewares(s.instrument),
	)
	s.srv.RegisterRoutes(s.routes)
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.srv.Handler() }

// Start serves on Options.Address until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.opts.Logger.WithField("addr", s.opts.Address).Info("mock storefront API listening")
	return s.srv.Start(ctx)
}

func (s *Server) routes(a *httpx.App) {
	auth := httpx.BearerAuth(s.validateToken)
	api := a.Group("/api")

	api.POST("/auth/login", s.login)
	api.POST("/auth/register/initiate", s.initiateRegistration)
	api.POST("/auth/register/verify", s.verifyRegistration)
	api.POST("/auth/register/resend-code", s.resendCode)
	api.GET("/users/profile", s.profile, auth)
	api.PUT("/users/profile/name", s.updateName, auth)
	api.DELETE("/users/account", s.deleteAccount, auth)

	api.GET("/products", s.listProducts)
	api.GET("/products/:id", s.getProduct)

	api.GET("/saved-products/ids", s.savedIDs, auth)
	api.POST("/saved-products", s.saveProduct, auth)
	api.DELETE("/saved-products/:id", s.unsaveProduct, auth)
	api.GET("/bought-products/ids", s.boughtIDs, auth)
	api.POST("/bought-products", s.buyProduct, auth)

	api.GET("/personal-orders", s.listOrders, auth)
	api.GET("/personal-orders/all", s.listAllOrders, auth)
	api.POST("/personal-orders", s.createOrder, auth)
	api.GET("/personal-orders/:id", s.getOrder, auth)
	api.PUT("/personal-orders/:id", s.updateOrder, auth)
	api.DELETE("/personal-orders/:id", s.deleteOrder, auth)

	api.POST("/reviews", s.submitReview, auth)
	api.GET("/reviews/mine/ids", s.reviewedIDs, auth)
	api.GET("/reviews/product/:id", s.productReviews)

	api.GET("/polls", s.listPolls, auth)
	api.GET("/polls/:id", s.getPoll, auth)
	api.POST("/polls/:id/vote", s.vote, auth)

	api.GET("/faqs", s.listFAQs)
}

// instrument counts requests per route and answers injected failures.
func (s *Server) instrument(next httpx.HandlerFunc) httpx.HandlerFunc {
	return func(c httpx.Context) error {
		key := routeKey(c.Request().Method, c.Path())
		s.mu.Lock()
		s.hits[key]++
		status := s.failures[key]
		s.mu.Unlock()
		if status != 0 {
			return httpx.HTTPError(status, "injected failure")
		}
		return next(c)
	}
}

func routeKey(method, path string) string { return method + " " + path }

// Hits reports how many requests reached the route, e.g. Hits("GET", "/api/products").
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[routeKey(method, path)]
}

// Fail makes the route answer status until Recover is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, path)] = status
}

func (s *Server) Recover(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, routeKey(method, path))
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]int64{}
}

func (s *Server) validateToken(_ context.Context, token string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	if !ok {
		return nil, errUnknownToken
	}
	return id, nil
}

func (s *Server) issueToken(userID int64) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = userID
	s.mu.Unlock()
	return token
}

func (s *Server) authenticate(email, password string) (*user, bool) {
	s.mu.Lock()
	var found *user
	for _, u := range s.users {
		if u.Email == email {
			found = u
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword(found.passwordHash, []byte(password)) != nil {
		return nil, false
	}
	return found, true
}

func currentUser(c httpx.Context) int64 {
	v, _ := httpx.Principal(c)
	id, _ := v.(int64)
	return id
}
