package storefront

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	LoginType string `json:"loginType"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  profileUser `json:"user"`
}

// profileUser is the backend's user object, which differs from AuthUser in
// field naming.
type profileUser struct {
	ID           *int64  `json:"id"`
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	AvatarURL    string  `json:"avatar_url"`
	AuthProvider string  `json:"authProvider"`
	CreatedAt    string  `json:"createdAt"`
	IsAdmin      bool    `json:"is_admin"`
}

func (u *profileUser) toAuthUser() (AuthUser, error) {
	if u == nil {
		return AuthUser{}, invalidResponse("profile", "missing user")
	}
	if u.ID == nil || u.Name == nil || u.Email == nil {
		return AuthUser{}, invalidResponse("profile", "malformed user object")
	}
	return AuthUser{
		ID:           *u.ID,
		Name:         *u.Name,
		Email:        *u.Email,
		AvatarURL:    u.AvatarURL,
		AuthProvider: u.AuthProvider,
		CreatedAt:    u.CreatedAt,
		IsAdmin:      u.IsAdmin,
	}, nil
}

// Token returns the persisted bearer token, or "" when signed out.
func (s *Service) Token(ctx context.Context) string {
	token, _ := s.token.Get(ctx)
	return token
}

// Authenticated reports whether a token is stored.
func (s *Service) Authenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// Login signs in with email and password, persists the token and caches
// the returned profile.
func (s *Service) Login(ctx context.Context, email, password string) (AuthUser, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AuthUser{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	req := loginRequest{Email: email, Password: password, LoginType: "regular"}
	return s.signIn(ctx, "login", "/auth/login", req)
}

// signIn posts credentials to path and, on success, stores the issued
// token and profile.
func (s *Service) signIn(ctx context.Context, what, path string, body any) (AuthUser, error) {
	var resp loginResponse
	if _, err := s.client.Post(ctx, path, body, &resp); err != nil {
		return AuthUser{}, classify(err)
	}
	if resp.Token == "" {
		return AuthUser{}, invalidResponse(what, "missing token")
	}
	user, err := resp.User.toAuthUser()
	if err != nil {
		return AuthUser{}, err
	}

	s.token.Set(ctx, resp.Token)
	s.profile.Set(ctx, user)
	s.log.WithField("user_id", user.ID).Info("signed in")
	return user, nil
}

type registrationRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verificationCode,omitempty"`
}

func (in Registration) request() (registrationRequest, error) {
	req := registrationRequest{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return req, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}
	return req, nil
}

// InitiateRegistration starts sign-up; the backend mails a verification
// code to in.Email.
func (s *Service) InitiateRegistration(ctx context.Context, in Registration) error {
	req, err := in.request()
	if err != nil {
		return err
	}
	var resp ack
	if _, err := s.client.Post(ctx, "/auth/register/initiate", req, &resp); err != nil {
		return classify(err)
	}
	return resp.err("initiate registration")
}

// VerifyRegistration completes sign-up with the mailed code and signs the
// new user in.
func (s *Service) VerifyRegistration(ctx context.Context, in Registration, code string) (AuthUser, error) {
	req, err := in.request()
	if err != nil {
		return AuthUser{}, err
	}
	req.VerificationCode = strings.TrimSpace(code)
	if req.VerificationCode == "" {
		return AuthUser{}, fmt.Errorf("%w: verification code is required", ErrInvalidInput)
	}
	return s.signIn(ctx, "verify registration", "/auth/register/verify", req)
}

func (s *Service) ResendVerificationCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	var resp ack
	if _, err := s.client.Post(ctx, "/auth/register/resend-code", map[string]string{"email": email}, &resp); err != nil {
		return classify(err)
	}
	return resp.err("resend verification code")
}

// DeleteAccount removes the signed-in account on the server and then
// evicts every user-scoped cache entry.
func (s *Service) DeleteAccount(ctx context.Context) error {
	if !s.Authenticated(ctx) {
		return ErrNotAuthenticated
	}
	var resp ack
	if err := s.delete(ctx, "/users/account", &resp); err != nil {
		return err
	}
	if err := resp.err("delete account"); err != nil {
		return err
	}
	n := s.cache.ClearUserCache(ctx)
	s.log.WithField("evicted", n).Info("account deleted")
	return nil
}

// Logout evicts every user-scoped cache entry, the token included, and
// reports how many keys were removed. The cart is kept.
func (s *Service) Logout(ctx context.Context) int {
	n := s.cache.ClearUserCache(ctx)
	s.log.WithField("evicted", n).Info("signed out")
	return n
}

// Profile returns the signed-in user, read through the cache.
func (s *Service) Profile(ctx context.Context) (AuthUser, error) {
	if !s.Authenticated(ctx) {
		return AuthUser{}, ErrNotAuthenticated
	}
	r := resource[AuthUser]{name: "profile", entry: s.profile}
	return readThrough(ctx, s, r, s.fetchProfile)
}

func (s *Service) fetchProfile(ctx context.Context) (AuthUser, error) {
	var resp struct {
		User *profileUser `json:"user"`
	}
	if err := s.get(ctx, "/users/profile", &resp); err != nil {
		return AuthUser{}, err
	}
	return resp.User.toAuthUser()
}

// UpdateName renames the signed-in user and patches the cached profile.
func (s *Service) UpdateName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidInput)
	}
	if err := s.put(ctx, "/users/profile/name", map[string]string{"name": name}, nil); err != nil {
		return err
	}
	if user, ok := s.profile.Get(ctx); ok {
		user.Name = name
		s.profile.Set(ctx, user)
	}
	return nil
}

// userScope resolves the id used to key per-user cache entries.
func (s *Service) userScope(ctx context.Context) (string, error) {
	user, err := s.Profile(ctx)
	if err != nil {
		return "", err
	}
	return scopeOf(user), nil
}

func scopeOf(u AuthUser) string { return strconv.FormatInt(u.ID, 10) }

