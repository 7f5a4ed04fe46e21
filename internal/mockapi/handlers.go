package mockapi

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/adeilh/go-shopcache/httpx"
	"github.com/adeilh/go-shopcache/storefront"
)

type wireUser struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	AuthProvider string `json:"authProvider"`
	CreatedAt    string `json:"createdAt"`
	IsAdmin      bool   `json:"is_admin"`
}

func (u *user) wire() wireUser {
	return wireUser{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		AvatarURL:    u.AvatarURL,
		AuthProvider: u.AuthProvider,
		CreatedAt:    u.CreatedAt,
		IsAdmin:      u.IsAdmin,
	}
}

func ok(c httpx.Context, status int, fields map[string]any) error {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(status, body)
}

func pathID(c httpx.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.HTTPError(httpx.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (s *Server) login(c httpx.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	u, found := s.authenticate(strings.TrimSpace(req.Email), req.Password)
	if !found {
		return httpx.HTTPError(httpx.StatusUnauthorized, "Invalid email or password")
	}
	return c.JSON(httpx.StatusOK, map[string]any{
		"token": s.issueToken(u.ID),
		"user":  u.wire(),
	})
}

func (s *Server) profile(c httpx.Context) error {
	s.mu.Lock()
	u, found := s.users[currentUser(c)]
	var body wireUser
	if found {
		body = u.wire()
	}
	s.mu.Unlock()
	if !found {
		return httpx.HTTPError(httpx.StatusNotFound, "User not found")
	}
	return c.JSON(httpx.StatusOK, map[string]any{"user": body})
}

func (s *Server) updateName(c httpx.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "Name is required")
	}
	s.mu.Lock()
	if u, found := s.users[currentUser(c)]; found {
		u.Name = strings.TrimSpace(req.Name)
	}
	s.mu.Unlock()
	return ok(c, httpx.StatusOK, map[string]any{"message": "Name updated"})
}

func (s *Server) listProducts(c httpx.Context) error {
	s.mu.Lock()
	products := slices.Clone(s.products)
	s.mu.Unlock()
	if products == nil {
		products = []storefront.Product{}
	}
	return c.JSON(httpx.StatusOK, products)
}

func (s *Server) getProduct(c httpx.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return c.JSON(httpx.StatusOK, p)
		}
	}
	return httpx.HTTPError(httpx.StatusNotFound, "Product not found")
}

type productRef struct {
	ProductID int64 `json:"productId"`
}

func (s *Server) bindProductRef(c httpx.Context) (int64, error) {
	var req productRef
	if err := c.Bind(&req); err != nil || req.ProductID <= 0 {
		return 0, httpx.HTTPError(httpx.StatusBadRequest, "productId is required")
	}
	return req.ProductID, nil
}

func idsOf(m map[int64][]int64, userID int64) []int64 {
	ids := slices.Clone(m[userID])
	if ids == nil {
		ids = []int64{}
	}
	return ids
}

func addID(m map[int64][]int64, userID, id int64) {
	if !slices.Contains(m[userID], id) {
		m[userID] = append(m[userID], id)
	}
}

func (s *Server) savedIDs(c httpx.Context) error {
	s.mu.Lock()
	ids := idsOf(s.saved, currentUser(c))
	s.mu.Unlock()
	return ok(c, httpx.StatusOK, map[string]any{"data": ids})
}

func (s *Server) saveProduct(c httpx.Context) error {
	id, err := s.bindProductRef(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	addID(s.saved, currentUser(c), id)
	s.mu.Unlock()
	return ok(c, httpx.StatusCreated, nil)
}

func (s *Server) unsaveProduct(c httpx.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	userID := currentUser(c)
	s.mu.Lock()
	s.saved[userID] = slices.DeleteFunc(s.saved[userID], func(v int64) bool { return v == id })
	s.mu.Unlock()
	return ok(c, httpx.StatusOK, nil)
}

func (s *Server) boughtIDs(c httpx.Context) error {
	s.mu.Lock()
	ids := idsOf(s.bought, currentUser(c))
	s.mu.Unlock()
	return ok(c, httpx.StatusOK, map[string]any{"data": ids})
}

func (s *Server) buyProduct(c httpx.Context) error {
	id, err := s.bindProductRef(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	addID(s.bought, currentUser(c), id)
	s.mu.Unlock()
	return ok(c, httpx.StatusCreated, nil)
}

func (s *Server) listOrders(c httpx.Context) error {
	userID := currentUser(c)
	s.mu.Lock()
	orders := []storefront.PersonalOrder{}
	for _, o := range s.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	s.mu.Unlock()
	slices.SortFunc(orders, func(a, b storefront.PersonalOrder) int { return int(a.OrderID - b.OrderID) })
	return ok(c, httpx.StatusOK, map[string]any{"personalOrders": orders})
}

// ownedOrder returns the order when it exists and belongs to the caller.
// Callers must hold s.mu.
func (s *Server) ownedOrder(c httpx.Context) (*storefront.PersonalOrder, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	o, found := s.orders[id]
	if !found {
		return nil, httpx.HTTPError(httpx.StatusNotFound, "Order not found")
	}
	if o.UserID != currentUser(c) {
		return nil, httpx.HTTPError(httpx.StatusForbidden, "Not authorized to access this order")
	}
	return o, nil
}

func (s *Server) getOrder(c httpx.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.ownedOrder(c)
	if err != nil {
		return err
	}
	return ok(c, httpx.StatusOK, map[string]any{"personalOrder": *o})
}

func formatDeadline(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.UTC().Format(time.RFC3339)
	return &v
}

func (s *Server) createOrder(c httpx.Context) error {
	var in storefront.CreatePersonalOrderInput
	if err := c.Bind(&in); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	if in.OrderTitle == "" || in.OrderDescription == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "Title and description are required")
	}
	s.mu.Lock()
	s.nextOrder++
	o := &storefront.PersonalOrder{
		OrderID:                  s.nextOrder,
		UserID:                   currentUser(c),
		OrderTitle:               in.OrderTitle,
		OrderDescription:         in.OrderDescription,
		OrderStatus:              in.OrderStatus,
		OrderPrice:               in.OrderPrice,
		OrderMaterialType:        in.OrderMaterialType,
		OrderMaterialAgeCategory: in.OrderMaterialAgeCategory,
		OrderDeadline:            formatDeadline(in.OrderDeadline),
		OrderCreatedAt:           s.now().UTC().Format(time.RFC3339),
	}
	s.orders[o.OrderID] = o
	s.mu.Unlock()
	return ok(c, httpx.StatusCreated, map[string]any{"personalOrder": *o})
}

func (s *Server) updateOrder(c httpx.Context) error {
	var in storefront.UpdatePersonalOrderInput
	if err := c.Bind(&in); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "Invalid update data")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.ownedOrder(c)
	if err != nil {
		return err
	}
	if in.OrderTitle != nil {
		o.OrderTitle = *in.OrderTitle
	}
	if in.OrderDescription != nil {
		o.OrderDescription = *in.OrderDescription
	}
	if in.OrderStatus != nil {
		o.OrderStatus = *in.OrderStatus
	}
	if in.OrderPrice != nil {
		o.OrderPrice = *in.OrderPrice
	}
	if in.OrderMaterialType != nil {
		o.OrderMaterialType = *in.OrderMaterialType
	}
	if in.OrderMaterialAgeCategory != nil {
		o.OrderMaterialAgeCategory = *in.OrderMaterialAgeCategory
	}
	if in.OrderDeadline != nil {
		o.OrderDeadline = formatDeadline(in.OrderDeadline)
	}
	return ok(c, httpx.StatusOK, map[string]any{"personalOrder": *o})
}

func (s *Server) deleteOrder(c httpx.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.ownedOrder(c)
	if err != nil {
		return err
	}
	delete(s.orders, o.OrderID)
	return ok(c, httpx.StatusOK, nil)
}

func (s *Server) submitReview(c httpx.Context) error {
	var in storefront.ReviewInput
	if err := c.Bind(&in); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	if in.Rating < 1 || in.Rating > 5 || in.MaterialName == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "Rating and material name are required")
	}
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	var name string
	if u, found := s.users[userID]; found {
		name = u.Name
	}
	review := storefront.Review{
		ID:        int64(len(s.reviews) + 1),
		ProductID: in.ProductID,
		UserID:    userID,
		UserName:  name,
		Rating:    float64(in.Rating),
		Comment:   in.ReviewText,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	s.reviews = append(s.reviews, review)
	if in.ProductID > 0 {
		addID(s.reviewed, userID, in.ProductID)
		s.rerate(in.ProductID)
	}
	return ok(c, httpx.StatusCreated, map[string]any{"review": review})
}

// rerate sets a product's rating to the mean of its reviews. Callers must hold s.mu.
func (s *Server) rerate(productID int64) {
	var sum float64
	var n int
	for _, r := range s.reviews {
		if r.ProductID == productID {
			sum += r.Rating
			n++
		}
	}
	for i := range s.products {
		if s.products[i].ID == productID && n > 0 {
			s.products[i].Rating = sum / float64(n)
		}
	}
}

func (s *Server) reviewedIDs(c httpx.Context) error {
	s.mu.Lock()
	ids := idsOf(s.reviewed, currentUser(c))
	s.mu.Unlock()
	return ok(c, httpx.StatusOK, map[string]any{"data": ids})
}

func (s *Server) productReviews(c httpx.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	reviews := []storefront.Review{}
	for _, r := range s.reviews {
		if r.ProductID == id {
			reviews = append(reviews, r)
		}
	}
	s.mu.Unlock()
	return c.JSON(httpx.StatusOK, reviews)
}

// apiPoll renders p for userID. Callers must hold s.mu.
func apiPoll(p *poll, userID int64) storefront.APIPoll {
	out := p.APIPoll
	out.UserHasVoted = p.voters[userID]
	out.Options = slices.Clone(p.Options)
	return out
}

func (s *Server) listPolls(c httpx.Context) error {
	userID := currentUser(c)
	s.mu.Lock()
	polls := make([]storefront.APIPoll, 0, len(s.polls))
	for _, p := range s.polls {
		if p.IsActive {
			polls = append(polls, apiPoll(p, userID))
		}
	}
	s.mu.Unlock()
	return ok(c, httpx.StatusOK, map[string]any{"polls": polls})
}

func (s *Server) findPoll(c httpx.Context) (*poll, error) {
	id, err := pathID(c)
	if err != nil {
		return nil, err
	}
	for _, p := range s.polls {
		if p.PollID == id {
			return p, nil
		}
	}
	return nil, httpx.HTTPError(httpx.StatusNotFound, "Poll not found")
}

func (s *Server) getPoll(c httpx.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.findPoll(c)
	if err != nil {
		return err
	}
	return ok(c, httpx.StatusOK, map[string]any{"poll": apiPoll(p, currentUser(c))})
}

func (s *Server) vote(c httpx.Context) error {
	var req struct {
		VoteID int64 `json:"vote_id"`
	}
	if err := c.Bind(&req); err != nil || req.VoteID <= 0 {
		return httpx.HTTPError(httpx.StatusBadRequest, "vote_id is required")
	}
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.findPoll(c)
	if err != nil {
		return err
	}
	if p.voters[userID] {
		return httpx.HTTPError(httpx.StatusConflict, "Already voted")
	}
	idx := slices.IndexFunc(p.Options, func(o storefront.APIOption) bool { return o.VoteID == req.VoteID })
	if idx < 0 {
		return httpx.HTTPError(httpx.StatusBadRequest, "Unknown option")
	}
	p.Options[idx].VoteCount++
	p.TotalVotes++
	p.voters[userID] = true
	return ok(c, httpx.StatusOK, nil)
}

func (s *Server) listFAQs(c httpx.Context) error {
	s.mu.Lock()
	faqs := slices.Clone(s.faqs)
	s.mu.Unlock()
	if faqs == nil {
		faqs = []storefront.FAQItem{}
	}
	return ok(c, httpx.StatusOK, map[string]any{"data": faqs})
}

type registration struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	VerificationCode string `json:"verificationCode"`
}

func (s *Server) emailTaken(email string) bool {
	for _, u := range s.users {
		if u.Email == email {
			return true
		}
	}
	return false
}

func (s *Server) initiateRegistration(c httpx.Context) error {
	var req registration
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	email := strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.Name) == "" || email == "" || req.Password == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "Name, email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		return httpx.HTTPError(httpx.StatusInternalError, "could not hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(email) {
		return httpx.HTTPError(httpx.StatusConflict, "User already exists")
	}
	s.pending[email] = &pendingUser{
		name:         strings.TrimSpace(req.Name),
		passwordHash: hash,
		code:         newVerificationCode(),
	}
	return ok(c, httpx.StatusOK, map[string]any{"message": "Verification code sent"})
}

func (s *Server) verifyRegistration(c httpx.Context) error {
	var req registration
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	email := strings.TrimSpace(req.Email)

	s.mu.Lock()
	p, found := s.pending[email]
	if !found || p.code != strings.TrimSpace(req.VerificationCode) {
		s.mu.Unlock()
		return httpx.HTTPError(httpx.StatusBadRequest, "Invalid or expired verification code")
	}
	delete(s.pending, email)
	s.nextUserID++
	u := &user{
		ID:           s.nextUserID,
		Name:         p.name,
		Email:        email,
		AuthProvider: "email",
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
		passwordHash: p.passwordHash,
	}
	s.users[u.ID] = u
	body := u.wire()
	s.mu.Unlock()

	return c.JSON(httpx.StatusCreated, map[string]any{
		"success": true,
		"token":   s.issueToken(u.ID),
		"user":    body,
	})
}

func (s *Server) resendCode(c httpx.Context) error {
	var req registration
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.pending[strings.TrimSpace(req.Email)]
	if !found {
		return httpx.HTTPError(httpx.StatusNotFound, "No pending registration")
	}
	p.code = newVerificationCode()
	return ok(c, httpx.StatusOK, map[string]any{"message": "Verification code sent"})
}

func (s *Server) deleteAccount(c httpx.Context) error {
	userID := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	delete(s.saved, userID)
	delete(s.bought, userID)
	delete(s.reviewed, userID)
	for token, id := range s.tokens {
		if id == userID {
			delete(s.tokens, token)
		}
	}
	for id, o := range s.orders {
		if o.UserID == userID {
			delete(s.orders, id)
		}
	}
	return ok(c, httpx.StatusOK, map[string]any{"message": "Account deleted"})
}

func (s *Server) listAllOrders(c httpx.Context) error {
	s.mu.Lock()
	u, found := s.users[currentUser(c)]
	if !found || !u.IsAdmin {
		s.mu.Unlock()
		return httpx.HTTPError(httpx.StatusForbidden, "Admin access required")
	}
	orders := make([]storefront.PersonalOrder, 0, len(s.orders))
	for _, o := range s.orders {
		orders = append(orders, *o)
	}
	s.mu.Unlock()
	slices.SortFunc(orders, func(a, b storefront.PersonalOrder) int { return int(a.OrderID - b.OrderID) })
	return ok(c, httpx.StatusOK, map[string]any{"personalOrders": orders})
}
