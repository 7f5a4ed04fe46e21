package mockapi

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/adeilh/go-shopcache/storefront"
)

type user struct {
	ID           int64
	Name         string
	Email        string
	AvatarURL    string
	AuthProvider string
	CreatedAt    string
	IsAdmin      bool
	passwordHash []byte
}

// pendingUser is a sign-up waiting for its verification code.
type pendingUser struct {
	name         string
	passwordHash []byte
	code         string
}

type poll struct {
	storefront.APIPoll
	voters map[int64]bool
}

// DemoPassword is the password of every seeded account.
const DemoPassword = "secret123"

// Seeded account emails.
const (
	DemoUserEmail  = "olena@example.com"
	OtherUserEmail = "taras@example.com"
	AdminEmail     = "admin@example.com"
)

// ForeignOrderID is a seeded personal order owned by OtherUserEmail.
const ForeignOrderID int64 = 100

// AddUser registers an account and returns its id.
func (s *Server) AddUser(name, email, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return 0, fmt.Errorf("mockapi: hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := &user{
		ID:           s.nextUserID,
		Name:         name,
		Email:        email,
		AuthProvider: "email",
		CreatedAt:    s.now().UTC().Format(time.RFC3339),
		passwordHash: hash,
	}
	s.users[u.ID] = u
	return u.ID, nil
}

// AddProduct appends a product to the catalog, assigning an id when zero.
func (s *Server) AddProduct(p storefront.Product) storefront.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = int64(len(s.products) + 1)
	}
	s.products = append(s.products, p)
	return p
}

// AddPoll registers a poll with the given option texts.
func (s *Server) AddPoll(question string, options ...string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.polls) + 1)
	p := &poll{
		APIPoll: storefront.APIPoll{PollID: id, PollQuestion: question, IsActive: true},
		voters:  map[int64]bool{},
	}
	for i, text := range options {
		p.Options = append(p.Options, storefront.APIOption{VoteID: id*100 + int64(i+1), VoteText: text})
	}
	s.polls = append(s.polls, p)
	return id
}

// VerificationCode returns the code mailed to a pending sign-up.
func (s *Server) VerificationCode(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.pending[email]
	if !found {
		return "", false
	}
	return p.code, true
}

func newVerificationCode() string {
	return fmt.Sprintf("%06d", rand.Intn(1_000_000))
}

func (s *Server) AddFAQ(question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faqs = append(s.faqs, storefront.FAQItem{ID: int64(len(s.faqs) + 1), Question: question, Answer: answer})
}

func (s *Server) seed() error {
	if _, err := s.AddUser("Olena", DemoUserEmail, DemoPassword); err != nil {
		return err
	}
	otherID, err := s.AddUser("Taras", OtherUserEmail, DemoPassword)
	if err != nil {
		return err
	}

	adminID, err := s.AddUser("Admin", AdminEmail, DemoPassword)
	if err != nil {
		return err
	}

	created := s.now().UTC().Format(time.RFC3339)
	for _, p := range []storefront.Product{
		{Title: "Autumn fair script", Price: 250, Rating: 4.5, Type: "Script", AgeCategory: "6-10"},
		{Title: "Treasure hunt quest", Price: 320, Rating: 4.8, Type: "Quest", AgeCategory: "8-12"},
		{Title: "Spring poems", Price: 0, Rating: 4.1, Type: "Free material", AgeCategory: "3-6"},
	} {
		p.CreatedAt, p.UpdatedAt = created, created
		p.Events, p.AdditionalImages = []string{}, []string{}
		s.AddProduct(p)
	}

	s.AddPoll("Which holiday should the next script cover?", "New Year", "Easter", "Graduation")
	s.AddPoll("Preferred quest length?", "30 minutes", "1 hour")

	s.AddFAQ("How do I download a purchased script?", "Open your cabinet and pick Purchase history.")
	s.AddFAQ("Can I order a custom script?", "Yes, use Personal orders in your cabinet.")

	s.mu.Lock()
	s.users[adminID].IsAdmin = true
	s.polls[1].TotalVotes = 5
	s.orders[ForeignOrderID] = &storefront.PersonalOrder{
		OrderID:        ForeignOrderID,
		UserID:         otherID,
		OrderTitle:     "Birthday quest",
		OrderStatus:    storefront.OrderPending,
		OrderCreatedAt: created,
	}
	s.mu.Unlock()
	return nil
}

