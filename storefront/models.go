package storefront

import (
	"strconv"
	"time"
)

type Product struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Price            float64  `json:"price"`
	Rating           float64  `json:"rating"`
	Type             string   `json:"type"`
	Image            string   `json:"image"`
	AgeCategory      string   `json:"ageCategory"`
	Events           []string `json:"events"`
	Description      string   `json:"description"`
	CreatedAt        string   `json:"createdAt"`
	UpdatedAt        string   `json:"updatedAt"`
	AdditionalImages []string `json:"additionalImages"`
}

// Order statuses understood by the backend.
const (
	OrderPending    = "pending"
	OrderInProgress = "in_progress"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
	OrderApproved   = "approved"
	OrderRejected   = "rejected"
)

type PersonalOrder struct {
	OrderID                  int64   `json:"order_id"`
	UserID                   int64   `json:"user_id"`
	OrderTitle               string  `json:"order_title"`
	OrderDescription         string  `json:"order_description"`
	OrderStatus              string  `json:"order_status"`
	OrderPrice               float64 `json:"order_price"`
	OrderMaterialType        string  `json:"order_material_type"`
	OrderMaterialAgeCategory string  `json:"order_material_age_category"`
	OrderDeadline            *string `json:"order_deadline"`
	OrderCreatedAt           string  `json:"order_created_at"`
	UserName                 string  `json:"user_name,omitempty"`
	UserEmail                string  `json:"user_email,omitempty"`
}

// PersonalOrderSummary is the projection kept in the cache.
type PersonalOrderSummary struct {
	OrderID   int64   `json:"order_id"`
	Title     string  `json:"order_title"`
	Status    string  `json:"order_status"`
	Price     float64 `json:"order_price"`
	Deadline  *string `json:"order_deadline"`
	CreatedAt string  `json:"order_created_at"`
}

func (o PersonalOrder) Summary() PersonalOrderSummary {
	return PersonalOrderSummary{
		OrderID:   o.OrderID,
		Title:     o.OrderTitle,
		Status:    o.OrderStatus,
		Price:     o.OrderPrice,
		Deadline:  o.OrderDeadline,
		CreatedAt: o.OrderCreatedAt,
	}
}

type CreatePersonalOrderInput struct {
	OrderTitle               string     `json:"orderTitle"`
	OrderDescription         string     `json:"orderDescription"`
	OrderStatus              string     `json:"orderStatus"`
	OrderPrice               float64    `json:"orderPrice"`
	OrderMaterialType        string     `json:"orderMaterialType"`
	OrderMaterialAgeCategory string     `json:"orderMaterialAgeCategory"`
	OrderDeadline            *time.Time `json:"orderDeadline"`
}

// UpdatePersonalOrderInput carries a partial update; nil fields are left unchanged.
type UpdatePersonalOrderInput struct {
	OrderTitle               *string    `json:"orderTitle,omitempty"`
	OrderDescription         *string    `json:"orderDescription,omitempty"`
	OrderStatus              *string    `json:"orderStatus,omitempty"`
	OrderPrice               *float64   `json:"orderPrice,omitempty"`
	OrderMaterialType        *string    `json:"orderMaterialType,omitempty"`
	OrderMaterialAgeCategory *string    `json:"orderMaterialAgeCategory,omitempty"`
	OrderDeadline            *time.Time `json:"orderDeadline,omitempty"`
}

// Registration carries the sign-up form.
type Registration struct {
	Name     string
	Email    string
	Password string
}

type AuthUser struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	AvatarURL    string `json:"avatar_url,omitempty"`
	AuthProvider string `json:"auth_provider"`
	CreatedAt    string `json:"created_at"`
	IsAdmin      bool   `json:"is_admin"`
}

type FAQItem struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Review struct {
	ID         int64   `json:"id"`
	ProductID  int64   `json:"productId"`
	UserID     int64   `json:"userId"`
	UserName   string  `json:"userName"`
	UserAvatar string  `json:"userAvatar,omitempty"`
	Rating     float64 `json:"rating"`
	Comment    string  `json:"comment"`
	CreatedAt  string  `json:"createdAt"`
}

// ReviewInput is a review of a purchased material. ProductID is optional;
// when set, the product joins the reviewed set after submission.
type ReviewInput struct {
	ProductID    int64  `json:"productId,omitempty"`
	MaterialName string `json:"materialName"`
	PurchaseDate string `json:"purchaseDate"`
	Rating       int    `json:"rating"`
	ReviewText   string `json:"reviewText"`
}

type VoterData struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"imageUrl"`
}

type Poll struct {
	ID             int64       `json:"id"`
	Question       string      `json:"question"`
	Options        []string    `json:"options"`
	SelectedOption *int        `json:"selectedOption"`
	HasVoted       bool        `json:"hasVoted"`
	VoteCount      int         `json:"voteCount"`
	Voters         []VoterData `json:"voters"`
}

// APIPoll is the backend representation of a poll.
type APIPoll struct {
	PollID       int64       `json:"poll_id"`
	PollQuestion string      `json:"poll_question"`
	IsActive     bool        `json:"is_active"`
	TotalVotes   int         `json:"total_votes"`
	UserHasVoted bool        `json:"user_has_voted"`
	Options      []APIOption `json:"options,omitempty"`
}

type APIOption struct {
	VoteID    int64  `json:"vote_id"`
	VoteText  string `json:"vote_text"`
	VoteCount int    `json:"vote_count"`
}

const maxPlaceholderVoters = 3

// toPolls drops polls the user already voted on and fills placeholder voters.
func toPolls(api []APIPoll) []Poll {
	polls := make([]Poll, 0, len(api))
	for _, p := range api {
		if p.UserHasVoted {
			continue
		}
		options := make([]string, 0, len(p.Options))
		for _, o := range p.Options {
			options = append(options, o.VoteText)
		}
		voters := []VoterData{}
		for i := 0; i < min(maxPlaceholderVoters, p.TotalVotes); i++ {
			voters = append(voters, VoterData{Name: "Voter " + strconv.Itoa(i+1)})
		}
		polls = append(polls, Poll{
			ID:        p.PollID,
			Question:  p.PollQuestion,
			Options:   options,
			HasVoted:  p.UserHasVoted,
			VoteCount: max(p.TotalVotes, 0),
			Voters:    voters,
		})
	}
	return polls
}
