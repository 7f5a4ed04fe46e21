package storefront

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Default freshness windows. Saved and bought ID sets have none: a cached
// set stays valid until it is mutated or evicted.
const (
	ProductsTTL         = 5 * time.Minute
	PersonalOrdersTTL   = 20 * time.Minute
	ReviewedProductsTTL = time.Hour
	PollsTTL            = 15 * time.Minute
	FAQsTTL             = time.Hour
)

type TTLs struct {
	Products         time.Duration
	PersonalOrders   time.Duration
	ReviewedProducts time.Duration
	Polls            time.Duration
	FAQs             time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Products:         ProductsTTL,
		PersonalOrders:   PersonalOrdersTTL,
		ReviewedProducts: ReviewedProductsTTL,
		Polls:            PollsTTL,
		FAQs:             FAQsTTL,
	}
}

func (t TTLs) withDefaults() TTLs {
	def := DefaultTTLs()
	if t.Products <= 0 {
		t.Products = def.Products
	}
	if t.PersonalOrders <= 0 {
		t.PersonalOrders = def.PersonalOrders
	}
	if t.ReviewedProducts <= 0 {
		t.ReviewedProducts = def.ReviewedProducts
	}
	if t.Polls <= 0 {
		t.Polls = def.Polls
	}
	if t.FAQs <= 0 {
		t.FAQs = def.FAQs
	}
	return t
}

// StaleHandler observes reads answered from an expired cache entry after
// the refresh failed.
type StaleHandler func(resource string, cause error)

type Option func(*Service)

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTTLs overrides freshness windows; zero fields keep their default.
func WithTTLs(ttls TTLs) Option {
	return func(s *Service) {
		s.ttls = ttls.withDefaults()
	}
}

func WithStaleHandler(fn StaleHandler) Option {
	return func(s *Service) {
		s.onStale = fn
	}
}
