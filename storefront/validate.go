package storefront

import (
	"errors"
	"fmt"
)

// Shape checks applied to cached values on read. A value that fails is
// treated as absent and refetched.

func validateProducts(products []Product) error {
	for i, p := range products {
		if p.ID <= 0 {
			return fmt.Errorf("product %d: missing id", i)
		}
	}
	return nil
}

func validateOrders(orders []PersonalOrderSummary) error {
	for i, o := range orders {
		if o.OrderID <= 0 {
			return fmt.Errorf("order %d: missing id", i)
		}
	}
	return nil
}

func validatePolls(polls []Poll) error {
	for i, p := range polls {
		if p.ID <= 0 || p.Question == "" {
			return fmt.Errorf("poll %d: missing id or question", i)
		}
	}
	return nil
}

func validateFAQs(faqs []FAQItem) error {
	for i, f := range faqs {
		if f.Question == "" {
			return fmt.Errorf("faq %d: empty question", i)
		}
	}
	return nil
}

func validateProfile(u AuthUser) error {
	switch {
	case u.ID <= 0:
		return errors.New("profile: missing id")
	case u.Name == "":
		return errors.New("profile: empty name")
	case u.Email == "":
		return errors.New("profile: empty email")
	}
	return nil
}
