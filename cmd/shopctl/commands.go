package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/adeilh/go-shopcache/storefront"
)

var errUsage = errors.New("shopctl: bad usage")

const usage = `  login EMAIL PASSWORD    sign in and cache the profile
  logout                  drop every user-scoped cache entry
  register NAME EMAIL PASSWORD         start sign-up; a code is mailed
  verify NAME EMAIL PASSWORD CODE      finish sign-up and sign in
  resend-code EMAIL       mail a new verification code
  delete-account          delete the account and its cached data
  profile                 show the signed-in user
  rename NAME             change the display name
  products                list products
  product ID              show one product (never cached)
  saved | bought          list saved or bought product ids
  save ID | unsave ID     change the saved list
  toggle ID               flip the saved state of a product
  buy ID                  record a purchase
  orders                  list personal orders
  order ID                show one personal order
  cancel-order ID         delete a personal order
  all-orders              list every user's orders (admins only)
  reviewed                list product ids reviewed by the user
  reviews ID              list reviews of a product
  review ID RATING TEXT   review a product
  polls                   list open polls
  vote POLL OPTION        vote for the option index in a poll
  faqs                    list frequently asked questions
  cart [add|remove ID]    show or change the local cart
`

type command struct {
	args int
	run  func(ctx context.Context, svc *storefront.Service, args []string) (any, error)
}

var commands = map[string]command{
	"login": {2, func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		return svc.Login(ctx, a[0], a[1])
	}},
	"logout": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return map[string]int{"evicted": svc.Logout(ctx)}, nil
	}},
	"register": {3, func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		return nil, svc.InitiateRegistration(ctx, storefront.Registration{Name: a[0], Email: a[1], Password: a[2]})
	}},
	"verify": {4, func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		return svc.VerifyRegistration(ctx, storefront.Registration{Name: a[0], Email: a[1], Password: a[2]}, a[3])
	}},
	"resend-code": {1, func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		return nil, svc.ResendVerificationCode(ctx, a[0])
	}},
	"delete-account": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return nil, svc.DeleteAccount(ctx)
	}},
	"all-orders": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.AllPersonalOrders(ctx)
	}},
	"profile": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.Profile(ctx)
	}},
	"rename": {1, func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		if err := svc.UpdateName(ctx, a[0]); err != nil {
			return nil, err
		}
		return svc.Profile(ctx)
	}},
	"products": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.Products(ctx)
	}},
	"product": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		return svc.ProductByID(ctx, id)
	})},
	"saved": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.SavedProducts(ctx)
	}},
	"bought": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.BoughtProducts(ctx)
	}},
	"save": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		if err := svc.SaveProduct(ctx, id); err != nil {
			return nil, err
		}
		return svc.SavedProducts(ctx)
	})},
	"unsave": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		if err := svc.UnsaveProduct(ctx, id); err != nil {
			return nil, err
		}
		return svc.SavedProducts(ctx)
	})},
	"toggle": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		saved, err := svc.ToggleSaved(ctx, id)
		return map[string]bool{"saved": saved}, err
	})},
	"buy": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		if err := svc.BuyProduct(ctx, id); err != nil {
			return nil, err
		}
		return svc.BoughtProducts(ctx)
	})},
	"orders": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.PersonalOrders(ctx)
	}},
	"order": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		return svc.PersonalOrder(ctx, id)
	})},
	"cancel-order": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		return nil, svc.DeletePersonalOrder(ctx, id)
	})},
	"reviewed": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.ReviewedProducts(ctx)
	}},
	"reviews": {1, withID(func(ctx context.Context, svc *storefront.Service, id int64) (any, error) {
		return svc.ReviewsByProduct(ctx, id), nil
	})},
	"review": {3, func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		rating, err := strconv.Atoi(a[1])
		if err != nil {
			return nil, fmt.Errorf("%w: rating %q", errUsage, a[1])
		}
		return nil, svc.SubmitReview(ctx, storefront.ReviewInput{
			ProductID:    id,
			MaterialName: "product " + a[0],
			Rating:       rating,
			ReviewText:   a[2],
		})
	}},
	"polls": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.Polls(ctx)
	}},
	"vote": {2, func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		pollID, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		option, err := strconv.Atoi(a[1])
		if err != nil {
			return nil, fmt.Errorf("%w: option %q", errUsage, a[1])
		}
		return nil, svc.Vote(ctx, pollID, option)
	}},
	"faqs": {0, func(ctx context.Context, svc *storefront.Service, _ []string) (any, error) {
		return svc.FAQs(ctx)
	}},
}

// run executes one command and prints its result as indented JSON.
func run(ctx context.Context, svc *storefront.Service, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	name, rest := args[0], args[1:]

	var (
		result any
		err    error
	)
	if name == "cart" {
		result, err = runCart(ctx, svc, rest)
	} else {
		cmd, ok := commands[name]
		if !ok {
			return fmt.Errorf("%w: unknown command %q", errUsage, name)
		}
		if len(rest) != cmd.args {
			return fmt.Errorf("%w: %s takes %d argument(s)", errUsage, name, cmd.args)
		}
		result, err = cmd.run(ctx, svc, rest)
	}
	if errors.Is(err, storefront.ErrUnauthorized) {
		// the stored token was rejected; drop it with the rest of the user's data
		svc.Logout(ctx)
	}
	if err != nil {
		return err
	}
	if result == nil {
		result = map[string]bool{"ok": true}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runCart(ctx context.Context, svc *storefront.Service, args []string) (any, error) {
	cart := svc.Cart()
	switch {
	case len(args) == 0:
		items, _ := cart.Items(ctx)
		if items == nil {
			items = []int64{}
		}
		return items, nil
	case len(args) == 2 && args[0] == "add":
		id, err := parseID(args[1])
		if err != nil {
			return nil, err
		}
		return cart.Add(ctx, id), nil
	case len(args) == 2 && args[0] == "remove":
		id, err := parseID(args[1])
		if err != nil {
			return nil, err
		}
		return cart.Remove(ctx, id), nil
	}
	return nil, fmt.Errorf("%w: cart [add|remove ID]", errUsage)
}

func withID(fn func(context.Context, *storefront.Service, int64) (any, error)) func(context.Context, *storefront.Service, []string) (any, error) {
	return func(ctx context.Context, svc *storefront.Service, a []string) (any, error) {
		id, err := parseID(a[0])
		if err != nil {
			return nil, err
		}
		return fn(ctx, svc, id)
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errUsage, s)
	}
	return id, nil
}
