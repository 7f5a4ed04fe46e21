package storefront

import (
	"errors"
	"fmt"

	"github.com/adeilh/go-shopcache/httpx"
)

var (
	// ErrUnauthorized marks a rejected bearer token. Reads never fall back
	// to cached data when it is returned; the caller should sign out.
	ErrUnauthorized     = errors.New("storefront: unauthorized")
	ErrForbidden        = errors.New("storefront: forbidden")
	ErrNotFound         = errors.New("storefront: not found")
	ErrPollsUnavailable = errors.New("storefront: polls unavailable")
	ErrInvalidResponse  = errors.New("storefront: invalid response")
	ErrNotAuthenticated = errors.New("storefront: not authenticated")
	ErrInvalidInput     = errors.New("storefront: invalid input")
)

// classify maps transport status errors onto the package sentinels while
// keeping the underlying error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch httpx.StatusCode(err) {
	case httpx.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case httpx.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	case httpx.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case httpx.StatusBadRequest, httpx.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

func invalidResponse(what, serverMsg string) error {
	if serverMsg == "" {
		return fmt.Errorf("%w: %s", ErrInvalidResponse, what)
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidResponse, what, serverMsg)
}
