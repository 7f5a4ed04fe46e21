package storefront

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

type pollsResponse struct {
	Success bool      `json:"success"`
	Polls   []APIPoll `json:"polls"`
	Error   string    `json:"error,omitempty"`
}

type pollResponse struct {
	Success bool     `json:"success"`
	Poll    *APIPoll `json:"poll"`
	Error   string   `json:"error,omitempty"`
}

type voteRequest struct {
	VoteID int64 `json:"vote_id"`
}

// Polls returns the polls the user has not voted on yet. Unlike the other
// resources, a failure with nothing cached is reported as
// ErrPollsUnavailable rather than an empty list.
func (s *Service) Polls(ctx context.Context) ([]Poll, error) {
	r := resource[[]Poll]{
		name:  "polls",
		entry: s.polls,
		ttl:   s.ttls.Polls,
		fallback: func(err error) ([]Poll, error) {
			return nil, fmt.Errorf("%w: %w", ErrPollsUnavailable, err)
		},
	}
	return readThrough(ctx, s, r, func(ctx context.Context) ([]Poll, error) {
		var resp pollsResponse
		if err := s.get(ctx, "/polls", &resp); err != nil {
			return nil, err
		}
		if !resp.Success || resp.Polls == nil {
			return nil, invalidResponse("polls", resp.Error)
		}
		return toPolls(resp.Polls), nil
	})
}

// Vote casts a vote for the option at optionIndex of poll pollID. The
// option's vote id is resolved from the poll's current details. After a
// successful vote the poll is dropped from the cached list.
func (s *Service) Vote(ctx context.Context, pollID int64, optionIndex int) error {
	if !s.Authenticated(ctx) {
		return ErrNotAuthenticated
	}

	var details pollResponse
	if err := s.get(ctx, idPath("/polls", pollID), &details); err != nil {
		return err
	}
	if !details.Success || details.Poll == nil {
		return invalidResponse("poll details", details.Error)
	}
	if optionIndex < 0 || optionIndex >= len(details.Poll.Options) {
		return fmt.Errorf("%w: poll %d has no option %d", ErrInvalidInput, pollID, optionIndex)
	}
	option := details.Poll.Options[optionIndex]

	var resp ack
	if err := s.post(ctx, idPath("/polls", pollID)+"/vote", voteRequest{VoteID: option.VoteID}, &resp); err != nil {
		return err
	}
	if err := resp.err("vote"); err != nil {
		return err
	}

	if cached, ok := s.polls.Get(ctx); ok {
		remaining := make([]Poll, 0, len(cached))
		for _, p := range cached {
			if p.ID != pollID {
				remaining = append(remaining, p)
			}
		}
		// keep the existing timestamp so the list still expires on schedule
		s.polls.Set(ctx, remaining)
	}
	s.log.WithFields(logrus.Fields{"poll_id": pollID, "vote_id": option.VoteID}).Info("vote recorded")
	return nil
}
