package services

import (
	"context"
	"fmt"
)

// FollowRepository defines persistence operations for the social graph.
type FollowRepository interface {
	Add(ctx context.Context, accountID, targetID int) error
	Remove(ctx context.Context, accountID, targetID int) error
	RemoveTarget(ctx context.Context, targetID int) error
	List(ctx context.Context, accountID int) ([]int, error)
	Count(ctx context.Context, accountID int) (int, error)
}

// SocialService maintains each account's outbound follow set.
type SocialService struct {
	accounts AccountRepository
	follows  FollowRepository
}

func NewSocialService(accounts AccountRepository, follows FollowRepository) *SocialService {
	return &SocialService{
		accounts: accounts,
		follows:  follows,
	}
}

// Follow appends targetID to the account's follow set. A duplicate
// follow is rejected with store.ErrAlreadyFollowing; the insert itself
// is atomic, so two concurrent calls cannot both succeed.
func (s *SocialService) Follow(ctx context.Context, accountID, targetID int) error {
	if accountID == targetID {
		return ValidationError{Field: "targetId", Message: "cannot follow yourself"}
	}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return err
	}
	return s.follows.Add(ctx, accountID, targetID)
}

// Unfollow removes targetID from the account's follow set. Removing a
// target that is not present is a no-op success, but unfollowing with an
// empty follow set is an error.
func (s *SocialService) Unfollow(ctx context.Context, accountID, targetID int) error {
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return err
	}

	n, err := s.follows.Count(ctx, accountID)
	if err != nil {
		return fmt.Errorf("count follows: %w", err)
	}
	if n == 0 {
		return ErrEmptyFollowSet
	}
	return s.follows.Remove(ctx, accountID, targetID)
}
