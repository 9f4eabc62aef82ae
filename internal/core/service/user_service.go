package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

const (
	defaultUserPageSize = 10
	maxUserPageSize     = 100
)

// UserService covers profile reads, code-gated profile updates and freezing.
type UserService struct {
	users ports.UserRepository
	codes ports.VerificationService
	log   zerolog.Logger
}

func NewUserService(users ports.UserRepository, codes ports.VerificationService, log zerolog.Logger) *UserService {
	return &UserService{users: users, codes: codes, log: log}
}

// Info returns the caller's profile.
func (s *UserService) Info(ctx context.Context, userID string) (*ports.UserProfile, error) {
	user, err := s.users.FindByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("user info: %w", err)
	}
	profile := ports.NewUserProfile(user)
	return &profile, nil
}

// IssueProfileCode sends a profile-update code to the caller's email.
func (s *UserService) IssueProfileCode(ctx context.Context, email string) error {
	return s.codes.Issue(ctx, domain.PurposeUpdateUser, email)
}

// UpdateProfile consumes the profile-update code and applies the changed fields.
func (s *UserService) UpdateProfile(ctx context.Context, in ports.ProfileUpdateInput) error {
	if err := s.codes.ValidateAndConsume(ctx, domain.PurposeUpdateUser, in.Email, in.Code); err != nil {
		return err
	}

	err := s.users.UpdateProfile(ctx, in.UserID, ports.ProfileUpdate{
		NickName: in.NickName,
		Avatar:   in.Avatar,
		Phone:    in.Phone,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("update profile: %w", err)
	}

	s.log.Info().Str("user_id", in.UserID).Msg("profile updated")
	return nil
}

// Freeze flags the account so it can no longer obtain token pairs.
func (s *UserService) Freeze(ctx context.Context, userID string) error {
	if err := s.users.SetFrozen(ctx, userID, true); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("freeze user: %w", err)
	}
	s.log.Warn().Str("user_id", userID).Msg("user frozen")
	return nil
}

// IsFrozen reads the live frozen flag. Deleted users count as frozen.
func (s *UserService) IsFrozen(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.FindByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("frozen check: %w", err)
	}
	return user.IsFrozen, nil
}

// List returns a page of user profiles.
func (s *UserService) List(ctx context.Context, filter ports.ListUsersFilter) (*ports.ListUsersResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultUserPageSize
	}
	if filter.Limit > maxUserPageSize {
		filter.Limit = maxUserPageSize
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	items := make([]ports.UserProfile, 0, len(users))
	for _, u := range users {
		items = append(items, ports.NewUserProfile(u))
	}

	return &ports.ListUsersResult{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
