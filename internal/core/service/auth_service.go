package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
	"github.com/roombook/booking-system/internal/pkg/metrics"
)

// AuthService implements login, token rotation, registration and password change.
type AuthService struct {
	users  ports.UserRepository
	codes  ports.VerificationService
	tokens ports.TokenService
	log    zerolog.Logger
}

func NewAuthService(users ports.UserRepository, codes ports.VerificationService, tokens ports.TokenService, log zerolog.Logger) *AuthService {
	return &AuthService{users: users, codes: codes, tokens: tokens, log: log}
}

// Login checks existence, frozen status and password, in that order, and
// issues a token pair from the user's current permissions.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	loginCtx := contextLabel(in.Admin)
	if in.Username == "" || in.Password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues(loginCtx, "invalid_credential").Inc()
		return nil, domain.ErrInvalidCredential
	}

	user, err := s.users.FindByUsername(ctx, in.Username, in.Admin)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues(loginCtx, "not_found").Inc()
			return nil, domain.ErrUserNotFound
		}
		metrics.LoginAttemptsTotal.WithLabelValues(loginCtx, "error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if user.IsFrozen {
		metrics.LoginAttemptsTotal.WithLabelValues(loginCtx, "frozen").Inc()
		s.log.Warn().Str("user_id", user.ID).Msg("login rejected: user frozen")
		return nil, domain.ErrUserFrozen
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(loginCtx, "invalid_credential").Inc()
		return nil, domain.ErrInvalidCredential
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(loginCtx, "error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues(loginCtx, "success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("context", loginCtx).Msg("user logged in")

	return &ports.AuthResult{User: ports.NewUserProfile(user), Tokens: *pair}, nil
}

// Refresh verifies a refresh token, reloads the user and issues a new pair.
// The presented refresh token is not revoked and stays valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, admin bool) (*domain.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenExpired) {
			metrics.TokenRefreshTotal.WithLabelValues("expired").Inc()
		} else {
			metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}
	if claims.Type != domain.TokenRefresh {
		metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.users.FindByID(ctx, claims.UserID, admin)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.TokenRefreshTotal.WithLabelValues("not_found").Inc()
			return nil, domain.ErrUserNotFound
		}
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if user.IsFrozen {
		metrics.TokenRefreshTotal.WithLabelValues("frozen").Inc()
		return nil, domain.ErrUserFrozen
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("refresh: %w", err)
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// Register consumes the registration code sent to in.Email and creates the user.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.UserProfile, error) {
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, domain.ErrInvalidCredential
	}

	if err := s.codes.ValidateAndConsume(ctx, domain.PurposeRegister, in.Email, in.Code); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByUsername(ctx, in.Username, false); err == nil {
		return nil, domain.ErrDuplicateUser
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}
	email := strings.TrimSpace(in.Email)
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateUser
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	nickName := in.NickName
	if nickName == "" {
		nickName = in.Username
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		NickName:     nickName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, err
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	profile := ports.NewUserProfile(created)
	return &profile, nil
}

// UpdatePassword consumes the password-change code sent to in.Email and
// replaces the password hash. Tokens already issued remain valid.
func (s *AuthService) UpdatePassword(ctx context.Context, in ports.UpdatePasswordInput) error {
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return domain.ErrInvalidCredential
	}

	if err := s.codes.ValidateAndConsume(ctx, domain.PurposeUpdatePassword, in.Email, in.Code); err != nil {
		return err
	}

	user, err := s.users.FindByUsername(ctx, in.Username, false)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("update password: %w", err)
	}
	if !strings.EqualFold(user.Email, strings.TrimSpace(in.Email)) {
		return domain.ErrInvalidCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("update password: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password updated")
	return nil
}

func contextLabel(admin bool) string {
	if admin {
		return "admin"
	}
	return "user"
}
