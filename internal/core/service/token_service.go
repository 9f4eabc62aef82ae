package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/pkg/metrics"
)

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// tokenClaims is the JWT payload. Field names are part of the public API contract.
type tokenClaims struct {
	jwt.RegisteredClaims
	Type        domain.TokenType `json:"typ"`
	UserID      string           `json:"userId"`
	Username    string           `json:"username,omitempty"`
	Email       string           `json:"email,omitempty"`
	Roles       []string         `json:"roles,omitempty"`
	Permissions []string         `json:"permissions,omitempty"`
}

// TokenService signs and verifies HS256 tokens with a process-wide secret.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs claims with expiry now+ttl. A fresh jti is assigned to every token.
func (s *TokenService) Issue(claims domain.Claims, ttl time.Duration) (string, error) {
	now := s.now().UTC().Truncate(time.Second)
	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type:        claims.Type,
		UserID:      claims.UserID,
		Username:    claims.Username,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues(string(claims.Type)).Inc()
	return signed, nil
}

// Verify checks signature and expiry only. Expired tokens yield ErrTokenExpired,
// every other failure ErrTokenInvalid.
func (s *TokenService) Verify(token string) (*domain.Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(token, &tc, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}
	if tc.UserID == "" {
		return nil, domain.ErrTokenInvalid
	}

	claims := &domain.Claims{
		ID:          tc.ID,
		Type:        tc.Type,
		UserID:      tc.UserID,
		Username:    tc.Username,
		Email:       tc.Email,
		Roles:       tc.Roles,
		Permissions: tc.Permissions,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time
	}
	return claims, nil
}

// IssuePair issues an access token built from the user's current roles and a
// refresh token carrying only the user ID.
func (s *TokenService) IssuePair(user *domain.User) (*domain.TokenPair, error) {
	now := s.now().UTC().Truncate(time.Second)

	access, err := s.Issue(domain.AccessClaimsFor(user), s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issue(domain.RefreshClaimsFor(user), s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(s.accessTTL),
		RefreshExpiresAt: now.Add(s.refreshTTL),
	}, nil
}
