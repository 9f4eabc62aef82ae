package ports

import (
	"context"
	"time"

	"github.com/roombook/booking-system/internal/core/domain"
)

// LoginInput carries credentials. Admin restricts the lookup to administrators.
type LoginInput struct {
	Username string
	Password string
	Admin    bool
}

// RegisterInput carries a registration request confirmed by an emailed code.
type RegisterInput struct {
	Username string
	NickName string
	Password string
	Email    string
	Code     string
}

// UpdatePasswordInput carries a password change confirmed by an emailed code.
type UpdatePasswordInput struct {
	Username string
	Email    string
	Password string
	Code     string
}

// UserProfile is the non-sensitive view of a user returned to clients.
type UserProfile struct {
	ID          string
	Username    string
	NickName    string
	Email       string
	Phone       string
	Avatar      string
	IsFrozen    bool
	IsAdmin     bool
	Roles       []string
	Permissions []string
	CreatedAt   time.Time
}

// AuthResult is returned once per successful login.
type AuthResult struct {
	User   UserProfile
	Tokens domain.TokenPair
}

// AuthService authenticates users and rotates their token pairs.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, admin bool) (*domain.TokenPair, error)
	Register(ctx context.Context, in RegisterInput) (*UserProfile, error)
	UpdatePassword(ctx context.Context, in UpdatePasswordInput) error
}

// VerificationService issues and redeems single-use verification codes.
type VerificationService interface {
	Issue(ctx context.Context, purpose domain.CodePurpose, address string) error
	ValidateAndConsume(ctx context.Context, purpose domain.CodePurpose, address, code string) error
}

// TokenService signs and verifies tokens.
type TokenService interface {
	Issue(claims domain.Claims, ttl time.Duration) (string, error)
	Verify(token string) (*domain.Claims, error)
	IssuePair(user *domain.User) (*domain.TokenPair, error)
}

// ProfileUpdateInput carries a profile change confirmed by a code sent to the caller's email.
type ProfileUpdateInput struct {
	UserID   string
	Email    string
	Code     string
	NickName *string
	Avatar   *string
	Phone    *string
}

// ListUsersResult is a page of user profiles.
type ListUsersResult struct {
	Items      []UserProfile
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService covers profile reads and account administration.
type UserService interface {
	Info(ctx context.Context, userID string) (*UserProfile, error)
	IssueProfileCode(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, in ProfileUpdateInput) error
	Freeze(ctx context.Context, userID string) error
	IsFrozen(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context, filter ListUsersFilter) (*ListUsersResult, error)
}

// NewUserProfile builds the client-facing profile of u.
func NewUserProfile(u *domain.User) UserProfile {
	return UserProfile{
		ID:          u.ID,
		Username:    u.Username,
		NickName:    u.NickName,
		Email:       u.Email,
		Phone:       u.Phone,
		Avatar:      u.Avatar,
		IsFrozen:    u.IsFrozen,
		IsAdmin:     u.IsAdmin,
		Roles:       u.RoleNames(),
		Permissions: u.PermissionCodes(),
		CreatedAt:   u.CreatedAt,
	}
}
