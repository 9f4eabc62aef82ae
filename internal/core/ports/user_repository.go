package ports

import (
	"context"

	"github.com/roombook/booking-system/internal/core/domain"
)

// ProfileUpdate carries the user-editable profile fields. Nil pointers are left unchanged.
type ProfileUpdate struct {
	NickName *string
	Avatar   *string
	Phone    *string
}

// ListUsersFilter carries the query parameters of the user list.
type ListUsersFilter struct {
	Username string // optional: partial match
	NickName string // optional: partial match
	Email    string // optional: partial match
	Page     int    // 1-based
	Limit    int
}

// UserRepository is the credential store. Lookups resolve roles and permissions.
// When adminOnly is true only users flagged as administrators match.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string, adminOnly bool) (*domain.User, error)
	FindByID(ctx context.Context, id string, adminOnly bool) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error
	SetFrozen(ctx context.Context, id string, frozen bool) error
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
}
