package domain

import (
	"sort"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Permission is an atomic capability code attached to roles.
type Permission struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

// Role groups permissions.
type Role struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// User models an account of the booking system with its resolved roles.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	NickName     string    `json:"nick_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	PasswordHash string    `json:"-"`
	IsFrozen     bool      `json:"is_frozen"`
	IsAdmin      bool      `json:"is_admin"`
	Roles        []Role    `json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames returns the names of the user's roles in assignment order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// PermissionCodes returns the union of all role permissions, deduplicated and sorted.
func (u *User) PermissionCodes() []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0)
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if _, ok := seen[p.Code]; ok {
				continue
			}
			seen[p.Code] = struct{}{}
			codes = append(codes, p.Code)
		}
	}
	sort.Strings(codes)
	return codes
}

// HasPermission reports whether any of the user's roles grants code.
func (u *User) HasPermission(code string) bool {
	for _, r := range u.Roles {
		for _, p := range r.Permissions {
			if p.Code == code {
				return true
			}
		}
	}
	return false
}
