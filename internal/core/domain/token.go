package domain

import "time"

// TokenType distinguishes access credentials from refresh credentials.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the verified content of a signed token. Refresh tokens only carry
// UserID so that a refresh always reloads roles and permissions.
type Claims struct {
	ID          string
	Type        TokenType
	UserID      string
	Username    string
	Email       string
	Roles       []string
	Permissions []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasPermission reports whether code is in the claims' permission set.
func (c *Claims) HasPermission(code string) bool {
	for _, p := range c.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// AccessClaimsFor builds the full access-token claims from the user's current roles.
func AccessClaimsFor(u *User) Claims {
	return Claims{
		Type:        TokenAccess,
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Roles:       u.RoleNames(),
		Permissions: u.PermissionCodes(),
	}
}

// RefreshClaimsFor builds the minimal refresh-token claims.
func RefreshClaimsFor(u *User) Claims {
	return Claims{Type: TokenRefresh, UserID: u.ID}
}

// TokenPair is the access/refresh pair returned by login and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
