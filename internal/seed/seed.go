// Package seed loads the initial permissions, roles and accounts from a YAML
// fixture. Re-applying a fixture refreshes permissions, roles and role
// assignments; passwords, profiles and frozen flags of existing accounts are
// left alone.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/roombook/booking-system/internal/core/domain"
)

// Store is the write side the seeder needs. Every method upserts by natural
// key (permission code, role name, username) and returns the stored ID.
type Store interface {
	UpsertPermission(ctx context.Context, p domain.Permission) (string, error)
	UpsertRole(ctx context.Context, name string, permissionIDs []string) (string, error)
	UpsertUser(ctx context.Context, u *domain.User, roleIDs []string) (string, error)
}

type Fixture struct {
	Permissions []PermissionFixture `yaml:"permissions"`
	Roles       []RoleFixture       `yaml:"roles"`
	Users       []UserFixture       `yaml:"users"`
}

type PermissionFixture struct {
	Code        string `yaml:"code"`
	Description string `yaml:"description"`
}

type RoleFixture struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type UserFixture struct {
	Username string   `yaml:"username"`
	NickName string   `yaml:"nickName"`
	Email    string   `yaml:"email"`
	Phone    string   `yaml:"phone"`
	Password string   `yaml:"password"`
	Admin    bool     `yaml:"admin"`
	Roles    []string `yaml:"roles"`
}

// Summary counts what Apply wrote.
type Summary struct {
	Permissions int
	Roles       int
	Users       int
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a fixture. Unknown keys are rejected.
func Load(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fx Fixture
	if err := dec.Decode(&fx); err != nil {
		if errors.Is(err, io.EOF) {
			return &fx, nil
		}
		return nil, fmt.Errorf("seed: decode fixture: %w", err)
	}
	return &fx, nil
}

// Apply writes permissions, then roles, then users. Role and permission
// references are resolved against the same fixture.
func Apply(ctx context.Context, store Store, fx *Fixture, cost int, log zerolog.Logger) (Summary, error) {
	var sum Summary
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	permIDs := make(map[string]string, len(fx.Permissions))
	for _, p := range fx.Permissions {
		if p.Code == "" {
			return sum, errors.New("seed: permission without code")
		}
		id, err := store.UpsertPermission(ctx, domain.Permission{Code: p.Code, Description: p.Description})
		if err != nil {
			return sum, fmt.Errorf("seed: permission %s: %w", p.Code, err)
		}
		permIDs[p.Code] = id
		sum.Permissions++
	}

	roleIDs := make(map[string]string, len(fx.Roles))
	for _, r := range fx.Roles {
		if r.Name == "" {
			return sum, errors.New("seed: role without name")
		}
		ids, err := resolve(permIDs, r.Permissions, "permission")
		if err != nil {
			return sum, fmt.Errorf("seed: role %s: %w", r.Name, err)
		}
		id, err := store.UpsertRole(ctx, r.Name, ids)
		if err != nil {
			return sum, fmt.Errorf("seed: role %s: %w", r.Name, err)
		}
		roleIDs[r.Name] = id
		sum.Roles++
	}

	for _, u := range fx.Users {
		if u.Username == "" || u.Password == "" || u.Email == "" {
			return sum, fmt.Errorf("seed: user %q: username, email and password are required", u.Username)
		}
		ids, err := resolve(roleIDs, u.Roles, "role")
		if err != nil {
			return sum, fmt.Errorf("seed: user %s: %w", u.Username, err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return sum, fmt.Errorf("seed: user %s: hash password: %w", u.Username, err)
		}
		nick := u.NickName
		if nick == "" {
			nick = u.Username
		}
		if _, err := store.UpsertUser(ctx, &domain.User{
			Username:     u.Username,
			NickName:     nick,
			Email:        u.Email,
			Phone:        u.Phone,
			PasswordHash: string(hash),
			IsAdmin:      u.Admin,
		}, ids); err != nil {
			return sum, fmt.Errorf("seed: user %s: %w", u.Username, err)
		}
		sum.Users++
	}

	log.Info().
		Int("permissions", sum.Permissions).
		Int("roles", sum.Roles).
		Int("users", sum.Users).
		Msg("seed applied")
	return sum, nil
}

func resolve(ids map[string]string, names []string, kind string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			return nil, fmt.Errorf("unknown %s %q", kind, name)
		}
		out = append(out, id)
	}
	return out, nil
}
