package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory user repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	nextID  int
	creates int
	err     error // if set, every call returns this error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.Roles = make([]domain.Role, len(u.Roles))
	for i, r := range u.Roles {
		clone.Roles[i] = r
		clone.Roles[i].Permissions = append([]domain.Permission(nil), r.Permissions...)
	}
	return &clone
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string, adminOnly bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Username == username && (!adminOnly || u.IsAdmin) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string, adminOnly bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok || (adminOnly && !u.IsAdmin) {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.creates++
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrDuplicateUser
		}
	}
	r.nextID++
	created := cloneUser(user)
	created.ID = fmt.Sprintf("u-%03d", r.nextID)
	r.users[created.ID] = created
	return cloneUser(created), nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) UpdateProfile(_ context.Context, id string, update ports.ProfileUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if update.NickName != nil {
		u.NickName = *update.NickName
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	return nil
}

func (r *stubUserRepo) SetFrozen(_ context.Context, id string, frozen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.IsFrozen = frozen
	return nil
}

func (r *stubUserRepo) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, 0, r.err
	}
	var matched []*domain.User
	for _, u := range r.users {
		if f.Username != "" && !strings.Contains(u.Username, f.Username) {
			continue
		}
		if f.NickName != "" && !strings.Contains(u.NickName, f.NickName) {
			continue
		}
		if f.Email != "" && !strings.Contains(u.Email, f.Email) {
			continue
		}
		matched = append(matched, cloneUser(u))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []*domain.User{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// setRoles replaces the roles of a stored user, simulating an admin change.
func (r *stubUserRepo) setRoles(id string, roles ...domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id].Roles = roles
}

// seedUser stores a user with a cheap bcrypt hash of password.
func (r *stubUserRepo) seedUser(t *testing.T, username, password string, mutate func(*domain.User)) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		Username:     username,
		NickName:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if mutate != nil {
		mutate(u)
	}
	created, err := r.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return created
}

// ---------------------------------------------------------------------------
// Fake cache with a controllable clock
// ---------------------------------------------------------------------------

type fakeCacheEntry struct {
	value     string
	expiresAt time.Time
}

type fakeCache struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]fakeCacheEntry
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{now: time.Now(), entries: make(map[string]fakeCacheEntry)}
}

func (c *fakeCache) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[key] = fakeCacheEntry{value: value, expiresAt: c.now.Add(ttl)}
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	e, ok := c.entries[key]
	if !ok || !c.now.Before(e.expiresAt) {
		return "", domain.ErrCacheMiss
	}
	return e.value, nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *fakeCache) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	e, ok := c.entries[key]
	if !ok || !c.now.Before(e.expiresAt) {
		return false, domain.ErrCacheMiss
	}
	if e.value != expected {
		return false, nil
	}
	delete(c.entries, key)
	return true, nil
}

func (c *fakeCache) Ping(context.Context) error { return nil }

// ---------------------------------------------------------------------------
// Notifier that records every message
// ---------------------------------------------------------------------------

type captureNotifier struct {
	mu   sync.Mutex
	sent []ports.Message
	err  error
}

func (n *captureNotifier) Notify(_ context.Context, msg ports.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// ---------------------------------------------------------------------------
// Shared fixtures
// ---------------------------------------------------------------------------

const testSecret = "test-secret-0123456789abcdef"

func bookingManagerRole() domain.Role {
	return domain.Role{
		ID:   "r-admin",
		Name: domain.RoleAdmin,
		Permissions: []domain.Permission{
			{ID: "p-1", Code: "manage_booking"},
			{ID: "p-2", Code: "manage_user"},
		},
	}
}

func plainUserRole() domain.Role {
	return domain.Role{
		ID:          "r-user",
		Name:        domain.RoleUser,
		Permissions: []domain.Permission{{ID: "p-3", Code: "create_booking"}},
	}
}

// fixedCodes returns a generator yielding the given codes in order.
func fixedCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}
