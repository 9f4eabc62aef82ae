package api

import (
	"context"
	"fmt"
	"regexp"
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

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[string]*domain.User)}
}

func (r *memUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) FindByUsername(_ context.Context, username string, adminOnly bool) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Username == username && (!adminOnly || u.IsAdmin) })
}

func (r *memUsers) FindByID(_ context.Context, id string, adminOnly bool) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id && (!adminOnly || u.IsAdmin) })
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *memUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, domain.ErrDuplicateUser
		}
	}
	r.nextID++
	created := *user
	created.ID = fmt.Sprintf("u-%03d", r.nextID)
	r.byID[created.ID] = &created
	out := created
	return &out, nil
}

func (r *memUsers) update(id string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (r *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r *memUsers) UpdateProfile(_ context.Context, id string, p ports.ProfileUpdate) error {
	return r.update(id, func(u *domain.User) {
		if p.NickName != nil {
			u.NickName = *p.NickName
		}
		if p.Avatar != nil {
			u.Avatar = *p.Avatar
		}
		if p.Phone != nil {
			u.Phone = *p.Phone
		}
	})
}

func (r *memUsers) SetFrozen(_ context.Context, id string, frozen bool) error {
	return r.update(id, func(u *domain.User) { u.IsFrozen = frozen })
}

func (r *memUsers) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.User
	for _, u := range r.byID {
		if f.Username != "" && !strings.Contains(u.Username, f.Username) {
			continue
		}
		clone := *u
		matched = append(matched, &clone)
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

func (r *memUsers) seed(t *testing.T, username, password string, roles ...domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := r.Create(context.Background(), &domain.User{
		Username:     username,
		NickName:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Roles:        roles,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

var (
	bookingManager = domain.Role{
		Name: domain.RoleAdmin,
		Permissions: []domain.Permission{
			{Code: PermissionManageBooking},
			{Code: PermissionManageUser},
		},
	}
	plainUser = domain.Role{
		Name:        domain.RoleUser,
		Permissions: []domain.Permission{{Code: "create_booking"}},
	}
)

// ---------------------------------------------------------------------------
// In-memory booking repository
// ---------------------------------------------------------------------------

type memBookings struct {
	mu     sync.Mutex
	byID   map[string]*domain.Booking
	nextID int
}

func newMemBookings() *memBookings {
	return &memBookings{byID: make(map[string]*domain.Booking)}
}

func (r *memBookings) Create(_ context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = fmt.Sprintf("b-%03d", r.nextID)
	clone := *b
	r.byID[b.ID] = &clone
	return nil
}

func (r *memBookings) FindByID(_ context.Context, id string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memBookings) UpdateStatus(_ context.Context, id string, status domain.BookingStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byID[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = at
	return nil
}

func (r *memBookings) List(_ context.Context, f ports.ListBookingsFilter) ([]*domain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Booking
	for _, b := range r.byID {
		if f.RoomName != "" && !strings.Contains(b.Room.Name, f.RoomName) {
			continue
		}
		if !f.StartFrom.IsZero() && b.StartTime.Before(f.StartFrom) {
			continue
		}
		if !f.StartTo.IsZero() && b.StartTime.After(f.StartTo) {
			continue
		}
		clone := *b
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

// ---------------------------------------------------------------------------
// Mailbox notifier
// ---------------------------------------------------------------------------

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type mailbox struct {
	mu   sync.Mutex
	sent []ports.Message
}

func (m *mailbox) Notify(_ context.Context, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// lastCode returns the code in the most recent message sent to address.
func (m *mailbox) lastCode(t *testing.T, address string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == address {
			if code := codePattern.FindString(m.sent[i].Text); code != "" {
				return code
			}
		}
	}
	t.Fatalf("no code sent to %s", address)
	return ""
}
