package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/roombook/booking-system/internal/api/middleware"
	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

var errNotStubbed = errors.New("not stubbed")

type stubAuthService struct {
	loginFn          func(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error)
	refreshFn        func(ctx context.Context, token string, admin bool) (*domain.TokenPair, error)
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*ports.UserProfile, error)
	updatePasswordFn func(ctx context.Context, in ports.UpdatePasswordInput) error
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	if s.loginFn == nil {
		return nil, errNotStubbed
	}
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Refresh(ctx context.Context, token string, admin bool) (*domain.TokenPair, error) {
	if s.refreshFn == nil {
		return nil, errNotStubbed
	}
	return s.refreshFn(ctx, token, admin)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.UserProfile, error) {
	if s.registerFn == nil {
		return nil, errNotStubbed
	}
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) UpdatePassword(ctx context.Context, in ports.UpdatePasswordInput) error {
	if s.updatePasswordFn == nil {
		return errNotStubbed
	}
	return s.updatePasswordFn(ctx, in)
}

type stubCodes struct {
	issued []string
	err    error
}

func (s *stubCodes) Issue(_ context.Context, purpose domain.CodePurpose, address string) error {
	if s.err != nil {
		return s.err
	}
	s.issued = append(s.issued, purpose.Key(address))
	return nil
}

func (s *stubCodes) ValidateAndConsume(context.Context, domain.CodePurpose, string, string) error {
	return errNotStubbed
}

type stubUserService struct {
	infoFn   func(ctx context.Context, userID string) (*ports.UserProfile, error)
	updateFn func(ctx context.Context, in ports.ProfileUpdateInput) error
	freezeFn func(ctx context.Context, userID string) error
	listFn   func(ctx context.Context, f ports.ListUsersFilter) (*ports.ListUsersResult, error)
	codeTo   []string
}

func (s *stubUserService) Info(ctx context.Context, userID string) (*ports.UserProfile, error) {
	if s.infoFn == nil {
		return nil, errNotStubbed
	}
	return s.infoFn(ctx, userID)
}

func (s *stubUserService) IssueProfileCode(_ context.Context, email string) error {
	s.codeTo = append(s.codeTo, email)
	return nil
}

func (s *stubUserService) UpdateProfile(ctx context.Context, in ports.ProfileUpdateInput) error {
	if s.updateFn == nil {
		return errNotStubbed
	}
	return s.updateFn(ctx, in)
}

func (s *stubUserService) Freeze(ctx context.Context, userID string) error {
	if s.freezeFn == nil {
		return errNotStubbed
	}
	return s.freezeFn(ctx, userID)
}

func (s *stubUserService) IsFrozen(context.Context, string) (bool, error) {
	return false, nil
}

func (s *stubUserService) List(ctx context.Context, f ports.ListUsersFilter) (*ports.ListUsersResult, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(ctx, f)
}

type stubBookingService struct {
	createFn func(ctx context.Context, in ports.CreateBookingInput) (*domain.Booking, error)
	listFn   func(ctx context.Context, in ports.ListBookingsInput) (*ports.ListBookingsResult, error)
	changeFn func(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error)
}

func (s *stubBookingService) CreateBooking(ctx context.Context, in ports.CreateBookingInput) (*domain.Booking, error) {
	if s.createFn == nil {
		return nil, errNotStubbed
	}
	return s.createFn(ctx, in)
}

func (s *stubBookingService) ListBookings(ctx context.Context, in ports.ListBookingsInput) (*ports.ListBookingsResult, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(ctx, in)
}

func (s *stubBookingService) ChangeStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	if s.changeFn == nil {
		return nil, errNotStubbed
	}
	return s.changeFn(ctx, id, status)
}

// newContext builds an echo context with the validator installed. A non-empty
// body is sent as JSON. claims, when non-nil, are stored as if the login
// guard had run.
func newContext(method, target, body string, claims *domain.Claims) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if claims != nil {
		middleware.SetClaims(c, claims)
	}
	return c, rec
}

// httpStatus returns the status code carried by an *echo.HTTPError, or 0.
func httpStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}
