package ports

import (
	"context"
	"time"

	"github.com/roombook/booking-system/internal/core/domain"
)

// CreateBookingInput carries all data needed to book a room.
type CreateBookingInput struct {
	UserID       string
	Username     string
	RoomName     string
	RoomLocation string
	StartTime    time.Time
	EndTime      time.Time
	Note         string
}

// ListBookingsInput carries all parameters for the list endpoint.
type ListBookingsInput struct {
	Username     string
	RoomName     string
	RoomLocation string
	StartFrom    time.Time
	StartTo      time.Time
	Page         int
	Limit        int
}

// ListBookingsResult is returned by ListBookings.
type ListBookingsResult struct {
	Items      []*domain.Booking
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// BookingService defines use-case operations for bookings.
type BookingService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	ListBookings(ctx context.Context, input ListBookingsInput) (*ListBookingsResult, error)
	ChangeStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error)
}
