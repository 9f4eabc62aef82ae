package ports

import (
	"context"
	"time"

	"github.com/roombook/booking-system/internal/core/domain"
)

// ListBookingsFilter carries all query parameters for listing bookings.
type ListBookingsFilter struct {
	Username     string    // optional: partial match on the booking owner
	RoomName     string    // optional: partial match on room name
	RoomLocation string    // optional: partial match on room location
	StartFrom    time.Time // optional: start_time >= StartFrom
	StartTo      time.Time // optional: start_time <= StartTo
	Page         int       // 1-based
	Limit        int       // max rows per page (capped by service)
}

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	FindByID(ctx context.Context, id string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, at time.Time) error
	List(ctx context.Context, filter ListBookingsFilter) ([]*domain.Booking, int64, error)
}
