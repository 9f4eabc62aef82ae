package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
	"github.com/roombook/booking-system/internal/pkg/metrics"
)

const (
	defaultBookingPageSize = 10
	maxBookingPageSize     = 100
)

type BookingService struct {
	repo   ports.BookingRepository
	logger zerolog.Logger
}

func NewBookingService(repo ports.BookingRepository, logger zerolog.Logger) *BookingService {
	return &BookingService{repo: repo, logger: logger}
}

// CreateBooking records a pending booking for the caller. Overlapping bookings
// are not detected here.
func (s *BookingService) CreateBooking(ctx context.Context, input ports.CreateBookingInput) (*domain.Booking, error) {
	if !input.EndTime.After(input.StartTime) {
		return nil, domain.ErrInvalidTimeRange
	}

	now := time.Now().UTC()
	booking := &domain.Booking{
		UserID:   input.UserID,
		Username: input.Username,
		Room: domain.MeetingRoom{
			Name:     input.RoomName,
			Location: input.RoomLocation,
		},
		StartTime: input.StartTime.UTC(),
		EndTime:   input.EndTime.UTC(),
		Status:    domain.BookingPending,
		Note:      input.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		s.logger.Error().Err(err).Msg("failed to create booking")
		return nil, fmt.Errorf("create booking: %w", err)
	}

	metrics.BookingsTotal.WithLabelValues(string(domain.BookingPending)).Inc()
	s.logger.Info().Str("booking_id", booking.ID).Str("user_id", input.UserID).Str("room", input.RoomName).Msg("booking created")
	return booking, nil
}

// ListBookings returns a page of bookings. Page defaults to 1; limit defaults
// to 10 and is capped at 100.
func (s *BookingService) ListBookings(ctx context.Context, input ports.ListBookingsInput) (*ports.ListBookingsResult, error) {
	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit < 1 {
		limit = defaultBookingPageSize
	}
	if limit > maxBookingPageSize {
		limit = maxBookingPageSize
	}

	items, total, err := s.repo.List(ctx, ports.ListBookingsFilter{
		Username:     input.Username,
		RoomName:     input.RoomName,
		RoomLocation: input.RoomLocation,
		StartFrom:    input.StartFrom,
		StartTo:      input.StartTo,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return &ports.ListBookingsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// ChangeStatus moves a booking through the approval workflow.
func (s *BookingService) ChangeStatus(ctx context.Context, id string, status domain.BookingStatus) (*domain.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("change booking status: %w", err)
	}

	if !booking.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("change booking status: %w (from %s to %s)", domain.ErrInvalidTransition, booking.Status, status)
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, now); err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("change booking status: %w", err)
	}

	booking.Status = status
	booking.UpdatedAt = now
	metrics.BookingsTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info().Str("booking_id", id).Str("status", string(status)).Msg("booking status changed")
	return booking, nil
}
