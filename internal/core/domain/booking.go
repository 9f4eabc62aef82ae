package domain

import (
	"errors"
	"time"
)

// BookingStatus represents the approval state of a room booking.
type BookingStatus string

const (
	BookingPending  BookingStatus = "pending"
	BookingApproved BookingStatus = "approved"
	BookingRejected BookingStatus = "rejected"
	BookingReleased BookingStatus = "released"
)

// validTransitions defines the allowed approval workflow.
var validTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:  {BookingApproved, BookingRejected, BookingReleased},
	BookingApproved: {BookingReleased},
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrBookingNotFound = errors.New("booking not found")
var ErrInvalidTimeRange = errors.New("booking end time must be after start time")

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MeetingRoom is the room snapshot stored on a booking.
type MeetingRoom struct {
	Name     string `json:"name" bson:"name"`
	Location string `json:"location" bson:"location"`
}

// Booking is a reservation of a meeting room for a time range.
type Booking struct {
	ID        string        `json:"id" bson:"_id,omitempty"`
	UserID    string        `json:"user_id" bson:"user_id"`
	Username  string        `json:"username" bson:"username"`
	Room      MeetingRoom   `json:"room" bson:"room"`
	StartTime time.Time     `json:"start_time" bson:"start_time"`
	EndTime   time.Time     `json:"end_time" bson:"end_time"`
	Status    BookingStatus `json:"status" bson:"status"`
	Note      string        `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" bson:"updated_at"`
}
