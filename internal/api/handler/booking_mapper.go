package handler

import (
	"time"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

// --- Request → Service input ---

func toCreateBookingInput(req createBookingRequest, claims *domain.Claims) ports.CreateBookingInput {
	return ports.CreateBookingInput{
		UserID:       claims.UserID,
		Username:     claims.Username,
		RoomName:     req.RoomName,
		RoomLocation: req.RoomLocation,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Note:         req.Note,
	}
}

func toListBookingsInput(q listBookingsQuery) ports.ListBookingsInput {
	return ports.ListBookingsInput{
		Username:     q.Username,
		RoomName:     q.MeetingRoomName,
		RoomLocation: q.MeetingRoomPosition,
		StartFrom:    fromUnixMilli(q.BookingTimeRangeStart),
		StartTo:      fromUnixMilli(q.BookingTimeRangeEnd),
		Page:         q.PageNo,
		Limit:        q.PageSize,
	}
}

func fromUnixMilli(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// --- Domain → Response ---

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:       b.ID,
		UserID:   b.UserID,
		Username: b.Username,
		Room: meetingRoomResponse{
			Name:     b.Room.Name,
			Location: b.Room.Location,
		},
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		Status:     string(b.Status),
		Note:       b.Note,
		CreateTime: b.CreatedAt,
		UpdateTime: b.UpdatedAt,
	}
}

func toBookingListResponse(res *ports.ListBookingsResult) bookingListResponse {
	items := make([]bookingResponse, 0, len(res.Items))
	for _, b := range res.Items {
		items = append(items, toBookingResponse(b))
	}
	return bookingListResponse{
		Bookings:   items,
		TotalCount: res.Total,
		PageNo:     res.Page,
		PageSize:   res.Limit,
		TotalPages: res.TotalPages,
	}
}
