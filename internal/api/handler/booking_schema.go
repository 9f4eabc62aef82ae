package handler

import "time"

type createBookingRequest struct {
	RoomName     string    `json:"roomName"     validate:"required,max=100"`
	RoomLocation string    `json:"roomLocation" validate:"max=200"`
	StartTime    time.Time `json:"startTime"    validate:"required"`
	EndTime      time.Time `json:"endTime"      validate:"required,gtfield=StartTime"`
	Note         string    `json:"note"         validate:"max=500"`
}

// listBookingsQuery carries the booking list filters. Time bounds are Unix
// milliseconds.
type listBookingsQuery struct {
	PageQuery
	Username              string `query:"username"`
	MeetingRoomName       string `query:"meetingRoomName"`
	MeetingRoomPosition   string `query:"meetingRoomPosition"`
	BookingTimeRangeStart int64  `query:"bookingTimeRangeStart" validate:"omitempty,min=0"`
	BookingTimeRangeEnd   int64  `query:"bookingTimeRangeEnd"   validate:"omitempty,min=0"`
}

type meetingRoomResponse struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type bookingResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"userId"`
	Username   string              `json:"username"`
	Room       meetingRoomResponse `json:"room"`
	StartTime  time.Time           `json:"startTime"`
	EndTime    time.Time           `json:"endTime"`
	Status     string              `json:"status"`
	Note       string              `json:"note,omitempty"`
	CreateTime time.Time           `json:"createTime"`
	UpdateTime time.Time           `json:"updateTime"`
}

type bookingListResponse struct {
	Bookings   []bookingResponse `json:"bookings"`
	TotalCount int64             `json:"totalCount"`
	PageNo     int               `json:"pageNo"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}
