package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

// BookingHandler handles HTTP requests for meeting room bookings.
type BookingHandler struct {
	service ports.BookingService
}

func NewBookingHandler(service ports.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// List handles GET /booking/list.
//
// @Summary      List bookings
// @Tags         booking
// @Produce      json
// @Param        pageNo                 query     int     false  "Page number (default 1)"
// @Param        pageSize               query     int     false  "Page size (default 10, max 100)"
// @Param        username               query     string  false  "Booker username contains"
// @Param        meetingRoomName        query     string  false  "Room name contains"
// @Param        meetingRoomPosition    query     string  false  "Room location contains"
// @Param        bookingTimeRangeStart  query     int     false  "Earliest start (Unix ms)"
// @Param        bookingTimeRangeEnd    query     int     false  "Latest start (Unix ms)"
// @Success      200                    {object}  bookingListResponse
// @Failure      422                    {object}  errorResponse
// @Router       /booking/list [get]
func (h *BookingHandler) List(c echo.Context) error {
	var q listBookingsQuery
	if err := bindQuery(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.service.ListBookings(c.Request().Context(), toListBookingsInput(q))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingListResponse(res))
}

// Add handles POST /booking/add.
//
// @Summary      Book a meeting room
// @Tags         booking
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createBookingRequest  true  "Booking details"
// @Success      201   {object}  bookingResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /booking/add [post]
func (h *BookingHandler) Add(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	booking, err := h.service.CreateBooking(c.Request().Context(), toCreateBookingInput(req, claims))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResponse(booking))
}

// Approve handles POST /booking/approve/:id.
//
// @Summary      Approve a booking
// @Tags         booking
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  bookingResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /booking/approve/{id} [post]
func (h *BookingHandler) Approve(c echo.Context) error {
	return h.changeStatus(c, domain.BookingApproved)
}

// Reject handles POST /booking/reject/:id.
//
// @Summary      Reject a booking
// @Tags         booking
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  bookingResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /booking/reject/{id} [post]
func (h *BookingHandler) Reject(c echo.Context) error {
	return h.changeStatus(c, domain.BookingRejected)
}

// Unbind handles POST /booking/unbind/:id and releases the room.
//
// @Summary      Release a booking
// @Tags         booking
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Booking ID"
// @Success      200  {object}  bookingResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /booking/unbind/{id} [post]
func (h *BookingHandler) Unbind(c echo.Context) error {
	return h.changeStatus(c, domain.BookingReleased)
}

func (h *BookingHandler) changeStatus(c echo.Context, status domain.BookingStatus) error {
	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "booking id is required")
	}

	booking, err := h.service.ChangeStatus(c.Request().Context(), id, status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(booking))
}
