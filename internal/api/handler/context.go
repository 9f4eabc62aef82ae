package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/roombook/booking-system/internal/api/middleware"
	"github.com/roombook/booking-system/internal/core/domain"
)

// ctxClaims returns the caller's claims stored by the login guard. Handlers
// mounted without the guard get domain.ErrUnauthorized.
func ctxClaims(c echo.Context) (*domain.Claims, error) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok || claims.UserID == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// bindQuery binds query parameters only, regardless of the request method.
func bindQuery(c echo.Context, dst any) error {
	return (&echo.DefaultBinder{}).BindQueryParams(c, dst)
}
