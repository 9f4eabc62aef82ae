package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/roombook/booking-system/docs"
	"github.com/roombook/booking-system/internal/api/handler"
	"github.com/roombook/booking-system/internal/api/middleware"
	"github.com/roombook/booking-system/internal/core/ports"
)

// Permission codes checked by the router.
const (
	PermissionManageUser    = "manage_user"
	PermissionManageBooking = "manage_booking"
)

// Dependencies is everything NewRouter needs to mount the API.
type Dependencies struct {
	Auth     ports.AuthService
	Codes    ports.VerificationService
	Users    ports.UserService
	Bookings ports.BookingService

	Tokens middleware.TokenVerifier
	// Frozen enables the per-request frozen check when non-nil.
	Frozen middleware.FrozenChecker

	Health map[string]handler.Pinger

	// CaptchaRate limits code-issuing routes per client IP, in requests per
	// second. Zero disables the limiter.
	CaptchaRate  float64
	CaptchaBurst int

	// CodeAttemptRate limits routes that consume a code, on a separate
	// per-IP budget. Zero disables the limiter.
	CodeAttemptRate  float64
	CodeAttemptBurst int

	CORSOrigins []string

	// Registry receives the HTTP metrics and backs /metrics. nil uses the
	// process-wide default registry.
	Registry *prometheus.Registry

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: deps.CORSOrigins,
	}))
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "booking",
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Dependencies ---
	guard := middleware.NewGuard(deps.Tokens, deps.Frozen, deps.Log)
	requireLogin := guard.RequireLogin()
	userHandler := handler.NewUserHandler(deps.Auth, deps.Codes, deps.Users)
	bookingHandler := handler.NewBookingHandler(deps.Bookings)
	healthHandler := handler.NewHealthHandler(deps.Health)

	captcha := captchaLimiter(deps.CaptchaRate, deps.CaptchaBurst)
	attempts := captchaLimiter(deps.CodeAttemptRate, deps.CodeAttemptBurst)
	loggedInAttempts := append([]echo.MiddlewareFunc{requireLogin}, attempts...)

	// --- User routes ---
	user := e.Group("/user")
	user.POST("/register", userHandler.Register, attempts...)
	user.GET("/register-captcha", userHandler.RegisterCaptcha, captcha...)
	user.POST("/login", userHandler.Login)
	user.POST("/admin/login", userHandler.AdminLogin)
	user.GET("/refresh", userHandler.Refresh)
	user.GET("/admin/refresh", userHandler.AdminRefresh)
	user.GET("/info", userHandler.Info, requireLogin)
	user.POST("/update_password", userHandler.UpdatePassword, attempts...)
	user.POST("/admin/update_password", userHandler.UpdatePassword, attempts...)
	user.GET("/update_password/captcha", userHandler.UpdatePasswordCaptcha, captcha...)
	user.POST("/update", userHandler.Update, loggedInAttempts...)
	user.POST("/admin/update", userHandler.Update, loggedInAttempts...)
	user.GET("/update/captcha", userHandler.UpdateCaptcha, append([]echo.MiddlewareFunc{requireLogin}, captcha...)...)
	user.GET("/freeze", userHandler.Freeze)
	user.GET("/list", userHandler.List, requireLogin, guard.RequirePermission(PermissionManageUser))

	// --- Booking routes ---
	booking := e.Group("/booking")
	booking.GET("/list", bookingHandler.List)
	booking.POST("/add", bookingHandler.Add, requireLogin)
	manage := []echo.MiddlewareFunc{requireLogin, guard.RequirePermission(PermissionManageBooking)}
	booking.POST("/approve/:id", bookingHandler.Approve, manage...)
	booking.POST("/reject/:id", bookingHandler.Reject, manage...)
	booking.POST("/unbind/:id", bookingHandler.Unbind, manage...)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/api-doc/*", echoSwagger.WrapHandler)

	return e
}

// captchaLimiter returns a per-IP rate limiter for the code routes, or
// nothing when r is zero.
func captchaLimiter(r float64, burst int) []echo.MiddlewareFunc {
	if r <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(r),
		Burst:     burst,
		ExpiresIn: 5 * time.Minute,
	})
	return []echo.MiddlewareFunc{echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
	})}
}
