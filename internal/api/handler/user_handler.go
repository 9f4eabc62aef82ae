package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/ports"
)

// UserHandler serves the /user routes: registration, login, token refresh,
// password change and profile management.
type UserHandler struct {
	auth  ports.AuthService
	codes ports.VerificationService
	users ports.UserService
}

func NewUserHandler(auth ports.AuthService, codes ports.VerificationService, users ports.UserService) *UserHandler {
	return &UserHandler{auth: auth, codes: codes, users: users}
}

// Register creates an account after consuming the emailed registration code.
//
// @Summary      Register a new user
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  userInfoResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /user/register [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	profile, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		NickName: req.NickName,
		Password: req.Password,
		Email:    req.Email,
		Code:     req.Captcha,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserInfoResponse(*profile))
}

// RegisterCaptcha emails a registration code to the given address.
//
// @Summary      Send registration code
// @Tags         user
// @Produce      json
// @Param        address  query     string  true  "Email address"
// @Success      200      {object}  messageResponse
// @Failure      422      {object}  errorResponse
// @Failure      429      {object}  errorResponse
// @Router       /user/register-captcha [get]
func (h *UserHandler) RegisterCaptcha(c echo.Context) error {
	return h.sendCode(c, domain.PurposeRegister)
}

// UpdatePasswordCaptcha emails a password-change code to the given address.
//
// @Summary      Send password-change code
// @Tags         user
// @Produce      json
// @Param        address  query     string  true  "Email address"
// @Success      200      {object}  messageResponse
// @Failure      422      {object}  errorResponse
// @Failure      429      {object}  errorResponse
// @Router       /user/update_password/captcha [get]
func (h *UserHandler) UpdatePasswordCaptcha(c echo.Context) error {
	return h.sendCode(c, domain.PurposeUpdatePassword)
}

func (h *UserHandler) sendCode(c echo.Context, purpose domain.CodePurpose) error {
	var q addressQuery
	if err := bindQuery(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.codes.Issue(c.Request().Context(), purpose, q.Address); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "code sent"})
}

// Login authenticates a regular user.
//
// @Summary      Login
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /user/login [post]
func (h *UserHandler) Login(c echo.Context) error {
	return h.login(c, false)
}

// AdminLogin authenticates an administrator.
//
// @Summary      Administrator login
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /user/admin/login [post]
func (h *UserHandler) AdminLogin(c echo.Context) error {
	return h.login(c, true)
}

func (h *UserHandler) login(c echo.Context, admin bool) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.auth.Login(c.Request().Context(), ports.LoginInput{
		Username: req.Username,
		Password: req.Password,
		Admin:    admin,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoginResponse(res))
}

// Refresh rotates the token pair of a regular user.
//
// @Summary      Refresh tokens
// @Tags         user
// @Produce      json
// @Param        refreshToken  query     string  true  "Refresh token"
// @Success      200           {object}  refreshResponse
// @Failure      401           {object}  errorResponse
// @Failure      403           {object}  errorResponse
// @Router       /user/refresh [get]
func (h *UserHandler) Refresh(c echo.Context) error {
	return h.refresh(c, false)
}

// AdminRefresh rotates the token pair of an administrator.
//
// @Summary      Refresh administrator tokens
// @Tags         user
// @Produce      json
// @Param        refreshToken  query     string  true  "Refresh token"
// @Success      200           {object}  refreshResponse
// @Failure      401           {object}  errorResponse
// @Failure      403           {object}  errorResponse
// @Router       /user/admin/refresh [get]
func (h *UserHandler) AdminRefresh(c echo.Context) error {
	return h.refresh(c, true)
}

func (h *UserHandler) refresh(c echo.Context, admin bool) error {
	var q refreshQuery
	if err := bindQuery(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if q.RefreshToken == "" {
		return domain.ErrTokenInvalid
	}

	pair, err := h.auth.Refresh(c.Request().Context(), q.RefreshToken, admin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRefreshResponse(pair))
}

// Info returns the caller's profile.
//
// @Summary      Current user profile
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userInfoResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /user/info [get]
func (h *UserHandler) Info(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	profile, err := h.users.Info(c.Request().Context(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserInfoResponse(*profile))
}

// UpdatePassword changes a password after consuming the emailed code.
//
// @Summary      Change password
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      updatePasswordRequest  true  "Password change"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /user/update_password [post]
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	err := h.auth.UpdatePassword(c.Request().Context(), ports.UpdatePasswordInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Code:     req.Captcha,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password updated"})
}

// UpdateCaptcha emails a profile-update code to the caller's address.
//
// @Summary      Send profile-update code
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      429  {object}  errorResponse
// @Router       /user/update/captcha [get]
func (h *UserHandler) UpdateCaptcha(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	if claims.Email == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "account has no email address")
	}

	if err := h.users.IssueProfileCode(c.Request().Context(), claims.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "code sent"})
}

// Update changes the caller's profile after consuming the emailed code.
//
// @Summary      Update profile
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateUserRequest  true  "Profile fields"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /user/update [post]
func (h *UserHandler) Update(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	err = h.users.UpdateProfile(c.Request().Context(), ports.ProfileUpdateInput{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Code:     req.Captcha,
		NickName: req.NickName,
		Avatar:   req.HeadPic,
		Phone:    req.PhoneNumber,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "profile updated"})
}

// Freeze flags an account as frozen.
//
// @Summary      Freeze user
// @Tags         user
// @Produce      json
// @Param        id   query     string  true  "User ID"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /user/freeze [get]
func (h *UserHandler) Freeze(c echo.Context) error {
	var q freezeQuery
	if err := bindQuery(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.users.Freeze(c.Request().Context(), q.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "success"})
}

// List returns a page of users.
//
// @Summary      List users
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        pageNo    query     int     false  "Page number (default 1)"
// @Param        pageSize  query     int     false  "Page size (default 10, max 100)"
// @Param        username  query     string  false  "Username contains"
// @Param        nickName  query     string  false  "Nickname contains"
// @Param        email     query     string  false  "Email contains"
// @Success      200       {object}  userListResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /user/list [get]
func (h *UserHandler) List(c echo.Context) error {
	var q listUsersQuery
	if err := bindQuery(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	res, err := h.users.List(c.Request().Context(), ports.ListUsersFilter{
		Username: q.Username,
		NickName: q.NickName,
		Email:    q.Email,
		Page:     q.PageNo,
		Limit:    q.PageSize,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserListResponse(res))
}
