package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/roombook/booking-system/internal/api/handler"
	"github.com/roombook/booking-system/internal/core/domain"
	"github.com/roombook/booking-system/internal/core/service"
	"github.com/roombook/booking-system/internal/infrastructure/cache/memory"
)

const testSecret = "router-test-secret"

type testEnv struct {
	e        *echo.Echo
	users    *memUsers
	bookings *memBookings
	mail     *mailbox
}

func newTestEnv(t *testing.T, opts ...func(*Dependencies)) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	cache := memory.New()
	env := &testEnv{
		users:    newMemUsers(),
		bookings: newMemBookings(),
		mail:     &mailbox{},
	}

	tokens := service.NewTokenService(testSecret, 0, 0)
	codes := service.NewVerificationService(cache, env.mail, log)
	users := service.NewUserService(env.users, codes, log)

	deps := Dependencies{
		Auth:     service.NewAuthService(env.users, codes, tokens, log),
		Codes:    codes,
		Users:    users,
		Bookings: service.NewBookingService(env.bookings, log),
		Tokens:   tokens,
		Frozen:   users,
		Health:   map[string]handler.Pinger{"cache": cache},
		Registry: prometheus.NewRegistry(),
		Log:      log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.e = NewRouter(deps)
	return env
}

func (env *testEnv) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, target, strings.NewReader(string(raw)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/user/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	decode(t, rec, &resp)
	return resp.AccessToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	decode(t, rec, &body)
	return body.Error
}

// ---------------------------------------------------------------------------
// Registration and login
// ---------------------------------------------------------------------------

func TestRouter_RegisterWithEmailedCode(t *testing.T) {
	env := newTestEnv(t)
	const email = "carol@example.com"

	rec := env.do(t, http.MethodGet, "/user/register-captcha?address="+url.QueryEscape(email), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("captcha: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	code := env.mail.lastCode(t, email)

	body := map[string]string{
		"username": "carol",
		"nickName": "Carol",
		"password": "s3cret-pw",
		"email":    email,
		"captcha":  code,
	}
	rec = env.do(t, http.MethodPost, "/user/register", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	decode(t, rec, &created)
	if created.ID == "" || created.Username != "carol" {
		t.Errorf("unexpected profile: %+v", created)
	}

	// the code is single use
	body["username"] = "carol2"
	rec = env.do(t, http.MethodPost, "/user/register", "", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reused code: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	token := env.login(t, "carol", "s3cret-pw")
	rec = env.do(t, http.MethodGet, "/user/info", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var info struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	decode(t, rec, &info)
	if info.Username != "carol" || info.Email != email {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestRouter_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/user/register", "", map[string]string{
		"username": "dave",
		"password": "s3cret-pw",
		"email":    "not-an-email",
		"captcha":  "123456",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if msg := errorOf(t, rec); !strings.Contains(msg, "email") {
		t.Errorf("expected message to name the email field, got %q", msg)
	}

	rec = env.do(t, http.MethodGet, "/user/register-captcha", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("captcha without address: expected 422, got %d", rec.Code)
	}
}

func TestRouter_WrongPasswordThreeTimes(t *testing.T) {
	env := newTestEnv(t)
	env.users.seed(t, "erin", "right-password", plainUser)

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, "/user/login", "", map[string]string{
			"username": "erin",
			"password": "wrong-password",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "accessToken") {
			t.Fatalf("attempt %d: no token must be issued", i+1)
		}
	}

	env.login(t, "erin", "right-password")
}

func TestRouter_AdminLoginRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.users.seed(t, "frank", "password1", plainUser)

	rec := env.do(t, http.MethodPost, "/user/admin/login", "", map[string]string{
		"username": "frank",
		"password": "password1",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-admin in admin context, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_Refresh(t *testing.T) {
	env := newTestEnv(t)
	env.users.seed(t, "gina", "password1", plainUser)

	rec := env.do(t, http.MethodPost, "/user/login", "", map[string]string{
		"username": "gina",
		"password": "password1",
	})
	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decode(t, rec, &login)

	rec = env.do(t, http.MethodGet, "/user/refresh?refreshToken="+url.QueryEscape(login.RefreshToken), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, rec, &pair)
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected a new pair, got %+v", pair)
	}

	rec = env.do(t, http.MethodGet, "/user/info", pair.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info with refreshed token: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/user/refresh?refreshToken="+url.QueryEscape(login.AccessToken), "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access token used as refresh: expected 401, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Guard
// ---------------------------------------------------------------------------

func TestRouter_InfoRequiresLogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.users.seed(t, "gina", "password1", plainUser)

	tokens := service.NewTokenService(testSecret, 0, 0)
	expired, err := tokens.Issue(domain.Claims{Type: domain.TokenAccess, UserID: user.ID, Username: "gina"}, -time.Minute)
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	refresh, err := tokens.Issue(domain.Claims{Type: domain.TokenRefresh, UserID: user.ID}, time.Minute)
	if err != nil {
		t.Fatalf("sign refresh token: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "garbage"},
		{"expired", expired},
		{"refresh token", refresh},
	}

	var first string
	for _, tc := range cases {
		rec := env.do(t, http.MethodGet, "/user/info", tc.token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
		body := rec.Body.String()
		if first == "" {
			first = body
			continue
		}
		if body != first {
			t.Errorf("%s: body %q differs from %q", tc.name, body, first)
		}
	}
}

func TestRouter_FrozenUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.users.seed(t, "hank", "password1", plainUser)
	token := env.login(t, "hank", "password1")

	rec := env.do(t, http.MethodGet, "/user/freeze?id="+user.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("freeze: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/user/info", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("info for frozen user: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/user/login", "", map[string]string{
		"username": "hank",
		"password": "password1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("login for frozen user: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/user/freeze?id=u-999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("freeze unknown user: expected 404, got %d", rec.Code)
	}
}

func TestRouter_UserListRequiresManageUser(t *testing.T) {
	env := newTestEnv(t)
	env.users.seed(t, "ivan", "password1", plainUser)
	env.users.seed(t, "judy", "password1", bookingManager)

	rec := env.do(t, http.MethodGet, "/user/list", env.login(t, "ivan", "password1"), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("plain user: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/user/list?pageNo=1&pageSize=1", env.login(t, "judy", "password1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Users      []json.RawMessage `json:"users"`
		TotalCount int64             `json:"totalCount"`
		TotalPages int               `json:"totalPages"`
	}
	decode(t, rec, &page)
	if page.TotalCount != 2 || page.TotalPages != 2 || len(page.Users) != 1 {
		t.Errorf("unexpected page: total=%d pages=%d items=%d", page.TotalCount, page.TotalPages, len(page.Users))
	}

	rec = env.do(t, http.MethodGet, "/user/list?pageSize=500", env.login(t, "judy", "password1"), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("oversized page: expected 422, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Bookings
// ---------------------------------------------------------------------------

func TestRouter_BookingApprovalRequiresManageBooking(t *testing.T) {
	env := newTestEnv(t)
	env.users.seed(t, "kate", "password1", plainUser)
	env.users.seed(t, "liam", "password1", bookingManager)
	userToken := env.login(t, "kate", "password1")
	adminToken := env.login(t, "liam", "password1")

	start := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	rec := env.do(t, http.MethodPost, "/booking/add", userToken, map[string]any{
		"roomName":     "Orion",
		"roomLocation": "Floor 3",
		"startTime":    start,
		"endTime":      start.Add(time.Hour),
		"note":         "planning",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var booking struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Status   string `json:"status"`
	}
	decode(t, rec, &booking)
	if booking.Username != "kate" || booking.Status != "pending" {
		t.Fatalf("unexpected booking: %+v", booking)
	}

	rec = env.do(t, http.MethodPost, "/booking/approve/"+booking.ID, userToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("approve without permission: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/booking/approve/"+booking.ID, adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &booking)
	if booking.Status != "approved" {
		t.Errorf("expected approved, got %q", booking.Status)
	}

	rec = env.do(t, http.MethodPost, "/booking/reject/"+booking.ID, adminToken, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("reject after approve: expected 422, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/booking/unbind/"+booking.ID, adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unbind: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/booking/approve/b-999", adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown booking: expected 404, got %d", rec.Code)
	}
}

func TestRouter_BookingAddValidation(t *testing.T) {
	env := newTestEnv(t)
	env.users.seed(t, "mia", "password1", plainUser)
	token := env.login(t, "mia", "password1")
	start := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	rec := env.do(t, http.MethodPost, "/booking/add", "", map[string]any{
		"roomName":  "Orion",
		"startTime": start,
		"endTime":   start.Add(time.Hour),
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous add: expected 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/booking/add", token, map[string]any{
		"roomName":  "Orion",
		"startTime": start,
		"endTime":   start.Add(-time.Hour),
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("end before start: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_BookingListFilters(t *testing.T) {
	env := newTestEnv(t)
	env.users.seed(t, "nora", "password1", plainUser)
	token := env.login(t, "nora", "password1")

	day := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	for _, b := range []struct {
		room string
		hour int
	}{{"Orion", 9}, {"Orion", 14}, {"Lyra", 10}} {
		start := day.Add(time.Duration(b.hour) * time.Hour)
		rec := env.do(t, http.MethodPost, "/booking/add", token, map[string]any{
			"roomName":  b.room,
			"startTime": start,
			"endTime":   start.Add(time.Hour),
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("add: expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	q := url.Values{}
	q.Set("meetingRoomName", "Orion")
	q.Set("bookingTimeRangeStart", "1")
	q.Set("bookingTimeRangeEnd", strconv.FormatInt(day.Add(12*time.Hour).UnixMilli(), 10))
	rec := env.do(t, http.MethodGet, "/booking/list?"+q.Encode(), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Bookings []struct {
			Room struct {
				Name string `json:"name"`
			} `json:"room"`
			StartTime time.Time `json:"startTime"`
		} `json:"bookings"`
		TotalCount int64 `json:"totalCount"`
	}
	decode(t, rec, &page)
	if page.TotalCount != 1 {
		t.Fatalf("expected 1 booking, got %d", page.TotalCount)
	}
	if page.Bookings[0].Room.Name != "Orion" || page.Bookings[0].StartTime.Hour() != 9 {
		t.Errorf("unexpected booking: %+v", page.Bookings[0])
	}
}

// ---------------------------------------------------------------------------
// Operational endpoints
// ---------------------------------------------------------------------------

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/health/ready", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readiness: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"cache":{"status":"ok"}`) {
		t.Errorf("expected cache dependency in body, got %s", rec.Body.String())
	}
}

func TestRouter_CaptchaRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.CaptchaRate = 0.001
		d.CaptchaBurst = 1
	})

	target := "/user/register-captcha?address=" + url.QueryEscape("olive@example.com")
	if rec := env.do(t, http.MethodGet, target, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, target, "", nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
}

func TestRouter_CodeAttemptRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.CodeAttemptRate = 0.001
		d.CodeAttemptBurst = 2
	})

	body := map[string]string{
		"username": "pete",
		"password": "password1",
		"email":    "pete@example.com",
		"captcha":  "000000",
	}
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodPost, "/user/register", "", body); rec.Code != http.StatusBadRequest {
			t.Fatalf("attempt %d: expected 400, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}
	if rec := env.do(t, http.MethodPost, "/user/register", "", body); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third attempt: expected 429, got %d", rec.Code)
	}
	// Password changes draw from the same budget.
	rec := env.do(t, http.MethodPost, "/user/update_password", "", map[string]string{
		"username": "pete",
		"password": "password2",
		"email":    "pete@example.com",
		"captcha":  "000000",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("update_password: expected 429, got %d", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if errorOf(t, rec) == "" {
		t.Error("expected the error envelope")
	}
}
