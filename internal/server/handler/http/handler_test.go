package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/securebank/internal/form"
	"github.com/atinyakov/securebank/internal/middleware"
	"github.com/atinyakov/securebank/internal/models"
	"github.com/atinyakov/securebank/internal/service"
)

// fakeLoginPage implements LoginPage for testing.
type fakeLoginPage struct {
	loadState form.State
	loadErr   error
	outcome   service.Outcome
	submitErr error
	submitted *service.Credentials
	state     form.State
}

func (f *fakeLoginPage) Load(ctx context.Context) (form.State, error) {
	return f.loadState, f.loadErr
}

func (f *fakeLoginPage) Input(field models.Field, value string) form.State {
	s := form.New()
	s.Input(field, value)
	return *s
}

func (f *fakeLoginPage) Blur(field models.Field, value string) form.State {
	s := form.New()
	s.Field(field).Value = value
	s.ValidateField(field)
	return *s
}

func (f *fakeLoginPage) Fill(userID, password string) form.State {
	f.state.UserID.Value = userID
	f.state.Password.Value = password
	return f.state
}

func (f *fakeLoginPage) TogglePasswordVisibility() form.State {
	f.state.PasswordVisible = !f.state.PasswordVisible
	return f.state
}

func (f *fakeLoginPage) Submit(ctx context.Context, creds service.Credentials) (service.Outcome, error) {
	f.submitted = &creds
	return f.outcome, f.submitErr
}

// fakeDashboard implements Dashboard for testing.
type fakeDashboard struct {
	view      service.DashboardView
	checkErr  error
	logoutErr error
	loggedOut bool
}

func (f *fakeDashboard) Check(ctx context.Context) (service.DashboardView, error) {
	return f.view, f.checkErr
}

func (f *fakeDashboard) Logout(ctx context.Context) error {
	f.loggedOut = true
	return f.logoutErr
}

// fakeSessions implements Sessions for testing.
type fakeSessions struct {
	login     *fakeLoginPage
	dashboard *fakeDashboard
	profiles  []string
	released  []string
}

func (f *fakeSessions) LoginPage(profile string) LoginPage {
	f.profiles = append(f.profiles, profile)
	return f.login
}

func (f *fakeSessions) Dashboard(profile string) Dashboard {
	f.profiles = append(f.profiles, profile)
	return f.dashboard
}

func (f *fakeSessions) Release(profile string) {
	f.released = append(f.released, profile)
}

func withProfile(req *http.Request, profile string) *http.Request {
	return req.WithContext(middleware.WithProfile(req.Context(), profile))
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest("POST", "/login", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return withProfile(req, "p1")
}

func TestLoginHandler_Page(t *testing.T) {
	state := *form.New()
	state.UserID.Value = "admin"
	state.Remember = true
	sessions := &fakeSessions{login: &fakeLoginPage{loadState: state}}
	h := &LoginHandler{Sessions: sessions}

	rec := httptest.NewRecorder()
	h.Page(rec, withProfile(httptest.NewRequest("GET", "/", nil), "p1"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="admin"`)
	assert.Contains(t, body, "checked")
	assert.Contains(t, body, `type="password"`)
	assert.Equal(t, []string{"p1"}, sessions.profiles)
}

func TestLoginHandler_PageLoadError(t *testing.T) {
	sessions := &fakeSessions{login: &fakeLoginPage{loadErr: errors.New("db down")}}
	h := &LoginHandler{Sessions: sessions}

	rec := httptest.NewRecorder()
	h.Page(rec, withProfile(httptest.NewRequest("GET", "/", nil), "p1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoginHandler_Submit(t *testing.T) {
	invalid := *form.New()
	invalid.UserID = form.FieldState{Invalid: true, Code: "EMPTY", Message: "User ID is required"}

	mismatch := *form.New()
	mismatch.Shake = true
	mismatch.ShowBanner(models.BannerError, service.MsgInvalidCredentials)

	success := *form.New()
	success.ShowBanner(models.BannerSuccess, service.MsgLoginSuccess)

	tests := []struct {
		name        string
		outcome     service.Outcome
		submitErr   error
		wantCode    int
		wantSubstr  string
		wantRefresh string
	}{
		{
			name:       "validation failure",
			outcome:    service.Outcome{Err: service.ErrInvalidForm, State: invalid},
			wantCode:   http.StatusUnprocessableEntity,
			wantSubstr: "User ID is required",
		},
		{
			name:       "credential mismatch",
			outcome:    service.Outcome{Err: service.ErrCredentialMismatch, Shake: true, State: mismatch},
			wantCode:   http.StatusUnauthorized,
			wantSubstr: `class="shake"`,
		},
		{
			name:       "unexpected",
			outcome:    service.Outcome{Err: service.ErrUnexpected},
			wantCode:   http.StatusInternalServerError,
			wantSubstr: "loginForm",
		},
		{
			name:       "in flight",
			outcome:    service.Outcome{Err: service.ErrSubmitInFlight},
			submitErr:  service.ErrSubmitInFlight,
			wantCode:   http.StatusConflict,
			wantSubstr: "loginForm",
		},
		{
			name:       "released form",
			outcome:    service.Outcome{Err: service.ErrReleased},
			submitErr:  service.ErrReleased,
			wantCode:   http.StatusConflict,
			wantSubstr: "loginForm",
		},
		{
			name: "success",
			outcome: service.Outcome{
				Success:       true,
				Redirect:      models.DashboardPath,
				RedirectAfter: service.DefaultRedirectDelay,
				State:         success,
			},
			wantCode:    http.StatusOK,
			wantSubstr:  "Login successful!",
			wantRefresh: "1.5; url=/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakeLoginPage{outcome: tt.outcome, submitErr: tt.submitErr}
			h := &LoginHandler{Sessions: &fakeSessions{login: page}}

			rec := httptest.NewRecorder()
			h.Submit(rec, postForm(url.Values{
				"userId":     {"admin"},
				"password":   {"123456"},
				"saveUserId": {"on"},
			}))

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantSubstr)
			assert.Equal(t, tt.wantRefresh, rec.Header().Get("Refresh"))
			require.NotNil(t, page.submitted)
			assert.Equal(t, service.Credentials{UserID: "admin", Password: "123456", Remember: true}, *page.submitted)
		})
	}
}

func TestLoginHandler_SubmitToggle(t *testing.T) {
	page := &fakeLoginPage{}
	page.state.Password = form.FieldState{Invalid: true, Code: "TOO_SHORT", Message: "Password must be at least 6 characters"}
	page.state.ShowBanner(models.BannerError, service.MsgInvalidCredentials)
	h := &LoginHandler{Sessions: &fakeSessions{login: page}}

	rec := httptest.NewRecorder()
	h.Submit(rec, postForm(url.Values{"userId": {"admin"}, "password": {"123"}, "action": {"toggle"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, page.submitted, "toggling must not submit")
	body := rec.Body.String()
	assert.Contains(t, body, `id="password" name="password" type="text"`)
	assert.Contains(t, body, `value="admin"`)
	assert.Contains(t, body, "Password must be at least 6 characters")
	assert.Contains(t, body, "Invalid User ID or Password. Please try again.")
}

func TestDashboardHandler_Page(t *testing.T) {
	tests := []struct {
		name         string
		dashboard    *fakeDashboard
		wantCode     int
		wantLocation string
	}{
		{
			name:         "no session redirects",
			dashboard:    &fakeDashboard{checkErr: service.ErrNotAuthenticated},
			wantCode:     http.StatusFound,
			wantLocation: "/",
		},
		{
			name:      "store error",
			dashboard: &fakeDashboard{checkErr: errors.New("db down")},
			wantCode:  http.StatusInternalServerError,
		},
		{
			name: "renders",
			dashboard: &fakeDashboard{view: service.DashboardView{
				Date:  "Tuesday, March 5, 2024",
				Cards: []service.Card{{Title: "Total Balance", Value: "$1"}},
			}},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &DashboardHandler{Sessions: &fakeSessions{dashboard: tt.dashboard}}
			rec := httptest.NewRecorder()
			h.Page(rec, withProfile(httptest.NewRequest("GET", "/dashboard", nil), "p1"))

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			if tt.wantCode == http.StatusOK {
				assert.Contains(t, rec.Body.String(), "Tuesday, March 5, 2024")
				assert.Contains(t, rec.Body.String(), "Total Balance")
			} else {
				assert.NotContains(t, rec.Body.String(), "Welcome back")
			}
		})
	}
}

func TestDashboardHandler_Logout(t *testing.T) {
	dash := &fakeDashboard{}
	sessions := &fakeSessions{dashboard: dash}
	h := &DashboardHandler{Sessions: sessions}

	rec := httptest.NewRecorder()
	h.Logout(rec, withProfile(httptest.NewRequest("POST", "/logout", nil), "p1"))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.True(t, dash.loggedOut)
	assert.Equal(t, []string{"p1"}, sessions.released)

	failing := &fakeSessions{dashboard: &fakeDashboard{logoutErr: errors.New("db down")}}
	rec = httptest.NewRecorder()
	(&DashboardHandler{Sessions: failing}).Logout(rec, withProfile(httptest.NewRequest("POST", "/logout", nil), "p1"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, failing.released)
}

func TestAPIHandler_Validate(t *testing.T) {
	h := &APIHandler{Sessions: &fakeSessions{login: &fakeLoginPage{}}}

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantSub  string
	}{
		{"invalid JSON", `nope`, http.StatusBadRequest, "invalid request"},
		{"unknown field", `{"field":"email","value":"x"}`, http.StatusBadRequest, "unknown field"},
		{"too short", `{"field":"userId","value":"ab"}`, http.StatusOK, `"code":"TOO_SHORT"`},
		{"empty", `{"field":"password","value":"  "}`, http.StatusOK, `"code":"EMPTY"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withProfile(httptest.NewRequest("POST", "/api/validate", bytes.NewBufferString(tt.body)), "p1")
			h.Validate(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantSub)
		})
	}
}

func TestAPIHandler_LoginHidesPassword(t *testing.T) {
	state := *form.New()
	state.Password.Value = "123456"
	page := &fakeLoginPage{outcome: service.Outcome{
		Success:       true,
		Redirect:      models.DashboardPath,
		RedirectAfter: service.DefaultRedirectDelay,
		State:         state,
	}}
	h := &APIHandler{Sessions: &fakeSessions{login: page}}

	rec := httptest.NewRecorder()
	body := `{"userId":"admin","password":"123456","remember":true}`
	h.Login(rec, withProfile(httptest.NewRequest("POST", "/api/login", bytes.NewBufferString(body)), "p1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirectAfterMs":1500`)
	assert.NotContains(t, rec.Body.String(), "123456")
	assert.True(t, page.submitted.Remember)
}

func TestAPIHandler_Session(t *testing.T) {
	tests := []struct {
		name     string
		checkErr error
		wantCode int
		wantBody string
	}{
		{"authenticated", nil, http.StatusOK, `{"authenticated":true}`},
		{"anonymous", service.ErrNotAuthenticated, http.StatusOK, `{"authenticated":false}`},
		{"error", errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &APIHandler{Sessions: &fakeSessions{dashboard: &fakeDashboard{checkErr: tt.checkErr}}}
			rec := httptest.NewRecorder()
			h.Session(rec, withProfile(httptest.NewRequest("GET", "/api/session", nil), "p1"))

			require.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
