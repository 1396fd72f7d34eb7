// Package http provides the chi routes, HTML pages and JSON API of the
// login gate.
package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/securebank/internal/form"
	"github.com/atinyakov/securebank/internal/middleware"
	"github.com/atinyakov/securebank/internal/models"
	"github.com/atinyakov/securebank/internal/service"
)

// LoginPage is the per-client login form controller the handlers drive.
type LoginPage interface {
	// Load rebuilds the form as on a fresh page load.
	Load(ctx context.Context) (form.State, error)
	// Input records a keystroke in a field.
	Input(field models.Field, value string) form.State
	// Blur validates a field that lost focus.
	Blur(field models.Field, value string) form.State
	// Fill keeps the typed values without touching validation state.
	Fill(userID, password string) form.State
	// TogglePasswordVisibility flips the password display mode.
	TogglePasswordVisibility() form.State
	// Submit validates and authenticates a submission.
	Submit(ctx context.Context, creds service.Credentials) (service.Outcome, error)
}

// Dashboard is the per-client dashboard guard.
type Dashboard interface {
	// Check returns the view or service.ErrNotAuthenticated.
	Check(ctx context.Context) (service.DashboardView, error)
	// Logout clears the session flag.
	Logout(ctx context.Context) error
}

// Sessions resolves the controllers of a client profile.
type Sessions interface {
	LoginPage(profile string) LoginPage
	Dashboard(profile string) Dashboard
	Release(profile string)
}

type serviceSessions struct {
	s *service.Sessions
}

// NewSessions adapts a service.Sessions registry to the handlers.
func NewSessions(s *service.Sessions) Sessions {
	return serviceSessions{s: s}
}

func (a serviceSessions) LoginPage(profile string) LoginPage { return a.s.Login(profile) }
func (a serviceSessions) Dashboard(profile string) Dashboard { return a.s.Dashboard(profile) }
func (a serviceSessions) Release(profile string)             { a.s.Release(profile) }

// LoginHandler serves the login view.
type LoginHandler struct {
	// Sessions resolves the requesting client's controller.
	Sessions Sessions
	// Log receives handler-level failures.
	Log *zap.Logger
}

type loginView struct {
	State form.State
}

func (h *LoginHandler) page(r *http.Request) LoginPage {
	return h.Sessions.LoginPage(middleware.GetProfileFromContext(r.Context()))
}

func (h *LoginHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// Page handles GET / and renders the form, pre-filled from the client's
// local store.
func (h *LoginHandler) Page(w http.ResponseWriter, r *http.Request) {
	state, err := h.page(r).Load(r.Context())
	if err != nil {
		h.logger().Error("load login page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, "login.html", &loginView{State: state})
}

// Submit handles POST /login. The "action" field set to "toggle" flips the
// password visibility and re-renders without submitting.
func (h *LoginHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	page := h.page(r)
	creds := service.Credentials{
		UserID:   r.PostFormValue(string(models.FieldUserID)),
		Password: r.PostFormValue(string(models.FieldPassword)),
		Remember: r.PostFormValue("saveUserId") != "",
	}

	if r.PostFormValue("action") == "toggle" {
		page.Fill(creds.UserID, creds.Password)
		render(w, http.StatusOK, "login.html", &loginView{State: page.TogglePasswordVisibility()})
		return
	}

	out, err := page.Submit(r.Context(), creds)
	if out.Success {
		w.Header().Set("Refresh", refreshHeader(out.RedirectAfter, out.Redirect))
	}
	render(w, outcomeStatus(out, err), "login.html", &loginView{State: out.State})
}

// refreshHeader formats a Refresh header value such as "1.5; url=/dashboard".
func refreshHeader(after time.Duration, url string) string {
	return strconv.FormatFloat(after.Seconds(), 'f', -1, 64) + "; url=" + url
}

// outcomeStatus maps a submission result to an HTTP status.
func outcomeStatus(out service.Outcome, err error) int {
	if errors.Is(err, service.ErrSubmitInFlight) || errors.Is(err, service.ErrReleased) {
		return http.StatusConflict
	}
	switch {
	case out.Success:
		return http.StatusOK
	case errors.Is(out.Err, service.ErrInvalidForm):
		return http.StatusUnprocessableEntity
	case errors.Is(out.Err, service.ErrCredentialMismatch):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
