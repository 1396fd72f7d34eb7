package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/securebank/internal/middleware"
	"github.com/atinyakov/securebank/internal/models"
	"github.com/atinyakov/securebank/internal/service"
)

// DashboardHandler serves the guarded dashboard view and logout.
type DashboardHandler struct {
	Sessions Sessions
	Log      *zap.Logger
}

func (h *DashboardHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// Page handles GET /dashboard. Clients without a session flag are
// redirected to the login view before anything is rendered.
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfileFromContext(r.Context())
	view, err := h.Sessions.Dashboard(profile).Check(r.Context())
	if errors.Is(err, service.ErrNotAuthenticated) {
		http.Redirect(w, r, models.LoginPath, http.StatusFound)
		return
	}
	if err != nil {
		h.logger().Error("check session", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	render(w, http.StatusOK, "dashboard.html", view)
}

// Logout handles POST /logout: the session flag is cleared and the client
// is sent back to the login view.
func (h *DashboardHandler) Logout(w http.ResponseWriter, r *http.Request) {
	profile := middleware.GetProfileFromContext(r.Context())
	if err := h.Sessions.Dashboard(profile).Logout(r.Context()); err != nil {
		h.logger().Error("logout", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.Sessions.Release(profile)
	http.Redirect(w, r, models.LoginPath, http.StatusSeeOther)
}
