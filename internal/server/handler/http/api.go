package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/securebank/internal/form"
	"github.com/atinyakov/securebank/internal/middleware"
	"github.com/atinyakov/securebank/internal/models"
	"github.com/atinyakov/securebank/internal/service"
)

// APIHandler exposes the page interactions as JSON endpoints.
type APIHandler struct {
	Sessions Sessions
	Log      *zap.Logger
}

// FieldRequest is the payload of /api/validate and /api/input.
type FieldRequest struct {
	Field models.Field `json:"field"`
	Value string       `json:"value"`
}

// LoginResponse is the result of /api/login.
type LoginResponse struct {
	Success         bool       `json:"success"`
	Code            string     `json:"code,omitempty"`
	Message         string     `json:"message,omitempty"`
	Redirect        string     `json:"redirect,omitempty"`
	RedirectAfterMS int64      `json:"redirectAfterMs,omitempty"`
	Shake           bool       `json:"shake,omitempty"`
	State           form.State `json:"state"`
}

func (h *APIHandler) profile(r *http.Request) string {
	return middleware.GetProfileFromContext(r.Context())
}

// publicState drops the password value before a state leaves the server.
func publicState(s form.State) form.State {
	s.Password.Value = ""
	return s
}

func decodeField(w http.ResponseWriter, r *http.Request) (FieldRequest, bool) {
	var req FieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return req, false
	}
	if req.Field != models.FieldUserID && req.Field != models.FieldPassword {
		http.Error(w, "unknown field", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// Validate handles POST /api/validate: one field is validated as on blur.
func (h *APIHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeField(w, r)
	if !ok {
		return
	}
	state := h.Sessions.LoginPage(h.profile(r)).Blur(req.Field, req.Value)
	writeJSON(w, http.StatusOK, publicState(state))
}

// Input handles POST /api/input: a keystroke clears the field's error and
// the banner.
func (h *APIHandler) Input(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeField(w, r)
	if !ok {
		return
	}
	state := h.Sessions.LoginPage(h.profile(r)).Input(req.Field, req.Value)
	writeJSON(w, http.StatusOK, publicState(state))
}

// TogglePassword handles POST /api/password-visibility.
func (h *APIHandler) TogglePassword(w http.ResponseWriter, r *http.Request) {
	state := h.Sessions.LoginPage(h.profile(r)).TogglePasswordVisibility()
	writeJSON(w, http.StatusOK, publicState(state))
}

// Login handles POST /api/login.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	out, err := h.Sessions.LoginPage(h.profile(r)).Submit(r.Context(), creds)
	resp := LoginResponse{
		Success:         out.Success,
		Code:            out.Code(),
		Message:         out.Message,
		Redirect:        out.Redirect,
		RedirectAfterMS: out.RedirectAfter.Milliseconds(),
		Shake:           out.Shake,
		State:           publicState(out.State),
	}
	writeJSON(w, outcomeStatus(out, err), resp)
}

// Session handles GET /api/session.
func (h *APIHandler) Session(w http.ResponseWriter, r *http.Request) {
	_, err := h.Sessions.Dashboard(h.profile(r)).Check(r.Context())
	if err != nil && !errors.Is(err, service.ErrNotAuthenticated) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": err == nil})
}

// Logout handles POST /api/logout.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	profile := h.profile(r)
	if err := h.Sessions.Dashboard(profile).Logout(r.Context()); err != nil {
		if h.Log != nil {
			h.Log.Error("logout", zap.Error(err))
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.Sessions.Release(profile)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "redirect": models.LoginPath})
}
