package http

import (
	"net/http"

	"github.com/atinyakov/securebank/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP handler serving both views and the JSON API.
//
// Routes:
//
//	GET  /                         → login.Page
//	POST /login                    → login.Submit
//	GET  /dashboard                → dashboard.Page
//	POST /logout                   → dashboard.Logout
//	POST /api/validate             → api.Validate
//	POST /api/input                → api.Input
//	POST /api/password-visibility  → api.TogglePassword
//	POST /api/login                → api.Login
//	GET  /api/session              → api.Session
//	POST /api/logout               → api.Logout
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. WithRequestLogging(logger)
//  3. Recoverer
//  4. profiles.Middleware, which resolves or issues the client profile cookie
func NewRouter(
	login *LoginHandler,
	dashboard *DashboardHandler,
	api *APIHandler,
	profiles *middleware.Profiles,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(profiles.Middleware)

	r.Get("/", login.Page)
	r.Post("/login", login.Submit)
	r.Get("/dashboard", dashboard.Page)
	r.Post("/logout", dashboard.Logout)

	r.Route("/api", func(r chi.Router) {
		// Only allow requests with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/validate", api.Validate)
		r.Post("/input", api.Input)
		r.Post("/password-visibility", api.TogglePassword)
		r.Post("/login", api.Login)
		r.Get("/session", api.Session)
		r.Post("/logout", api.Logout)
	})

	return r
}
