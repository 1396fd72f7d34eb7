// Package models defines the core data structures shared by the login page,
// the dashboard and the local key-value store.
package models

// Keys of the client's local key-value store.
const (
	// SessionFlagKey marks an authenticated client. Its presence is the only
	// authentication check the dashboard performs.
	SessionFlagKey = "isLoggedIn"
	// SessionFlagValue is the value stored under SessionFlagKey on login.
	SessionFlagValue = "true"
	// RememberedIDKey holds the user ID the client opted to remember.
	RememberedIDKey = "savedUserId"
)

// Navigation targets of the two views.
const (
	// LoginPath is the login entry point.
	LoginPath = "/"
	// DashboardPath is the authenticated dashboard view.
	DashboardPath = "/dashboard"
)

// CredentialPair is the single identifier/secret pair accepted by the
// authentication simulator.
type CredentialPair struct {
	// UserID is the login name.
	UserID string `json:"user_id"`
	// Password is the secret, compared in plain text.
	Password string `json:"password"`
}

// DefaultCredentials is the demo credential pair.
var DefaultCredentials = CredentialPair{UserID: "admin", Password: "123456"}

// Field names a login form input.
type Field string

const (
	// FieldUserID is the identifier input.
	FieldUserID Field = "userId"
	// FieldPassword is the secret input.
	FieldPassword Field = "password"
)

// Label returns the human readable name used in validation messages.
func (f Field) Label() string {
	switch f {
	case FieldUserID:
		return "User ID"
	case FieldPassword:
		return "Password"
	default:
		return string(f)
	}
}

// BannerKind selects the styling of the status banner.
type BannerKind string

const (
	// BannerSuccess styles the banner as a success message.
	BannerSuccess BannerKind = "success"
	// BannerError styles the banner as an error message.
	BannerError BannerKind = "error"
)
