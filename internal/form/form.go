// Package form holds the login form state and the pure validation rules
// applied to it.
package form

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/atinyakov/securebank/internal/models"
)

// Minimum lengths of the trimmed inputs.
const (
	MinUserIDLength   = 3
	MinPasswordLength = 6
)

// Validation error codes.
var (
	// ErrEmpty reports a blank or whitespace-only field.
	ErrEmpty = errors.New("EMPTY")
	// ErrTooShort reports a field below its minimum length.
	ErrTooShort = errors.New("TOO_SHORT")
)

// ValidationError describes why a single field failed validation.
type ValidationError struct {
	// Field is the input that failed.
	Field models.Field
	// Err is ErrEmpty or ErrTooShort.
	Err error
	// Message is the text shown below the input.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Code returns the taxonomy code of the failure, e.g. "TOO_SHORT".
func (e *ValidationError) Code() string {
	return e.Err.Error()
}

// ValidateField checks one raw input value. Blank values fail with ErrEmpty
// before any length rule is applied. It returns nil for a valid value.
func ValidateField(field models.Field, raw string) error {
	value := TrimValue(raw)
	if value == "" {
		return &ValidationError{
			Field:   field,
			Err:     ErrEmpty,
			Message: field.Label() + " is required",
		}
	}

	minLen := minLength(field)
	if Length(value) < minLen {
		return &ValidationError{
			Field:   field,
			Err:     ErrTooShort,
			Message: fmt.Sprintf("%s must be at least %d characters", field.Label(), minLen),
		}
	}
	return nil
}

// TrimValue strips leading and trailing whitespace the way a browser trims
// input values, which includes U+FEFF but not NEL (U+0085).
func TrimValue(s string) string {
	return strings.TrimFunc(s, isFormSpace)
}

func isFormSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\ufeff', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// Length counts UTF-16 code units, the unit a browser uses for input
// length. Characters outside the Basic Multilingual Plane count twice.
func Length(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

func minLength(field models.Field) int {
	switch field {
	case models.FieldUserID:
		return MinUserIDLength
	case models.FieldPassword:
		return MinPasswordLength
	default:
		return 0
	}
}

// FieldState is the visible state of one input.
type FieldState struct {
	Value   string `json:"value,omitempty"`
	Invalid bool   `json:"invalid"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func (f *FieldState) setError(err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		f.Invalid = true
		f.Code = verr.Code()
		f.Message = verr.Message
		return
	}
	f.clear()
}

func (f *FieldState) clear() {
	f.Invalid = false
	f.Code = ""
	f.Message = ""
}

// Banner is the dismissible status message above the form.
type Banner struct {
	Visible bool              `json:"visible"`
	Kind    models.BannerKind `json:"kind,omitempty"`
	Message string            `json:"message,omitempty"`
}

// State is the transient state of the login form. It is rebuilt on every
// page load and never persisted.
type State struct {
	UserID   FieldState `json:"userId"`
	Password FieldState `json:"password"`
	// Remember mirrors the "remember user ID" checkbox.
	Remember bool `json:"remember"`
	// PasswordVisible is true when the password is displayed as plain text.
	PasswordVisible bool `json:"passwordVisible"`
	// InFlight disables the submit control while a submission is pending.
	InFlight bool   `json:"inFlight"`
	Banner   Banner `json:"banner"`
	// Shake asks the view to replay the shake animation once.
	Shake bool `json:"shake"`
	// Focus names the input that should receive focus, if any.
	Focus models.Field `json:"focus,omitempty"`
}

// New returns an empty form state with focus on the user ID input.
func New() *State {
	return &State{Focus: models.FieldUserID}
}

// Field returns the state of the named input, or nil for an unknown field.
func (s *State) Field(field models.Field) *FieldState {
	switch field {
	case models.FieldUserID:
		return &s.UserID
	case models.FieldPassword:
		return &s.Password
	default:
		return nil
	}
}

// ValidateField validates the current value of one input and updates its
// error annotation.
func (s *State) ValidateField(field models.Field) bool {
	fs := s.Field(field)
	if fs == nil {
		return false
	}
	err := ValidateField(field, fs.Value)
	fs.setError(err)
	return err == nil
}

// ValidateForm validates both inputs. Both are always evaluated so that
// both annotations are shown at once.
func (s *State) ValidateForm() bool {
	userOK := s.ValidateField(models.FieldUserID)
	passOK := s.ValidateField(models.FieldPassword)
	return userOK && passOK
}

// Input records a keystroke: the value is replaced, the field's error is
// cleared and the banner hidden.
func (s *State) Input(field models.Field, value string) {
	fs := s.Field(field)
	if fs == nil {
		return
	}
	fs.Value = value
	fs.clear()
	s.HideBanner()
}

// ShowBanner displays a message with the given styling.
func (s *State) ShowBanner(kind models.BannerKind, message string) {
	s.Banner = Banner{Visible: true, Kind: kind, Message: message}
}

// HideBanner hides the status banner.
func (s *State) HideBanner() {
	s.Banner = Banner{}
}

// TogglePasswordVisibility flips the password display mode and reports
// whether the password is now shown in plain text.
func (s *State) TogglePasswordVisibility() bool {
	s.PasswordVisible = !s.PasswordVisible
	return s.PasswordVisible
}

// PasswordInputType returns the HTML input type matching the display mode.
func (s *State) PasswordInputType() string {
	if s.PasswordVisible {
		return "text"
	}
	return "password"
}
