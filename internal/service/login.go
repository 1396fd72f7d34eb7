package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/securebank/internal/form"
	"github.com/atinyakov/securebank/internal/models"
)

// DefaultRedirectDelay is the pause between a successful login and the
// navigation to the dashboard.
const DefaultRedirectDelay = 1500 * time.Millisecond

var (
	// ErrUnexpected reports any failure of the submit sequence other than a
	// credential mismatch.
	ErrUnexpected = errors.New("UNEXPECTED")
	// ErrSubmitInFlight is returned when a submission is already pending.
	ErrSubmitInFlight = errors.New("submission already in flight")
	// ErrInvalidForm reports that at least one field failed validation.
	ErrInvalidForm = errors.New("invalid form")
	// ErrReleased is returned by a controller its registry already dropped;
	// the next request of the profile gets a fresh one.
	ErrReleased = errors.New("login form released")
)

// KeyValue is the client's local key-value store.
type KeyValue interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Credentials is a login form submission.
type Credentials struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
	// Remember persists the user ID for the next visit.
	Remember bool `json:"remember"`
}

// Outcome describes how a submission resolved.
type Outcome struct {
	Success bool
	// Err is nil on success, ErrInvalidForm, ErrCredentialMismatch or
	// ErrUnexpected otherwise.
	Err     error
	Message string
	// Redirect and RedirectAfter schedule the navigation after a success.
	Redirect      string
	RedirectAfter time.Duration
	// Shake requests the error animation on the form.
	Shake bool
	// State is the form state after the submission settled.
	State form.State
}

// Code returns the error taxonomy code of the outcome, or "" on success.
func (o Outcome) Code() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// LoginController owns the form state of one client and drives the
// submit sequence against the Authenticator.
type LoginController struct {
	store         KeyValue
	auth          Authenticator
	log           *zap.Logger
	redirectDelay time.Duration

	mu       sync.Mutex
	state    *form.State
	released bool
}

// NewLoginController builds a controller with an empty form.
func NewLoginController(store KeyValue, auth Authenticator, log *zap.Logger, redirectDelay time.Duration) *LoginController {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginController{
		store:         store,
		auth:          auth,
		log:           log,
		redirectDelay: redirectDelay,
		state:         form.New(),
	}
}

// Load rebuilds the form as on a fresh page load. A remembered user ID
// pre-fills the identifier and checks the remember box; otherwise focus goes
// to the identifier. A pending submission stays in flight.
func (c *LoginController) Load(ctx context.Context) (form.State, error) {
	saved, ok, err := c.store.GetItem(ctx, models.RememberedIDKey)
	if err != nil {
		return c.Snapshot(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	inFlight := c.state.InFlight
	c.state = form.New()
	c.state.InFlight = inFlight
	if ok && saved != "" {
		c.state.UserID.Value = saved
		c.state.Remember = true
	}
	if c.state.UserID.Value != "" {
		c.state.Focus = ""
	}
	return *c.state, nil
}

// Snapshot returns a copy of the current form state.
func (c *LoginController) Snapshot() form.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.state
}

// Input records a keystroke in field, clearing its error and the banner.
func (c *LoginController) Input(field models.Field, value string) form.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Input(field, value)
	c.state.Shake = false
	return *c.state
}

// Blur validates field with value when the input loses focus.
func (c *LoginController) Blur(field models.Field, value string) form.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fs := c.state.Field(field); fs != nil {
		fs.Value = value
		c.state.ValidateField(field)
	}
	return *c.state
}

// Fill stores both input values as typed, leaving error annotations and
// the banner as they are.
func (c *LoginController) Fill(userID, password string) form.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.UserID.Value = userID
	c.state.Password.Value = password
	return *c.state
}

// TogglePasswordVisibility flips the password display mode.
func (c *LoginController) TogglePasswordVisibility() form.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.TogglePasswordVisibility()
	return *c.state
}

// Submit validates creds and, if valid, authenticates them. While a
// submission is pending further calls return ErrSubmitInFlight without
// reaching the Authenticator. Failures other than ErrSubmitInFlight are
// reported through the Outcome, never as the returned error.
func (c *LoginController) Submit(ctx context.Context, creds Credentials) (out Outcome, err error) {
	c.mu.Lock()
	if c.released {
		snapshot := *c.state
		c.mu.Unlock()
		return Outcome{Err: ErrReleased, State: snapshot}, ErrReleased
	}
	if c.state.InFlight {
		snapshot := *c.state
		c.mu.Unlock()
		return Outcome{Err: ErrSubmitInFlight, State: snapshot}, ErrSubmitInFlight
	}

	c.state.HideBanner()
	c.state.Shake = false
	c.state.UserID.Value = creds.UserID
	c.state.Password.Value = creds.Password
	c.state.Remember = creds.Remember

	if !c.state.ValidateForm() {
		snapshot := *c.state
		c.mu.Unlock()
		return Outcome{Err: ErrInvalidForm, State: snapshot}, nil
	}

	c.state.InFlight = true
	c.state.Focus = ""
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state.InFlight = false
		c.state.Shake = out.Shake
		if out.Message != "" {
			kind := models.BannerError
			if out.Success {
				kind = models.BannerSuccess
			}
			c.state.ShowBanner(kind, out.Message)
		}
		out.State = *c.state
		c.mu.Unlock()
	}()

	userID := form.TrimValue(creds.UserID)
	verdict, err := c.auth.Authenticate(ctx, userID, creds.Password)
	if err != nil {
		return c.unexpected(err), nil
	}
	if !verdict.Success {
		return Outcome{
			Err:     ErrCredentialMismatch,
			Message: verdict.Message,
			Shake:   true,
		}, nil
	}

	if err := c.persist(ctx, userID, creds.Remember); err != nil {
		return c.unexpected(err), nil
	}

	c.log.Info("login succeeded", zap.String("user", userID))
	return Outcome{
		Success:       true,
		Message:       verdict.Message,
		Redirect:      models.DashboardPath,
		RedirectAfter: c.redirectDelay,
	}, nil
}

// release marks the controller unusable for new submissions unless one is
// pending. The check and the mark happen under the same lock as Submit's
// in-flight check, so exactly one of them wins.
func (c *LoginController) release() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.InFlight {
		return false
	}
	c.released = true
	return true
}

func (c *LoginController) persist(ctx context.Context, userID string, remember bool) error {
	if err := c.store.SetItem(ctx, models.SessionFlagKey, models.SessionFlagValue); err != nil {
		return err
	}
	if remember {
		return c.store.SetItem(ctx, models.RememberedIDKey, userID)
	}
	return c.store.RemoveItem(ctx, models.RememberedIDKey)
}

func (c *LoginController) unexpected(err error) Outcome {
	c.log.Error("login error", zap.Error(err))
	return Outcome{Err: ErrUnexpected, Message: MsgUnexpected}
}
