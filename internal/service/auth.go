// Package service implements the login page controller, the simulated
// authentication boundary and the dashboard guard.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/atinyakov/securebank/internal/models"
)

// DefaultAuthDelay is how long the simulator takes to answer.
const DefaultAuthDelay = 1500 * time.Millisecond

// Messages shown in the status banner.
const (
	MsgLoginSuccess       = "Login successful! Redirecting to your dashboard..."
	MsgInvalidCredentials = "Invalid User ID or Password. Please try again."
	MsgUnexpected         = "An unexpected error occurred. Please try again."
)

// ErrCredentialMismatch reports a rejected identifier/secret pair.
var ErrCredentialMismatch = errors.New("CREDENTIAL_MISMATCH")

// Verdict is the answer of an Authenticator.
type Verdict struct {
	Success bool
	Message string
}

// Authenticator decides whether an identifier/secret pair may log in.
type Authenticator interface {
	// Authenticate returns a verdict for the pair. A non-nil error means the
	// check itself failed and says nothing about the credentials.
	Authenticate(ctx context.Context, userID, password string) (Verdict, error)
}

// AuthSimulator accepts exactly one credential pair after a fixed delay.
type AuthSimulator struct {
	creds models.CredentialPair
	delay time.Duration
}

// NewAuthSimulator returns a simulator accepting creds. A non-positive delay
// answers immediately.
func NewAuthSimulator(creds models.CredentialPair, delay time.Duration) *AuthSimulator {
	return &AuthSimulator{creds: creds, delay: delay}
}

// Authenticate waits for the configured delay, then compares both values
// with the configured pair, case-sensitively. It returns ctx.Err() if the
// context ends first.
func (s *AuthSimulator) Authenticate(ctx context.Context, userID, password string) (Verdict, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	if userID == s.creds.UserID && password == s.creds.Password {
		return Verdict{Success: true, Message: MsgLoginSuccess}, nil
	}
	return Verdict{Success: false, Message: MsgInvalidCredentials}, nil
}
