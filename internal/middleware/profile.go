// Package middleware provides HTTP middlewares for client profiles and
// request logging.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

const profileKey ctxKey = "profile"

// ProfileCookie is the cookie carrying the signed profile token.
const ProfileCookie = "profile"

// DefaultProfileTTL is how long an issued profile token stays valid.
const DefaultProfileTTL = 365 * 24 * time.Hour

var errInvalidProfile = errors.New("invalid profile token")

// Profiles issues and verifies the HS256 tokens that name a client's local
// store.
type Profiles struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewProfiles returns a Profiles signing with secret. secure marks the
// cookie as HTTPS-only.
func NewProfiles(secret string, secure bool) *Profiles {
	return &Profiles{secret: []byte(secret), ttl: DefaultProfileTTL, secure: secure}
}

// Issue signs a token for profile.
func (p *Profiles) Issue(profile string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   profile,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
	})
	return token.SignedString(p.secret)
}

// Parse verifies token and returns the profile it names.
func (p *Profiles) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errInvalidProfile
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errInvalidProfile
	}
	return claims.Subject, nil
}

// Middleware resolves the request's profile from its cookie, issuing a new
// profile when the cookie is missing or does not verify, and stores it in
// the request context.
func (p *Profiles) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var profile string
		if c, err := r.Cookie(ProfileCookie); err == nil {
			profile, _ = p.Parse(c.Value)
		}

		if profile == "" {
			profile = uuid.NewString()
			token, err := p.Issue(profile)
			if err != nil {
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     ProfileCookie,
				Value:    token,
				Path:     "/",
				MaxAge:   int(p.ttl / time.Second),
				HttpOnly: true,
				Secure:   p.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), profileKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetProfileFromContext extracts the profile ID from the request context.
// Returns an empty string if not found.
func GetProfileFromContext(ctx context.Context) string {
	val := ctx.Value(profileKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// WithProfile returns a copy of ctx carrying profile.
func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileKey, profile)
}
