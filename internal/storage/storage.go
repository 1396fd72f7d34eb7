// Package storage provides the client-side key-value store: a string map
// per client profile, standing in for browser local storage.
package storage

import (
	"context"
)

// Backend persists key-value pairs partitioned by client profile.
type Backend interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, profile, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, profile, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, profile, key string) error
}

// Local is the store of a single client profile.
type Local struct {
	backend Backend
	profile string
}

// NewLocal binds backend to the given profile.
func NewLocal(backend Backend, profile string) *Local {
	return &Local{backend: backend, profile: profile}
}

// Profile returns the profile the store is bound to.
func (l *Local) Profile() string {
	return l.profile
}

// GetItem returns the value stored under key.
func (l *Local) GetItem(ctx context.Context, key string) (string, bool, error) {
	return l.backend.Get(ctx, l.profile, key)
}

// SetItem stores value under key.
func (l *Local) SetItem(ctx context.Context, key, value string) error {
	return l.backend.Set(ctx, l.profile, key, value)
}

// RemoveItem deletes key.
func (l *Local) RemoveItem(ctx context.Context, key string) error {
	return l.backend.Remove(ctx, l.profile, key)
}
