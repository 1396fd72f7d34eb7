package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/securebank/internal/storage"
)

// DefaultMaxControllers bounds the registry when no limit is given.
const DefaultMaxControllers = 10000

// SessionsOption configures a Sessions registry.
type SessionsOption func(*Sessions)

// WithMaxControllers caps the number of live controllers. When the cap is
// reached the least recently used idle controller is dropped.
func WithMaxControllers(n int) SessionsOption {
	return func(s *Sessions) {
		if n > 0 {
			s.maxControllers = n
		}
	}
}

// WithClock replaces time.Now for idle tracking.
func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		s.now = now
	}
}

type sessionEntry struct {
	controller *LoginController
	lastUsed   time.Time
}

// Sessions hands out one LoginController and one DashboardGuard per client
// profile, all sharing a storage backend and an Authenticator.
type Sessions struct {
	backend        storage.Backend
	auth           Authenticator
	log            *zap.Logger
	redirectDelay  time.Duration
	maxControllers int
	now            func() time.Time

	mu          sync.Mutex
	controllers map[string]*sessionEntry
}

// NewSessions creates an empty registry.
func NewSessions(backend storage.Backend, auth Authenticator, log *zap.Logger, redirectDelay time.Duration, opts ...SessionsOption) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sessions{
		backend:        backend,
		auth:           auth,
		log:            log,
		redirectDelay:  redirectDelay,
		maxControllers: DefaultMaxControllers,
		now:            time.Now,
		controllers:    make(map[string]*sessionEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login returns the profile's controller, creating it on first use. The same
// controller is returned until it is released or evicted, so its in-flight
// guard covers every request of the profile.
func (s *Sessions) Login(profile string) *LoginController {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.controllers[profile]; ok {
		e.lastUsed = s.now()
		return e.controller
	}
	if len(s.controllers) >= s.maxControllers {
		s.evictOldestLocked()
	}
	c := NewLoginController(
		storage.NewLocal(s.backend, profile),
		s.auth,
		s.log.With(zap.String("profile", profile)),
		s.redirectDelay,
	)
	s.controllers[profile] = &sessionEntry{controller: c, lastUsed: s.now()}
	return c
}

// evictOldestLocked drops the least recently used controller that has no
// pending submission. If all of them are in flight the registry is allowed
// to grow past its cap. Callers hold mu.
func (s *Sessions) evictOldestLocked() {
	skip := make(map[string]bool)
	for len(skip) < len(s.controllers) {
		var (
			oldest string
			at     time.Time
			found  bool
		)
		for p, e := range s.controllers {
			if skip[p] {
				continue
			}
			if !found || e.lastUsed.Before(at) {
				oldest, at, found = p, e.lastUsed, true
			}
		}
		if s.controllers[oldest].controller.release() {
			delete(s.controllers, oldest)
			return
		}
		skip[oldest] = true
	}
}

// Dashboard returns a guard bound to the profile's store.
func (s *Sessions) Dashboard(profile string) *DashboardGuard {
	return NewDashboardGuard(storage.NewLocal(s.backend, profile))
}

// Release forgets the profile's controller unless a submission is still in
// flight. Stored keys are untouched.
func (s *Sessions) Release(profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.controllers[profile]
	if ok && e.controller.release() {
		delete(s.controllers, profile)
	}
}

// EvictIdle drops controllers unused for longer than idle and returns how
// many were dropped. Controllers with a pending submission are kept.
func (s *Sessions) EvictIdle(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for p, e := range s.controllers {
		if e.lastUsed.Before(cutoff) && e.controller.release() {
			delete(s.controllers, p)
			evicted++
		}
	}
	return evicted
}

// StartIdleEvictor runs EvictIdle every interval until ctx is done.
func (s *Sessions) StartIdleEvictor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.EvictIdle(idle); n > 0 {
					s.log.Debug("evicted idle login forms", zap.Int("evicted", n), zap.Int("live", s.Len()))
				}
			}
		}
	}()
}

// Len returns the number of live controllers.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}
