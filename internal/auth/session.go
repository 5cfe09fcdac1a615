// Package auth tracks the current user session and the ephemeral user list.
// Login is an email lookup against the seeded users; no credentials are
// verified. The session survives restarts through the kv adapter, everything
// else is process-local.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"compliancecore/internal/kv"
	"compliancecore/pkg/domain"
)

// ErrUnknownEmail is returned by Login when no seeded user has the email.
var ErrUnknownEmail = errors.New("auth: unknown email")

// Session holds the current user, persisted under the kv session key.
type Session struct {
	mu      sync.Mutex
	kv      kv.Store
	users   *Users
	loaded  bool
	current *domain.User
}

// NewSession constructs a session over the persistence adapter and user list.
func NewSession(persistence kv.Store, users *Users) *Session {
	return &Session{kv: persistence, users: users}
}

// Restore hydrates the session from the persisted payload, if any. Calling
// Restore more than once is a no-op.
func (s *Session) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreLocked(ctx)
}

func (s *Session) restoreLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	payload, err := s.kv.Load(ctx, kv.KeySession)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return fmt.Errorf("restore session: %w", err)
	default:
		var user domain.User
		if uErr := json.Unmarshal(payload, &user); uErr == nil && user.ID != "" {
			s.current = &user
		}
	}
	s.loaded = true
	return nil
}

// Login looks the email up in the user list and persists the session. The
// password is ignored entirely; the original flow never checked one.
func (s *Session) Login(ctx context.Context, email, _ string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restoreLocked(ctx); err != nil {
		return domain.User{}, err
	}
	user, ok := s.users.FindByEmail(email)
	if !ok {
		return domain.User{}, ErrUnknownEmail
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Save(ctx, kv.KeySession, payload); err != nil {
		return domain.User{}, fmt.Errorf("persist session: %w", err)
	}
	s.current = &user
	return user.Clone(), nil
}

// Logout clears the current user and removes the persisted session.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.loaded = true
	if err := s.kv.Delete(ctx, kv.KeySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CurrentUser returns the logged-in user, if any.
func (s *Session) CurrentUser() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.User{}, false
	}
	return s.current.Clone(), true
}

// IsAuthenticated reports whether a user is logged in.
func (s *Session) IsAuthenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

// HasPermission reports whether the current user meets the required role.
// Unauthenticated sessions hold no permissions at all.
func (s *Session) HasPermission(required domain.Role) bool {
	user, ok := s.CurrentUser()
	if !ok {
		return false
	}
	return domain.HasPermission(user.Role, required)
}
