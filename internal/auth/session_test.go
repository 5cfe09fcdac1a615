package auth

import (
	"context"
	"errors"
	"testing"

	"compliancecore/internal/kv"
	"compliancecore/internal/store"
	"compliancecore/pkg/domain"
)

func newTestSession(t *testing.T) (*Session, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	return NewSession(mem, NewUsers(store.SeedUsers())), mem
}

func TestLoginByEmailIgnoresPassword(t *testing.T) {
	s, mem := newTestSession(t)
	ctx := context.Background()

	user, err := s.Login(ctx, "admin@example.com", "anything at all")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != domain.RoleAdmin || user.Name != "Admin User" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !s.IsAuthenticated() {
		t.Fatalf("expected authenticated session")
	}
	if _, err := mem.Load(ctx, kv.KeySession); err != nil {
		t.Fatalf("session must be persisted: %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	s, mem := newTestSession(t)
	ctx := context.Background()

	_, err := s.Login(ctx, "nobody@example.com", "")
	if !errors.Is(err, ErrUnknownEmail) {
		t.Fatalf("expected ErrUnknownEmail, got %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatalf("failed login must not authenticate")
	}
	if _, err := mem.Load(ctx, kv.KeySession); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("failed login must not persist, got %v", err)
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	mem := kv.NewMemory()
	ctx := context.Background()

	first := NewSession(mem, NewUsers(store.SeedUsers()))
	if _, err := first.Login(ctx, "contributor@example.com", ""); err != nil {
		t.Fatalf("login: %v", err)
	}

	second := NewSession(mem, NewUsers(store.SeedUsers()))
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	user, ok := second.CurrentUser()
	if !ok || user.Email != "contributor@example.com" {
		t.Fatalf("expected restored session, got %v %+v", ok, user)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	s, mem := newTestSession(t)
	ctx := context.Background()

	if _, err := s.Login(ctx, "viewer@example.com", ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatalf("logout must clear the session")
	}
	if _, err := mem.Load(ctx, kv.KeySession); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("logout must remove the persisted session, got %v", err)
	}
}

func TestHasPermissionRequiresLogin(t *testing.T) {
	s, _ := newTestSession(t)
	ctx := context.Background()

	if s.HasPermission(domain.RoleViewer) {
		t.Fatalf("unauthenticated session must hold no permissions")
	}

	if _, err := s.Login(ctx, "contributor@example.com", ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !s.HasPermission(domain.RoleViewer) || !s.HasPermission(domain.RoleContributor) {
		t.Fatalf("contributor should cover viewer and contributor")
	}
	if s.HasPermission(domain.RoleAdmin) {
		t.Fatalf("contributor must not cover admin")
	}
}
