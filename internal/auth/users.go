package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"compliancecore/pkg/domain"
)

// ErrUserNotFound is returned for operations on an unknown user id.
var ErrUserNotFound = errors.New("auth: user not found")

// Users is an in-memory user roster seeded at construction. Changes live for
// the process only; the roster is never persisted.
type Users struct {
	mu    sync.Mutex
	users []domain.User
	newID func() string
}

// NewUsers constructs a roster from the given seed list.
func NewUsers(seed []domain.User) *Users {
	u := &Users{newID: uuid.NewString}
	for _, user := range seed {
		u.users = append(u.users, user.Clone())
	}
	return u
}

// List returns the roster in insertion order.
func (u *Users) List() []domain.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domain.User, len(u.users))
	for i, user := range u.users {
		out[i] = user.Clone()
	}
	return out
}

// FindByEmail returns the first user with the email, case-insensitively.
func (u *Users) FindByEmail(email string) (domain.User, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			return user.Clone(), true
		}
	}
	return domain.User{}, false
}

// Get returns the user with the given id.
func (u *Users) Get(id string) (domain.User, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.users {
		if user.ID == id {
			return user.Clone(), true
		}
	}
	return domain.User{}, false
}

// Create appends a user, assigning an id. Emails must be unique because
// login resolves by email.
func (u *Users) Create(user domain.User) (domain.User, error) {
	if strings.TrimSpace(user.Email) == "" {
		return domain.User{}, errors.New("auth: email required")
	}
	if !user.Role.Valid() {
		return domain.User{}, fmt.Errorf("auth: invalid role %q", user.Role)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return domain.User{}, fmt.Errorf("auth: email %s already in use", user.Email)
		}
	}
	user.ID = u.newID()
	u.users = append(u.users, user.Clone())
	return user.Clone(), nil
}

// Update replaces the mutable fields of a user.
func (u *Users) Update(id string, mutate func(*domain.User)) (domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, user := range u.users {
		if user.ID != id {
			continue
		}
		updated := user.Clone()
		mutate(&updated)
		updated.ID = id
		if !updated.Role.Valid() {
			return domain.User{}, fmt.Errorf("auth: invalid role %q", updated.Role)
		}
		u.users[i] = updated.Clone()
		return updated, nil
	}
	return domain.User{}, ErrUserNotFound
}

// Delete removes a user from the roster.
func (u *Users) Delete(id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, user := range u.users {
		if user.ID == id {
			u.users = append(u.users[:i], u.users[i+1:]...)
			return nil
		}
	}
	return ErrUserNotFound
}
