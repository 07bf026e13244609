// Package auth is the authentication capability the gateway consumes.
// Sign-in flows live with the identity provider; this package only exposes
// who the current user is.
package auth

import (
	"strings"
	"sync"
)

type Session interface {
	CurrentUserID() string
	CurrentUserEmail() string
	IsAuthenticated() bool
}

// Static is a session whose user is set explicitly, from configuration or
// by a sign-in collaborator. The zero value is signed out.
type Static struct {
	mu     sync.RWMutex
	userID string
	email  string
}

func NewStatic(userID, email string) *Static {
	s := &Static{}
	s.SignIn(userID, email)
	return s
}

func (s *Static) SignIn(userID, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = strings.TrimSpace(userID)
	s.email = strings.TrimSpace(email)
}

func (s *Static) SignOut() {
	s.SignIn("", "")
}

func (s *Static) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Static) CurrentUserEmail() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

func (s *Static) IsAuthenticated() bool {
	return s.CurrentUserID() != ""
}
