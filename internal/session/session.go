// Package session holds the client's authentication state: the current
// user, their bearer token, and the durable copy of both that survives
// process restarts.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nkovachev/dbdeck/pkg/models"
)

// Fixed storage keys for the persisted session pair.
const (
	keyUser  = "user"
	keyToken = "token"
)

// Session is the client-held record of the authenticated user and their
// bearer token. It is authenticated exactly when both are present.
type Session struct {
	User  *models.User
	Token string
}

// Authenticated reports whether the session holds both a user and a token.
func (s Session) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Store owns the Session for one process. It is constructed once and
// injected into the gateway; all mutation goes through Set and Clear.
type Store struct {
	mu      sync.RWMutex
	storage Storage
	current Session
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Restore loads the persisted user record and token. The session becomes
// authenticated only when both are present, the user record parses, and
// the token has not expired. Restore never fails: unusable persisted
// state is simply treated as absent. No network call is made.
func (s *Store) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()

	rawUser, okUser := s.storage.Get(keyUser)
	token, okToken := s.storage.Get(keyToken)
	if !okUser || !okToken || token == "" {
		s.current = Session{}
		return
	}

	var user models.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		s.current = Session{}
		return
	}
	if !tokenUsable(token, time.Now()) {
		s.current = Session{}
		return
	}

	s.current = Session{User: &user, Token: token}
}

// Set stores the user and token in memory and durable storage. Both keys
// are persisted in a single write so a restore never observes one
// without the other.
func (s *Store) Set(user *models.User, token string) error {
	if user == nil || token == "" {
		return fmt.Errorf("session requires both user and token")
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Put(map[string]string{
		keyUser:  string(raw),
		keyToken: token,
	}); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}

	u := *user
	s.current = Session{User: &u, Token: token}
	return nil
}

// Clear removes the user and token from memory and durable storage. The
// in-memory session is dropped even if the durable delete fails.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	if err := s.storage.Delete(keyUser, keyToken); err != nil {
		return fmt.Errorf("clearing persisted session: %w", err)
	}
	return nil
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Token returns the bearer token, or "" when unauthenticated.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// Authenticated reports whether a full session is present.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Authenticated()
}
