package auth

import (
	"fmt"
	"sync"

	apperrors "chat-relay/errors"
)

// CredentialStore holds optional per-participant passwords as argon2id
// hashes. A participant id is claimed by its first registration; later
// sessions for that id must verify against the stored hash.
type CredentialStore struct {
	mu     sync.RWMutex
	hashes map[string]string
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{hashes: make(map[string]string)}
}

// Known reports whether the participant id has been claimed.
func (s *CredentialStore) Known(participantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hashes[participantID]
	return ok
}

// Register claims a participant id. Claiming an already-claimed id fails;
// callers verify instead.
func (s *CredentialStore) Register(participantID, password string) error {
	if password == "" {
		return fmt.Errorf("empty password: %w", apperrors.ErrInvalidPassword)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hashes[participantID]; ok {
		return fmt.Errorf("participant %s already claimed: %w", participantID, apperrors.ErrInvalidPassword)
	}
	s.hashes[participantID] = hash
	return nil
}

// Verify checks a password against the claimed id's hash in constant time.
func (s *CredentialStore) Verify(participantID, password string) error {
	s.mu.RLock()
	hash, ok := s.hashes[participantID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("participant %s not claimed: %w", participantID, apperrors.ErrInvalidPassword)
	}

	match, err := ComparePassword(password, hash)
	if err != nil {
		return err
	}
	if !match {
		return apperrors.ErrInvalidPassword
	}
	return nil
}
