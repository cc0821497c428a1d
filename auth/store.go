package auth

import (
	"context"
	"sync"
)

// CredentialStore persists credentials between runs.
// This interface is implemented by the storage packages to avoid tight coupling.
type CredentialStore interface {
	// Load returns ErrNoCredentials when nothing has been saved yet
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
}

// MemoryStore keeps credentials in process memory
type MemoryStore struct {
	mu    sync.Mutex
	creds *Credentials
	saves int
}

// NewMemoryStore creates a store, optionally pre-loaded with creds
func NewMemoryStore(creds *Credentials) *MemoryStore {
	s := &MemoryStore{}
	if creds != nil {
		c := *creds
		s.creds = &c
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context) (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		return Credentials{}, ErrNoCredentials
	}
	return *s.creds, nil
}

func (s *MemoryStore) Save(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = &creds
	s.saves++
	return nil
}

// Saves returns how many times Save has been called
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
