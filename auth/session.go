package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"winkcloud/internal/logging"
)

// Session is the single-writer cell holding the credentials a client is using.
// The read-check-refresh-write sequence runs under one lock, so concurrent
// callers that all see stale credentials trigger exactly one refresh and the
// rest pick up its result.
type Session struct {
	mu      sync.RWMutex
	creds   Credentials
	manager *Manager
	store   CredentialStore // optional
	logger  *slog.Logger

	// attempts counts finished refresh attempts; lastErr is the outcome of the latest one
	attempts uint64
	lastErr  error
}

// NewSession wraps creds. store may be nil, in which case refreshes are not persisted.
func NewSession(manager *Manager, creds Credentials, store CredentialStore, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		creds:   creds,
		manager: manager,
		store:   store,
		logger:  logger.With("component", "session"),
	}
}

// Current returns the credentials held right now, stale or not
func (s *Session) Current() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// Fresh returns credentials that are safe to use, refreshing first if needed
func (s *Session) Fresh(ctx context.Context) (Credentials, error) {
	s.mu.RLock()
	if !s.manager.Stale(s.creds) {
		creds := s.creds
		s.mu.RUnlock()
		return creds, nil
	}
	seen := s.attempts
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine might have refreshed)
	if !s.manager.Stale(s.creds) {
		return s.creds, nil
	}

	// A refresh failed while we waited; its refresh token may already be spent
	if s.attempts != seen && s.lastErr != nil {
		return Credentials{}, s.lastErr
	}

	s.logger.Debug("refreshing access token", "expires", s.creds.Expires)

	refreshed, err := s.manager.Refresh(ctx, s.creds)
	s.attempts++
	if err != nil {
		s.lastErr = fmt.Errorf("failed to refresh access token: %w", err)
		return Credentials{}, s.lastErr
	}
	s.lastErr = nil
	s.creds = refreshed

	if s.store != nil {
		if err := s.store.Save(ctx, refreshed); err != nil {
			// The refreshed token is valid in memory; a later save can still succeed
			s.logger.Warn("failed to save refreshed credentials", "error", err)
		}
	}

	return refreshed, nil
}

// Replace swaps in creds (e.g. after a fresh login) and persists them when a store is attached
func (s *Session) Replace(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = creds
	s.attempts++
	s.lastErr = nil
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
