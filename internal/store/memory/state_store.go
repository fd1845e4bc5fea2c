// Package memory provides in-memory implementations of store interfaces.
// These are used in memory mode and in tests.
package memory

import (
	"context"
	"sync"

	"guildq/internal/domain"
)

// SessionStore is an in-memory implementation of store.SessionStore.
type SessionStore struct {
	mu sync.RWMutex

	// sessions stores the open session keyed by guild id
	sessions map[uint64]*domain.VoiceSession
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uint64]*domain.VoiceSession),
	}
}

// Get returns the guild's session, or nil if none is open.
func (s *SessionStore) Get(ctx context.Context, guildID uint64) (*domain.VoiceSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[guildID]
	if !exists {
		return nil, nil
	}

	// Return a copy to prevent external modification
	result := *session
	return &result, nil
}

// Set stores or replaces the guild's session.
func (s *SessionStore) Set(ctx context.Context, session *domain.VoiceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessionCopy := *session
	s.sessions[session.GuildID] = &sessionCopy
	return nil
}

// Delete removes the guild's session.
func (s *SessionStore) Delete(ctx context.Context, guildID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[guildID]; !exists {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, guildID)
	return nil
}

// Count returns the number of open sessions.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions), nil
}

// Close releases any resources (no-op for in-memory store).
func (s *SessionStore) Close() error {
	return nil
}

// --- Test Helpers ---

// Clear removes all sessions. Useful for test cleanup.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[uint64]*domain.VoiceSession)
}
