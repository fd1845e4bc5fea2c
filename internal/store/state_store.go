// Package store defines interfaces for voice session state and speaker
// settings. Implementations exist for Redis, PostgreSQL and in-memory maps.
package store

import (
	"context"

	"guildq/internal/domain"
)

// SessionStore holds the open voice session of each guild.
// This is typically backed by Redis for production use.
// All methods must be safe for concurrent use.
type SessionStore interface {
	// Get returns the guild's session.
	// Returns nil, nil if the guild has no session.
	Get(ctx context.Context, guildID uint64) (*domain.VoiceSession, error)

	// Set stores or replaces the guild's session.
	Set(ctx context.Context, session *domain.VoiceSession) error

	// Delete removes the guild's session.
	// Returns domain.ErrSessionNotFound if there was none.
	Delete(ctx context.Context, guildID uint64) error

	// Count returns the number of open sessions.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
