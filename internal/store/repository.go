package store

import (
	"context"

	"guildq/internal/domain"
)

// SpeakerRepository persists per-user voice settings.
// This is typically backed by PostgreSQL for production use.
type SpeakerRepository interface {
	// Get returns the user's stored setting.
	// Returns domain.ErrSpeakerNotFound if none is stored.
	Get(ctx context.Context, userID uint64) (*domain.SpeakerSetting, error)

	// Set stores or replaces the user's setting.
	Set(ctx context.Context, setting *domain.SpeakerSetting) error

	// Delete removes the user's setting.
	// Returns domain.ErrSpeakerNotFound if none was stored.
	Delete(ctx context.Context, userID uint64) error
}

// DictionaryRepository persists per-guild word readings.
type DictionaryRepository interface {
	// List returns the guild's entries ordered by word.
	List(ctx context.Context, guildID uint64) ([]*domain.DictionaryEntry, error)

	// Get returns one entry.
	// Returns domain.ErrDictionaryEntryNotFound if the word has no entry.
	Get(ctx context.Context, guildID uint64, word string) (*domain.DictionaryEntry, error)

	// Set stores or replaces the entry for its guild and word.
	Set(ctx context.Context, entry *domain.DictionaryEntry) error

	// Delete removes one entry.
	// Returns domain.ErrDictionaryEntryNotFound if the word had no entry.
	Delete(ctx context.Context, guildID uint64, word string) error
}

// VoiceSpeedRepository persists per-guild playback speed.
type VoiceSpeedRepository interface {
	// Get returns the guild's stored speed.
	// Returns domain.ErrVoiceSpeedNotFound if none is stored.
	Get(ctx context.Context, guildID uint64) (*domain.VoiceSpeed, error)

	// Set stores or replaces the guild's speed.
	Set(ctx context.Context, speed *domain.VoiceSpeed) error

	// Delete resets the guild to the default speed.
	// Returns domain.ErrVoiceSpeedNotFound if none was stored.
	Delete(ctx context.Context, guildID uint64) error
}

// BanRepository persists the global ban list.
type BanRepository interface {
	// IsBanned reports whether the user is banned.
	IsBanned(ctx context.Context, userID uint64) (bool, error)

	// Get returns the user's ban.
	// Returns domain.ErrBanNotFound if the user is not banned.
	Get(ctx context.Context, userID uint64) (*domain.Ban, error)

	// List returns every ban ordered by user id.
	List(ctx context.Context) ([]*domain.Ban, error)

	// Ban stores the ban, replacing an existing one for the same user.
	Ban(ctx context.Context, ban *domain.Ban) error

	// Unban lifts the user's ban.
	// Returns domain.ErrBanNotFound if the user was not banned.
	Unban(ctx context.Context, userID uint64) error
}
