package domain

import (
	"errors"
	"time"
)

// Playback speed bounds. DefaultVoiceSpeed applies to guilds with no
// stored speed.
const (
	DefaultVoiceSpeed = 1.0
	MinVoiceSpeed     = 1.0
	MaxVoiceSpeed     = 2.0
)

// VoiceSpeed is a guild's synthesis speed multiplier.
type VoiceSpeed struct {
	GuildID   uint64    `json:"guild_id,string"`
	Speed     float64   `json:"speed"`
	UpdatedAt time.Time `json:"updated_at"`

	// Default is true when no speed is stored and DefaultVoiceSpeed applies.
	Default bool `json:"default"`
}

// Voice speed errors.
var (
	ErrEmptySpeed         = errors.New("speed is required")
	ErrSpeedOutOfRange    = errors.New("speed must be between 1.0 and 2.0")
	ErrVoiceSpeedNotFound = errors.New("voice speed not found")
)

// SetVoiceSpeedRequest is the input for changing a guild's speed.
type SetVoiceSpeedRequest struct {
	Speed *float64 `json:"speed"`
}

// Validate checks the speed is present and in range.
func (r *SetVoiceSpeedRequest) Validate() error {
	if r.Speed == nil {
		return ErrEmptySpeed
	}
	if *r.Speed < MinVoiceSpeed || *r.Speed > MaxVoiceSpeed {
		return ErrSpeedOutOfRange
	}
	return nil
}
