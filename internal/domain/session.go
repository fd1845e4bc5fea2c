package domain

import (
	"errors"
	"time"
)

// VoiceSession records that the bot is connected to a voice channel in a guild
// and reads messages from one text channel.
type VoiceSession struct {
	// ID is the unique identifier for this session.
	ID string `json:"id"`

	// GuildID is the guild the session belongs to. One session per guild.
	GuildID uint64 `json:"guild_id,string"`

	// VoiceChannelID is the voice channel audio is played into.
	VoiceChannelID uint64 `json:"voice_channel_id,string"`

	// TextChannelID is the only channel whose messages are read.
	TextChannelID uint64 `json:"text_channel_id,string"`

	// StartedAt is when the session was opened.
	StartedAt time.Time `json:"started_at"`
}

// Session errors.
var (
	ErrEmptyVoiceChannelID = errors.New("voice_channel_id is required")
	ErrEmptyTextChannelID  = errors.New("text_channel_id is required")
	ErrSessionNotFound     = errors.New("voice session not found")
)

// StartSessionRequest is the input for opening a voice session.
type StartSessionRequest struct {
	VoiceChannelID uint64 `json:"voice_channel_id,string"`
	TextChannelID  uint64 `json:"text_channel_id,string"`
}

// Validate checks the start request has required fields.
func (r *StartSessionRequest) Validate() error {
	if r.VoiceChannelID == 0 {
		return ErrEmptyVoiceChannelID
	}
	if r.TextChannelID == 0 {
		return ErrEmptyTextChannelID
	}
	return nil
}

// ToSession converts the request to a VoiceSession for the guild.
func (r *StartSessionRequest) ToSession(id string, guildID uint64) *VoiceSession {
	return &VoiceSession{
		ID:             id,
		GuildID:        guildID,
		VoiceChannelID: r.VoiceChannelID,
		TextChannelID:  r.TextChannelID,
		StartedAt:      time.Now().UTC(),
	}
}

// Accepts reports whether messages from channelID should be read.
// A zero channel is accepted for callers that do not track channels.
func (s *VoiceSession) Accepts(channelID uint64) bool {
	return channelID == 0 || channelID == s.TextChannelID
}
