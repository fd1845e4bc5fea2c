// Package domain contains the core entities of guildq: speech requests
// coming in from chat, voice sessions per guild, per-user speaker settings
// and the guild dictionary, speed and ban list applied around playback.
package domain

import (
	"errors"
	"strings"
	"time"
)

// DefaultMaxTextLength bounds the text accepted for a single speech request.
const DefaultMaxTextLength = 2000

// SpeechRequest is a chat message that should be read aloud in a guild.
// This is the input payload received at the ingestion endpoint.
type SpeechRequest struct {
	// GuildID identifies the guild whose queue receives the text.
	GuildID uint64 `json:"guild_id,string"`

	// ChannelID is the text channel the message was posted in.
	ChannelID uint64 `json:"channel_id,string"`

	// UserID is the author of the message.
	UserID uint64 `json:"user_id,string"`

	// Text is the content to be spoken.
	Text string `json:"text"`

	// SpeakerID overrides the author's configured voice when set.
	SpeakerID *uint64 `json:"speaker_id,omitempty"`
}

// Validation errors for SpeechRequest.
var (
	ErrEmptyGuildID = errors.New("guild_id is required")
	ErrEmptyUserID  = errors.New("user_id is required")
	ErrEmptyText    = errors.New("text is required")
	ErrTextTooLong  = errors.New("text exceeds maximum length")
)

// Validate checks required fields. maxLen <= 0 disables the length check.
func (r *SpeechRequest) Validate(maxLen int) error {
	if r.GuildID == 0 {
		return ErrEmptyGuildID
	}
	if r.UserID == 0 {
		return ErrEmptyUserID
	}
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if maxLen > 0 && len([]rune(r.Text)) > maxLen {
		return ErrTextTooLong
	}
	return nil
}

// CommandSkip asks playback to drop the guild's queue and stop the current
// item. It travels on the transport so it stays ordered with the guild's
// speech.
const CommandSkip = "skip"

// QueuedSpeech is the enriched request published to the transport.
// The speaker is already resolved at this point. Messages with a Command
// carry no text.
type QueuedSpeech struct {
	RequestID  string    `json:"request_id"`
	GuildID    uint64    `json:"guild_id,string"`
	UserID     uint64    `json:"user_id,string"`
	Command    string    `json:"command,omitempty"`
	Text       string    `json:"text,omitempty"`
	SpeakerID  uint64    `json:"speaker_id,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
