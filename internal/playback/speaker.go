// Package playback drains guild queues and hands each item to a Speaker.
// At most one worker runs per guild, so a guild's items are spoken one at a
// time in queue order.
package playback

import (
	"context"
	"log/slog"

	"guildq/internal/domain"
	"guildq/internal/registry"
)

// Utterance is a queued item after text rewriting, ready for synthesis.
type Utterance struct {
	Text      string
	SpeakerID uint64
	Speed     float64
}

// plainUtterance speaks the item as queued, at the default speed.
func plainUtterance(item registry.Item) Utterance {
	return Utterance{
		Text:      item.Text,
		SpeakerID: item.SpeakerID,
		Speed:     domain.DefaultVoiceSpeed,
	}
}

// Speaker synthesizes and plays one utterance into a guild's voice channel.
// Speak should return when playback has finished or ctx is done.
type Speaker interface {
	Speak(ctx context.Context, guildID uint64, u Utterance) error
}

// LogSpeaker is a Speaker that only logs what would be spoken.
// It stands in until a voice backend is attached.
type LogSpeaker struct {
	logger *slog.Logger
}

// NewLogSpeaker creates a new logging speaker.
func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	return &LogSpeaker{logger: logger}
}

// Speak logs the utterance.
func (s *LogSpeaker) Speak(ctx context.Context, guildID uint64, u Utterance) error {
	s.logger.Info("STUB: would speak item",
		"guild_id", guildID,
		"speaker_id", u.SpeakerID,
		"speed", u.Speed,
		"text_length", len(u.Text),
	)
	return ctx.Err()
}

// SpeakerFunc adapts a function to the Speaker interface.
type SpeakerFunc func(ctx context.Context, guildID uint64, u Utterance) error

// Speak calls f.
func (f SpeakerFunc) Speak(ctx context.Context, guildID uint64, u Utterance) error {
	return f(ctx, guildID, u)
}
