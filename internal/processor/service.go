// Package processor consumes speech requests from the transport, appends
// them to the guild queue registry and wakes the guild's playback worker.
// Skip commands arrive on the same transport and are applied in order.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"guildq/internal/domain"
	"guildq/internal/metrics"
	"guildq/internal/queue"
	"guildq/internal/registry"
	"guildq/internal/store"
)

// Playback drains guild queues.
type Playback interface {
	// Wake starts draining a guild's queue.
	Wake(guildID uint64)

	// Skip clears the guild's queue and interrupts the current item.
	Skip(guildID uint64)
}

// Service moves speech requests from the transport into guild queues.
type Service struct {
	consumer queue.Consumer
	registry *registry.Registry
	sessions store.SessionStore
	playback Playback
	logger   *slog.Logger
}

// NewService creates a new processor service.
func NewService(
	consumer queue.Consumer,
	reg *registry.Registry,
	sessions store.SessionStore,
	playback Playback,
	logger *slog.Logger,
) *Service {
	return &Service{
		consumer: consumer,
		registry: reg,
		sessions: sessions,
		playback: playback,
		logger:   logger,
	}
}

// Start consumes until ctx is canceled or the transport closes.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("starting processor service")
	return s.consumer.Start(ctx, s.handleMessage)
}

// Stop closes the underlying consumer.
func (s *Service) Stop() error {
	s.logger.Info("stopping processor service")
	return s.consumer.Close()
}

func (s *Service) handleMessage(ctx context.Context, msg *queue.Message) error {
	var speech domain.QueuedSpeech
	if err := json.Unmarshal(msg.Value, &speech); err != nil {
		s.logger.Error("failed to deserialize speech request", "key", string(msg.Key), "error", err)
		// Return nil to avoid reprocessing malformed messages
		return nil
	}

	if !speech.ReceivedAt.IsZero() {
		metrics.TransportLatency.Observe(time.Since(speech.ReceivedAt).Seconds())
	}

	switch speech.Command {
	case "":
	case domain.CommandSkip:
		s.playback.Skip(speech.GuildID)
		s.logger.Debug("skip applied",
			"guild_id", speech.GuildID,
			"request_id", speech.RequestID,
		)
		return nil
	default:
		s.logger.Warn("dropping message with unknown command",
			"guild_id", speech.GuildID,
			"command", speech.Command,
		)
		return nil
	}

	// The session may have ended while the request was in flight.
	session, err := s.sessions.Get(ctx, speech.GuildID)
	if err != nil {
		s.logger.Error("failed to fetch session", "guild_id", speech.GuildID, "error", err)
		return err
	}
	if session == nil {
		s.logger.Debug("dropping speech for guild without session",
			"guild_id", speech.GuildID,
			"request_id", speech.RequestID,
		)
		return nil
	}

	s.registry.Enqueue(speech.GuildID, speech.Text, speech.SpeakerID)
	metrics.ItemsEnqueuedTotal.Inc()
	metrics.QueueDepth.Set(float64(s.registry.Total()))
	metrics.QueuedGuilds.Set(float64(len(s.registry.Guilds())))

	s.playback.Wake(speech.GuildID)

	s.logger.Debug("speech enqueued",
		"guild_id", speech.GuildID,
		"request_id", speech.RequestID,
		"queue_length", s.registry.Len(speech.GuildID),
	)
	return nil
}
