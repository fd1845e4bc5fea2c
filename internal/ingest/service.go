// Package ingest accepts speech requests from chat, decides whether they
// should be read, resolves the voice to use and publishes them to the
// transport for the processor.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"guildq/internal/domain"
	"guildq/internal/metrics"
	"guildq/internal/queue"
	"guildq/internal/store"
)

// Errors returned by the ingest service.
var (
	ErrBannedUser    = errors.New("user is banned")
	ErrNoSession     = errors.New("guild has no voice session")
	ErrWrongChannel  = errors.New("message is not from the session's text channel")
	ErrPublishFailed = errors.New("failed to publish speech request")
)

// Outcome describes what happened to an accepted request.
type Outcome string

const (
	// OutcomeQueued means the request was published for playback.
	OutcomeQueued Outcome = "queued"
	// OutcomeSkipped means the skip command was published; the guild's queue
	// is cleared once the processor reaches it.
	OutcomeSkipped Outcome = "skipped"
)

// Result is returned for every accepted request.
type Result struct {
	Outcome   Outcome `json:"outcome"`
	RequestID string  `json:"request_id,omitempty"`
	SpeakerID uint64  `json:"speaker_id,omitempty"`
}

// Options configures the service.
type Options struct {
	DefaultSpeakerID uint64
	SkipCommand      string
	MaxTextLength    int
}

// Service handles speech ingestion.
type Service struct {
	producer Producer
	sessions store.SessionStore
	speakers store.SpeakerRepository
	bans     store.BanRepository
	opts     Options
	logger   *slog.Logger
}

// Producer is the subset of queue.Producer the service needs.
type Producer interface {
	Publish(ctx context.Context, msg *queue.Message) error
}

// NewService creates a new ingest service.
func NewService(
	producer Producer,
	sessions store.SessionStore,
	speakers store.SpeakerRepository,
	bans store.BanRepository,
	opts Options,
	logger *slog.Logger,
) *Service {
	return &Service{
		producer: producer,
		sessions: sessions,
		speakers: speakers,
		bans:     bans,
		opts:     opts,
		logger:   logger,
	}
}

// Submit processes an incoming speech request.
//
// The processing flow:
// 1. Validate the request
// 2. Reject banned users
// 3. Check the guild has a session reading this channel
// 4. Publish the skip command, or
// 5. Resolve the speaker and publish the speech
//
// Both skip and speech are keyed by guild, so a skip only clears speech
// submitted before it.
func (s *Service) Submit(ctx context.Context, req *domain.SpeechRequest) (*Result, error) {
	start := time.Now()
	metrics.SpeechReceivedTotal.Inc()

	if err := req.Validate(s.opts.MaxTextLength); err != nil {
		return nil, err
	}

	banned, err := s.bans.IsBanned(ctx, req.UserID)
	if err != nil {
		s.logger.Error("failed to check ban list", "user_id", req.UserID, "error", err)
		return nil, fmt.Errorf("failed to check ban list: %w", err)
	}
	if banned {
		metrics.SpeechRejectedTotal.WithLabelValues("banned").Inc()
		return nil, ErrBannedUser
	}

	session, err := s.sessions.Get(ctx, req.GuildID)
	if err != nil {
		s.logger.Error("failed to fetch session", "guild_id", req.GuildID, "error", err)
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if session == nil {
		metrics.SpeechRejectedTotal.WithLabelValues("no_session").Inc()
		return nil, ErrNoSession
	}
	if !session.Accepts(req.ChannelID) {
		metrics.SpeechRejectedTotal.WithLabelValues("wrong_channel").Inc()
		return nil, ErrWrongChannel
	}

	queued := &domain.QueuedSpeech{
		RequestID:  uuid.New().String(),
		GuildID:    req.GuildID,
		UserID:     req.UserID,
		ReceivedAt: time.Now().UTC(),
	}

	if s.opts.SkipCommand != "" && strings.TrimSpace(req.Text) == s.opts.SkipCommand {
		queued.Command = domain.CommandSkip
		if err := s.publish(ctx, queued); err != nil {
			return nil, err
		}
		s.logger.Debug("skip command published",
			"guild_id", req.GuildID,
			"user_id", req.UserID,
			"request_id", queued.RequestID,
		)
		return &Result{Outcome: OutcomeSkipped, RequestID: queued.RequestID}, nil
	}

	speakerID, err := s.ResolveSpeaker(ctx, req.UserID, req.SpeakerID)
	if err != nil {
		return nil, err
	}
	queued.Text = req.Text
	queued.SpeakerID = speakerID

	if err := s.publish(ctx, queued); err != nil {
		return nil, err
	}
	metrics.IngestLatency.Observe(time.Since(start).Seconds())

	s.logger.Debug("speech request published",
		"guild_id", req.GuildID,
		"request_id", queued.RequestID,
		"speaker_id", speakerID,
	)

	return &Result{
		Outcome:   OutcomeQueued,
		RequestID: queued.RequestID,
		SpeakerID: speakerID,
	}, nil
}

func (s *Service) publish(ctx context.Context, queued *domain.QueuedSpeech) error {
	payload, err := json.Marshal(queued)
	if err != nil {
		return fmt.Errorf("failed to serialize speech request: %w", err)
	}

	msg := &queue.Message{
		Key:   queue.GuildKey(queued.GuildID),
		Value: payload,
		Headers: map[string]string{
			"request_id": queued.RequestID,
			"guild_id":   strconv.FormatUint(queued.GuildID, 10),
		},
	}
	if queued.Command != "" {
		msg.Headers["command"] = queued.Command
	}

	if err := s.producer.Publish(ctx, msg); err != nil {
		s.logger.Error("failed to publish speech request",
			"guild_id", queued.GuildID,
			"request_id", queued.RequestID,
			"error", err,
		)
		return ErrPublishFailed
	}

	metrics.SpeechPublishedTotal.Inc()
	return nil
}
// ResolveSpeaker picks the voice for a user: an explicit override, then the
// stored setting, then the default.
func (s *Service) ResolveSpeaker(ctx context.Context, userID uint64, override *uint64) (uint64, error) {
	if override != nil {
		return *override, nil
	}

	setting, err := s.speakers.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSpeakerNotFound) {
			return s.opts.DefaultSpeakerID, nil
		}
		s.logger.Error("failed to fetch speaker", "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to fetch speaker: %w", err)
	}
	return setting.SpeakerID, nil
}
