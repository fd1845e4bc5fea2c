package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"guildq/internal/domain"
	"guildq/internal/metrics"
	"guildq/internal/store"
)

// SessionHandler handles HTTP requests for voice sessions.
type SessionHandler struct {
	sessions store.SessionStore
	playback Playback
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(sessions store.SessionStore, playback Playback, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		playback: playback,
		logger:   logger,
	}
}

// Start handles PUT /v1/guilds/:guildID/session
// Opens a session, replacing any existing one for the guild.
func (h *SessionHandler) Start(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	var req domain.StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse session body", "error", err)
		return BadRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ValidationError(c, err.Error())
	}

	session := req.ToSession(uuid.New().String(), guildID)
	if err := h.sessions.Set(c.Context(), session); err != nil {
		h.logger.Error("failed to store session", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to start session")
	}
	h.refreshGauge(c)

	h.logger.Info("voice session started",
		"guild_id", guildID,
		"voice_channel_id", session.VoiceChannelID,
		"text_channel_id", session.TextChannelID,
	)
	return Created(c, session)
}

// Get handles GET /v1/guilds/:guildID/session
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	session, err := h.sessions.Get(c.Context(), guildID)
	if err != nil {
		h.logger.Error("failed to get session", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to get session")
	}
	if session == nil {
		return NotFound(c, domain.ErrSessionNotFound.Error())
	}
	return Success(c, session)
}

// End handles DELETE /v1/guilds/:guildID/session
// Drops everything still queued for the guild and stops its playback.
func (h *SessionHandler) End(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	if err := h.sessions.Delete(c.Context(), guildID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return NotFound(c, err.Error())
		}
		h.logger.Error("failed to delete session", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to end session")
	}

	h.playback.Clear(guildID, "session_end")
	h.refreshGauge(c)

	h.logger.Info("voice session ended", "guild_id", guildID)
	return NoContent(c)
}

// Count handles GET /v1/sessions/count
func (h *SessionHandler) Count(c *fiber.Ctx) error {
	count, err := h.sessions.Count(c.Context())
	if err != nil {
		h.logger.Error("failed to count sessions", "error", err)
		return InternalError(c, "failed to count sessions")
	}
	return Success(c, map[string]int{"count": count})
}

func (h *SessionHandler) refreshGauge(c *fiber.Ctx) {
	if count, err := h.sessions.Count(c.Context()); err == nil {
		metrics.ActiveSessions.Set(float64(count))
	}
}
