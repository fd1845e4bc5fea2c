package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"guildq/internal/domain"
	"guildq/internal/store"
)

// SpeedHandler handles HTTP requests for per-guild playback speed.
type SpeedHandler struct {
	repo   store.VoiceSpeedRepository
	logger *slog.Logger
}

// NewSpeedHandler creates a new speed handler.
func NewSpeedHandler(repo store.VoiceSpeedRepository, logger *slog.Logger) *SpeedHandler {
	return &SpeedHandler{
		repo:   repo,
		logger: logger,
	}
}

// Get handles GET /v1/guilds/:guildID/speed
// Returns the stored speed or the default.
func (h *SpeedHandler) Get(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	speed, err := h.repo.Get(c.Context(), guildID)
	if err != nil {
		if errors.Is(err, domain.ErrVoiceSpeedNotFound) {
			return Success(c, &domain.VoiceSpeed{
				GuildID: guildID,
				Speed:   domain.DefaultVoiceSpeed,
				Default: true,
			})
		}
		h.logger.Error("failed to get voice speed", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to get voice speed")
	}
	return Success(c, speed)
}

// Set handles PUT /v1/guilds/:guildID/speed
func (h *SpeedHandler) Set(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	var req domain.SetVoiceSpeedRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse speed body", "error", err)
		return BadRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ValidationError(c, err.Error())
	}

	speed := &domain.VoiceSpeed{
		GuildID:   guildID,
		Speed:     *req.Speed,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.repo.Set(c.Context(), speed); err != nil {
		h.logger.Error("failed to set voice speed", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to set voice speed")
	}
	return Success(c, speed)
}

// Delete handles DELETE /v1/guilds/:guildID/speed
// Resets the guild to the default speed.
func (h *SpeedHandler) Delete(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	if err := h.repo.Delete(c.Context(), guildID); err != nil {
		if errors.Is(err, domain.ErrVoiceSpeedNotFound) {
			return NotFound(c, err.Error())
		}
		h.logger.Error("failed to delete voice speed", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to delete voice speed")
	}
	return NoContent(c)
}
