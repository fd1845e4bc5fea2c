package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"guildq/internal/domain"
	"guildq/internal/store"
)

// SpeakerHandler handles HTTP requests for per-user voice settings.
type SpeakerHandler struct {
	repo             store.SpeakerRepository
	bans             store.BanRepository
	defaultSpeakerID uint64
	logger           *slog.Logger
}

// NewSpeakerHandler creates a new speaker handler. defaultSpeakerID is
// reported for users without a stored setting. Banned users cannot change
// their setting.
func NewSpeakerHandler(repo store.SpeakerRepository, bans store.BanRepository, defaultSpeakerID uint64, logger *slog.Logger) *SpeakerHandler {
	return &SpeakerHandler{
		repo:             repo,
		bans:             bans,
		defaultSpeakerID: defaultSpeakerID,
		logger:           logger,
	}
}

// Get handles GET /v1/users/:userID/speaker
// Returns the stored setting or the default.
func (h *SpeakerHandler) Get(c *fiber.Ctx) error {
	userID, err := parseID(c, "userID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	setting, err := h.repo.Get(c.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrSpeakerNotFound) {
			return Success(c, &domain.SpeakerSetting{
				UserID:    userID,
				SpeakerID: h.defaultSpeakerID,
				Default:   true,
			})
		}
		h.logger.Error("failed to get speaker", "user_id", userID, "error", err)
		return InternalError(c, "failed to get speaker")
	}
	return Success(c, setting)
}

// Set handles PUT /v1/users/:userID/speaker
func (h *SpeakerHandler) Set(c *fiber.Ctx) error {
	userID, err := parseID(c, "userID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	var req domain.SetSpeakerRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse speaker body", "error", err)
		return BadRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ValidationError(c, err.Error())
	}

	banned, err := h.bans.IsBanned(c.Context(), userID)
	if err != nil {
		h.logger.Error("failed to check ban list", "user_id", userID, "error", err)
		return InternalError(c, "failed to set speaker")
	}
	if banned {
		return Forbidden(c, "user is banned")
	}

	setting := &domain.SpeakerSetting{
		UserID:    userID,
		SpeakerID: *req.SpeakerID,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.repo.Set(c.Context(), setting); err != nil {
		h.logger.Error("failed to set speaker", "user_id", userID, "error", err)
		return InternalError(c, "failed to set speaker")
	}

	h.logger.Debug("speaker updated", "user_id", userID, "speaker_id", setting.SpeakerID)
	return Success(c, setting)
}

// Delete handles DELETE /v1/users/:userID/speaker
func (h *SpeakerHandler) Delete(c *fiber.Ctx) error {
	userID, err := parseID(c, "userID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	if err := h.repo.Delete(c.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrSpeakerNotFound) {
			return NotFound(c, err.Error())
		}
		h.logger.Error("failed to delete speaker", "user_id", userID, "error", err)
		return InternalError(c, "failed to delete speaker")
	}
	return NoContent(c)
}
