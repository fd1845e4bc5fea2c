package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"guildq/internal/domain"
	"guildq/internal/ingest"
)

// SpeechHandler handles HTTP requests for speech ingestion.
type SpeechHandler struct {
	service *ingest.Service
	logger  *slog.Logger
}

// NewSpeechHandler creates a new speech handler.
func NewSpeechHandler(service *ingest.Service, logger *slog.Logger) *SpeechHandler {
	return &SpeechHandler{
		service: service,
		logger:  logger,
	}
}

// Submit handles POST /v1/speech
// Returns 202 Accepted once the request is published; it is queued and
// spoken asynchronously. The skip command is published the same way.
func (h *SpeechHandler) Submit(c *fiber.Ctx) error {
	var req domain.SpeechRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse speech body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	result, err := h.service.Submit(c.Context(), &req)
	switch {
	case err == nil:
	case isValidationError(err):
		return ValidationError(c, err.Error())
	case errors.Is(err, ingest.ErrBannedUser):
		return Forbidden(c, err.Error())
	case errors.Is(err, ingest.ErrNoSession), errors.Is(err, ingest.ErrWrongChannel):
		return Conflict(c, err.Error())
	default:
		h.logger.Error("failed to submit speech", "guild_id", req.GuildID, "error", err)
		return InternalError(c, "failed to submit speech")
	}

	return Accepted(c, result)
}

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrEmptyGuildID) ||
		errors.Is(err, domain.ErrEmptyUserID) ||
		errors.Is(err, domain.ErrEmptyText) ||
		errors.Is(err, domain.ErrTextTooLong)
}
