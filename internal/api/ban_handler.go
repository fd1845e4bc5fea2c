package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"guildq/internal/domain"
	"guildq/internal/store"
)

// BanHandler handles HTTP requests for the global ban list.
type BanHandler struct {
	repo   store.BanRepository
	logger *slog.Logger
}

// NewBanHandler creates a new ban handler.
func NewBanHandler(repo store.BanRepository, logger *slog.Logger) *BanHandler {
	return &BanHandler{
		repo:   repo,
		logger: logger,
	}
}

// List handles GET /v1/bans
func (h *BanHandler) List(c *fiber.Ctx) error {
	bans, err := h.repo.List(c.Context())
	if err != nil {
		h.logger.Error("failed to list bans", "error", err)
		return InternalError(c, "failed to list bans")
	}
	if bans == nil {
		bans = []*domain.Ban{}
	}
	return Success(c, bans)
}

// Get handles GET /v1/bans/:userID
func (h *BanHandler) Get(c *fiber.Ctx) error {
	userID, err := parseID(c, "userID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	ban, err := h.repo.Get(c.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrBanNotFound) {
			return NotFound(c, err.Error())
		}
		h.logger.Error("failed to get ban", "user_id", userID, "error", err)
		return InternalError(c, "failed to get ban")
	}
	return Success(c, ban)
}

// Ban handles PUT /v1/bans/:userID
// The body is optional and may carry a reason.
func (h *BanHandler) Ban(c *fiber.Ctx) error {
	userID, err := parseID(c, "userID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	var req domain.BanRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			h.logger.Debug("failed to parse ban body", "error", err)
			return BadRequest(c, "invalid request body")
		}
	}

	ban := &domain.Ban{
		UserID:    userID,
		Reason:    req.Reason,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.Ban(c.Context(), ban); err != nil {
		h.logger.Error("failed to ban user", "user_id", userID, "error", err)
		return InternalError(c, "failed to ban user")
	}

	h.logger.Info("user banned", "user_id", userID)
	return Success(c, ban)
}

// Unban handles DELETE /v1/bans/:userID
func (h *BanHandler) Unban(c *fiber.Ctx) error {
	userID, err := parseID(c, "userID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	if err := h.repo.Unban(c.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrBanNotFound) {
			return NotFound(c, err.Error())
		}
		h.logger.Error("failed to unban user", "user_id", userID, "error", err)
		return InternalError(c, "failed to unban user")
	}

	h.logger.Info("user unbanned", "user_id", userID)
	return NoContent(c)
}
