package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"guildq/internal/domain"
	"guildq/internal/store"
)

// DictionaryHandler handles HTTP requests for guild dictionaries.
type DictionaryHandler struct {
	repo   store.DictionaryRepository
	bans   store.BanRepository
	logger *slog.Logger
}

// NewDictionaryHandler creates a new dictionary handler.
func NewDictionaryHandler(repo store.DictionaryRepository, bans store.BanRepository, logger *slog.Logger) *DictionaryHandler {
	return &DictionaryHandler{
		repo:   repo,
		bans:   bans,
		logger: logger,
	}
}

// List handles GET /v1/guilds/:guildID/dictionary
func (h *DictionaryHandler) List(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	entries, err := h.repo.List(c.Context(), guildID)
	if err != nil {
		h.logger.Error("failed to list dictionary", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to list dictionary")
	}
	if entries == nil {
		entries = []*domain.DictionaryEntry{}
	}
	return Success(c, entries)
}

// Get handles GET /v1/guilds/:guildID/dictionary/entry?word=
func (h *DictionaryHandler) Get(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}
	word := c.Query("word")
	if word == "" {
		return ValidationError(c, domain.ErrEmptyWord.Error())
	}

	entry, err := h.repo.Get(c.Context(), guildID, word)
	if err != nil {
		if errors.Is(err, domain.ErrDictionaryEntryNotFound) {
			return NotFound(c, err.Error())
		}
		h.logger.Error("failed to get dictionary entry", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to get dictionary entry")
	}
	return Success(c, entry)
}

// Set handles PUT /v1/guilds/:guildID/dictionary
// Adds the entry or replaces the reading of an existing word.
func (h *DictionaryHandler) Set(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	var req domain.SetDictionaryEntryRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse dictionary body", "error", err)
		return BadRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ValidationError(c, err.Error())
	}

	banned, err := h.bans.IsBanned(c.Context(), req.AuthorID)
	if err != nil {
		h.logger.Error("failed to check ban list", "user_id", req.AuthorID, "error", err)
		return InternalError(c, "failed to set dictionary entry")
	}
	if banned {
		return Forbidden(c, "user is banned")
	}

	entry := req.ToEntry(guildID)
	if err := h.repo.Set(c.Context(), entry); err != nil {
		h.logger.Error("failed to set dictionary entry", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to set dictionary entry")
	}

	h.logger.Debug("dictionary entry updated", "guild_id", guildID, "author_id", entry.AuthorID)
	return Success(c, entry)
}

// Delete handles DELETE /v1/guilds/:guildID/dictionary/entry?word=
func (h *DictionaryHandler) Delete(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}
	word := c.Query("word")
	if word == "" {
		return ValidationError(c, domain.ErrEmptyWord.Error())
	}

	if err := h.repo.Delete(c.Context(), guildID, word); err != nil {
		if errors.Is(err, domain.ErrDictionaryEntryNotFound) {
			return NotFound(c, err.Error())
		}
		h.logger.Error("failed to delete dictionary entry", "guild_id", guildID, "error", err)
		return InternalError(c, "failed to delete dictionary entry")
	}
	return NoContent(c)
}
