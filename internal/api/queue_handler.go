package api

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"guildq/internal/metrics"
	"guildq/internal/registry"
)

// Playback is the part of the playback dispatcher the API drives.
type Playback interface {
	Wake(guildID uint64)
	Clear(guildID uint64, reason string)
}

// QueueHandler handles HTTP requests for the per-guild queues.
type QueueHandler struct {
	registry *registry.Registry
	playback Playback
	logger   *slog.Logger
}

// NewQueueHandler creates a new queue handler.
func NewQueueHandler(reg *registry.Registry, playback Playback, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		registry: reg,
		playback: playback,
		logger:   logger,
	}
}

// GuildQueue is the queue summary returned by the API.
type GuildQueue struct {
	GuildID uint64         `json:"guild_id,string"`
	Length  uint64         `json:"length"`
	Head    *registry.Item `json:"head,omitempty"`
}

// EnqueueRequest is the body of a direct enqueue.
type EnqueueRequest struct {
	Text      string `json:"text"`
	SpeakerID uint64 `json:"speaker_id"`
}

// List handles GET /v1/guilds
func (h *QueueHandler) List(c *fiber.Ctx) error {
	guilds := h.registry.Guilds()
	result := make([]GuildQueue, 0, len(guilds))
	for _, guildID := range guilds {
		result = append(result, GuildQueue{
			GuildID: guildID,
			Length:  h.registry.Len(guildID),
		})
	}
	return Success(c, result)
}

// Get handles GET /v1/guilds/:guildID/queue
func (h *QueueHandler) Get(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	resp := GuildQueue{
		GuildID: guildID,
		Length:  h.registry.Len(guildID),
	}
	if head, ok := h.registry.Peek(guildID); ok {
		resp.Head = &head
	}
	return Success(c, resp)
}

// Enqueue handles POST /v1/guilds/:guildID/queue
// The registry accepts any payload, so the body is not validated.
func (h *QueueHandler) Enqueue(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse enqueue body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	h.registry.Enqueue(guildID, req.Text, req.SpeakerID)
	metrics.ItemsEnqueuedTotal.Inc()
	metrics.QueueDepth.Set(float64(h.registry.Total()))
	metrics.QueuedGuilds.Set(float64(len(h.registry.Guilds())))
	h.playback.Wake(guildID)

	return Created(c, GuildQueue{
		GuildID: guildID,
		Length:  h.registry.Len(guildID),
	})
}

// Next handles POST /v1/guilds/:guildID/queue/next
// Removes and returns the head item.
func (h *QueueHandler) Next(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	item, ok := h.registry.Dequeue(guildID)
	if !ok {
		return QueueEmpty(c)
	}
	metrics.ItemsDequeuedTotal.WithLabelValues("api").Inc()
	metrics.QueueDepth.Set(float64(h.registry.Total()))

	return Success(c, item)
}

// Clear handles DELETE /v1/guilds/:guildID/queue
func (h *QueueHandler) Clear(c *fiber.Ctx) error {
	guildID, err := parseID(c, "guildID")
	if err != nil {
		return BadRequest(c, err.Error())
	}

	h.playback.Clear(guildID, "api")
	h.logger.Info("guild queue cleared", "guild_id", guildID)
	return NoContent(c)
}

// parseID reads a uint64 path parameter.
func parseID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, name+" must be an unsigned integer")
	}
	return id, nil
}
