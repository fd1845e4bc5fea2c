package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guildq/internal/config"
)

// Server represents the HTTP server with all configured routes and middleware.
type Server struct {
	app    *fiber.App
	config *config.ServerConfig
	logger *slog.Logger

	// Handlers
	queueHandler      *QueueHandler
	sessionHandler    *SessionHandler
	speakerHandler    *SpeakerHandler
	speechHandler     *SpeechHandler
	dictionaryHandler *DictionaryHandler
	speedHandler      *SpeedHandler
	banHandler        *BanHandler
}

// ServerDeps contains all dependencies required to create a new Server.
type ServerDeps struct {
	Config            *config.ServerConfig
	Logger            *slog.Logger
	QueueHandler      *QueueHandler
	SessionHandler    *SessionHandler
	SpeakerHandler    *SpeakerHandler
	SpeechHandler     *SpeechHandler
	DictionaryHandler *DictionaryHandler
	SpeedHandler      *SpeedHandler
	BanHandler        *BanHandler
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(deps ServerDeps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           deps.Config.ReadTimeout,
		WriteTimeout:          deps.Config.WriteTimeout,
		IdleTimeout:           deps.Config.IdleTimeout,
		ErrorHandler:          customErrorHandler,
	})

	s := &Server{
		app:               app,
		config:            deps.Config,
		logger:            deps.Logger,
		queueHandler:      deps.QueueHandler,
		sessionHandler:    deps.SessionHandler,
		speakerHandler:    deps.SpeakerHandler,
		speechHandler:     deps.SpeechHandler,
		dictionaryHandler: deps.DictionaryHandler,
		speedHandler:      deps.SpeedHandler,
		banHandler:        deps.BanHandler,
	}

	// Register middleware
	s.registerMiddleware()

	// Register routes
	s.registerRoutes()

	return s
}

// registerMiddleware sets up all middleware for the server.
func (s *Server) registerMiddleware() {
	// Recovery middleware to handle panics
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware for tracing
	s.app.Use(requestid.New())

	// Logger middleware for request logging
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} | ${path} | ${error}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
}

// registerRoutes sets up all API routes.
func (s *Server) registerRoutes() {
	// Health check endpoint (outside versioned API)
	s.app.Get("/healthz", s.healthCheck)

	// Prometheus metrics endpoint
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.app.Group("/v1")

	// Speech ingestion
	v1.Post("/speech", s.speechHandler.Submit)

	// Guild queues
	v1.Get("/guilds", s.queueHandler.List)
	v1.Get("/guilds/:guildID/queue", s.queueHandler.Get)
	v1.Post("/guilds/:guildID/queue", s.queueHandler.Enqueue)
	v1.Post("/guilds/:guildID/queue/next", s.queueHandler.Next)
	v1.Delete("/guilds/:guildID/queue", s.queueHandler.Clear)

	// Voice sessions
	v1.Put("/guilds/:guildID/session", s.sessionHandler.Start)
	v1.Get("/guilds/:guildID/session", s.sessionHandler.Get)
	v1.Delete("/guilds/:guildID/session", s.sessionHandler.End)
	v1.Get("/sessions/count", s.sessionHandler.Count)

	// Speaker settings
	v1.Get("/users/:userID/speaker", s.speakerHandler.Get)
	v1.Put("/users/:userID/speaker", s.speakerHandler.Set)
	v1.Delete("/users/:userID/speaker", s.speakerHandler.Delete)

	// Guild dictionary and speed
	v1.Get("/guilds/:guildID/dictionary", s.dictionaryHandler.List)
	v1.Put("/guilds/:guildID/dictionary", s.dictionaryHandler.Set)
	v1.Get("/guilds/:guildID/dictionary/entry", s.dictionaryHandler.Get)
	v1.Delete("/guilds/:guildID/dictionary/entry", s.dictionaryHandler.Delete)
	v1.Get("/guilds/:guildID/speed", s.speedHandler.Get)
	v1.Put("/guilds/:guildID/speed", s.speedHandler.Set)
	v1.Delete("/guilds/:guildID/speed", s.speedHandler.Delete)

	// Ban list
	v1.Get("/bans", s.banHandler.List)
	v1.Get("/bans/:userID", s.banHandler.Get)
	v1.Put("/bans/:userID", s.banHandler.Ban)
	v1.Delete("/bans/:userID", s.banHandler.Unban)
}

// healthCheck returns the health status of the service.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return Success(c, map[string]string{
		"status": "healthy",
	})
}

// App exposes the underlying Fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.config.Address()
	s.logger.Info("starting HTTP server", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler handles errors returned from handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		return Error(c, e.Code, ErrCodeInternalError, e.Message)
	}

	// Default to internal server error
	return InternalError(c, fmt.Sprintf("unexpected error: %v", err))
}
