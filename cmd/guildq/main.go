// Package main is the entry point for the guildq speech queue service.
// It wires the queue registry, playback workers, stores and transport and
// starts the HTTP server and speech processor.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"guildq/internal/api"
	"guildq/internal/banner"
	"guildq/internal/config"
	"guildq/internal/ingest"
	"guildq/internal/playback"
	"guildq/internal/processor"
	"guildq/internal/queue"
	kafkaqueue "guildq/internal/queue/kafka"
	memoryqueue "guildq/internal/queue/memory"
	"guildq/internal/registry"
	"guildq/internal/store"
	memorystor "guildq/internal/store/memory"
	postgresstor "guildq/internal/store/postgres"
	redisstor "guildq/internal/store/redis"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()
	path := config.ResolvePath(*configPath)

	banner.Print()

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "path", path)
		os.Exit(1)
	}

	logger := initLogger(&cfg.Logger)

	logger.Info("configuration loaded",
		"path", path,
		"storage_mode", cfg.Storage.Mode,
	)

	deps, cleanup, err := initDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create context that listens for shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := deps.processor.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("processor error", "error", err)
			cancel()
		}
	}()

	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("guildq started",
		"address", cfg.Server.Address(),
		"storage_mode", cfg.Storage.Mode,
		"version", banner.Version,
	)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := deps.processor.Stop(); err != nil {
		logger.Error("processor shutdown error", "error", err)
	}

	if err := deps.dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("playback shutdown error", "error", err)
	}
	deps.registry.Reset()

	logger.Info("guildq stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server     *api.Server
	processor  *processor.Service
	dispatcher *playback.Dispatcher
	registry   *registry.Registry
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		sessions     store.SessionStore
		speakers     store.SpeakerRepository
		dictionary   store.DictionaryRepository
		speeds       store.VoiceSpeedRepository
		bans         store.BanRepository
		producer     queue.Producer
		consumer     queue.Consumer
		cleanupFuncs []func()
	)

	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	if cfg.Storage.UseMemory() {
		logger.Info("initializing in-memory storage")

		memSessions := memorystor.NewSessionStore()
		sessions = memSessions
		cleanupFuncs = append(cleanupFuncs, func() { _ = memSessions.Close() })

		speakers = memorystor.NewSpeakerRepository()
		dictionary = memorystor.NewDictionaryRepository()
		speeds = memorystor.NewVoiceSpeedRepository()
		bans = memorystor.NewBanRepository()

		memQueue := memoryqueue.NewQueue(10000, logger)
		producer = memQueue
		consumer = memQueue
		cleanupFuncs = append(cleanupFuncs, func() { _ = memQueue.Close() })
	} else {
		logger.Info("initializing production storage (Kafka, Redis, PostgreSQL)")

		ctx := context.Background()
		db, err := postgresstor.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		if err := db.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info("database migrations completed")

		speakers = postgresstor.NewSpeakerRepository(db)
		dictionary = postgresstor.NewDictionaryRepository(db)
		speeds = postgresstor.NewVoiceSpeedRepository(db)
		bans = postgresstor.NewBanRepository(db)

		redisSessions, err := redisstor.NewSessionStore(&cfg.Redis)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sessions = redisSessions
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisSessions.Close() })

		kafkaProducer := kafkaqueue.NewProducer(&cfg.Kafka)
		producer = kafkaProducer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaProducer.Close() })

		kafkaConsumer := kafkaqueue.NewConsumer(&cfg.Kafka, logger)
		consumer = kafkaConsumer
		cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaConsumer.Close() })
	}

	reg := registry.New()

	preparer := playback.NewTextPreparer(dictionary, speeds, playback.TextOptions{
		MaxSpokenLength: cfg.Playback.MaxSpokenLength,
		TruncateSuffix:  cfg.Playback.TruncateSuffix,
		LinkText:        cfg.Playback.LinkText,
		EmojiPrefix:     cfg.Playback.EmojiPrefix,
	})

	// Audio output is stubbed; items are logged instead of spoken
	dispatcher := playback.NewDispatcher(reg, preparer, playback.NewLogSpeaker(logger), cfg.Playback.ItemTimeout, logger)

	ingestService := ingest.NewService(
		producer,
		sessions,
		speakers,
		bans,
		ingest.Options{
			DefaultSpeakerID: cfg.Playback.DefaultSpeakerID,
			SkipCommand:      cfg.Ingest.SkipCommand,
			MaxTextLength:    cfg.Ingest.MaxTextLength,
		},
		logger,
	)

	processorService := processor.NewService(
		consumer,
		reg,
		sessions,
		dispatcher,
		logger,
	)

	server := api.NewServer(api.ServerDeps{
		Config:            &cfg.Server,
		Logger:            logger,
		QueueHandler:      api.NewQueueHandler(reg, dispatcher, logger),
		SessionHandler:    api.NewSessionHandler(sessions, dispatcher, logger),
		SpeakerHandler:    api.NewSpeakerHandler(speakers, bans, cfg.Playback.DefaultSpeakerID, logger),
		SpeechHandler:     api.NewSpeechHandler(ingestService, logger),
		DictionaryHandler: api.NewDictionaryHandler(dictionary, bans, logger),
		SpeedHandler:      api.NewSpeedHandler(speeds, logger),
		BanHandler:        api.NewBanHandler(bans, logger),
	})

	return &dependencies{
		server:     server,
		processor:  processorService,
		dispatcher: dispatcher,
		registry:   reg,
	}, cleanup, nil
}

// initLogger creates the application logger from config.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
