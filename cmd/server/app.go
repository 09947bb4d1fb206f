package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/jimdaga/studymate/internal/auth"
	"github.com/jimdaga/studymate/internal/catalog"
	"github.com/jimdaga/studymate/internal/chat"
	"github.com/jimdaga/studymate/internal/completion"
	"github.com/jimdaga/studymate/internal/config"
	"github.com/jimdaga/studymate/internal/dashboard"
	"github.com/jimdaga/studymate/internal/database"
	"github.com/jimdaga/studymate/internal/logging"
	"github.com/jimdaga/studymate/internal/materials"
	"github.com/jimdaga/studymate/internal/models"
	"github.com/jimdaga/studymate/internal/profiles"
	"github.com/jimdaga/studymate/internal/prompts"
	"github.com/jimdaga/studymate/internal/server"
	"github.com/jimdaga/studymate/internal/storage"
	"github.com/jimdaga/studymate/internal/streams"
	"github.com/jimdaga/studymate/internal/validation"
	"github.com/jimdaga/studymate/internal/worker"
)

// app holds what every command shares: configuration, logger, database,
// object storage and the auth service with its event wiring.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	store  storage.Store
	events *auth.Events
	auth   *auth.Service

	validate *validation.Validator
	closers  []func()
}

// loadBase reads configuration, sets up logging and opens the database.
func loadBase() (*app, error) {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required (use sqlite:./studymate.db for local development)")
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db}
	a.onClose(func() {
		if err := database.Close(db); err != nil {
			logger.Warn("database close failed", "error", err)
		}
	})
	return a, nil
}

// bootstrap is loadBase plus migrations, storage and auth.
func bootstrap(ctx context.Context) (*app, error) {
	a, err := loadBase()
	if err != nil {
		return nil, err
	}
	cfg, logger := a.cfg, a.logger

	if err := database.RunMigrations(a.db, logger); err != nil {
		a.close()
		return nil, err
	}
	if cfg.SeedDevData && !cfg.IsProduction() {
		if err := database.SeedDevData(a.db, logger); err != nil {
			a.close()
			return nil, err
		}
	}

	if cfg.EncryptionKey != "" {
		if err := models.InitEncryption(cfg.EncryptionKey); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to initialize token encryption: %w", err)
		}
	} else if cfg.IsProduction() {
		logger.Warn("ENCRYPTION_KEY not set; OAuth tokens are stored unsealed")
	}

	a.store, err = storage.New(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if closer, ok := a.store.(interface{ Close() error }); ok {
		a.onClose(func() { closer.Close() })
	}

	a.validate = validation.New()
	a.events = auth.NewEvents()
	a.auth = auth.NewService(a.db, a.events, a.validate, cfg.AuthTokenSecret, cfg.SessionTTL, logger)

	// With Redis, auth events go to the stream and a consumer applies them;
	// without it they are applied in-process.
	if cfg.RedisURL != "" {
		pub, err := streams.NewPublisher(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect event publisher: %w", err)
		}
		a.events.Subscribe(streams.Forwarder(pub, logger))
		a.onClose(func() { pub.Close() })
	} else {
		a.events.Subscribe(streams.Inline(streams.HandleAuthEvent(a.db, logger), logger))
	}

	return a, nil
}

// routerDeps builds the feature services exposed over HTTP.
func (a *app) routerDeps(cleanup materials.FileCleanup) (server.Deps, error) {
	cfg, logger := a.cfg, a.logger

	promptCfg, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return server.Deps{}, err
	}

	client := completion.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiStubMode)
	if !client.Configured() {
		logger.Warn("GEMINI_API_KEY not set; chat completions will fail until it is configured")
	}
	gateway := completion.NewGateway(client, promptCfg, logger)
	history := chat.NewHistory(a.db, logger)

	return server.Deps{
		Config: cfg,
		DB:     a.db,
		Logger: logger,
		Store:  a.store,
		Auth:   a.auth,
		Materials: materials.NewService(a.db, a.store, a.validate, materials.Options{
			Bucket:         cfg.StorageBucket,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Cleanup:        cleanup,
		}, logger),
		History:   history,
		Chat:      chat.NewConversation(history, gateway, logger),
		Gateway:   gateway,
		Prompts:   promptCfg,
		Dashboard: dashboard.NewService(a.db, logger),
		Profiles:  profiles.NewService(a.db, a.events, promptCfg, a.validate, logger),
		Catalog:   catalog.NewService(a.db, logger),
	}, nil
}

// startBackground starts the task worker, the scheduler and the auth event
// consumer. Returns a function stopping all three.
func (a *app) startBackground(embedded bool) (stop func(), err error) {
	redisURL := a.cfg.RedisURL
	var stops []func()
	stopAll := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}

	if embedded {
		stopWorker, err := worker.Start(redisURL, a.workerDeps())
		if err != nil {
			return nil, err
		}
		stops = append(stops, stopWorker)
	}

	stopScheduler, err := worker.StartScheduler(redisURL, a.cfg.SessionPurgeSchedule, a.logger)
	if err != nil {
		stopAll()
		return nil, err
	}
	stops = append(stops, stopScheduler)

	stopConsumer, err := streams.StartEventConsumer(redisURL, consumerName(), a.db, a.logger)
	if err != nil {
		stopAll()
		return nil, err
	}
	stops = append(stops, stopConsumer)

	return stopAll, nil
}

func (a *app) workerDeps() worker.Deps {
	return worker.Deps{Store: a.store, Sessions: a.auth, Logger: a.logger}
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "studymate"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
