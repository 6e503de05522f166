package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prismworks/prism-api/internal/api"
	apimiddleware "github.com/prismworks/prism-api/internal/api/middleware"
	"github.com/prismworks/prism-api/internal/artifact"
	"github.com/prismworks/prism-api/internal/config"
	"github.com/prismworks/prism-api/internal/platform/postgres"
	"github.com/prismworks/prism-api/internal/provider"
	"github.com/prismworks/prism-api/internal/service"
	"github.com/prismworks/prism-api/internal/service/auth"
	"github.com/prismworks/prism-api/internal/store"
	"github.com/prismworks/prism-api/internal/task"
)

// application holds all shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore      task.Store
	closeTaskStore func() error
	imageStore     store.ImageStore

	jwtService   auth.JWTService
	imageService *service.ImageService
	orchestrator *task.Orchestrator
	artifacts    *artifact.FSStore
}

// newApplication creates an application instance with all dependencies
// initialized and the background worker pool started. The caller owns the
// database handle; everything else is cleaned up by app.cleanup.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	if err := app.setupTaskStore(); err != nil {
		return nil, err
	}

	app.imageStore = postgres.NewPostgresImageStore(db, logger)

	app.artifacts, err = artifact.NewFSStore(cfg.Artifact, logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	providerClient, err := provider.NewDashScopeClient(cfg.Provider, logger)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize provider client: %w", err)
	}
	logger.Info("Synthesis provider client initialized", "model", cfg.Provider.Model)

	app.orchestrator, err = task.NewOrchestrator(
		app.taskStore,
		providerClient,
		app.artifacts,
		app.imageStore,
		task.OrchestratorConfig{
			WorkerCount: cfg.Generation.WorkerCount,
			QueueSize:   cfg.Generation.QueueSize,
			Policy: task.Policy{
				MaxAttempts: cfg.Generation.MaxPollAttempts,
				Interval:    time.Duration(cfg.Generation.PollIntervalSeconds) * time.Second,
			},
			Retention: time.Duration(cfg.Generation.RetentionMinutes) * time.Minute,
		},
		logger,
	)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}
	app.orchestrator.Start()
	logger.Info("Generation orchestrator started",
		"worker_count", cfg.Generation.WorkerCount,
		"queue_size", cfg.Generation.QueueSize)

	app.imageService, err = service.NewImageService(db, app.imageStore, app.artifacts, logger)
	if err != nil {
		app.orchestrator.Stop()
		app.closeStores()
		return nil, fmt.Errorf("failed to create image service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupTaskStore selects the task store backend from configuration: an
// in-process map with background reaping, or Redis for multi-instance
// deployments.
func (app *application) setupTaskStore() error {
	cfg := app.config.Generation
	switch cfg.TaskStore {
	case "redis":
		rs, err := task.NewRedisStore(
			app.config.Redis.Addr,
			app.config.Redis.Password,
			app.config.Redis.DB,
			app.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize redis task store: %w", err)
		}
		app.taskStore = rs
		app.closeTaskStore = rs.Close
		app.logger.Info("Task store initialized", "backend", "redis", "addr", app.config.Redis.Addr)
	default:
		ms := task.NewMemoryStore(
			time.Duration(cfg.ReapIntervalSeconds)*time.Second,
			app.logger,
		)
		app.taskStore = ms
		app.closeTaskStore = func() error {
			ms.Close()
			return nil
		}
		app.logger.Info("Task store initialized", "backend", "memory")
	}
	return nil
}

// setupRouter creates the HTTP routing tree from the application's services.
func (app *application) setupRouter() http.Handler {
	generationHandler := api.NewGenerationHandler(app.orchestrator)
	imageHandler := api.NewImageHandler(app.imageService)
	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService)

	return api.NewRouter(api.RouterConfig{
		GenerationHandler: generationHandler,
		ImageHandler:      imageHandler,
		AuthMiddleware:    authMiddleware,
		UploadsDir:        app.config.Artifact.Dir,
	})
}

// Run starts the HTTP server and blocks until shutdown completes.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// closeStores releases task store resources. Used on init failure paths
// and from cleanup.
func (app *application) closeStores() {
	if app.closeTaskStore != nil {
		if err := app.closeTaskStore(); err != nil {
			app.logger.Error("Error closing task store", "error", err)
		}
		app.closeTaskStore = nil
	}
}

// cleanup handles graceful shutdown of application resources. The worker
// pool is drained before stores close so in-flight tasks can finish their
// final store writes.
func (app *application) cleanup() {
	if app.orchestrator != nil {
		app.orchestrator.Stop()
	}

	app.closeStores()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
