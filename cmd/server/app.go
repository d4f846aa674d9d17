package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"

	"github.com/adornalabs/tryon-api/internal/config"
	"github.com/adornalabs/tryon-api/internal/platform/gemini"
	"github.com/adornalabs/tryon-api/internal/platform/postgres"
	"github.com/adornalabs/tryon-api/internal/platform/storage"
	"github.com/adornalabs/tryon-api/internal/queue"
	"github.com/adornalabs/tryon-api/internal/service"
	"github.com/adornalabs/tryon-api/internal/service/auth"
	"github.com/adornalabs/tryon-api/internal/store"
	"github.com/adornalabs/tryon-api/migrations"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore  store.UserStore
	tryOnStore store.TryOnStore

	// Platform services
	blobStore *storage.S3BlobStore
	generator *gemini.ImageGenerator

	// Application services
	jwtService   auth.JWTService
	userService  service.UserService
	tryOnService service.TryOnService

	// Queue engine
	scheduler *queue.Scheduler
}

// newApplication wires the full dependency graph: database, stores, the
// image provider, blob storage, services, and the queue engine. The
// scheduler is constructed but not started; main starts it once the HTTP
// server is about to come up.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.Up(ctx, db); err != nil {
		closeQuietly(db, logger)
		return nil, err
	}

	userStore := postgres.NewPostgresUserStore(db, logger)
	tryOnStore := postgres.NewPostgresTryOnStore(db, logger)

	blobStore, err := storage.NewS3BlobStore(ctx, cfg.Storage, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	generator, err := gemini.NewImageGenerator(ctx, logger, cfg.Provider)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to initialize image generator: %w", err)
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	hasher := auth.NewBcryptHasher(bcrypt.DefaultCost)
	userService := service.NewUserService(userStore, hasher, hasher, db, logger)

	processor, err := queue.NewProcessor(tryOnStore, generator, blobStore, cfg.Provider.ImageSize, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to initialize job processor: %w", err)
	}

	dispatcher, err := queue.NewDispatcher(processor,
		time.Duration(cfg.Queue.ChunkPauseSeconds)*time.Second, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	scheduler, err := queue.NewScheduler(tryOnStore, dispatcher, queue.SchedulerConfig{
		TickInterval:     time.Duration(cfg.Queue.TickSeconds) * time.Second,
		BatchSize:        cfg.Queue.BatchSize,
		Concurrency:      cfg.Queue.ScheduledConcurrency,
		AdHocConcurrency: cfg.Queue.AdHocConcurrency,
	}, logger)
	if err != nil {
		closeQuietly(db, logger)
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	tryOnService := service.NewTryOnService(tryOnStore, scheduler, logger)

	return &application{
		config:       cfg,
		logger:       logger,
		db:           db,
		userStore:    userStore,
		tryOnStore:   tryOnStore,
		blobStore:    blobStore,
		generator:    generator,
		jwtService:   jwtService,
		userService:  userService,
		tryOnService: tryOnService,
		scheduler:    scheduler,
	}, nil
}

// shutdown stops the queue engine and releases held resources. In-flight
// provider calls run to completion before the scheduler returns.
func (app *application) shutdown() {
	app.scheduler.Stop()
	closeQuietly(app.db, app.logger)
}

func closeQuietly(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
