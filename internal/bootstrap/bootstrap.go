// Package bootstrap builds the adapters selected by the config. Shared by
// the API server and the CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryanwahyu/palm-oracle/internal/application"
	appai "github.com/bryanwahyu/palm-oracle/internal/application/ai"
	"github.com/bryanwahyu/palm-oracle/internal/application/history"
	"github.com/bryanwahyu/palm-oracle/internal/application/wizard"
	"github.com/bryanwahyu/palm-oracle/internal/config"
	domai "github.com/bryanwahyu/palm-oracle/internal/domain/ai"
	"github.com/bryanwahyu/palm-oracle/internal/domain/reading"
	"github.com/bryanwahyu/palm-oracle/internal/domain/session"
	"github.com/bryanwahyu/palm-oracle/internal/infra/ai/gemini"
	"github.com/bryanwahyu/palm-oracle/internal/infra/ai/openai"
	"github.com/bryanwahyu/palm-oracle/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/palm-oracle/internal/infra/db/mysql"
	"github.com/bryanwahyu/palm-oracle/internal/infra/db/postgres"
	"github.com/bryanwahyu/palm-oracle/internal/infra/sessionstore"
	minioStore "github.com/bryanwahyu/palm-oracle/internal/infra/storage"
	"github.com/bryanwahyu/palm-oracle/internal/middleware"
)

// App holds the wired services and what must be closed on shutdown.
type App struct {
	Wizard   *wizard.Service
	History  *history.Service
	Checkers map[string]middleware.HealthChecker

	closers []func() error
}

// Close releases DB pools and redis clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires everything the config asks for.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{Checkers: map[string]middleware.HealthChecker{}}

	repo, err := app.openHistory(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	images, err := app.openImages(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	sessions, err := app.openSessions(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Wizard = &wizard.Service{
		Sessions:       sessions,
		Images:         images,
		Oracle:         NewOracle(cfg),
		History:        repo,
		Clock:          application.SystemClock{},
		Log:            log.Named("wizard"),
		MaxImageBytes:  cfg.Wizard.MaxImageBytes,
		AnalyzeTimeout: cfg.AI.Timeout,
	}
	app.History = &history.Service{Repo: repo, Images: images, Log: log.Named("history")}

	log.Info("adapters ready",
		zap.String("provider", cfg.AI.Provider),
		zap.String("model", app.Wizard.Oracle.Model()),
		zap.String("history", cfg.Database.Driver),
		zap.Bool("redis_sessions", cfg.Redis.Addr != ""),
		zap.Bool("minio_images", cfg.Minio.Endpoint != ""),
	)
	return app, nil
}

// NewClient picks the inference provider.
func NewClient(cfg *config.Config) domai.Client {
	if cfg.AI.Provider == "openai" {
		return openai.NewClient(cfg.AIKey, cfg.AI.Model, cfg.AI.BaseURL)
	}
	return gemini.NewClient(gemini.Config{
		Key:            cfg.AIKey,
		Model:          cfg.AI.Model,
		BaseURL:        cfg.AI.BaseURL,
		ThinkingBudget: cfg.AI.ThinkingBudget,
	})
}

func NewOracle(cfg *config.Config) reading.Oracle {
	return appai.NewService(NewClient(cfg), cfg.AI.Locale)
}

func (a *App) openHistory(ctx context.Context, cfg *config.Config) (reading.Repository, error) {
	var db *sql.DB
	var err error
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
	default:
		return memory.NewReadingRepository(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	a.closers = append(a.closers, db.Close)
	a.Checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}

	if cfg.Database.Migrate {
		migrate := mysqlp.Migrate
		if cfg.Database.Driver == "postgres" {
			migrate = postgres.Migrate
		}
		if err := migrate(ctx, db); err != nil {
			return nil, fmt.Errorf("%s migrate: %w", cfg.Database.Driver, err)
		}
	}

	if cfg.Database.Driver == "postgres" {
		return postgres.NewReadingRepository(db), nil
	}
	return mysqlp.NewReadingRepository(db), nil
}

func (a *App) openImages(ctx context.Context, cfg *config.Config) (reading.ImageStore, error) {
	if cfg.Minio.Endpoint == "" {
		return minioStore.NewMemory(), nil
	}
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}
	a.Checkers["storage"] = store
	return store, nil
}

func (a *App) openSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	if cfg.Redis.Addr == "" {
		return sessionstore.NewMemory(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)
	store := sessionstore.NewRedis(client, cfg.Redis.SessionTTL)
	if err := store.Check(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	a.Checkers["redis"] = store
	return store, nil
}
