package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robalyx/imagegate/internal/ai"
	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/memory"
	"github.com/robalyx/imagegate/internal/database/migrations"
	"github.com/robalyx/imagegate/internal/moderation"
	"github.com/robalyx/imagegate/internal/redis"
	"github.com/robalyx/imagegate/internal/rest/handler"
	"github.com/robalyx/imagegate/internal/review"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/robalyx/imagegate/internal/setup/telemetry"
	"github.com/robalyx/imagegate/internal/vision"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the schema is behind the binary.
var ErrPendingMigrations = errors.New("database migrations are pending, run `db migrate` first")

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config        // Application configuration
	Logger       *zap.Logger           // Main application logger
	DBLogger     *zap.Logger           // Database-specific logger
	Store        database.Store        // Document store, PostgreSQL or in-memory
	DB           *database.Client      // PostgreSQL client, nil when running in-memory
	RedisManager *redis.Manager        // Redis connection manager
	Engine       *moderation.Engine    // Moderation pipeline
	Reviews      *review.Manager       // Review case workflow
	Scorers      []moderation.Scorer   // Enabled classifiers
	HealthChecks []handler.HealthCheck // Dependency probes for /healthz
	LogManager   *telemetry.Manager    // Log management system
	closers      []func() error
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, &cfg.Common.Telemetry)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		RedisManager: redis.NewManager(&cfg.Common.Redis, logger),
		LogManager:   logManager,
	}

	// Document store
	if cfg.Common.PostgreSQL.InMemory {
		logger.Warn("Using the in-memory store, data will not survive a restart")
		app.Store = memory.New()
	} else {
		db, err := checkMigrations(ctx, &cfg.Common.PostgreSQL, app.DBLogger)
		if err != nil {
			return nil, err
		}
		app.DB = db
		app.Store = db
		app.closers = append(app.closers, db.Close)
	}
	app.HealthChecks = append(app.HealthChecks, handler.HealthCheck{Name: "store", Check: app.Store.Ping})

	moderationConfig := moderation.ConfigFrom(&cfg.Moderation)

	// Redis digest cache is optional
	var cache moderation.DigestCache
	if client, err := app.RedisManager.GetClient(redis.DigestCacheDBIndex); err == nil {
		cache = redis.NewDigestCache(client, moderationConfig.DigestCacheTTL, logger)
		app.HealthChecks = append(app.HealthChecks, handler.HealthCheck{Name: "redis", Check: app.RedisManager.Ping})
	} else if !errors.Is(err, redis.ErrDisabled) {
		app.Cleanup(ctx)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Scorers
	scorers, err := app.initScorers(ctx)
	if err != nil {
		app.Cleanup(ctx)
		return nil, err
	}
	app.Scorers = scorers

	app.Reviews = review.NewManager(app.Store, review.ConfigFrom(&cfg.Moderation), logger)
	app.Engine = moderation.NewEngine(
		moderationConfig, app.Store, cache, scorers, app.Reviews, logger,
	)

	names := make([]string, 0, len(scorers))
	for _, s := range scorers {
		names = append(names, s.Name())
	}
	logger.Info("Application initialized",
		zap.String("instanceID", logManager.GetInstanceID()),
		zap.Strings("scorers", names),
		zap.Bool("digestCache", cache != nil))

	return app, nil
}

// initScorers builds the enabled classifiers.
func (s *App) initScorers(ctx context.Context) ([]moderation.Scorer, error) {
	var scorers []moderation.Scorer

	if visionCfg := &s.Config.Moderation.Vision; visionCfg.Enabled {
		client, err := vision.NewClient(ctx, visionCfg, s.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}

		annotations := vision.NewSharedAnnotator(client, visionCfg.MaxLabels)
		s.closers = append(s.closers, annotations.Close)

		scorers = append(scorers,
			vision.NewSafeSearchScorer(annotations),
			vision.NewLabelScorer(annotations, vision.DefaultKeywordSets),
		)
	}

	if llmCfg := &s.Config.Moderation.LLM; llmCfg.Enabled {
		client, err := ai.NewGenAIClient(ctx, llmCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		s.closers = append(s.closers, client.Close)

		scorers = append(scorers, ai.NewClassifier(ai.NewModel(client, llmCfg), llmCfg, s.Logger))
	}

	if len(scorers) == 0 {
		s.Logger.Warn("No scorers enabled, every upload will be allowed unless tagged")
	}

	return scorers, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.Logger.Error("Failed to close component", zap.Error(err))
		}
	}

	// Close Redis connections after the store
	s.RedisManager.Close()

	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Flush spans and close the log files last
	s.LogManager.Stop(ctx)
}

// checkMigrations connects to PostgreSQL and refuses to start on a stale schema.
func checkMigrations(ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger) (*database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if unapplied := ms.Unapplied(); len(unapplied) > 0 {
		db.Close()
		dbLogger.Error("Database schema is out of date", zap.String("unapplied", unapplied.String()))
		return nil, ErrPendingMigrations
	}

	return db, nil
}
