package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"

	"github.com/robalyx/imagegate/cmd/db/commands"
	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/migrations"
	"github.com/robalyx/imagegate/internal/review"
	"github.com/robalyx/imagegate/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Setup dependencies
	deps, cfg, err := setupDependencies(ctx)
	if err != nil {
		return fmt.Errorf("failed to setup dependencies: %w", err)
	}
	defer deps.DB.Close()

	reviews := review.NewManager(deps.DB, review.ConfigFrom(&cfg.Moderation), deps.Logger)

	app := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: slices.Concat(
			commands.MigrationCommands(deps),
			commands.CaseCommands(deps, reviews),
		),
	}

	return app.Run(ctx, os.Args)
}

// setupDependencies loads configuration and connects to PostgreSQL.
func setupDependencies(ctx context.Context) (*commands.CLIDependencies, *config.Config, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, logger, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &commands.CLIDependencies{
		DB:       db,
		Migrator: migrate.NewMigrator(db.DB(), migrations.Migrations),
		Logger:   logger,
	}, cfg, nil
}
