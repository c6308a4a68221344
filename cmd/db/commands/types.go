package commands

import (
	"errors"

	"github.com/robalyx/imagegate/internal/database"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var (
	ErrNameRequired = errors.New("NAME argument required")
	ErrCaseRequired = errors.New("CASE_ID argument required")
	ErrUserRequired = errors.New("USER_ID argument required")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	DB       *database.Client
	Migrator *migrate.Migrator
	Logger   *zap.Logger
}
