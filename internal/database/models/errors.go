package models

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/dbretry"
	"github.com/robalyx/imagegate/internal/database/types"
)

// wrapErr maps driver errors onto the store's error taxonomy.
func wrapErr(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%w: %s", types.ErrNotFound, op)
	case dbretry.IsConflict(err):
		return fmt.Errorf("%w: failed to %s: %w", types.ErrConflict, op, err)
	default:
		return fmt.Errorf("%w: failed to %s: %w", types.ErrPersistence, op, err)
	}
}
