package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ModerationStateModel handles database operations for per-user moderation state.
type ModerationStateModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewModerationState creates a new moderation state model.
func NewModerationState(db *bun.DB, logger *zap.Logger) *ModerationStateModel {
	return &ModerationStateModel{
		db:     db,
		logger: logger.Named("db_moderation_state"),
	}
}

// GetState returns the stored state or the default state for unseen users.
func (r *ModerationStateModel) GetState(ctx context.Context, userID string) (*types.UserModerationState, error) {
	return r.GetStateWithTx(ctx, r.db, userID, false)
}

// GetStateWithTx returns the stored state, optionally locking the row.
func (r *ModerationStateModel) GetStateWithTx(
	ctx context.Context, tx bun.IDB, userID string, forUpdate bool,
) (*types.UserModerationState, error) {
	var state types.UserModerationState
	query := tx.NewSelect().
		Model(&state).
		Where("user_id = ?", userID)
	if forUpdate {
		query = query.For("UPDATE")
	}

	err := query.Scan(ctx)
	if err != nil {
		wrapped := wrapErr(fmt.Sprintf("get moderation state (userID=%s)", userID), err)
		if errors.Is(wrapped, types.ErrNotFound) {
			return types.NewUserModerationState(userID), nil
		}
		return nil, wrapped
	}
	return &state, nil
}

// SaveStateWithTx upserts the user's state.
func (r *ModerationStateModel) SaveStateWithTx(ctx context.Context, tx bun.IDB, state *types.UserModerationState) error {
	_, err := upsertStateQuery(tx, state).Exec(ctx)
	if err != nil {
		return wrapErr(fmt.Sprintf("save moderation state (userID=%s)", state.UserID), err)
	}

	r.logger.Debug("Saved moderation state",
		zap.String("userID", state.UserID),
		zap.Int("openReviewCount", state.OpenReviewCount),
		zap.Int("falseAppealCount", state.FalseAppealCount))

	return nil
}

// upsertStateQuery writes every column explicitly, so zero counters and a
// revoked review right overwrite the stored row.
func upsertStateQuery(tx bun.IDB, state *types.UserModerationState) *bun.InsertQuery {
	return tx.NewInsert().
		Model(state).
		On("CONFLICT (user_id) DO UPDATE")
}
