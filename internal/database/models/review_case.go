package models

import (
	"context"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ReviewCaseModel handles database operations for review cases.
type ReviewCaseModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewReviewCase creates a new review case model.
func NewReviewCase(db *bun.DB, logger *zap.Logger) *ReviewCaseModel {
	return &ReviewCaseModel{
		db:     db,
		logger: logger.Named("db_review_case"),
	}
}

// GetReviewCase retrieves a case by ID without locking it.
func (r *ReviewCaseModel) GetReviewCase(ctx context.Context, id string) (*types.ReviewCase, error) {
	return r.GetReviewCaseWithTx(ctx, r.db, id, false)
}

// GetReviewCaseWithTx retrieves a case by ID, optionally locking the row.
func (r *ReviewCaseModel) GetReviewCaseWithTx(
	ctx context.Context, tx bun.IDB, id string, forUpdate bool,
) (*types.ReviewCase, error) {
	var reviewCase types.ReviewCase
	query := tx.NewSelect().
		Model(&reviewCase).
		Where("id = ?", id)
	if forUpdate {
		query = query.For("UPDATE")
	}

	if err := query.Scan(ctx); err != nil {
		return nil, wrapErr(fmt.Sprintf("get review case (caseID=%s)", id), err)
	}
	return &reviewCase, nil
}

// FindOpenForUserWithTx locks and returns the user's open case.
func (r *ReviewCaseModel) FindOpenForUserWithTx(
	ctx context.Context, tx bun.IDB, userID string,
) (*types.ReviewCase, error) {
	var reviewCase types.ReviewCase
	err := tx.NewSelect().
		Model(&reviewCase).
		Where("user_id = ?", userID).
		Where("status = ?", enum.ReviewStatusInReview).
		Order("created_at ASC").
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("find open review case (userID=%s)", userID), err)
	}
	return &reviewCase, nil
}

// ListOpen returns up to limit open cases, oldest first.
func (r *ReviewCaseModel) ListOpen(ctx context.Context, limit int) ([]*types.ReviewCase, error) {
	var cases []*types.ReviewCase
	err := r.db.NewSelect().
		Model(&cases).
		Where("status = ?", enum.ReviewStatusInReview).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("list open review cases", err)
	}
	return cases, nil
}

// SaveReviewCaseWithTx inserts or fully replaces a case.
func (r *ReviewCaseModel) SaveReviewCaseWithTx(ctx context.Context, tx bun.IDB, reviewCase *types.ReviewCase) error {
	_, err := tx.NewInsert().
		Model(reviewCase).
		On("CONFLICT (id) DO UPDATE").
		Exec(ctx)
	if err != nil {
		return wrapErr(fmt.Sprintf("save review case (caseID=%s)", reviewCase.ID), err)
	}

	r.logger.Debug("Saved review case",
		zap.String("caseID", reviewCase.ID),
		zap.String("status", string(reviewCase.Status)))

	return nil
}
