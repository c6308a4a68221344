package models

import (
	"context"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// UploadModel handles database operations for upload records.
type UploadModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUpload creates a new upload model.
func NewUpload(db *bun.DB, logger *zap.Logger) *UploadModel {
	return &UploadModel{
		db:     db,
		logger: logger.Named("db_upload"),
	}
}

// SaveUpload inserts an upload. Uploads are immutable so conflicts are errors.
func (r *UploadModel) SaveUpload(ctx context.Context, upload *types.Upload) error {
	_, err := r.db.NewInsert().
		Model(upload).
		Exec(ctx)
	if err != nil {
		return wrapErr(fmt.Sprintf("insert upload (uploadID=%s)", upload.ID), err)
	}

	r.logger.Debug("Saved upload",
		zap.String("uploadID", upload.ID),
		zap.String("outcome", string(upload.Outcome)))

	return nil
}

// GetUpload retrieves an upload by ID.
func (r *UploadModel) GetUpload(ctx context.Context, id string) (*types.Upload, error) {
	var upload types.Upload
	err := r.db.NewSelect().
		Model(&upload).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("get upload (uploadID=%s)", id), err)
	}
	return &upload, nil
}

// FindByDigest returns the most recent classified upload with the exact digest.
func (r *UploadModel) FindByDigest(ctx context.Context, digest string) (*types.Upload, error) {
	var upload types.Upload
	err := r.db.NewSelect().
		Model(&upload).
		Where("fp_exact_digest = ?", digest).
		Where("matched_upload_id IS NULL").
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr("find upload by digest", err)
	}
	return &upload, nil
}

// ListByPrefix returns up to limit classified uploads in the prefix bucket, newest first.
func (r *UploadModel) ListByPrefix(ctx context.Context, prefix string, limit int) ([]*types.Upload, error) {
	var uploads []*types.Upload
	err := r.db.NewSelect().
		Model(&uploads).
		Where("fp_perceptual_prefix = ?", prefix).
		Where("matched_upload_id IS NULL").
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("list uploads by prefix (prefix=%s)", prefix), err)
	}
	return uploads, nil
}
