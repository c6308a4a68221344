package database

import (
	"github.com/robalyx/imagegate/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	upload   *models.UploadModel
	cases    *models.ReviewCaseModel
	userInfo *models.ModerationStateModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		upload:   models.NewUpload(db, logger),
		cases:    models.NewReviewCase(db, logger),
		userInfo: models.NewModerationState(db, logger),
	}
}

// Upload returns the upload model repository.
func (r *Repository) Upload() *models.UploadModel {
	return r.upload
}

// ReviewCase returns the review case model repository.
func (r *Repository) ReviewCase() *models.ReviewCaseModel {
	return r.cases
}

// ModerationState returns the moderation state model repository.
func (r *Repository) ModerationState() *models.ModerationStateModel {
	return r.userInfo
}
