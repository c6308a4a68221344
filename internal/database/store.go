package database

import (
	"context"

	"github.com/robalyx/imagegate/internal/database/types"
)

// Store is the transactional document store behind the moderation engine.
// Implementations return types.ErrNotFound for missing documents and wrap
// backend failures with types.ErrPersistence.
type Store interface {
	// SaveUpload inserts a new upload record.
	SaveUpload(ctx context.Context, upload *types.Upload) error
	// GetUpload fetches an upload by ID.
	GetUpload(ctx context.Context, id string) (*types.Upload, error)
	// FindUploadByDigest returns the most recent classified upload with the digest.
	FindUploadByDigest(ctx context.Context, digest string) (*types.Upload, error)
	// ListUploadsByPrefix returns up to limit classified uploads sharing the
	// perceptual prefix, newest first.
	ListUploadsByPrefix(ctx context.Context, prefix string, limit int) ([]*types.Upload, error)

	// GetReviewCase fetches a review case by ID.
	GetReviewCase(ctx context.Context, id string) (*types.ReviewCase, error)
	// ListOpenReviewCases returns up to limit open cases, oldest first.
	ListOpenReviewCases(ctx context.Context, limit int) ([]*types.ReviewCase, error)
	// GetUserState returns the user's moderation state, or the default state if none exists.
	GetUserState(ctx context.Context, userID string) (*types.UserModerationState, error)

	// RunInTx runs fn inside a serializable transaction. Documents read
	// through tx stay locked until fn returns. Returning an error rolls back.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Tx is the read-modify-write view of the store used inside RunInTx.
type Tx interface {
	// GetUserState loads and locks the user's state, returning the default state if none exists.
	GetUserState(ctx context.Context, userID string) (*types.UserModerationState, error)
	// SaveUserState upserts the user's state.
	SaveUserState(ctx context.Context, state *types.UserModerationState) error
	// FindOpenReviewCase loads and locks the user's open case, or returns types.ErrNotFound.
	FindOpenReviewCase(ctx context.Context, userID string) (*types.ReviewCase, error)
	// GetReviewCase loads and locks a case by ID.
	GetReviewCase(ctx context.Context, id string) (*types.ReviewCase, error)
	// SaveReviewCase upserts a case.
	SaveReviewCase(ctx context.Context, reviewCase *types.ReviewCase) error
}
