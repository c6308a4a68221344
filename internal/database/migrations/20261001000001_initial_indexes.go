package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			-- Exact duplicate lookups over classified uploads
			CREATE INDEX IF NOT EXISTS idx_uploads_digest_time
			ON uploads (fp_exact_digest, created_at DESC)
			WHERE matched_upload_id IS NULL;

			-- Perceptual bucket scans over classified uploads
			CREATE INDEX IF NOT EXISTS idx_uploads_prefix_time
			ON uploads (fp_perceptual_prefix, created_at DESC)
			WHERE matched_upload_id IS NULL;

			-- At most one open case per user
			CREATE UNIQUE INDEX IF NOT EXISTS idx_review_cases_one_open_per_user
			ON review_cases (user_id)
			WHERE status = ?;

			-- Moderator queue
			CREATE INDEX IF NOT EXISTS idx_review_cases_status_created
			ON review_cases (status, created_at ASC);
		`, enum.ReviewStatusInReview).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			DROP INDEX IF EXISTS idx_uploads_digest_time;
			DROP INDEX IF EXISTS idx_uploads_prefix_time;
			DROP INDEX IF EXISTS idx_review_cases_one_open_per_user;
			DROP INDEX IF EXISTS idx_review_cases_status_created;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop indexes: %w", err)
		}
		return nil
	})
}
