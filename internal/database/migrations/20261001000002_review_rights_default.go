package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			ALTER TABLE user_moderation_states
			ALTER COLUMN open_review_count SET DEFAULT 0,
			ALTER COLUMN false_appeal_count SET DEFAULT 0,
			ALTER COLUMN review_rights_level SET DEFAULT ?;
		`, types.DefaultReviewRightsLevel).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set moderation state defaults: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewRaw(`
			ALTER TABLE user_moderation_states
			ALTER COLUMN open_review_count DROP DEFAULT,
			ALTER COLUMN false_appeal_count DROP DEFAULT,
			ALTER COLUMN review_rights_level DROP DEFAULT;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to drop moderation state defaults: %w", err)
		}
		return nil
	})
}
