package models

import (
	"database/sql"
	"testing"
	"time"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

func TestUpsertStateQueryWritesZeroValues(t *testing.T) {
	t.Parallel()

	// Queries are only rendered; the connector never dials.
	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector()), pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })

	state := &types.UserModerationState{
		UserID:            "user-1",
		CooldownUntil:     time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC),
		ReviewRightsLevel: 0,
		UpdatedAt:         time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	}

	query := upsertStateQuery(db, state).String()
	assert.NotContains(t, query, "DEFAULT")
	assert.Contains(t, query, `"review_rights_level"`)
	// false_appeal_count and review_rights_level render as literal zeros
	assert.Contains(t, query, ", 0, 0, '")
	assert.Contains(t, query, "ON CONFLICT (user_id) DO UPDATE")
}
