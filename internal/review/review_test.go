package review_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/memory"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/robalyx/imagegate/internal/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTest(t *testing.T) (*review.Manager, *memory.Store, *clock) {
	t.Helper()

	store := memory.New()
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	manager := review.NewManager(store, review.DefaultConfig(), zap.NewNop()).WithClock(clk.Now)
	return manager, store, clk
}

func fp(n int) types.Fingerprint {
	hash := strings.Repeat("0", 15) + string(rune('0'+n))
	return types.Fingerprint{ExactDigest: strings.Repeat("a", 63) + string(rune('0'+n)), PerceptualHash: hash, PerceptualPrefix: hash[:4]}
}

func saveState(t *testing.T, store *memory.Store, state *types.UserModerationState) {
	t.Helper()
	require.NoError(t, store.RunInTx(t.Context(), func(ctx context.Context, tx database.Tx) error {
		return tx.SaveUserState(ctx, state)
	}))
}

func forbidden(userID, uploadID string, n int) review.CaseRequest {
	return review.CaseRequest{UserID: userID, UploadID: uploadID, Fingerprint: fp(n)}
}

func TestHandleForbidden(t *testing.T) {
	t.Parallel()

	t.Run("creates then reuses", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()

		first, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)
		assert.True(t, first.Created)
		assert.False(t, first.CanRequestReview())
		require.NotEmpty(t, first.ReviewCaseID)

		second, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-2", 2))
		require.NoError(t, err)
		assert.True(t, second.Existed)
		assert.False(t, second.Created)
		assert.False(t, second.CanRequestReview())
		assert.Equal(t, first.ReviewCaseID, second.ReviewCaseID)

		reviewCase, err := store.GetReviewCase(ctx, first.ReviewCaseID)
		require.NoError(t, err)
		assert.Equal(t, []string{"upload-1", "upload-2"}, reviewCase.LinkedUploadIDs)
		assert.Len(t, reviewCase.Fingerprints, 2)
		assert.Equal(t, enum.CaseTypeUpload, reviewCase.CaseType)

		state, err := store.GetUserState(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, state.OpenReviewCount)
	})

	t.Run("cooldown blocks new cases", func(t *testing.T) {
		t.Parallel()
		manager, store, clk := setupTest(t)
		ctx := t.Context()

		state := types.NewUserModerationState("user-1")
		state.CooldownUntil = clk.Now().Add(time.Hour)
		saveState(t, store, state)

		result, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)
		assert.True(t, result.InCooldown)
		assert.Empty(t, result.ReviewCaseID)
		assert.False(t, result.CanRequestReview())

		clk.Advance(2 * time.Hour)
		result, err = manager.HandleForbidden(ctx, forbidden("user-1", "upload-2", 2))
		require.NoError(t, err)
		assert.True(t, result.Created)
	})

	t.Run("no review rights", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()

		state := types.NewUserModerationState("user-1")
		state.ReviewRightsLevel = 0
		saveState(t, store, state)

		result, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)
		assert.True(t, result.NoReviewRights)
		assert.Empty(t, result.ReviewCaseID)
		assert.False(t, result.CanRequestReview())
	})

	t.Run("requires user", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)

		_, err := manager.HandleForbidden(t.Context(), forbidden("", "upload-1", 1))
		require.ErrorIs(t, err, types.ErrValidation)
	})

	t.Run("at most one open case under concurrency", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-"+string(rune('a'+i)), i%10))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		cases, err := store.ListOpenReviewCases(ctx, 100)
		require.NoError(t, err)
		require.Len(t, cases, 1)
		assert.Len(t, cases[0].LinkedUploadIDs, 20)

		state, err := store.GetUserState(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, state.OpenReviewCount)
	})

	t.Run("resubmitting rejected content escalates", func(t *testing.T) {
		t.Parallel()
		manager, store, clk := setupTest(t)
		ctx := t.Context()

		opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)

		_, err = manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID:   opened.ReviewCaseID,
			Decision: enum.DecisionRejected,
			Message:  "This image is not allowed.",
			Reasons:  []enum.DecisionReason{enum.DecisionReasonSexualContent},
		})
		require.NoError(t, err)

		state, err := store.GetUserState(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, state.FalseAppealCount)
		assert.True(t, state.CooldownUntil.IsZero())

		req := forbidden("user-1", "upload-2", 1)
		req.ReferencedCaseID = opened.ReviewCaseID
		result, err := manager.HandleForbidden(ctx, req)
		require.NoError(t, err)
		assert.True(t, result.FalseAppeal)
		assert.True(t, result.InCooldown)
		assert.Empty(t, result.ReviewCaseID)

		state, err = store.GetUserState(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, state.FalseAppealCount)
		assert.WithinDuration(t, clk.Now().Add(7*24*time.Hour), state.CooldownUntil, time.Second)
	})

	t.Run("other users' rejected cases do not escalate", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()

		opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)
		_, err = manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID:   opened.ReviewCaseID,
			Decision: enum.DecisionRejected,
			Message:  "Rejected.",
		})
		require.NoError(t, err)

		req := forbidden("user-2", "upload-2", 1)
		req.ReferencedCaseID = opened.ReviewCaseID
		result, err := manager.HandleForbidden(ctx, req)
		require.NoError(t, err)
		assert.False(t, result.FalseAppeal)
		assert.True(t, result.Created)

		state, err := store.GetUserState(ctx, "user-2")
		require.NoError(t, err)
		assert.Equal(t, 0, state.FalseAppealCount)
	})
}

func TestCooldownEscalationScenario(t *testing.T) {
	t.Parallel()
	manager, store, clk := setupTest(t)
	ctx := t.Context()

	state := types.NewUserModerationState("user-1")
	state.FalseAppealCount = 1
	saveState(t, store, state)

	opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
	require.NoError(t, err)
	require.True(t, opened.Created)

	_, err = manager.RecordDecision(ctx, review.DecisionRequest{
		CaseID:      opened.ReviewCaseID,
		ModeratorID: "mod-1",
		Decision:    enum.DecisionRejected,
		Message:     "Upheld.",
		Reasons:     []enum.DecisionReason{enum.DecisionReasonGraphicViolence},
	})
	require.NoError(t, err)

	state, err = store.GetUserState(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.FalseAppealCount)
	assert.Equal(t, 0, state.OpenReviewCount)
	assert.WithinDuration(t, clk.Now().Add(7*24*time.Hour), state.CooldownUntil, time.Second)

	result, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-2", 2))
	require.NoError(t, err)
	assert.True(t, result.InCooldown)
	assert.False(t, result.CanRequestReview())
	assert.Empty(t, result.ReviewCaseID)

	cases, err := store.ListOpenReviewCases(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, cases)
}

func TestClearCooldown(t *testing.T) {
	t.Parallel()
	manager, store, clk := setupTest(t)
	ctx := t.Context()

	state := types.NewUserModerationState("user-1")
	state.FalseAppealCount = 2
	state.CooldownUntil = clk.Now().Add(24 * time.Hour)
	saveState(t, store, state)

	cleared, err := manager.ClearCooldown(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, cleared.FalseAppealCount)
	assert.False(t, cleared.InCooldown(clk.Now()))

	result, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestRevokedReviewRightsSurviveDecision(t *testing.T) {
	t.Parallel()
	manager, store, _ := setupTest(t)
	ctx := t.Context()

	opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
	require.NoError(t, err)

	state, err := manager.GetUserState(ctx, "user-1")
	require.NoError(t, err)
	state.ReviewRightsLevel = 0
	saveState(t, store, state)

	_, err = manager.RecordDecision(ctx, review.DecisionRequest{
		CaseID:   opened.ReviewCaseID,
		Decision: enum.DecisionRejected,
		Message:  "Explicit content.",
		Reasons:  []enum.DecisionReason{enum.DecisionReasonSexualContent},
	})
	require.NoError(t, err)

	after, err := manager.GetUserState(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, after.ReviewRightsLevel)

	result, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-2", 2))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.False(t, result.CanRequestReview())
}

func TestClaim(t *testing.T) {
	t.Parallel()

	openCase := func(t *testing.T, manager *review.Manager) string {
		t.Helper()
		result, err := manager.HandleForbidden(t.Context(), forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)
		return result.ReviewCaseID
	}

	t.Run("mutual exclusion", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)
		caseID := openCase(t, manager)

		results := make([]review.ClaimResult, 2)
		var wg sync.WaitGroup
		for i, moderator := range []string{"mod-a", "mod-b"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := manager.Claim(t.Context(), caseID, moderator)
				assert.NoError(t, err)
				results[i] = result
			}()
		}
		wg.Wait()

		claimed := 0
		var winner string
		for _, r := range results {
			if r.Claimed {
				claimed++
				winner = r.ClaimedBy
			}
		}
		require.Equal(t, 1, claimed)
		for _, r := range results {
			if !r.Claimed {
				assert.Equal(t, winner, r.ClaimedBy)
			}
		}
	})

	t.Run("renew extends expiry", func(t *testing.T) {
		t.Parallel()
		manager, _, clk := setupTest(t)
		caseID := openCase(t, manager)
		ctx := t.Context()

		first, err := manager.Claim(ctx, caseID, "mod-a")
		require.NoError(t, err)
		require.True(t, first.Claimed)

		clk.Advance(time.Minute)
		renewed, err := manager.Claim(ctx, caseID, "mod-a")
		require.NoError(t, err)
		assert.True(t, renewed.Claimed)
		assert.True(t, renewed.ExpiresAt.After(first.ExpiresAt))
	})

	t.Run("expired lock is free", func(t *testing.T) {
		t.Parallel()
		manager, _, clk := setupTest(t)
		caseID := openCase(t, manager)
		ctx := t.Context()

		_, err := manager.Claim(ctx, caseID, "mod-a")
		require.NoError(t, err)

		blocked, err := manager.Claim(ctx, caseID, "mod-b")
		require.NoError(t, err)
		assert.False(t, blocked.Claimed)
		assert.Equal(t, "mod-a", blocked.ClaimedBy)

		clk.Advance(6 * time.Minute)
		taken, err := manager.Claim(ctx, caseID, "mod-b")
		require.NoError(t, err)
		assert.True(t, taken.Claimed)
		assert.Equal(t, "mod-b", taken.ClaimedBy)
	})

	t.Run("release", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		caseID := openCase(t, manager)
		ctx := t.Context()

		_, err := manager.Claim(ctx, caseID, "mod-a")
		require.NoError(t, err)

		require.NoError(t, manager.Release(ctx, caseID, "mod-b"))
		reviewCase, err := store.GetReviewCase(ctx, caseID)
		require.NoError(t, err)
		assert.Equal(t, "mod-a", reviewCase.ClaimedBy)

		require.NoError(t, manager.Release(ctx, caseID, "mod-a"))
		reviewCase, err = store.GetReviewCase(ctx, caseID)
		require.NoError(t, err)
		assert.Empty(t, reviewCase.ClaimedBy)
		assert.True(t, reviewCase.ClaimExpiresAt.IsZero())

		result, err := manager.Claim(ctx, caseID, "mod-b")
		require.NoError(t, err)
		assert.True(t, result.Claimed)
	})

	t.Run("resolved case cannot be claimed", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)
		caseID := openCase(t, manager)
		ctx := t.Context()

		_, err := manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID: caseID, Decision: enum.DecisionApproved, Message: "Looks fine.",
		})
		require.NoError(t, err)

		_, err = manager.Claim(ctx, caseID, "mod-a")
		require.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("unknown case", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)

		_, err := manager.Claim(t.Context(), "missing", "mod-a")
		require.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRecordDecision(t *testing.T) {
	t.Parallel()

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			req  review.DecisionRequest
		}{
			{"empty message", review.DecisionRequest{Decision: enum.DecisionApproved, Message: "  "}},
			{"long message", review.DecisionRequest{Decision: enum.DecisionApproved, Message: strings.Repeat("é", 281)}},
			{"unknown decision", review.DecisionRequest{Decision: "maybe", Message: "ok"}},
			{"too many reasons", review.DecisionRequest{
				Decision: enum.DecisionRejected, Message: "no",
				Reasons: []enum.DecisionReason{
					enum.DecisionReasonSpam, enum.DecisionReasonSelfHarm,
					enum.DecisionReasonHateSymbols, enum.DecisionReasonOther,
				},
			}},
			{"unknown reason", review.DecisionRequest{
				Decision: enum.DecisionRejected, Message: "no",
				Reasons:  []enum.DecisionReason{"vibes"},
			}},
			{"duplicate reason", review.DecisionRequest{
				Decision: enum.DecisionRejected, Message: "no",
				Reasons:  []enum.DecisionReason{enum.DecisionReasonSpam, enum.DecisionReasonSpam},
			}},
			{"tags reason alone", review.DecisionRequest{
				Decision: enum.DecisionRejected, Message: "no",
				Reasons:  []enum.DecisionReason{enum.DecisionReasonMissingOrIncorrectTags},
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				manager, _, _ := setupTest(t)
				opened, err := manager.HandleForbidden(t.Context(), forbidden("user-1", "upload-1", 1))
				require.NoError(t, err)

				req := tt.req
				req.CaseID = opened.ReviewCaseID
				_, err = manager.RecordDecision(t.Context(), req)
				require.ErrorIs(t, err, types.ErrValidation)
			})
		}
	})

	t.Run("message at the limit is accepted", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)
		ctx := t.Context()
		opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)

		_, err = manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID:   opened.ReviewCaseID,
			Decision: enum.DecisionApproved,
			Message:  strings.Repeat("é", 280),
			Reasons:  []enum.DecisionReason{enum.DecisionReasonMissingOrIncorrectTags},
		})
		require.NoError(t, err)
	})

	t.Run("decomposed message is composed before counting", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)
		ctx := t.Context()
		opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)

		resolved, err := manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID:   opened.ReviewCaseID,
			Decision: enum.DecisionApproved,
			Message:  strings.Repeat("é", 280),
			Reasons:  []enum.DecisionReason{enum.DecisionReasonMissingOrIncorrectTags},
		})
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("é", 280), resolved.DecisionMessagePublic)
	})

	t.Run("tags reason with another reason rejects", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)
		ctx := t.Context()
		opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)

		resolved, err := manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID:       opened.ReviewCaseID,
			ModeratorID:  "mod-a",
			Decision:     enum.DecisionRejected,
			Message:      "Explicit content.",
			Reasons:      []enum.DecisionReason{enum.DecisionReasonMissingOrIncorrectTags, enum.DecisionReasonSexualContent},
			InternalNote: "second offence",
		})
		require.NoError(t, err)
		assert.Equal(t, enum.ReviewStatusResolved, resolved.Status)
		assert.Equal(t, enum.DecisionRejected, resolved.Decision)
		assert.Equal(t, "second offence", resolved.ModeratorNoteInternal)
		assert.Equal(t, "mod-a", resolved.ResolvedBy)
	})

	t.Run("releases lock and clears open count", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()
		opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)

		_, err = manager.Claim(ctx, opened.ReviewCaseID, "mod-a")
		require.NoError(t, err)

		resolved, err := manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID:      opened.ReviewCaseID,
			ModeratorID: "mod-a",
			Decision:    enum.DecisionApproved,
			Message:     "Approved.",
		})
		require.NoError(t, err)
		assert.Empty(t, resolved.ClaimedBy)

		state, err := store.GetUserState(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 0, state.OpenReviewCount)
		assert.Equal(t, 0, state.FalseAppealCount)
	})

	t.Run("conflicts", func(t *testing.T) {
		t.Parallel()
		manager, _, _ := setupTest(t)
		ctx := t.Context()
		opened, err := manager.HandleForbidden(ctx, forbidden("user-1", "upload-1", 1))
		require.NoError(t, err)

		_, err = manager.Claim(ctx, opened.ReviewCaseID, "mod-a")
		require.NoError(t, err)

		req := review.DecisionRequest{
			CaseID:      opened.ReviewCaseID,
			ModeratorID: "mod-b",
			Decision:    enum.DecisionApproved,
			Message:     "Approved.",
		}
		_, err = manager.RecordDecision(ctx, req)
		require.ErrorIs(t, err, types.ErrConflict)

		req.ModeratorID = "mod-a"
		_, err = manager.RecordDecision(ctx, req)
		require.NoError(t, err)

		_, err = manager.RecordDecision(ctx, req)
		require.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestRequestReviewAndReports(t *testing.T) {
	t.Parallel()

	saveUpload := func(t *testing.T, store *memory.Store, id, userID string, outcome enum.Outcome) {
		t.Helper()
		require.NoError(t, store.SaveUpload(t.Context(), &types.Upload{
			ID: id, UserID: userID, Outcome: outcome, Fingerprint: fp(1), MatchDistance: -1,
			CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}))
	}

	t.Run("request review opens case", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()
		saveUpload(t, store, "upload-1", "user-1", enum.OutcomeForbidden)

		reviewCase, err := manager.RequestReview(ctx, "upload-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"upload-1"}, reviewCase.LinkedUploadIDs)

		state, err := store.GetUserState(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 1, state.OpenReviewCount)
	})

	t.Run("request review rules", func(t *testing.T) {
		t.Parallel()
		manager, store, clk := setupTest(t)
		ctx := t.Context()
		saveUpload(t, store, "allowed", "user-1", enum.OutcomeAllowed)
		saveUpload(t, store, "forbidden", "user-1", enum.OutcomeForbidden)

		_, err := manager.RequestReview(ctx, "allowed", "user-1")
		require.ErrorIs(t, err, types.ErrConflict)

		_, err = manager.RequestReview(ctx, "forbidden", "user-2")
		require.ErrorIs(t, err, types.ErrNotFound)

		state := types.NewUserModerationState("user-1")
		state.CooldownUntil = clk.Now().Add(time.Hour)
		saveState(t, store, state)
		_, err = manager.RequestReview(ctx, "forbidden", "user-1")
		require.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("report opens report case without rights", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()
		saveUpload(t, store, "upload-1", "user-1", enum.OutcomeAllowed)

		state := types.NewUserModerationState("user-1")
		state.ReviewRightsLevel = 0
		saveState(t, store, state)

		reviewCase, err := manager.FileReport(ctx, review.ReportRequest{
			UploadID: "upload-1", ReporterID: "user-9", Note: "spiders without a warning",
		})
		require.NoError(t, err)
		assert.Equal(t, enum.CaseTypeReport, reviewCase.CaseType)
		assert.Equal(t, "spiders without a warning", reviewCase.ReportNote)

		again, err := manager.FileReport(ctx, review.ReportRequest{UploadID: "upload-1", ReporterID: "user-8"})
		require.NoError(t, err)
		assert.Equal(t, reviewCase.ID, again.ID)
	})

	t.Run("rejected report is not a false appeal", func(t *testing.T) {
		t.Parallel()
		manager, store, _ := setupTest(t)
		ctx := t.Context()
		saveUpload(t, store, "upload-1", "user-1", enum.OutcomeAllowed)

		reviewCase, err := manager.FileReport(ctx, review.ReportRequest{UploadID: "upload-1", ReporterID: "user-9"})
		require.NoError(t, err)

		_, err = manager.RecordDecision(ctx, review.DecisionRequest{
			CaseID:   reviewCase.ID,
			Decision: enum.DecisionRejected,
			Message:  "Removed.",
			Reasons:  []enum.DecisionReason{enum.DecisionReasonPhobiaTrigger},
		})
		require.NoError(t, err)

		state, err := store.GetUserState(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 0, state.FalseAppealCount)
	})
}
