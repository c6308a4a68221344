package review

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/types"
	"go.uber.org/zap"
)

// ClaimResult reports the lock state after a claim attempt.
type ClaimResult struct {
	Claimed   bool      `json:"claimed"`
	ClaimedBy string    `json:"claimedBy"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claim grants moderatorID the case lock, renewing it if they already hold
// it. A lock held by someone else is reported instead. Expired locks are
// treated as free, so no background sweep is needed.
func (m *Manager) Claim(ctx context.Context, caseID, moderatorID string) (ClaimResult, error) {
	if moderatorID == "" {
		return ClaimResult{}, fmt.Errorf("%w: moderator id is required", types.ErrValidation)
	}

	var result ClaimResult
	err := m.store.RunInTx(ctx, func(ctx context.Context, tx database.Tx) error {
		now := m.now()

		reviewCase, err := tx.GetReviewCase(ctx, caseID)
		if err != nil {
			return err
		}
		if !reviewCase.IsOpen() {
			return fmt.Errorf("%w: case %s is %s", types.ErrConflict, caseID, reviewCase.Status)
		}

		if holder := reviewCase.ClaimHolder(now); holder != "" && holder != moderatorID {
			result = ClaimResult{Claimed: false, ClaimedBy: holder, ExpiresAt: reviewCase.ClaimExpiresAt}
			return nil
		}

		reviewCase.ClaimedBy = moderatorID
		reviewCase.ClaimExpiresAt = now.Add(m.config.LockTTL)
		reviewCase.UpdatedAt = now
		if err := tx.SaveReviewCase(ctx, reviewCase); err != nil {
			return err
		}

		result = ClaimResult{Claimed: true, ClaimedBy: moderatorID, ExpiresAt: reviewCase.ClaimExpiresAt}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}

	m.logger.Debug("Claim attempt",
		zap.String("caseID", caseID),
		zap.String("moderatorID", moderatorID),
		zap.Bool("claimed", result.Claimed),
		zap.String("claimedBy", result.ClaimedBy))

	return result, nil
}

// Release drops moderatorID's lock on the case. Releasing a lock held by
// someone else, or no lock at all, does nothing.
func (m *Manager) Release(ctx context.Context, caseID, moderatorID string) error {
	return m.store.RunInTx(ctx, func(ctx context.Context, tx database.Tx) error {
		reviewCase, err := tx.GetReviewCase(ctx, caseID)
		if err != nil {
			return err
		}
		if reviewCase.ClaimedBy == "" || reviewCase.ClaimedBy != moderatorID {
			return nil
		}

		reviewCase.ClaimedBy = ""
		reviewCase.ClaimExpiresAt = time.Time{}
		reviewCase.UpdatedAt = m.now()
		return tx.SaveReviewCase(ctx, reviewCase)
	})
}
