package review

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DecisionRequest is a moderator's verdict on a review case.
type DecisionRequest struct {
	CaseID       string
	ModeratorID  string
	Decision     enum.Decision
	Message      string
	Reasons      []enum.DecisionReason
	InternalNote string
}

// Validate checks the request without touching the store.
func (r *DecisionRequest) Validate(cfg Config) error {
	if !r.Decision.IsValid() {
		return fmt.Errorf("%w: unknown decision %q", types.ErrValidation, r.Decision)
	}

	message := normalizeMessage(r.Message)
	if message == "" {
		return fmt.Errorf("%w: decision message is required", types.ErrValidation)
	}
	if utf8.RuneCountInString(message) > cfg.MaxMessageLength {
		return fmt.Errorf("%w: decision message exceeds %d characters", types.ErrValidation, cfg.MaxMessageLength)
	}

	if len(r.Reasons) > cfg.MaxReasons {
		return fmt.Errorf("%w: at most %d reasons allowed", types.ErrValidation, cfg.MaxReasons)
	}
	for i, reason := range r.Reasons {
		if !reason.IsValid() {
			return fmt.Errorf("%w: unknown reason %q", types.ErrValidation, reason)
		}
		if slices.Contains(r.Reasons[:i], reason) {
			return fmt.Errorf("%w: duplicate reason %q", types.ErrValidation, reason)
		}
	}

	// Mislabelled tags call for re-tagging, not rejection.
	if r.Decision == enum.DecisionRejected && len(r.Reasons) == 1 &&
		r.Reasons[0] == enum.DecisionReasonMissingOrIncorrectTags {
		return fmt.Errorf("%w: %s alone cannot reject a case",
			types.ErrValidation, enum.DecisionReasonMissingOrIncorrectTags)
	}

	return nil
}

// RecordDecision resolves an open case, releases its lock and updates the
// owner's state. A rejected upload case counts as a false appeal and may
// start a cooldown.
func (m *Manager) RecordDecision(ctx context.Context, req DecisionRequest) (*types.ReviewCase, error) {
	if err := req.Validate(m.config); err != nil {
		return nil, err
	}

	var resolved *types.ReviewCase
	var state *types.UserModerationState
	err := m.store.RunInTx(ctx, func(ctx context.Context, tx database.Tx) error {
		now := m.now()

		reviewCase, err := tx.GetReviewCase(ctx, req.CaseID)
		if err != nil {
			return err
		}
		if !reviewCase.IsOpen() {
			return fmt.Errorf("%w: case %s is already %s", types.ErrConflict, req.CaseID, reviewCase.Status)
		}
		if holder := reviewCase.ClaimHolder(now); holder != "" && req.ModeratorID != "" && holder != req.ModeratorID {
			return fmt.Errorf("%w: case %s is claimed by %s", types.ErrConflict, req.CaseID, holder)
		}

		reviewCase.Status = enum.ReviewStatusResolved
		reviewCase.Decision = req.Decision
		reviewCase.DecisionMessagePublic = normalizeMessage(req.Message)
		reviewCase.DecisionReasons = slices.Clone(req.Reasons)
		reviewCase.ModeratorNoteInternal = strings.TrimSpace(req.InternalNote)
		reviewCase.ClaimedBy = ""
		reviewCase.ClaimExpiresAt = time.Time{}
		reviewCase.ResolvedBy = req.ModeratorID
		reviewCase.ResolvedAt = now
		reviewCase.UpdatedAt = now
		if err := tx.SaveReviewCase(ctx, reviewCase); err != nil {
			return err
		}

		state, err = tx.GetUserState(ctx, reviewCase.UserID)
		if err != nil {
			return err
		}
		state.OpenReviewCount = 0
		if req.Decision == enum.DecisionRejected && reviewCase.CaseType == enum.CaseTypeUpload {
			state.RegisterFalseAppeal(now, m.config.FalseAppealThreshold, m.config.Cooldown)
		}
		state.UpdatedAt = now
		if err := tx.SaveUserState(ctx, state); err != nil {
			return err
		}

		resolved = reviewCase
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Recorded decision",
		zap.String("caseID", resolved.ID),
		zap.String("moderatorID", req.ModeratorID),
		zap.String("decision", string(req.Decision)),
		zap.Int("falseAppealCount", state.FalseAppealCount),
		zap.Time("cooldownUntil", state.CooldownUntil))

	return resolved, nil
}

// normalizeMessage composes the message into NFC so that length limits count
// characters the way a reader sees them.
func normalizeMessage(message string) string {
	return norm.NFC.String(strings.TrimSpace(message))
}
