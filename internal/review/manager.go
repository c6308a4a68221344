package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"go.uber.org/zap"
)

// CaseRequest describes a forbidden upload that needs a review case.
type CaseRequest struct {
	UserID      string
	UploadID    string
	Fingerprint types.Fingerprint
	// ReferencedCaseID is the case of the upload this one was matched against, if any.
	ReferencedCaseID string
}

// CaseResult reports what happened to the review case for an upload.
type CaseResult struct {
	ReviewCaseID   string
	Created        bool
	Existed        bool
	InCooldown     bool
	NoReviewRights bool
	// FalseAppeal is set when the upload re-submitted content from a rejected case.
	FalseAppeal bool
}

// CanRequestReview reports whether the user may still ask for a review:
// nothing is pending and nothing bars a new case.
func (r CaseResult) CanRequestReview() bool {
	return !r.InCooldown && !r.Existed && !r.Created && !r.NoReviewRights
}

// ReportRequest describes a community report against an upload.
type ReportRequest struct {
	UploadID   string
	ReporterID string
	Note       string
}

// Manager creates and reuses review cases while keeping per-user state consistent.
type Manager struct {
	store  database.Store
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a review manager.
func NewManager(store database.Store, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		config: cfg,
		logger: logger.Named("review"),
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// HandleForbidden opens or reuses the user's review case for a forbidden
// upload. Checks run in order inside one transaction: false-appeal escalation,
// cooldown, existing open case, then creation.
func (m *Manager) HandleForbidden(ctx context.Context, req CaseRequest) (CaseResult, error) {
	if req.UserID == "" {
		return CaseResult{}, fmt.Errorf("%w: review cases require a user", types.ErrValidation)
	}

	var result CaseResult
	err := m.store.RunInTx(ctx, func(ctx context.Context, tx database.Tx) error {
		result = CaseResult{}
		now := m.now()

		state, err := tx.GetUserState(ctx, req.UserID)
		if err != nil {
			return err
		}

		dirty := false
		if req.ReferencedCaseID != "" {
			escalated, err := m.checkFalseAppeal(ctx, tx, state, req, now)
			if err != nil {
				return err
			}
			result.FalseAppeal = escalated
			dirty = escalated
		}

		if state.InCooldown(now) {
			result.InCooldown = true
			return m.saveStateIf(ctx, tx, state, dirty, now)
		}

		open, err := tx.FindOpenReviewCase(ctx, req.UserID)
		switch {
		case err == nil:
			open.LinkUpload(req.UploadID, req.Fingerprint)
			open.UpdatedAt = now
			if err := tx.SaveReviewCase(ctx, open); err != nil {
				return err
			}
			if state.OpenReviewCount != 1 {
				m.logger.Warn("Repairing open review count",
					zap.String("userID", req.UserID),
					zap.Int("openReviewCount", state.OpenReviewCount))
				state.OpenReviewCount = 1
				dirty = true
			}
			result.ReviewCaseID = open.ID
			result.Existed = true
			return m.saveStateIf(ctx, tx, state, dirty, now)
		case !errors.Is(err, types.ErrNotFound):
			return err
		}

		if state.OpenReviewCount != 0 {
			m.logger.Warn("Repairing open review count",
				zap.String("userID", req.UserID),
				zap.Int("openReviewCount", state.OpenReviewCount))
			state.OpenReviewCount = 0
			dirty = true
		}

		if state.ReviewRightsLevel <= 0 {
			result.NoReviewRights = true
			return m.saveStateIf(ctx, tx, state, dirty, now)
		}

		reviewCase := newCase(req.UserID, enum.CaseTypeUpload, now)
		reviewCase.LinkUpload(req.UploadID, req.Fingerprint)
		if err := tx.SaveReviewCase(ctx, reviewCase); err != nil {
			return err
		}

		state.OpenReviewCount = 1
		result.ReviewCaseID = reviewCase.ID
		result.Created = true
		return m.saveStateIf(ctx, tx, state, true, now)
	})
	if err != nil {
		return CaseResult{}, err
	}

	m.logger.Info("Handled forbidden upload",
		zap.String("userID", req.UserID),
		zap.String("uploadID", req.UploadID),
		zap.String("caseID", result.ReviewCaseID),
		zap.Bool("created", result.Created),
		zap.Bool("existed", result.Existed),
		zap.Bool("inCooldown", result.InCooldown),
		zap.Bool("falseAppeal", result.FalseAppeal))

	return result, nil
}

// checkFalseAppeal escalates the user's state when the referenced case was
// theirs and was rejected.
func (m *Manager) checkFalseAppeal(
	ctx context.Context, tx database.Tx, state *types.UserModerationState, req CaseRequest, now time.Time,
) (bool, error) {
	ref, err := tx.GetReviewCase(ctx, req.ReferencedCaseID)
	if errors.Is(err, types.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if ref.UserID != req.UserID || ref.Status != enum.ReviewStatusResolved || ref.Decision != enum.DecisionRejected {
		return false, nil
	}

	started := state.RegisterFalseAppeal(now, m.config.FalseAppealThreshold, m.config.Cooldown)
	m.logger.Info("Resubmission of rejected content",
		zap.String("userID", req.UserID),
		zap.String("caseID", ref.ID),
		zap.Int("falseAppealCount", state.FalseAppealCount),
		zap.Bool("cooldownStarted", started))

	return true, nil
}

// RequestReview opens a case for a forbidden upload that did not get one
// automatically. Uploads already linked to a case, users in cooldown and
// users without review rights are rejected with ErrConflict.
func (m *Manager) RequestReview(ctx context.Context, uploadID, userID string) (*types.ReviewCase, error) {
	upload, err := m.store.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	switch {
	case upload.UserID == "" || upload.UserID != userID:
		return nil, fmt.Errorf("%w: upload %s does not belong to user %s", types.ErrNotFound, uploadID, userID)
	case upload.Outcome != enum.OutcomeForbidden:
		return nil, fmt.Errorf("%w: only forbidden uploads can be reviewed", types.ErrConflict)
	case upload.ReviewCaseID != "":
		return nil, fmt.Errorf("%w: upload already linked to case %s", types.ErrConflict, upload.ReviewCaseID)
	}

	var reviewCase *types.ReviewCase
	err = m.store.RunInTx(ctx, func(ctx context.Context, tx database.Tx) error {
		now := m.now()

		state, err := tx.GetUserState(ctx, userID)
		if err != nil {
			return err
		}
		if state.InCooldown(now) {
			return fmt.Errorf("%w: user is in cooldown until %s", types.ErrConflict, state.CooldownUntil.Format(time.RFC3339))
		}

		open, err := tx.FindOpenReviewCase(ctx, userID)
		switch {
		case err == nil:
			open.LinkUpload(upload.ID, upload.Fingerprint)
			open.UpdatedAt = now
			reviewCase = open
			return tx.SaveReviewCase(ctx, open)
		case !errors.Is(err, types.ErrNotFound):
			return err
		}

		if state.ReviewRightsLevel <= 0 {
			return fmt.Errorf("%w: user has no review rights", types.ErrConflict)
		}

		reviewCase = newCase(userID, enum.CaseTypeUpload, now)
		reviewCase.LinkUpload(upload.ID, upload.Fingerprint)
		if err := tx.SaveReviewCase(ctx, reviewCase); err != nil {
			return err
		}

		state.OpenReviewCount = 1
		state.UpdatedAt = now
		return tx.SaveUserState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Review requested",
		zap.String("userID", userID),
		zap.String("uploadID", uploadID),
		zap.String("caseID", reviewCase.ID))

	return reviewCase, nil
}

// FileReport opens or reuses a case for the owner of a reported upload.
// Reports skip cooldown and review-rights checks, which only bind uploaders.
func (m *Manager) FileReport(ctx context.Context, req ReportRequest) (*types.ReviewCase, error) {
	upload, err := m.store.GetUpload(ctx, req.UploadID)
	if err != nil {
		return nil, err
	}
	if upload.UserID == "" {
		return nil, fmt.Errorf("%w: anonymous uploads cannot be reported", types.ErrValidation)
	}
	if len([]rune(req.Note)) > m.config.MaxMessageLength {
		return nil, fmt.Errorf("%w: report note exceeds %d characters", types.ErrValidation, m.config.MaxMessageLength)
	}

	var reviewCase *types.ReviewCase
	err = m.store.RunInTx(ctx, func(ctx context.Context, tx database.Tx) error {
		now := m.now()

		open, err := tx.FindOpenReviewCase(ctx, upload.UserID)
		switch {
		case err == nil:
			open.LinkUpload(upload.ID, upload.Fingerprint)
			if open.ReportNote == "" {
				open.ReportNote = req.Note
			}
			open.UpdatedAt = now
			reviewCase = open
			return tx.SaveReviewCase(ctx, open)
		case !errors.Is(err, types.ErrNotFound):
			return err
		}

		state, err := tx.GetUserState(ctx, upload.UserID)
		if err != nil {
			return err
		}

		reviewCase = newCase(upload.UserID, enum.CaseTypeReport, now)
		reviewCase.ReportNote = req.Note
		reviewCase.LinkUpload(upload.ID, upload.Fingerprint)
		if err := tx.SaveReviewCase(ctx, reviewCase); err != nil {
			return err
		}

		state.OpenReviewCount = 1
		state.UpdatedAt = now
		return tx.SaveUserState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Report filed",
		zap.String("reporterID", req.ReporterID),
		zap.String("uploadID", req.UploadID),
		zap.String("caseID", reviewCase.ID))

	return reviewCase, nil
}

// GetCase returns a review case.
func (m *Manager) GetCase(ctx context.Context, caseID string) (*types.ReviewCase, error) {
	return m.store.GetReviewCase(ctx, caseID)
}

// ListOpenCases returns the moderator queue, oldest first.
func (m *Manager) ListOpenCases(ctx context.Context, limit int) ([]*types.ReviewCase, error) {
	return m.store.ListOpenReviewCases(ctx, limit)
}

// GetUserState returns a user's moderation state.
func (m *Manager) GetUserState(ctx context.Context, userID string) (*types.UserModerationState, error) {
	return m.store.GetUserState(ctx, userID)
}

// ClearCooldown lifts a user's cooldown and resets the false-appeal counter.
func (m *Manager) ClearCooldown(ctx context.Context, userID string) (*types.UserModerationState, error) {
	var state *types.UserModerationState
	err := m.store.RunInTx(ctx, func(ctx context.Context, tx database.Tx) error {
		var err error
		state, err = tx.GetUserState(ctx, userID)
		if err != nil {
			return err
		}

		state.CooldownUntil = time.Time{}
		state.FalseAppealCount = 0
		state.UpdatedAt = m.now()
		return tx.SaveUserState(ctx, state)
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Cooldown cleared", zap.String("userID", userID))
	return state, nil
}

func (m *Manager) saveStateIf(
	ctx context.Context, tx database.Tx, state *types.UserModerationState, dirty bool, now time.Time,
) error {
	if !dirty {
		return nil
	}
	state.UpdatedAt = now
	return tx.SaveUserState(ctx, state)
}

func newCase(userID string, caseType enum.CaseType, now time.Time) *types.ReviewCase {
	return &types.ReviewCase{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    enum.ReviewStatusInReview,
		CaseType:  caseType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
