package moderation

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/imagegate/internal/database"
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/robalyx/imagegate/internal/fingerprint"
	"github.com/robalyx/imagegate/internal/review"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/robalyx/imagegate/internal/moderation")

// CaseHandler opens or reuses review cases for forbidden uploads.
type CaseHandler interface {
	HandleForbidden(ctx context.Context, req review.CaseRequest) (review.CaseResult, error)
}

// Request is one moderation call.
type Request struct {
	Data      []byte
	MIMEType  string
	MakerTags []string
	// UserID is the verified uploader, empty for anonymous calls.
	UserID string
}

// Result is what the caller learns about its upload.
type Result struct {
	UploadID          string
	Outcome           enum.Outcome
	AppliedTriggers   []types.TriggerScore
	SuggestedTriggers []types.TriggerScore
	ForbiddenReasons  []types.ForbiddenReason
	ReviewCaseID      string
	CanRequestReview  bool
	Fingerprint       types.Fingerprint
	// MatchedUploadID is set when the verdict was reused from an earlier upload.
	MatchedUploadID string
	MatchDistance   int
	// FailedScorers lists scorers that did not contribute.
	FailedScorers []string
	// Persisted is false when the upload record could not be written.
	Persisted bool
}

// Engine wires the moderation pipeline together.
type Engine struct {
	config     Config
	store      database.Store
	index      *DuplicateIndex
	aggregator *Aggregator
	policy     *Policy
	cases      CaseHandler
	logger     *zap.Logger
	now        func() time.Time
}

// NewEngine creates a moderation engine. cache may be nil.
func NewEngine(
	cfg Config, store database.Store, cache DigestCache, scorers []Scorer, cases CaseHandler, logger *zap.Logger,
) *Engine {
	logger = logger.Named("moderation")
	return &Engine{
		config:     cfg,
		store:      store,
		index:      NewDuplicateIndex(store, cache, cfg, logger),
		aggregator: NewAggregator(scorers, cfg.ScorerTimeout, logger),
		policy:     NewPolicy(cfg, logger),
		cases:      cases,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Moderate classifies an image and, when it is forbidden, routes it into
// review. Only validation and decode failures are returned as errors; scorer,
// cache and persistence failures degrade the result instead. The caller's
// cancellation is ignored and the call is bounded by the request timeout.
func (e *Engine) Moderate(ctx context.Context, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.RequestTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "moderation.Moderate")
	defer span.End()

	start := time.Now()
	defer func() {
		moderationDuration.Observe(time.Since(start).Seconds())
	}()

	fp, err := fingerprint.Generate(req.Data, req.MIMEType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	match, err := e.index.Lookup(ctx, fp)
	if err != nil {
		e.logger.Warn("Duplicate lookup failed, classifying from scratch", zap.Error(err))
		match = nil
	}

	var verdict Verdict
	var failed []string
	if match != nil {
		verdict = reuseVerdict(match.Upload, req.MakerTags)
	} else {
		agg := e.aggregator.Aggregate(ctx, &Image{Data: req.Data, MIMEType: req.MIMEType, Fingerprint: fp}, req.MakerTags)
		verdict = e.policy.Decide(agg)
		failed = agg.Failed
	}

	upload := &types.Upload{
		ID:                uuid.NewString(),
		UserID:            req.UserID,
		MIMEType:          req.MIMEType,
		Outcome:           verdict.Outcome,
		MakerTags:         slices.Clone(req.MakerTags),
		AppliedTriggers:   verdict.AppliedTriggers,
		SuggestedTriggers: verdict.SuggestedTriggers,
		ForbiddenReasons:  verdict.ForbiddenReasons,
		Fingerprint:       fp,
		MatchDistance:     -1,
		CreatedAt:         e.now(),
	}
	if match != nil {
		upload.MatchedUploadID = match.Upload.ID
		upload.MatchDistance = match.Distance
	}

	result := &Result{
		UploadID:          upload.ID,
		Outcome:           verdict.Outcome,
		AppliedTriggers:   verdict.AppliedTriggers,
		SuggestedTriggers: verdict.SuggestedTriggers,
		ForbiddenReasons:  verdict.ForbiddenReasons,
		Fingerprint:       fp,
		MatchedUploadID:   upload.MatchedUploadID,
		MatchDistance:     upload.MatchDistance,
		FailedScorers:     failed,
	}

	if verdict.Outcome == enum.OutcomeForbidden {
		e.routeToReview(ctx, upload, match, result)
	}

	if err := e.store.SaveUpload(ctx, upload); err != nil {
		persistenceFailures.WithLabelValues("upload").Inc()
		e.logger.Error("Failed to persist upload, returning decision anyway",
			zap.String("uploadID", upload.ID),
			zap.Error(err))
	} else {
		result.Persisted = true
		e.index.Remember(ctx, upload)
	}

	cacheLabel := "miss"
	if match != nil {
		cacheLabel = "near"
		if match.Exact {
			cacheLabel = "exact"
		}
	}
	moderationOutcomes.WithLabelValues(string(result.Outcome), cacheLabel).Inc()
	span.SetAttributes(
		attribute.String("outcome", string(result.Outcome)),
		attribute.String("cache", cacheLabel),
		attribute.Int("failed_scorers", len(failed)),
	)

	e.logger.Info("Moderated upload",
		zap.String("uploadID", upload.ID),
		zap.String("userID", req.UserID),
		zap.String("outcome", string(result.Outcome)),
		zap.String("cache", cacheLabel),
		zap.String("matchedUploadID", upload.MatchedUploadID),
		zap.String("reviewCaseID", result.ReviewCaseID),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// routeToReview runs the case step. Its failure leaves the upload without a
// case but never fails the moderation call.
func (e *Engine) routeToReview(ctx context.Context, upload *types.Upload, match *Match, result *Result) {
	if upload.UserID == "" || e.cases == nil {
		return
	}

	req := review.CaseRequest{
		UserID:      upload.UserID,
		UploadID:    upload.ID,
		Fingerprint: upload.Fingerprint,
	}
	if match != nil {
		req.ReferencedCaseID = match.Upload.ReviewCaseID
	}

	caseResult, err := e.cases.HandleForbidden(ctx, req)
	if err != nil {
		reviewCaseEvents.WithLabelValues("error").Inc()
		e.logger.Error("Review case step failed",
			zap.String("uploadID", upload.ID),
			zap.String("userID", upload.UserID),
			zap.Error(err))
		result.CanRequestReview = true
		return
	}

	switch {
	case caseResult.Created:
		reviewCaseEvents.WithLabelValues("created").Inc()
	case caseResult.Existed:
		reviewCaseEvents.WithLabelValues("reused").Inc()
	case caseResult.InCooldown:
		reviewCaseEvents.WithLabelValues("cooldown").Inc()
	default:
		reviewCaseEvents.WithLabelValues("skipped").Inc()
	}

	upload.ReviewCaseID = caseResult.ReviewCaseID
	result.ReviewCaseID = caseResult.ReviewCaseID
	result.CanRequestReview = caseResult.CanRequestReview()
}

// reuseVerdict copies a cached verdict and merges in this caller's maker tags.
// Suggestions covered by a maker tag are dropped the same way Decide drops them.
func reuseVerdict(matched *types.Upload, makerTags []string) Verdict {
	applied := types.MergeTriggers(matched.AppliedTriggers, types.MakerTagTriggers(makerTags))
	verdict := Verdict{
		Outcome:           matched.Outcome,
		AppliedTriggers:   applied,
		SuggestedTriggers: withoutApplied(slices.Clone(matched.SuggestedTriggers), applied),
		ForbiddenReasons:  slices.Clone(matched.ForbiddenReasons),
	}
	if verdict.Outcome == enum.OutcomeSuggested && len(verdict.SuggestedTriggers) == 0 {
		verdict.Outcome = enum.OutcomeAllowed
	}
	return verdict
}

// GetUpload returns a stored upload.
func (e *Engine) GetUpload(ctx context.Context, id string) (*types.Upload, error) {
	return e.store.GetUpload(ctx, id)
}
