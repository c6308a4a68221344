package types

import (
	"time"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
)

// ModerateRequest is the body of POST /v1/uploads.
type ModerateRequest struct {
	// Image is a data URL: data:<mime>;base64,<payload>.
	Image     string   `json:"image"`
	MakerTags []string `json:"makerTags"`
}

// ModerateResponse is the verdict returned to the uploader.
type ModerateResponse struct {
	UploadID          string                  `json:"uploadId"`
	Outcome           enum.Outcome            `json:"outcome"`
	AppliedTriggers   []types.TriggerScore    `json:"appliedTriggers"`
	SuggestedTriggers []types.TriggerScore    `json:"suggestedTriggers"`
	ForbiddenReasons  []types.ForbiddenReason `json:"forbiddenReasons"`
	ReviewCaseID      string                  `json:"reviewCaseId,omitempty"`
	CanRequestReview  bool                    `json:"canRequestReview"`
	Fingerprint       types.Fingerprint       `json:"fingerprint"`
	MatchedUploadID   string                  `json:"matchedUploadId,omitempty"`
	MatchDistance     int                     `json:"matchDistance"`
	DegradedScorers   []string                `json:"degradedScorers,omitempty"`
}

// ReportRequest is the body of POST /v1/uploads/:id/report.
type ReportRequest struct {
	Note string `json:"note"`
}

// CaseSummary is the view of a case shown to its owner or a reporter.
type CaseSummary struct {
	ID                    string                `json:"id"`
	Status                enum.ReviewStatus     `json:"status"`
	CaseType              enum.CaseType         `json:"caseType"`
	Decision              enum.Decision         `json:"decision,omitempty"`
	DecisionMessagePublic string                `json:"decisionMessagePublic,omitempty"`
	DecisionReasons       []enum.DecisionReason `json:"decisionReasons"`
	CreatedAt             time.Time             `json:"createdAt"`
	ResolvedAt            time.Time             `json:"resolvedAt,omitzero"`
}

// ListCasesResponse is the moderator queue.
type ListCasesResponse struct {
	Cases []*types.ReviewCase `json:"cases"`
}

// DecisionRequest is the body of POST /v1/cases/:id/decision.
type DecisionRequest struct {
	Decision     enum.Decision         `json:"decision"`
	Message      string                `json:"message"`
	Reasons      []enum.DecisionReason `json:"reasons"`
	InternalNote string                `json:"internalNote"`
}

// ModerationStateResponse is a user's review standing.
type ModerationStateResponse struct {
	UserID            string    `json:"userId"`
	OpenReviewCount   int       `json:"openReviewCount"`
	FalseAppealCount  int       `json:"falseAppealCount"`
	ReviewRightsLevel int       `json:"reviewRightsLevel"`
	CooldownUntil     time.Time `json:"cooldownUntil,omitzero"`
	InCooldown        bool      `json:"inCooldown"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse reports dependency health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
