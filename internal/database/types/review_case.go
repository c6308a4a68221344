package types

import (
	"slices"
	"time"

	"github.com/robalyx/imagegate/internal/database/types/enum"
)

// ReviewCase is a unit of human moderation work.
type ReviewCase struct {
	ID                    string                `bun:",pk"          json:"id"`
	UserID                string                `bun:",notnull"     json:"userId"`                          // Owner of the reviewed content
	Status                enum.ReviewStatus     `bun:",notnull"     json:"status"`                          // inReview or resolved
	Decision              enum.Decision         `bun:",nullzero"    json:"decision,omitempty"`              // Moderator verdict once resolved
	DecisionMessagePublic string                `bun:",nullzero"    json:"decisionMessagePublic,omitempty"` // Message shown to the user
	DecisionReasons       []enum.DecisionReason `bun:",type:jsonb"  json:"decisionReasons"`                 // Up to three reason codes
	ModeratorNoteInternal string                `bun:",nullzero"    json:"moderatorNoteInternal,omitempty"` // Moderator-only note
	CaseType              enum.CaseType         `bun:",notnull"     json:"caseType"`                        // upload or report
	ReportNote            string                `bun:",nullzero"    json:"reportNote,omitempty"`            // Reporter's note for report cases
	LinkedUploadIDs       []string              `bun:",type:jsonb"  json:"linkedUploadIds"`                 // Uploads attached to the case
	Fingerprints          []Fingerprint         `bun:",type:jsonb"  json:"fingerprints"`                    // Fingerprints of the linked uploads
	ClaimedBy             string                `bun:",nullzero"    json:"claimedByUid,omitempty"`          // Moderator holding the lock
	ClaimExpiresAt        time.Time             `bun:",nullzero"    json:"claimExpiresAt,omitzero"`         // When the lock lapses
	ResolvedBy            string                `bun:",nullzero"    json:"resolvedBy,omitempty"`            // Moderator who recorded the decision
	ResolvedAt            time.Time             `bun:",nullzero"    json:"resolvedAt,omitzero"`             // When the decision was recorded
	CreatedAt             time.Time             `bun:",notnull"     json:"createdAt"`
	UpdatedAt             time.Time             `bun:",notnull"     json:"updatedAt"`
}

// IsOpen reports whether the case is still waiting for a decision.
func (c *ReviewCase) IsOpen() bool {
	return c.Status == enum.ReviewStatusInReview
}

// ClaimHolder returns the moderator holding an unexpired claim, or "".
func (c *ReviewCase) ClaimHolder(now time.Time) string {
	if c.ClaimedBy == "" || !now.Before(c.ClaimExpiresAt) {
		return ""
	}
	return c.ClaimedBy
}

// LinkUpload attaches an upload and its fingerprint to the case, skipping duplicates.
func (c *ReviewCase) LinkUpload(uploadID string, fp Fingerprint) {
	if !slices.Contains(c.LinkedUploadIDs, uploadID) {
		c.LinkedUploadIDs = append(c.LinkedUploadIDs, uploadID)
	}
	if !slices.Contains(c.Fingerprints, fp) {
		c.Fingerprints = append(c.Fingerprints, fp)
	}
}

// Clone returns a deep copy of the case.
func (c *ReviewCase) Clone() *ReviewCase {
	cp := *c
	cp.DecisionReasons = slices.Clone(c.DecisionReasons)
	cp.LinkedUploadIDs = slices.Clone(c.LinkedUploadIDs)
	cp.Fingerprints = slices.Clone(c.Fingerprints)
	return &cp
}
