package convert

import (
	"github.com/robalyx/imagegate/internal/database/types"
	restTypes "github.com/robalyx/imagegate/internal/rest/types"
)

// CaseSummary hides moderator-only fields from a case.
func CaseSummary(c *types.ReviewCase) *restTypes.CaseSummary {
	return &restTypes.CaseSummary{
		ID:                    c.ID,
		Status:                c.Status,
		CaseType:              c.CaseType,
		Decision:              c.Decision,
		DecisionMessagePublic: c.DecisionMessagePublic,
		DecisionReasons:       nonNil(c.DecisionReasons),
		CreatedAt:             c.CreatedAt,
		ResolvedAt:            c.ResolvedAt,
	}
}

// Case normalizes a full case for moderators.
func Case(c *types.ReviewCase) *types.ReviewCase {
	out := c.Clone()
	out.DecisionReasons = nonNil(out.DecisionReasons)
	out.LinkedUploadIDs = nonNil(out.LinkedUploadIDs)
	out.Fingerprints = nonNil(out.Fingerprints)
	return out
}

// Cases normalizes a moderator queue.
func Cases(cases []*types.ReviewCase) *restTypes.ListCasesResponse {
	out := make([]*types.ReviewCase, 0, len(cases))
	for _, c := range cases {
		out = append(out, Case(c))
	}
	return &restTypes.ListCasesResponse{Cases: out}
}

// ModerationState converts a user's moderation state.
func ModerationState(state *types.UserModerationState, inCooldown bool) *restTypes.ModerationStateResponse {
	return &restTypes.ModerationStateResponse{
		UserID:            state.UserID,
		OpenReviewCount:   state.OpenReviewCount,
		FalseAppealCount:  state.FalseAppealCount,
		ReviewRightsLevel: state.ReviewRightsLevel,
		CooldownUntil:     state.CooldownUntil,
		InCooldown:        inCooldown,
	}
}
