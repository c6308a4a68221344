package convert

import (
	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/moderation"
	restTypes "github.com/robalyx/imagegate/internal/rest/types"
)

// ModerateResponse converts an engine result to its REST form.
func ModerateResponse(result *moderation.Result) *restTypes.ModerateResponse {
	return &restTypes.ModerateResponse{
		UploadID:          result.UploadID,
		Outcome:           result.Outcome,
		AppliedTriggers:   nonNil(result.AppliedTriggers),
		SuggestedTriggers: nonNil(result.SuggestedTriggers),
		ForbiddenReasons:  nonNil(result.ForbiddenReasons),
		ReviewCaseID:      result.ReviewCaseID,
		CanRequestReview:  result.CanRequestReview,
		Fingerprint:       result.Fingerprint,
		MatchedUploadID:   result.MatchedUploadID,
		MatchDistance:     result.MatchDistance,
		DegradedScorers:   result.FailedScorers,
	}
}

// Upload normalizes a stored upload for JSON output.
func Upload(upload *types.Upload) *types.Upload {
	out := *upload
	out.MakerTags = nonNil(upload.MakerTags)
	out.AppliedTriggers = nonNil(upload.AppliedTriggers)
	out.SuggestedTriggers = nonNil(upload.SuggestedTriggers)
	out.ForbiddenReasons = nonNil(upload.ForbiddenReasons)
	return &out
}

// nonNil keeps empty lists as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
