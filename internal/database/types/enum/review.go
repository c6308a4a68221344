package enum

// ReviewStatus represents the lifecycle state of a review case.
type ReviewStatus string

const (
	// ReviewStatusInReview is an open case waiting for a moderator.
	ReviewStatusInReview ReviewStatus = "inReview"
	// ReviewStatusResolved is a case that has a recorded decision.
	ReviewStatusResolved ReviewStatus = "resolved"
)

// Decision is the moderator verdict recorded on a review case.
type Decision string

const (
	DecisionNone     Decision = ""
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// IsValid reports whether the decision can be recorded by a moderator.
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// CaseType distinguishes how a review case was opened.
type CaseType string

const (
	// CaseTypeUpload is opened automatically for a forbidden upload.
	CaseTypeUpload CaseType = "upload"
	// CaseTypeReport is opened from a community report.
	CaseTypeReport CaseType = "report"
)

// DecisionReason is a reason code a moderator attaches to a decision.
type DecisionReason string

const (
	DecisionReasonMissingOrIncorrectTags DecisionReason = "missingOrIncorrectTags"
	DecisionReasonSexualContent          DecisionReason = "sexualContent"
	DecisionReasonGraphicViolence        DecisionReason = "graphicViolence"
	DecisionReasonSelfHarm               DecisionReason = "selfHarm"
	DecisionReasonHateSymbols            DecisionReason = "hateSymbols"
	DecisionReasonPhobiaTrigger          DecisionReason = "phobiaTrigger"
	DecisionReasonSpam                   DecisionReason = "spam"
	DecisionReasonFalsePositive          DecisionReason = "falsePositive"
	DecisionReasonOther                  DecisionReason = "other"
)

var knownDecisionReasons = map[DecisionReason]struct{}{
	DecisionReasonMissingOrIncorrectTags: {},
	DecisionReasonSexualContent:          {},
	DecisionReasonGraphicViolence:        {},
	DecisionReasonSelfHarm:               {},
	DecisionReasonHateSymbols:            {},
	DecisionReasonPhobiaTrigger:          {},
	DecisionReasonSpam:                   {},
	DecisionReasonFalsePositive:          {},
	DecisionReasonOther:                  {},
}

// IsValid reports whether the reason code is known.
func (r DecisionReason) IsValid() bool {
	_, ok := knownDecisionReasons[r]
	return ok
}
