package enum

// Outcome is the policy verdict attached to an upload.
type Outcome string

const (
	// OutcomeAllowed means no signal crossed the suggest threshold.
	OutcomeAllowed Outcome = "allowed"
	// OutcomeSuggested means at least one signal should be offered as a content warning.
	OutcomeSuggested Outcome = "suggested"
	// OutcomeForbidden means the upload may not be published without review.
	OutcomeForbidden Outcome = "forbidden"
)

// TriggerSource identifies which stage produced a trigger.
type TriggerSource string

const (
	TriggerSourceMakerTag   TriggerSource = "makerTag"
	TriggerSourceSafeSearch TriggerSource = "safeSearch"
	TriggerSourceLabels     TriggerSource = "labels"
	TriggerSourceLLM        TriggerSource = "llm"
)

// Rank orders sources when triggers are merged for display.
func (s TriggerSource) Rank() int {
	switch s {
	case TriggerSourceMakerTag:
		return 0
	case TriggerSourceSafeSearch:
		return 1
	case TriggerSourceLabels:
		return 2
	case TriggerSourceLLM:
		return 3
	default:
		return 4
	}
}

// Severity is the classifier-asserted severity of an LLM trigger.
type Severity string

const (
	SeveritySuggest   Severity = "suggest"
	SeverityForbidden Severity = "forbidden"
)

// IsValid reports whether the severity is one the policy understands.
func (s Severity) IsValid() bool {
	return s == SeveritySuggest || s == SeverityForbidden
}
