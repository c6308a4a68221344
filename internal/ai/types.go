package ai

import (
	"regexp"

	"github.com/robalyx/imagegate/internal/database/types/enum"
)

const (
	// ApplicationJSON is the MIME type for JSON content.
	ApplicationJSON = "application/json"
	// ImageWebP is the MIME type images are normalized to.
	ImageWebP = "image/webp"
)

// Classification is the object the model is asked to return.
type Classification struct {
	Triggers         []TriggerAssessment `json:"triggers"`
	ForbiddenReasons []string            `json:"forbiddenReasons"`
}

// TriggerAssessment is one trigger proposed by the model.
type TriggerAssessment struct {
	Trigger    string  `json:"trigger"`
	Confidence float64 `json:"confidence"`
	Severity   string  `json:"severity"`
}

// PromptPayload is the structured part of the request prompt.
type PromptPayload struct {
	MIMEType         string         `json:"mimeType"`
	ExcludedTriggers []enum.Trigger `json:"excludedTriggers"`
	Severities       []string       `json:"severities"`
}

// triggerNamePattern accepts short camelCase identifiers.
var triggerNamePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9]{1,47}$`)

// ExcludedTriggers are scored elsewhere and never taken from the model.
var ExcludedTriggers = []enum.Trigger{
	enum.TriggerNudityErotic,
	enum.TriggerExplicit18,
	enum.TriggerNeedlesInjections,
	enum.TriggerSpidersInsects,
}
