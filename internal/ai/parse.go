package ai

import (
	"math"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/robalyx/imagegate/internal/moderation"
)

// Parse extracts the classification from free model text. It takes the span
// from the first '{' to the last '}' so code fences and chatter around the
// object are ignored. ok is false when no object can be decoded.
func Parse(text string) (result Classification, ok bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return Classification{}, false
	}

	if err := sonic.UnmarshalString(text[start:end+1], &result); err != nil {
		return Classification{}, false
	}
	return result, true
}

// Signals converts a classification into scorer signals. Excluded and
// malformed triggers are dropped, confidences are clamped to [0, 1] and
// an unknown severity is treated as suggest. Repeated triggers keep the
// highest confidence.
func (c Classification) Signals() []moderation.Signal {
	excluded := make(map[enum.Trigger]struct{}, len(ExcludedTriggers))
	for _, t := range ExcludedTriggers {
		excluded[t] = struct{}{}
	}

	reason := strings.Join(nonEmpty(c.ForbiddenReasons), "; ")

	index := make(map[enum.Trigger]int)
	var signals []moderation.Signal
	for _, assessment := range c.Triggers {
		name := strings.TrimSpace(assessment.Trigger)
		if !triggerNamePattern.MatchString(name) {
			continue
		}
		trigger := enum.Trigger(name)
		if _, skip := excluded[trigger]; skip {
			continue
		}

		severity := enum.Severity(strings.ToLower(strings.TrimSpace(assessment.Severity)))
		if !severity.IsValid() {
			severity = enum.SeveritySuggest
		}

		signal := moderation.Signal{
			Trigger:  trigger,
			Score:    clamp(assessment.Confidence),
			Source:   enum.TriggerSourceLLM,
			Severity: severity,
		}
		if severity == enum.SeverityForbidden {
			signal.Reason = reason
		}

		if i, seen := index[trigger]; seen {
			if signal.Severity == enum.SeverityForbidden {
				signals[i].Severity = enum.SeverityForbidden
				signals[i].Reason = reason
			}
			signals[i].Score = max(signals[i].Score, signal.Score)
			continue
		}
		index[trigger] = len(signals)
		signals = append(signals, signal)
	}

	return signals
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
