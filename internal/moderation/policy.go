package moderation

import (
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"go.uber.org/zap"
)

// Verdict is the policy result for one upload.
type Verdict struct {
	Outcome           enum.Outcome
	AppliedTriggers   []types.TriggerScore
	SuggestedTriggers []types.TriggerScore
	ForbiddenReasons  []types.ForbiddenReason
}

// Policy applies the score thresholds.
type Policy struct {
	forbidden float64
	suggest   float64
	medium    float64
	logger    *zap.Logger
}

// NewPolicy creates a policy from the engine config.
func NewPolicy(cfg Config, logger *zap.Logger) *Policy {
	return &Policy{
		forbidden: cfg.ForbiddenThreshold,
		suggest:   cfg.SuggestThreshold,
		medium:    cfg.MediumLogThreshold,
		logger:    logger.Named("policy"),
	}
}

// Decide sorts the aggregation into applied, suggested and forbidden lists.
//
// Maker tags are always applied. A signal asserting forbidden severity is
// applied and forbidden regardless of its score. Otherwise a score at or
// above the forbidden threshold is applied and forbidden, a score at or above
// the suggest threshold is suggested, and anything lower is dropped. A
// signal asserting suggest severity is never promoted past suggested.
func (p *Policy) Decide(agg *Aggregation) Verdict {
	var applied, suggested []types.TriggerScore
	reasons := make(map[enum.Trigger]int)
	var forbidden []types.ForbiddenReason

	addForbidden := func(s Signal) {
		reason := s.Reason
		if reason == "" {
			reason = fmt.Sprintf("%s scored %s at %.2f", s.Source, s.Trigger, s.Score)
		}
		if i, ok := reasons[s.Trigger]; ok {
			if s.Score > forbidden[i].Score {
				forbidden[i] = types.ForbiddenReason{Trigger: s.Trigger, Reason: reason, Score: s.Score}
			}
			return
		}
		reasons[s.Trigger] = len(forbidden)
		forbidden = append(forbidden, types.ForbiddenReason{Trigger: s.Trigger, Reason: reason, Score: s.Score})
	}

	for _, s := range agg.Signals {
		ts := types.TriggerScore{Trigger: s.Trigger, Score: s.Score, Source: s.Source}

		if s.Score >= p.medium && s.Score < p.forbidden {
			p.logger.Info("Medium confidence signal",
				zap.String("trigger", string(s.Trigger)),
				zap.String("source", string(s.Source)),
				zap.Float64("score", s.Score))
		}

		switch {
		case s.Severity == enum.SeverityForbidden:
			applied = append(applied, ts)
			addForbidden(s)
		case s.Score >= p.forbidden && s.Severity != enum.SeveritySuggest:
			applied = append(applied, ts)
			addForbidden(s)
		case s.Score >= p.suggest:
			suggested = append(suggested, ts)
		}
	}

	applied = types.MergeTriggers(agg.MakerTags, applied)
	suggested = withoutApplied(types.MergeTriggers(nil, suggested), applied)

	verdict := Verdict{
		Outcome:           enum.OutcomeAllowed,
		AppliedTriggers:   applied,
		SuggestedTriggers: suggested,
		ForbiddenReasons:  forbidden,
	}
	switch {
	case len(forbidden) > 0:
		verdict.Outcome = enum.OutcomeForbidden
	case len(suggested) > 0:
		verdict.Outcome = enum.OutcomeSuggested
	}

	return verdict
}

// withoutApplied drops suggestions for triggers that are already applied.
func withoutApplied(suggested, applied []types.TriggerScore) []types.TriggerScore {
	seen := make(map[enum.Trigger]struct{}, len(applied))
	for _, t := range applied {
		seen[t.Trigger] = struct{}{}
	}

	out := suggested[:0]
	for _, t := range suggested {
		if _, ok := seen[t.Trigger]; !ok {
			out = append(out, t)
		}
	}
	return out
}
