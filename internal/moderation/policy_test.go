package moderation_test

import (
	"testing"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/robalyx/imagegate/internal/moderation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func safeSearch(trigger enum.Trigger, score float64) moderation.Signal {
	return moderation.Signal{Trigger: trigger, Score: score, Source: enum.TriggerSourceSafeSearch}
}

func TestPolicyThresholds(t *testing.T) {
	t.Parallel()

	policy := moderation.NewPolicy(moderation.DefaultConfig(), zap.NewNop())

	tests := []struct {
		name          string
		score         float64
		wantOutcome   enum.Outcome
		wantApplied   int
		wantSuggested int
	}{
		{name: "at forbidden threshold", score: 0.7, wantOutcome: enum.OutcomeForbidden, wantApplied: 1},
		{name: "above forbidden threshold", score: 0.9, wantOutcome: enum.OutcomeForbidden, wantApplied: 1},
		{name: "just below forbidden threshold", score: 0.69, wantOutcome: enum.OutcomeSuggested, wantSuggested: 1},
		{name: "at suggest threshold", score: 0.45, wantOutcome: enum.OutcomeSuggested, wantSuggested: 1},
		{name: "just below suggest threshold", score: 0.4499, wantOutcome: enum.OutcomeAllowed},
		{name: "zero", score: 0, wantOutcome: enum.OutcomeAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verdict := policy.Decide(&moderation.Aggregation{
				Signals: []moderation.Signal{safeSearch(enum.TriggerNudityErotic, tt.score)},
			})

			assert.Equal(t, tt.wantOutcome, verdict.Outcome)
			assert.Len(t, verdict.AppliedTriggers, tt.wantApplied)
			assert.Len(t, verdict.SuggestedTriggers, tt.wantSuggested)
			if tt.wantOutcome == enum.OutcomeForbidden {
				require.Len(t, verdict.ForbiddenReasons, 1)
				assert.Equal(t, enum.TriggerNudityErotic, verdict.ForbiddenReasons[0].Trigger)
				assert.InDelta(t, tt.score, verdict.ForbiddenReasons[0].Score, 1e-9)
				assert.NotEmpty(t, verdict.ForbiddenReasons[0].Reason)
			} else {
				assert.Empty(t, verdict.ForbiddenReasons)
			}
		})
	}
}

func TestPolicySeverity(t *testing.T) {
	t.Parallel()

	policy := moderation.NewPolicy(moderation.DefaultConfig(), zap.NewNop())

	t.Run("asserted forbidden ignores score", func(t *testing.T) {
		t.Parallel()

		verdict := policy.Decide(&moderation.Aggregation{
			Signals: []moderation.Signal{{
				Trigger:  "flashingLights",
				Score:    0.3,
				Source:   enum.TriggerSourceLLM,
				Severity: enum.SeverityForbidden,
				Reason:   "rapid strobing across the frame",
			}},
		})

		assert.Equal(t, enum.OutcomeForbidden, verdict.Outcome)
		require.Len(t, verdict.ForbiddenReasons, 1)
		assert.Equal(t, "rapid strobing across the frame", verdict.ForbiddenReasons[0].Reason)
	})

	t.Run("asserted suggest is never promoted", func(t *testing.T) {
		t.Parallel()

		verdict := policy.Decide(&moderation.Aggregation{
			Signals: []moderation.Signal{{
				Trigger:  "flashingLights",
				Score:    0.95,
				Source:   enum.TriggerSourceLLM,
				Severity: enum.SeveritySuggest,
			}},
		})

		assert.Equal(t, enum.OutcomeSuggested, verdict.Outcome)
		assert.Empty(t, verdict.ForbiddenReasons)
	})
}

func TestPolicyMakerTags(t *testing.T) {
	t.Parallel()

	policy := moderation.NewPolicy(moderation.DefaultConfig(), zap.NewNop())

	t.Run("maker tags are applied without forbidding", func(t *testing.T) {
		t.Parallel()

		verdict := policy.Decide(&moderation.Aggregation{
			MakerTags: types.MakerTagTriggers([]string{"spidersInsects"}),
		})

		assert.Equal(t, enum.OutcomeAllowed, verdict.Outcome)
		require.Len(t, verdict.AppliedTriggers, 1)
		assert.Equal(t, enum.TriggerSourceMakerTag, verdict.AppliedTriggers[0].Source)
		assert.InDelta(t, 1.0, verdict.AppliedTriggers[0].Score, 1e-9)
	})

	t.Run("suggestion for an applied trigger is dropped", func(t *testing.T) {
		t.Parallel()

		verdict := policy.Decide(&moderation.Aggregation{
			MakerTags: types.MakerTagTriggers([]string{"nudityErotic"}),
			Signals:   []moderation.Signal{safeSearch(enum.TriggerNudityErotic, 0.5)},
		})

		assert.Equal(t, enum.OutcomeAllowed, verdict.Outcome)
		assert.Empty(t, verdict.SuggestedTriggers)
	})

	t.Run("same trigger from two sources is kept twice", func(t *testing.T) {
		t.Parallel()

		verdict := policy.Decide(&moderation.Aggregation{
			MakerTags: types.MakerTagTriggers([]string{"nudityErotic"}),
			Signals:   []moderation.Signal{safeSearch(enum.TriggerNudityErotic, 0.9)},
		})

		assert.Equal(t, enum.OutcomeForbidden, verdict.Outcome)
		require.Len(t, verdict.AppliedTriggers, 2)
		assert.Equal(t, enum.TriggerSourceMakerTag, verdict.AppliedTriggers[0].Source)
		assert.Equal(t, enum.TriggerSourceSafeSearch, verdict.AppliedTriggers[1].Source)
	})

	t.Run("repeated forbidden trigger keeps the highest score", func(t *testing.T) {
		t.Parallel()

		verdict := policy.Decide(&moderation.Aggregation{
			Signals: []moderation.Signal{
				safeSearch(enum.TriggerExplicit18, 0.7),
				{Trigger: enum.TriggerExplicit18, Score: 0.9, Source: enum.TriggerSourceLabels},
			},
		})

		require.Len(t, verdict.ForbiddenReasons, 1)
		assert.InDelta(t, 0.9, verdict.ForbiddenReasons[0].Score, 1e-9)
		assert.Len(t, verdict.AppliedTriggers, 2)
	})
}
