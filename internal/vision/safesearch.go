package vision

import (
	"context"
	"fmt"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/robalyx/imagegate/internal/moderation"
)

// likelihoodScores maps the categorical likelihoods onto scores.
var likelihoodScores = map[string]float64{
	"UNKNOWN":       0,
	"VERY_UNLIKELY": 0.1,
	"UNLIKELY":      0.25,
	"POSSIBLE":      0.5,
	"LIKELY":        0.7,
	"VERY_LIKELY":   0.9,
}

// LikelihoodScore returns the score for a likelihood. Unrecognized values score 0.
func LikelihoodScore(likelihood string) float64 {
	return likelihoodScores[likelihood]
}

// SafeSearchScorer scores the racy and adult axes.
type SafeSearchScorer struct {
	annotator ImageAnnotator
}

// NewSafeSearchScorer creates a safe-search scorer.
func NewSafeSearchScorer(annotator ImageAnnotator) *SafeSearchScorer {
	return &SafeSearchScorer{annotator: annotator}
}

// Name implements moderation.Scorer.
func (s *SafeSearchScorer) Name() string { return "safeSearch" }

// Score implements moderation.Scorer.
func (s *SafeSearchScorer) Score(ctx context.Context, img *moderation.Image) ([]moderation.Signal, error) {
	res, err := s.annotator.AnnotateImage(ctx, img)
	if err != nil {
		return nil, err
	}

	annotation := res.SafeSearchAnnotation
	if annotation == nil {
		return nil, fmt.Errorf("%w: safe-search annotation missing", types.ErrUpstreamScorer)
	}

	return []moderation.Signal{
		{Trigger: enum.TriggerNudityErotic, Score: LikelihoodScore(annotation.Racy), Source: enum.TriggerSourceSafeSearch},
		{Trigger: enum.TriggerExplicit18, Score: LikelihoodScore(annotation.Adult), Source: enum.TriggerSourceSafeSearch},
	}, nil
}
