package vision

import (
	"context"
	"strings"

	"github.com/robalyx/imagegate/internal/database/types/enum"
	"github.com/robalyx/imagegate/internal/moderation"
	visionv1 "google.golang.org/api/vision/v1"
)

// DefaultMaxLabels is used when no label limit is configured.
const DefaultMaxLabels = 20

// KeywordSet ties a trigger to the label keywords that imply it.
type KeywordSet struct {
	Trigger  enum.Trigger
	Keywords []string
}

// DefaultKeywordSets are matched as lowercase substrings of label
// descriptions. Short words that occur inside unrelated labels are left out.
var DefaultKeywordSets = []KeywordSet{
	{
		Trigger: enum.TriggerNeedlesInjections,
		Keywords: []string{
			"needle", "syringe", "injection", "hypodermic", "vaccin",
			"intravenous", "acupuncture", "drip chamber",
		},
	},
	{
		Trigger: enum.TriggerSpidersInsects,
		Keywords: []string{
			"spider", "arachnid", "tarantula", "insect", "arthropod", "cockroach",
			"beetle", "centipede", "millipede", "scorpion", "mosquito", "wasp",
			"hornet", "maggot", "larva", "termite",
		},
	},
}

// LabelScorer turns generic labels into trigger scores by keyword.
type LabelScorer struct {
	annotator ImageAnnotator
	sets      []KeywordSet
}

// NewLabelScorer creates a label scorer. A nil sets uses DefaultKeywordSets.
func NewLabelScorer(annotator ImageAnnotator, sets []KeywordSet) *LabelScorer {
	if sets == nil {
		sets = DefaultKeywordSets
	}
	return &LabelScorer{annotator: annotator, sets: sets}
}

// Name implements moderation.Scorer.
func (s *LabelScorer) Name() string { return "labels" }

// Score implements moderation.Scorer.
func (s *LabelScorer) Score(ctx context.Context, img *moderation.Image) ([]moderation.Signal, error) {
	res, err := s.annotator.AnnotateImage(ctx, img)
	if err != nil {
		return nil, err
	}

	return MatchLabels(res.LabelAnnotations, s.sets), nil
}

// MatchLabels scores each trigger as the highest score among labels whose
// description contains one of its keywords. Triggers with no match are omitted.
func MatchLabels(labels []*visionv1.EntityAnnotation, sets []KeywordSet) []moderation.Signal {
	var signals []moderation.Signal
	for _, set := range sets {
		best, matched := 0.0, false
		for _, label := range labels {
			if label == nil || !containsAny(strings.ToLower(label.Description), set.Keywords) {
				continue
			}
			if !matched || label.Score > best {
				best, matched = label.Score, true
			}
		}
		if matched {
			signals = append(signals, moderation.Signal{
				Trigger: set.Trigger,
				Score:   best,
				Source:  enum.TriggerSourceLabels,
			})
		}
	}
	return signals
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
