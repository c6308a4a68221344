package types

import (
	"slices"

	"github.com/robalyx/imagegate/internal/database/types/enum"
)

// TriggerScore is a single (trigger, score, source) signal.
type TriggerScore struct {
	Trigger enum.Trigger       `json:"trigger"`
	Score   float64            `json:"score"`
	Source  enum.TriggerSource `json:"source"`
}

// ForbiddenReason explains why a trigger made an upload forbidden.
type ForbiddenReason struct {
	Trigger enum.Trigger `json:"trigger"`
	Reason  string       `json:"reason"`
	Score   float64      `json:"score"`
}

// TriggerKey is the identity used when merging trigger lists.
type TriggerKey struct {
	Trigger enum.Trigger
	Source  enum.TriggerSource
}

// Key returns the merge identity of the signal.
func (t TriggerScore) Key() TriggerKey {
	return TriggerKey{Trigger: t.Trigger, Source: t.Source}
}

// MergeTriggers appends extra to base, skipping entries whose (trigger, source)
// pair is already present. When a pair repeats the higher score is kept.
// The result is ordered by source rank, then by first appearance.
func MergeTriggers(base, extra []TriggerScore) []TriggerScore {
	out := make([]TriggerScore, 0, len(base)+len(extra))
	index := make(map[TriggerKey]int, len(base)+len(extra))

	for _, list := range [][]TriggerScore{base, extra} {
		for _, t := range list {
			if i, ok := index[t.Key()]; ok {
				if t.Score > out[i].Score {
					out[i].Score = t.Score
				}
				continue
			}
			index[t.Key()] = len(out)
			out = append(out, t)
		}
	}

	slices.SortStableFunc(out, func(a, b TriggerScore) int {
		return a.Source.Rank() - b.Source.Rank()
	})

	return out
}

// MakerTagTriggers converts uploader-declared tags into authoritative signals.
func MakerTagTriggers(tags []string) []TriggerScore {
	out := make([]TriggerScore, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		out = append(out, TriggerScore{
			Trigger: enum.Trigger(tag),
			Score:   1.0,
			Source:  enum.TriggerSourceMakerTag,
		})
	}
	return MergeTriggers(nil, out)
}
