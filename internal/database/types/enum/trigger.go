package enum

// Trigger is a content-warning identifier such as "nudityErotic".
// Maker tags and LLM output may carry identifiers outside the constants below.
type Trigger string

const (
	TriggerNudityErotic      Trigger = "nudityErotic"
	TriggerExplicit18        Trigger = "explicit18"
	TriggerNeedlesInjections Trigger = "needlesInjections"
	TriggerSpidersInsects    Trigger = "spidersInsects"
)

// IsScoredByVision reports whether the safe-search or label scorers already
// cover this trigger.
func (t Trigger) IsScoredByVision() bool {
	switch t {
	case TriggerNudityErotic, TriggerExplicit18, TriggerNeedlesInjections, TriggerSpidersInsects:
		return true
	default:
		return false
	}
}
