package types

import "time"

// DefaultReviewRightsLevel is assigned to users seen for the first time.
const DefaultReviewRightsLevel = 1

// UserModerationState tracks a user's review allowance and anti-abuse counters.
type UserModerationState struct {
	UserID            string    `bun:",pk"       json:"userId"`
	OpenReviewCount   int       `bun:",notnull"  json:"openReviewCount"`         // Open cases owned by the user, 0 or 1
	CooldownUntil     time.Time `bun:",nullzero" json:"cooldownUntil,omitzero"`  // No new cases before this time
	FalseAppealCount  int       `bun:",notnull"  json:"falseAppealCount"`        // Rejected appeals so far
	ReviewRightsLevel int       `bun:",notnull"  json:"reviewRightsLevel"`       // 0 disables new cases
	UpdatedAt         time.Time `bun:",notnull"  json:"updatedAt"`
}

// NewUserModerationState returns the lazily-initialised default state.
func NewUserModerationState(userID string) *UserModerationState {
	return &UserModerationState{
		UserID:            userID,
		ReviewRightsLevel: DefaultReviewRightsLevel,
	}
}

// InCooldown reports whether the user is barred from new cases at now.
func (s *UserModerationState) InCooldown(now time.Time) bool {
	return !s.CooldownUntil.IsZero() && s.CooldownUntil.After(now)
}

// RegisterFalseAppeal bumps the false-appeal counter and starts a cooldown once
// the counter reaches threshold. It reports whether a cooldown was started.
func (s *UserModerationState) RegisterFalseAppeal(now time.Time, threshold int, cooldown time.Duration) bool {
	s.FalseAppealCount++
	if s.FalseAppealCount >= threshold {
		s.CooldownUntil = now.Add(cooldown)
		return true
	}
	return false
}
