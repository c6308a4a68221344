// Package review manages the human review lifecycle: case creation,
// moderator locks, decisions and the anti-abuse cooldown.
package review

import (
	"time"

	"github.com/robalyx/imagegate/internal/setup/config"
)

// Config controls the review workflow.
type Config struct {
	// FalseAppealThreshold is the rejected-appeal count that starts a cooldown.
	FalseAppealThreshold int
	// Cooldown is how long a user is barred from new cases.
	Cooldown time.Duration
	// LockTTL is how long a moderator claim lasts without renewal.
	LockTTL time.Duration
	// MaxMessageLength bounds the public decision message, in characters.
	MaxMessageLength int
	// MaxReasons bounds the number of reason codes on a decision.
	MaxReasons int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FalseAppealThreshold: 2,
		Cooldown:             7 * 24 * time.Hour,
		LockTTL:              5 * time.Minute,
		MaxMessageLength:     280,
		MaxReasons:           3,
	}
}

// ConfigFrom maps file settings onto a review Config.
func ConfigFrom(cfg *config.ModerationConfig) Config {
	c := DefaultConfig()
	c.FalseAppealThreshold = cfg.FalseAppealThreshold
	c.Cooldown = time.Duration(cfg.CooldownDays) * 24 * time.Hour
	c.LockTTL = time.Duration(cfg.LockTTL) * time.Second
	return c
}
