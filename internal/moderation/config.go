// Package moderation turns an uploaded image into a policy outcome: it
// fingerprints the bytes, reuses earlier verdicts for duplicates, fans out to
// the scorers and applies the decision thresholds.
package moderation

import (
	"time"

	"github.com/robalyx/imagegate/internal/setup/config"
)

// Config holds the engine thresholds. It is passed in at construction so
// tests can vary it freely.
type Config struct {
	// HammingThreshold is the largest distance treated as a near duplicate.
	HammingThreshold int
	// BucketScanLimit bounds how many recent uploads of a prefix bucket are compared.
	BucketScanLimit int
	// ForbiddenThreshold is the score at or above which a trigger forbids.
	ForbiddenThreshold float64
	// SuggestThreshold is the score at or above which a trigger is suggested.
	SuggestThreshold float64
	// MediumLogThreshold only affects logging.
	MediumLogThreshold float64
	// ScorerTimeout bounds each scorer call.
	ScorerTimeout time.Duration
	// RequestTimeout bounds the whole moderation call.
	RequestTimeout time.Duration
	// DigestCacheTTL is how long a digest stays in the exact-match cache.
	DigestCacheTTL time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		HammingThreshold:   8,
		BucketScanLimit:    25,
		ForbiddenThreshold: 0.7,
		SuggestThreshold:   0.45,
		MediumLogThreshold: 0.55,
		ScorerTimeout:      10 * time.Second,
		RequestTimeout:     30 * time.Second,
		DigestCacheTTL:     72 * time.Hour,
	}
}

// ConfigFrom maps file settings onto an engine Config.
func ConfigFrom(cfg *config.ModerationConfig) Config {
	return Config{
		HammingThreshold:   cfg.HammingThreshold,
		BucketScanLimit:    cfg.BucketScanLimit,
		ForbiddenThreshold: cfg.ForbiddenThreshold,
		SuggestThreshold:   cfg.SuggestThreshold,
		MediumLogThreshold: cfg.MediumLogThreshold,
		ScorerTimeout:      time.Duration(cfg.ScorerTimeout) * time.Millisecond,
		RequestTimeout:     time.Duration(cfg.RequestTimeout) * time.Second,
		DigestCacheTTL:     time.Duration(cfg.DigestCacheTTL) * time.Hour,
	}
}
