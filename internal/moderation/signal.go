package moderation

import (
	"context"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/database/types/enum"
)

// Image is the input handed to every scorer.
type Image struct {
	Data        []byte
	MIMEType    string
	Fingerprint types.Fingerprint
}

// Signal is one scorer observation before thresholds are applied.
type Signal struct {
	Trigger enum.Trigger
	Score   float64
	Source  enum.TriggerSource
	// Severity is set by scorers that assert a severity of their own.
	Severity enum.Severity
	// Reason optionally explains a forbidden verdict.
	Reason string
}

// Scorer is an external classifier.
type Scorer interface {
	// Name identifies the scorer in logs and metrics.
	Name() string
	// Score classifies the image. It must honour ctx cancellation.
	Score(ctx context.Context, img *Image) ([]Signal, error)
}
