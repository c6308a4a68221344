package moderation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Aggregation is the raw material for the policy: authoritative maker tags
// plus every signal the scorers returned.
type Aggregation struct {
	MakerTags []types.TriggerScore
	Signals   []Signal
	// Failed lists scorers whose call errored or timed out.
	Failed []string
}

// Aggregator runs the scorers concurrently with per-scorer timeouts.
type Aggregator struct {
	scorers []Scorer
	timeout time.Duration
	logger  *zap.Logger
}

// NewAggregator creates an aggregator over the given scorers.
func NewAggregator(scorers []Scorer, timeout time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		scorers: scorers,
		timeout: timeout,
		logger:  logger.Named("aggregator"),
	}
}

type scorerResult struct {
	index   int
	name    string
	signals []Signal
	err     error
}

// Aggregate converts maker tags and collects signals from every scorer.
// A failing scorer is logged and skipped; it never fails the aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, img *Image, makerTags []string) *Aggregation {
	result := &Aggregation{MakerTags: types.MakerTagTriggers(makerTags)}
	if len(a.scorers) == 0 {
		return result
	}

	p := pool.NewWithResults[scorerResult]()
	for i, scorer := range a.scorers {
		p.Go(func() scorerResult {
			signals, err := a.run(ctx, scorer, img)
			return scorerResult{index: i, name: scorer.Name(), signals: signals, err: err}
		})
	}

	results := p.Wait()
	slices.SortFunc(results, func(x, y scorerResult) int { return x.index - y.index })

	for _, r := range results {
		if r.err != nil {
			a.logger.Warn("Scorer failed, continuing with partial signals",
				zap.String("scorer", r.name),
				zap.Error(r.err))
			result.Failed = append(result.Failed, r.name)
			continue
		}
		result.Signals = append(result.Signals, r.signals...)
	}

	return result
}

// run calls one scorer under its own timeout. The call is abandoned if the
// scorer ignores cancellation.
func (a *Aggregator) run(ctx context.Context, scorer Scorer, img *Image) (signals []Signal, err error) {
	name := scorer.Name()
	ctx, span := tracer.Start(ctx, "scorer."+name)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		scorerDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
			if errors.Is(err, context.DeadlineExceeded) {
				status = "timeout"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		scorerCalls.WithLabelValues(name, status).Inc()
		span.SetAttributes(attribute.Int("signals", len(signals)))
	}()

	done := make(chan scorerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- scorerResult{err: fmt.Errorf("%w: %s panicked: %v", types.ErrUpstreamScorer, name, r)}
			}
		}()
		signals, err := scorer.Score(ctx, img)
		done <- scorerResult{signals: signals, err: err}
	}()

	select {
	case r := <-done:
		switch {
		case r.err == nil:
			return r.signals, nil
		case errors.Is(r.err, types.ErrUpstreamScorer):
			return nil, r.err
		default:
			return nil, fmt.Errorf("%w: %s: %w", types.ErrUpstreamScorer, name, r.err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", types.ErrUpstreamScorer, name, ctx.Err())
	}
}
