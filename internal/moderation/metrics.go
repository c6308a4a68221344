package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var moderationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "imagegate_moderation_duration_sec",
	Help: "Duration of full moderation calls",
})

var moderationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imagegate_moderation_outcome_count",
	Help: "Number of moderation calls, by outcome and whether the verdict was reused",
}, []string{"outcome", "cache"})

var scorerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "imagegate_scorer_duration_sec",
	Help: "Duration of external scorer calls, by scorer",
}, []string{"scorer"})

var scorerCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imagegate_scorer_call_count",
	Help: "Number of external scorer calls, by scorer and status",
}, []string{"scorer", "status"})

var reviewCaseEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imagegate_review_case_count",
	Help: "Review case handling for forbidden uploads, by result",
}, []string{"result"})

var persistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "imagegate_persistence_failure_count",
	Help: "Best-effort writes that failed, by target",
}, []string{"target"})
