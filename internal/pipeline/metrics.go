package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageOutcomes counts how each stage of a run ended.
	StageOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podscribe",
			Name:      "stage_outcomes_total",
			Help:      "Total number of workflow stage outcomes",
		},
		[]string{"stage", "outcome"},
	)

	// StageDuration measures the time a stage spent calling out to providers.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "podscribe",
			Name:      "stage_duration_seconds",
			Help:      "Duration of workflow stages that did work, in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"stage"},
	)
)

// Outcome labels for [StageOutcomes].
const (
	outcomeGenerated = "generated"
	outcomeExisting  = "existing"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

func recordOutcome(stage Stage, outcome string) {
	StageOutcomes.WithLabelValues(string(stage), outcome).Inc()
}

func recordDuration(stage Stage, seconds float64) {
	StageDuration.WithLabelValues(string(stage)).Observe(seconds)
}
