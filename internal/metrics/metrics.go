// Package metrics holds the Prometheus collectors of a run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MergeOutcomes counts facts per merger, input theme and outcome.
	MergeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yago",
		Subsystem: "merge",
		Name:      "facts_total",
		Help:      "Facts offered to a merger, by outcome",
	}, []string{"merger", "theme", "outcome"})

	RuleFirings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yago",
		Subsystem: "deduce",
		Name:      "firings_total",
		Help:      "Rule firings",
	}, []string{"stage"})

	DerivedFacts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yago",
		Subsystem: "deduce",
		Name:      "derived_total",
		Help:      "Distinct facts derived by rules",
	}, []string{"stage"})

	// StageDuration measures stage runs. Labels: stage, status (ok, error)
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "yago",
		Subsystem: "stage",
		Name:      "duration_seconds",
		Help:      "Stage run time in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
	}, []string{"stage", "status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yago",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "API requests by route and status code",
	}, []string{"route", "code"})
)

// ObserveStage records the duration of a stage run.
func ObserveStage(stage string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StageDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
}
