package strategy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EvaluationsTotal tracks opportunity evaluation rounds.
	EvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_strategy_evaluations_total",
		Help: "Total number of opportunity evaluation rounds",
	})

	// SelectedOpportunitiesTotal tracks rounds that produced a winner.
	SelectedOpportunitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_strategy_selected_total",
		Help: "Total number of opportunities selected for execution",
	})

	// PathsFoundTotal tracks successful optimal-path searches.
	PathsFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_strategy_paths_found_total",
		Help: "Total number of profitable paths found",
	})

	// EvaluationDurationSeconds tracks evaluation round latency.
	EvaluationDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbiter_strategy_evaluation_duration_seconds",
		Help:    "Opportunity evaluation duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
