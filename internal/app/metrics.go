package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BlocksHandledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_pipeline_blocks_handled_total",
		Help: "Total number of blocks run through the decision pipeline",
	})

	BlockHandleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbiter_pipeline_block_handle_duration_seconds",
		Help:    "Time spent refreshing prices and scanning per block",
		Buckets: prometheus.DefBuckets,
	})

	ExecutionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_pipeline_executions_total",
		Help: "Total number of arbitrage transactions submitted",
	})
)
