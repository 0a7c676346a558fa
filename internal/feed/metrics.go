package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksEmittedTotal tracks heights handed to the consumer.
	BlocksEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_feed_blocks_emitted_total",
		Help: "Total number of block heights emitted to the consumer",
	})

	// BlocksProcessedTotal tracks blocks the handler completed.
	BlocksProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_feed_blocks_processed_total",
		Help: "Total number of blocks processed by the handler",
	})
)
