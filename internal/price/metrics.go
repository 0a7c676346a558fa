package price

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PriceUSDGauge exposes the last published consensus price per asset.
	PriceUSDGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arbiter_price_usd",
		Help: "Last published consensus price in USD",
	}, []string{"symbol"})

	// RefreshesTotal tracks completed per-asset refresh rounds.
	RefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_price_refreshes_total",
		Help: "Total number of completed price refresh rounds",
	}, []string{"symbol"})

	// SourceFailuresTotal tracks per-source fetch failures.
	SourceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_price_source_failures_total",
		Help: "Total number of failed price source fetches",
	}, []string{"source"})

	// InsufficientSourcesTotal counts refresh rounds rejected by the
	// minimum-source policy.
	InsufficientSourcesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_price_insufficient_sources_total",
		Help: "Total number of refresh rounds with too few accepted samples",
	}, []string{"symbol"})
)
