package venue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesTotal tracks successful quotes per venue.
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_venue_quotes_total",
		Help: "Total number of successful venue quotes",
	}, []string{"venue"})

	// QuoteFailuresTotal tracks failed quote requests per venue.
	QuoteFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_venue_quote_failures_total",
		Help: "Total number of failed venue quote requests",
	}, []string{"venue"})

	// QuoteDurationSeconds tracks quote latency per venue.
	QuoteDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbiter_venue_quote_duration_seconds",
		Help:    "Venue quote request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})
)
