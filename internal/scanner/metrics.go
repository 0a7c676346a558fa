package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal tracks completed scan runs.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_scanner_scans_total",
		Help: "Total number of completed scan runs",
	})

	// ScanFailuresTotal tracks scan runs that ended with an error.
	ScanFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_scanner_scan_failures_total",
		Help: "Total number of failed scan runs",
	})

	// OpportunitiesFound tracks opportunities emitted per pair.
	OpportunitiesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_scanner_opportunities_total",
		Help: "Total number of profitable opportunities detected",
	}, []string{"pair"})

	// ScanDurationSeconds tracks how long a full scan run takes.
	ScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbiter_scanner_scan_duration_seconds",
		Help:    "Scan run duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
