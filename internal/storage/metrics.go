package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsTotal tracks persisted opportunity rows.
	RecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_storage_records_total",
		Help: "Total number of opportunities persisted",
	})

	// RecordFailuresTotal tracks failed inserts.
	RecordFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_storage_record_failures_total",
		Help: "Total number of failed opportunity inserts",
	})
)
