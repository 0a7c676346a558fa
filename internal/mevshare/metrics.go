package mevshare

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks relay API requests by path.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_mevshare_requests_total",
		Help: "Total number of relay API requests",
	}, []string{"path"})

	// RequestFailuresTotal tracks failed relay API requests by path.
	RequestFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_mevshare_request_failures_total",
		Help: "Total number of failed relay API requests",
	}, []string{"path"})

	// HintsReceivedTotal tracks decoded pending-transaction hints.
	HintsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_mevshare_hints_received_total",
		Help: "Total number of pending-transaction hints received",
	})
)
