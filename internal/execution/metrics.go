package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal tracks submitted transactions by route.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbiter_execution_submissions_total",
		Help: "Total number of submitted transactions",
	}, []string{"route"})

	// CancellationsTotal tracks replacement self-transfers.
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_execution_cancellations_total",
		Help: "Total number of cancellation transactions sent",
	})

	// WaitTimeoutsTotal tracks WaitForTransaction deadline expiries.
	WaitTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_execution_wait_timeouts_total",
		Help: "Total number of transaction waits that timed out",
	})

	// GasRefreshesTotal tracks live gas data refreshes.
	GasRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbiter_execution_gas_refreshes_total",
		Help: "Total number of live gas data refreshes",
	})
)
