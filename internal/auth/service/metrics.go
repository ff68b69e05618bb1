package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for auth_operations_total.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

var (
	operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Login, refresh and logout calls by outcome.",
	}, []string{"operation", "outcome"})

	refreshReuseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_refresh_reuse_total",
		Help: "Correctly signed refresh tokens presented without an active record.",
	})

	housekeepingSweptTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_housekeeping_swept_total",
		Help: "Stale rate limit windows removed by the housekeeping worker.",
	}, []string{"backend"})
)

// Collectors returns the service metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{operationsTotal, refreshReuseTotal, housekeepingSweptTotal}
}

func observe(op string, err error, rejected ...error) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeError
		for _, r := range rejected {
			if errors.Is(err, r) {
				outcome = outcomeRejected
				break
			}
		}
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}
