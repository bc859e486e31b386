package authinterceptor

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess        = "success"
	resultRejected       = "rejected"
	resultUnavailable    = "unavailable"
	resultNoRefreshToken = "no_refresh_token"
)

type Metrics struct {
	refreshes       *prometheus.CounterVec
	retries         prometheus.Counter
	sessionsCleared prometheus.Counter
	sharedWaits     prometheus.Counter
}

// NewMetrics creates the interceptor metrics and registers them with reg, a nil
// registerer keeps them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sipwell",
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Token refreshes by result.",
		}, []string{"result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sipwell",
			Subsystem: "auth",
			Name:      "retried_requests_total",
			Help:      "Requests resubmitted after a successful refresh.",
		}),
		sessionsCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sipwell",
			Subsystem: "auth",
			Name:      "sessions_cleared_total",
			Help:      "Sessions ended because they could not be refreshed.",
		}),
		sharedWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sipwell",
			Subsystem: "auth",
			Name:      "shared_refresh_waits_total",
			Help:      "Refresh results delivered to more than one waiting request.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.refreshes, m.retries, m.sessionsCleared, m.sharedWaits)
	}
	return m
}
