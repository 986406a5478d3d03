package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AuthEvents counts auth operations by outcome (success, rejected, error).
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tanrid", Name: "auth_events_total", Help: "Auth operations by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	// RateLimitDecisions counts limiter decisions (allowed, rejected, error) per limiter backend.
	RateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "tanrid", Name: "rate_limit_decisions_total", Help: "Rate limiter decisions by limiter type."},
		[]string{"limiter", "decision"},
	)
)

// RegisterCollectors registers the auth collectors on reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(AuthEvents)
	reg.MustRegister(RateLimitDecisions)
}
