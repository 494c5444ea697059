package resilience

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "storefront"

var (
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "breaker_state",
			Help:      "Current breaker state per upstream: 0=closed,1=open,2=half-open",
		},
		[]string{"target"},
	)
	BreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions",
		},
		[]string{"target", "from", "to"},
	)
	BreakerOpenedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "breaker_open_total",
			Help:      "Number of times a breaker transitioned into open state",
		},
		[]string{"target"},
	)
	UpstreamAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_attempts_total",
			Help:      "HTTP attempts made against upstream providers by outcome",
		},
		[]string{"target", "result"},
	)
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, UpstreamAttempts)
}
