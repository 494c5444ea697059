package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartMutationsTotal counts cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// CartStoreFailuresTotal counts best-effort cart persistence failures.
	CartStoreFailuresTotal *prometheus.CounterVec
	// CheckoutTransitionsTotal counts checkout step transitions.
	CheckoutTransitionsTotal *prometheus.CounterVec
	// OrderSubmissionsTotal counts order submission outcomes.
	OrderSubmissionsTotal *prometheus.CounterVec
	// OrderSubmitLatency records order provider latency in milliseconds.
	OrderSubmitLatency *prometheus.HistogramVec
	// CatalogCacheTotal counts catalog cache lookups by result.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"})
		CartStoreFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_store_failures_total",
			Help:      "Count of cart load/save failures recovered locally.",
		}, []string{"op"})
		CheckoutTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_transitions_total",
			Help:      "Count of checkout step transitions.",
		}, []string{"from", "to"})
		OrderSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submissions_total",
			Help:      "Count of order submission outcomes.",
		}, []string{"result"})
		OrderSubmitLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_submit_duration_ms",
			Help:      "Latency of order provider calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Count of catalog cache lookups by result.",
		}, []string{"result"})

		CartMutationsTotal = register(reg, CartMutationsTotal)
		CartStoreFailuresTotal = register(reg, CartStoreFailuresTotal)
		CheckoutTransitionsTotal = register(reg, CheckoutTransitionsTotal)
		OrderSubmissionsTotal = register(reg, OrderSubmissionsTotal)
		OrderSubmitLatency = register(reg, OrderSubmitLatency)
		CatalogCacheTotal = register(reg, CatalogCacheTotal)
	})
}

// IncCounter increments vec for labels when metrics are registered.
func IncCounter(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

// ObserveMillis records a latency sample when metrics are registered.
func ObserveMillis(vec *prometheus.HistogramVec, ms float64, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Observe(ms)
}
