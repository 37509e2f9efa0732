package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingRunTotal counts pricing run outcomes per trigger.
	PricingRunTotal *prometheus.CounterVec
	// PricingRunDuration records pricing run latency in milliseconds.
	PricingRunDuration *prometheus.HistogramVec
	// DiscountAppliedTotal counts applied discounts by kind and scope.
	DiscountAppliedTotal *prometheus.CounterVec
	// RepriceTasksTotal counts background reprice task outcomes.
	RepriceTasksTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers pricing-engine Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingRunTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_run_total",
			Help:      "Count of pricing run outcomes by trigger and result.",
		}, []string{"trigger", "result"})
		PricingRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_run_duration_ms",
			Help:      "Latency of pricing runs in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"trigger"})
		DiscountAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_applied_total",
			Help:      "Count of individual discounts applied during pricing runs.",
		}, []string{"kind", "scope"})
		RepriceTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reprice_tasks_total",
			Help:      "Count of background event reprice task outcomes.",
		}, []string{"result"})
		reg.MustRegister(PricingRunTotal, PricingRunDuration, DiscountAppliedTotal, RepriceTasksTotal)
	})
}
