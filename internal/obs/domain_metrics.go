package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesComputedTotal counts pricing engine runs by caller and override state.
	QuotesComputedTotal *prometheus.CounterVec
	// QuoteTotalAmount observes final quote totals in store currency.
	QuoteTotalAmount *prometheus.HistogramVec
	// OrdersCreatedTotal counts persisted orders by order type.
	OrdersCreatedTotal *prometheus.CounterVec
	// OrderStatusTransitionsTotal counts pipeline transitions by target status.
	OrderStatusTransitionsTotal *prometheus.CounterVec
	// CreditAppliedAmount accumulates customer credit consumed by orders.
	CreditAppliedAmount prometheus.Counter
	// RepriceMismatchTotal counts audited orders whose stored total differs from a fresh quote.
	RepriceMismatchTotal prometheus.Counter
	// RepriceAuditTotal counts reprice audit runs by outcome.
	RepriceAuditTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesComputedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_computed_total",
			Help:      "Count of price quotes computed.",
		}, []string{"source", "overridden"}))
		QuoteTotalAmount = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_final_total",
			Help:      "Distribution of quote amounts due.",
			Buckets:   []float64{10, 15, 20, 30, 45, 60, 90, 150, 250},
		}, []string{"source"}))
		OrdersCreatedTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Count of orders created by order type.",
		}, []string{"order_type"}))
		OrderStatusTransitionsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Count of order status transitions by target status.",
		}, []string{"status"}))
		CreditAppliedAmount = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_applied_amount_total",
			Help:      "Customer credit consumed by orders.",
		}))
		RepriceMismatchTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reprice_mismatch_total",
			Help:      "Orders whose stored calculated total differs from a recomputed quote.",
		}))
		RepriceAuditTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reprice_audit_total",
			Help:      "Reprice audit runs by result.",
		}, []string{"result"}))
	})
}

// ObserveQuote records a computed quote when domain metrics are registered.
func ObserveQuote(source string, overridden bool, finalTotal float64) {
	if QuotesComputedTotal == nil {
		return
	}
	flag := "false"
	if overridden {
		flag = "true"
	}
	QuotesComputedTotal.WithLabelValues(source, flag).Inc()
	QuoteTotalAmount.WithLabelValues(source).Observe(finalTotal)
}

// ObserveOrderCreated records a new order and the credit it consumed.
func ObserveOrderCreated(orderType string, credit float64) {
	if OrdersCreatedTotal == nil {
		return
	}
	OrdersCreatedTotal.WithLabelValues(orderType).Inc()
	if credit > 0 {
		CreditAppliedAmount.Add(credit)
	}
}

// ObserveStatusTransition records a pipeline move.
func ObserveStatusTransition(status string) {
	if OrderStatusTransitionsTotal == nil {
		return
	}
	OrderStatusTransitionsTotal.WithLabelValues(status).Inc()
}

// ObserveRepriceAudit records the outcome of a reprice audit.
func ObserveRepriceAudit(result string, mismatch bool) {
	if RepriceAuditTotal == nil {
		return
	}
	RepriceAuditTotal.WithLabelValues(result).Inc()
	if mismatch {
		RepriceMismatchTotal.Inc()
	}
}
