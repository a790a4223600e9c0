package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts business events.
type DomainMetrics struct {
	checkouts   *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Applied order status transitions.",
		}, []string{"from", "to"}),
	}
	reg.MustRegister(m.checkouts, m.transitions)
	return m
}

// Checkout records a checkout outcome such as "success" or "insufficient_stock".
func (d *DomainMetrics) Checkout(outcome string) {
	if d == nil || d.checkouts == nil {
		return
	}
	d.checkouts.WithLabelValues(outcome).Inc()
}

// Transition records an applied order status change.
func (d *DomainMetrics) Transition(from, to string) {
	if d == nil || d.transitions == nil {
		return
	}
	d.transitions.WithLabelValues(from, to).Inc()
}
