// Package metrics provides Prometheus metrics for the index manager
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/teranos/popidx/pop/types"
)

// Metrics holds all Prometheus metrics for one manager. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Index registry
	IndexesActive prometheus.Gauge
	IndexesTotal  *prometheus.CounterVec

	// Incremental maintenance
	MutationsTotal   *prometheus.CounterVec
	EvaluationsTotal prometheus.Counter
	TransitionsTotal *prometheus.CounterVec
	EventsDelivered  prometheus.Counter

	// Re-entrant mutations
	DeferredTotal prometheus.Counter
	RejectedTotal prometheus.Counter
	PendingDepth  prometheus.Gauge
}

// New creates and registers all metrics with reg under namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.IndexesActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "indexes_active",
		Help:      "Number of registered population indexes",
	})

	m.IndexesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "index_operations_total",
		Help:      "Index registrations and removals by outcome",
	}, []string{"operation", "status"})

	m.MutationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Mutation notifications received, by trigger class",
	}, []string{"trigger"})

	m.EvaluationsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Filter evaluations against a single entity",
	})

	m.TransitionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Membership transitions, by kind",
	}, []string{"kind"})

	m.EventsDelivered = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_delivered_total",
		Help:      "Events handed to subscriber callbacks",
	})

	m.DeferredTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_deferred_total",
		Help:      "Mutations queued because they arrived during dispatch",
	})

	m.RejectedTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_rejected_total",
		Help:      "Mutations rejected because they arrived during dispatch",
	})

	m.PendingDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mutations_pending",
		Help:      "Deferred mutations not yet applied",
	})

	return m
}

// IndexAdded records a registration attempt.
func (m *Metrics) IndexAdded(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.IndexesTotal.WithLabelValues("add", "error").Inc()
		return
	}
	m.IndexesTotal.WithLabelValues("add", "ok").Inc()
	m.IndexesActive.Inc()
}

// IndexRemoved records a removal attempt.
func (m *Metrics) IndexRemoved(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.IndexesTotal.WithLabelValues("remove", "error").Inc()
		return
	}
	m.IndexesTotal.WithLabelValues("remove", "ok").Inc()
	m.IndexesActive.Dec()
}

// Mutation records an incoming mutation notification.
func (m *Metrics) Mutation(class string) {
	if m == nil {
		return
	}
	m.MutationsTotal.WithLabelValues(class).Inc()
}

// Evaluated records n filter evaluations.
func (m *Metrics) Evaluated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.EvaluationsTotal.Add(float64(n))
}

// Transition records one membership transition and its deliveries.
func (m *Metrics) Transition(kind types.EventKind, delivered int) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(kind.String()).Inc()
	m.EventsDelivered.Add(float64(delivered))
}

// Deferred records a queued mutation and the resulting queue depth.
func (m *Metrics) Deferred(depth int) {
	if m == nil {
		return
	}
	m.DeferredTotal.Inc()
	m.PendingDepth.Set(float64(depth))
}

// Drained records the queue depth after a deferred mutation is applied.
func (m *Metrics) Drained(depth int) {
	if m == nil {
		return
	}
	m.PendingDepth.Set(float64(depth))
}

// Rejected records a mutation refused during dispatch.
func (m *Metrics) Rejected() {
	if m == nil {
		return
	}
	m.RejectedTotal.Inc()
}
