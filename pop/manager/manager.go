// Package manager maintains the registry of population indexes and keeps
// every index exact as the population mutates.
//
// The manager is driven synchronously by the population: each mutation
// notification returns only after every dependent index has been updated
// and every resulting event delivered. Mutations that arrive while events
// are being delivered are queued and applied once delivery completes, or
// rejected, depending on the configured Reentrancy.
//
// A Manager is not safe for concurrent use.
package manager

import (
	"strings"

	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/index"
	"github.com/teranos/popidx/pop/metrics"
	"github.com/teranos/popidx/pop/observe"
	"github.com/teranos/popidx/pop/types"
	"go.uber.org/zap"
)

// Population is the attribute source the manager evaluates filters against.
type Population interface {
	filter.Schema
	filter.Attributes
	Entities() []types.EntityID
	Contains(e types.EntityID) bool
}

// Clock supplies the logical time stamped onto events.
type Clock interface {
	Now() float64
}

// InterestSink receives the union of all active dependency sets whenever it
// changes, so the source can skip notifications no index depends on.
type InterestSink interface {
	SetInterest(kinds types.TriggerSet)
}

// Reentrancy selects how mutations arriving during event delivery are handled.
type Reentrancy int

const (
	// ReentrancyDefer queues nested mutations and applies them in arrival
	// order after the current delivery completes.
	ReentrancyDefer Reentrancy = iota
	// ReentrancyReject refuses nested mutations with ErrReentrantMutation.
	ReentrancyReject
)

func (r Reentrancy) String() string {
	if r == ReentrancyReject {
		return "reject"
	}
	return "defer"
}

// ParseReentrancy maps "defer" or "reject" to a Reentrancy.
func ParseReentrancy(s string) (Reentrancy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "defer":
		return ReentrancyDefer, nil
	case "reject":
		return ReentrancyReject, nil
	}
	return ReentrancyDefer, errors.Wrapf(errors.ErrInvalidRequest, "unknown reentrancy mode %q", s)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics records manager activity in mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithRemovalNotification controls whether an entity leaving the population
// produces a REMOVE event for the indexes it was a member of. Default true.
func WithRemovalNotification(enabled bool) Option {
	return func(m *Manager) { m.notifyRemoval = enabled }
}

// WithReentrancy sets the nested mutation policy. Default ReentrancyDefer.
func WithReentrancy(r Reentrancy) Option {
	return func(m *Manager) { m.reentrancy = r }
}

// WithInterestSink overrides the sink that receives interest updates. By
// default the population is used if it implements InterestSink.
func WithInterestSink(s InterestSink) Option {
	return func(m *Manager) { m.sink = s }
}

// WithEventTrace logs every delivered event at debug level.
func WithEventTrace(enabled bool) Option {
	return func(m *Manager) { m.traceEvents = enabled }
}

// Manager owns the index registry and the observation router.
type Manager struct {
	pop     Population
	clock   Clock
	sink    InterestSink
	router  *observe.Router
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics

	indexes map[types.Key]*index.Index
	order   []types.Key
	// interest counts, per trigger kind, the indexes that depend on it.
	interest map[types.TriggerKind]int

	notifyRemoval bool
	reentrancy    Reentrancy
	dispatching   bool
	pending       []pendingChange
	traceEvents   bool
}

// New creates a manager over pop. Events are stamped with clock.Now().
func New(pop Population, clock Clock, opts ...Option) *Manager {
	m := &Manager{
		pop:           pop,
		clock:         clock,
		logger:        zap.NewNop().Sugar(),
		indexes:       make(map[types.Key]*index.Index),
		interest:      make(map[types.TriggerKind]int),
		notifyRemoval: true,
	}
	if sink, ok := pop.(InterestSink); ok {
		m.sink = sink
	}
	for _, opt := range opts {
		opt(m)
	}
	m.router = observe.NewRouter(m.logger.Named("router"))
	m.router.SetTrace(m.traceEvents)
	m.publishInterest()
	return m
}

// Router returns the router that issues subscriber handles.
func (m *Manager) Router() *observe.Router { return m.router }

// Subscribe registers h and returns its handle. The handle receives nothing
// until it is subscribed to a key with SetSubscription.
func (m *Manager) Subscribe(h observe.Handler) types.SubscriberID {
	return m.router.Register(h)
}

// Dispatching reports whether subscriber callbacks are currently running.
func (m *Manager) Dispatching() bool { return m.dispatching }

// Pending returns the number of deferred mutations not yet applied.
func (m *Manager) Pending() int { return len(m.pending) }
