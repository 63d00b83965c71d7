// Package observe delivers index membership events to subscribers.
//
// Subscribers are opaque handles issued by Register. Each index key has an
// ordered subscriber list; delivery is synchronous and in subscription order.
// A Router is not safe for concurrent use.
package observe

import (
	"slices"

	"github.com/google/uuid"
	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/pop/types"
	"go.uber.org/zap"
)

// Handler receives events for every key its subscriber is subscribed to.
type Handler func(ev types.Event)

// Router owns the subscriber dispatch table.
type Router struct {
	logger   *zap.SugaredLogger
	handlers map[types.SubscriberID]Handler
	subs     map[types.Key][]types.SubscriberID

	// gens identifies each opening of a key. A key that is closed and
	// reopened gets a new generation, so deliveries for the old index stop.
	gens    map[types.Key]uint64
	nextGen uint64

	trace bool
}

// NewRouter returns an empty router. A nil logger is replaced by a no-op.
func NewRouter(logger *zap.SugaredLogger) *Router {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Router{
		logger:   logger,
		handlers: make(map[types.SubscriberID]Handler),
		subs:     make(map[types.Key][]types.SubscriberID),
		gens:     make(map[types.Key]uint64),
	}
}

// SetTrace enables a debug log line for every delivered event.
func (r *Router) SetTrace(enabled bool) {
	r.trace = enabled
}

// Register issues a new subscriber handle for h.
func (r *Router) Register(h Handler) types.SubscriberID {
	id := types.SubscriberID(uuid.NewString())
	r.handlers[id] = h
	return id
}

// Unregister drops a handle and every subscription it holds.
func (r *Router) Unregister(id types.SubscriberID) error {
	if _, ok := r.handlers[id]; !ok {
		return errors.Wrapf(errors.ErrUnknownSubscriber, "subscriber %s", id)
	}
	delete(r.handlers, id)
	for key, list := range r.subs {
		r.subs[key] = slices.DeleteFunc(list, func(s types.SubscriberID) bool { return s == id })
	}
	return nil
}

// Registered reports whether id is a live handle.
func (r *Router) Registered(id types.SubscriberID) bool {
	_, ok := r.handlers[id]
	return ok
}

// Open makes key available for subscriptions.
func (r *Router) Open(key types.Key) {
	if _, ok := r.subs[key]; !ok {
		r.subs[key] = nil
		r.nextGen++
		r.gens[key] = r.nextGen
	}
}

// Close discards key and all of its subscriptions. Deliveries for key that
// are still in progress stop at the next subscriber.
func (r *Router) Close(key types.Key) {
	delete(r.subs, key)
	delete(r.gens, key)
}

// IsOpen reports whether key accepts subscriptions.
func (r *Router) IsOpen(key types.Key) bool {
	_, ok := r.subs[key]
	return ok
}

// SetSubscription enables or disables delivery of key's events to id.
// Both directions are idempotent.
func (r *Router) SetSubscription(key types.Key, id types.SubscriberID, enable bool) error {
	list, ok := r.subs[key]
	if !ok {
		return errors.Wrapf(errors.ErrUnknownPopulationIndexKey, "key %q", key)
	}
	if !r.Registered(id) {
		return errors.Wrapf(errors.ErrUnknownSubscriber, "subscriber %s", id)
	}
	i := slices.Index(list, id)
	switch {
	case enable && i < 0:
		r.subs[key] = append(list, id)
	case !enable && i >= 0:
		r.subs[key] = slices.Delete(list, i, i+1)
	}
	return nil
}

// Subscribers returns key's subscribers in subscription order.
func (r *Router) Subscribers(key types.Key) []types.SubscriberID {
	return slices.Clone(r.subs[key])
}

// Subscribed reports whether id currently receives key's events.
func (r *Router) Subscribed(key types.Key, id types.SubscriberID) bool {
	return slices.Contains(r.subs[key], id)
}

// Deliver sends one event per subscriber of key. The subscriber list is
// captured before the first callback, so a handler that changes
// subscriptions does not affect the rest of this delivery. Delivery stops
// if key is closed by a handler, including when the handler reopens key for
// a new index. It returns the number of handlers called.
func (r *Router) Deliver(key types.Key, kind types.EventKind, e types.EntityID, now float64) int {
	gen, ok := r.gens[key]
	if !ok {
		return 0
	}
	targets := r.Subscribers(key)
	n := 0
	for _, id := range targets {
		if cur, ok := r.gens[key]; !ok || cur != gen {
			r.logger.Debugw("Delivery stopped, index removed",
				"key", key,
				"remaining", len(targets)-n)
			return n
		}
		h, ok := r.handlers[id]
		if !ok {
			continue
		}
		if r.trace {
			r.logger.Debugw("Delivering event",
				"key", key,
				"kind", kind,
				"entity", e,
				"subscriber", id,
				"time", now)
		}
		h(types.Event{Time: now, Subscriber: id, Kind: kind, Key: key, Entity: e})
		n++
	}
	return n
}
