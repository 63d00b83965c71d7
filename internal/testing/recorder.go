package testing

import (
	"github.com/teranos/popidx/pop/types"
)

// Recorder collects every event delivered to it.
type Recorder struct {
	events []types.Event
}

// Handle is an observe.Handler.
func (r *Recorder) Handle(ev types.Event) {
	r.events = append(r.events, ev)
}

// Events returns the recorded events in delivery order.
func (r *Recorder) Events() []types.Event {
	return append([]types.Event(nil), r.events...)
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int { return len(r.events) }

// Count returns how many events of kind were recorded for key.
func (r *Recorder) Count(key types.Key, kind types.EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Key == key && ev.Kind == kind {
			n++
		}
	}
	return n
}

// Replay applies the recorded ADD/REMOVE events for key to initial and
// returns the resulting membership.
func (r *Recorder) Replay(key types.Key, initial []types.EntityID) map[types.EntityID]bool {
	set := make(map[types.EntityID]bool, len(initial))
	for _, e := range initial {
		set[e] = true
	}
	for _, ev := range r.events {
		if ev.Key != key {
			continue
		}
		if ev.Kind == types.EventAddition {
			set[ev.Entity] = true
		} else {
			delete(set, ev.Entity)
		}
	}
	return set
}

// Reset discards recorded events.
func (r *Recorder) Reset() { r.events = nil }
