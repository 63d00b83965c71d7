package index

import (
	"slices"

	"github.com/teranos/popidx/pop/types"
)

// memberSet is an insertion-ordered set of entity ids with O(1) insert,
// remove and lookup. Removal leaves a tombstone in order; tombstones are
// compacted once they outnumber live members.
type memberSet struct {
	order []types.EntityID
	alive []bool
	pos   map[types.EntityID]int
	dead  int

	snapshot []types.EntityID
	stale    bool
}

func newMemberSet() *memberSet {
	return &memberSet{pos: make(map[types.EntityID]int), stale: true}
}

func (m *memberSet) len() int { return len(m.pos) }

func (m *memberSet) contains(e types.EntityID) bool {
	_, ok := m.pos[e]
	return ok
}

func (m *memberSet) insert(e types.EntityID) bool {
	if m.contains(e) {
		return false
	}
	m.pos[e] = len(m.order)
	m.order = append(m.order, e)
	m.alive = append(m.alive, true)
	m.stale = true
	return true
}

func (m *memberSet) remove(e types.EntityID) bool {
	i, ok := m.pos[e]
	if !ok {
		return false
	}
	delete(m.pos, e)
	m.alive[i] = false
	m.dead++
	m.stale = true
	if m.dead > len(m.pos) {
		m.compact()
	}
	return true
}

func (m *memberSet) compact() {
	order := make([]types.EntityID, 0, len(m.pos))
	for i, e := range m.order {
		if m.alive[i] {
			m.pos[e] = len(order)
			order = append(order, e)
		}
	}
	m.order = order
	m.alive = make([]bool, len(order))
	for i := range m.alive {
		m.alive[i] = true
	}
	m.dead = 0
}

// list returns the live members in insertion order. The result is a copy;
// between mutations every call returns the same sequence.
func (m *memberSet) list() []types.EntityID {
	if m.stale {
		m.snapshot = make([]types.EntityID, 0, len(m.pos))
		for i, e := range m.order {
			if m.alive[i] {
				m.snapshot = append(m.snapshot, e)
			}
		}
		m.stale = false
	}
	return slices.Clone(m.snapshot)
}
