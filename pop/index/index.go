// Package index binds a validated filter to a key and holds the exact set of
// entities that currently satisfy it.
package index

import (
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/types"
)

// Index is a population index. It is maintained by the manager; callers
// read it through the manager's API.
type Index struct {
	key     types.Key
	filter  *filter.Filter
	deps    types.TriggerSet
	members *memberSet
}

// New returns an empty index for a filter that has already been validated.
func New(key types.Key, f *filter.Filter) *Index {
	return &Index{
		key:     key,
		filter:  f,
		deps:    filter.Dependencies(f),
		members: newMemberSet(),
	}
}

func (ix *Index) Key() types.Key                 { return ix.key }
func (ix *Index) Filter() *filter.Filter         { return ix.filter }
func (ix *Index) Dependencies() types.TriggerSet { return ix.deps }

// DependsOn reports whether a mutation of kind can change membership.
func (ix *Index) DependsOn(kind types.TriggerKind) bool {
	return ix.deps.Has(kind)
}

func (ix *Index) Contains(e types.EntityID) bool { return ix.members.contains(e) }
func (ix *Index) Size() int                      { return ix.members.len() }

// Members returns the members in the order of their most recent entry. An
// entity that leaves and re-enters moves to the end.
func (ix *Index) Members() []types.EntityID { return ix.members.list() }

// Populate evaluates the filter over entities and inserts every match. It
// is used once, when the index is created.
func (ix *Index) Populate(entities []types.EntityID, attrs filter.Attributes) int {
	for _, e := range entities {
		if filter.Evaluate(ix.filter, attrs, e) {
			ix.members.insert(e)
		}
	}
	return ix.members.len()
}

// Reevaluate recomputes membership of e against current attribute values
// and applies any change. It returns the transition, or ok=false when
// membership is unchanged.
func (ix *Index) Reevaluate(e types.EntityID, attrs filter.Attributes) (kind types.EventKind, ok bool) {
	match := filter.Evaluate(ix.filter, attrs, e)
	switch {
	case match && ix.members.insert(e):
		return types.EventAddition, true
	case !match && ix.members.remove(e):
		return types.EventRemoval, true
	}
	return 0, false
}

// Drop removes e without evaluating the filter and reports whether it was a
// member.
func (ix *Index) Drop(e types.EntityID) bool {
	return ix.members.remove(e)
}
