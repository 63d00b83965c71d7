package filter

import (
	"github.com/teranos/popidx/pop/types"
)

// Dependencies returns the trigger kinds whose mutation can change f's
// outcome for an entity. The set is conservative: it may name triggers that
// cannot flip a particular entity, never the reverse. AllEntities depends on
// nothing; population joins and departures are handled separately.
func Dependencies(f *Filter) types.TriggerSet {
	deps := make(types.TriggerSet)
	collect(f, deps)
	return deps
}

func collect(f *Filter, deps types.TriggerSet) {
	if f == nil {
		return
	}
	collect(f.left, deps)
	collect(f.right, deps)
	if f.op != OpLeaf {
		return
	}
	switch l := f.leaf; l.Dimension {
	case DimProperty:
		deps.Add(types.PropertyChanged(l.Property))
	case DimCategory:
		deps.Add(types.CategoryChanged(l.Category))
	case DimResource:
		deps.Add(types.ResourceChanged(l.Resource))
	case DimGroup, DimGroupCount, DimGroupTypeCount, DimGroupCountForType:
		deps.Add(types.GroupMembershipChanged())
	}
}
