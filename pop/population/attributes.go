package population

import (
	"github.com/teranos/popidx/pop/types"
)

// Property returns e's value for id, falling back to the declared default.
func (s *Store) Property(e types.EntityID, id types.PropertyID) types.Value {
	p, ok := s.properties[id]
	if !ok {
		return types.Value{}
	}
	if v, ok := p.values[e]; ok {
		return v
	}
	return p.dflt
}

// Category returns the compartment or region e currently occupies, or "" if
// it has not been placed.
func (s *Store) Category(e types.EntityID, c types.Category) string {
	return s.placement[c][e]
}

func (s *Store) ResourceLevel(e types.EntityID, id types.ResourceID) int64 {
	return s.levels[id][e]
}

func (s *Store) InGroup(e types.EntityID, id types.GroupID) bool {
	_, ok := s.membership[e][id]
	return ok
}

// GroupsOf returns the groups e belongs to.
func (s *Store) GroupsOf(e types.EntityID) []types.GroupID {
	out := make([]types.GroupID, 0, len(s.membership[e]))
	for id := range s.membership[e] {
		out = append(out, id)
	}
	return out
}

func (s *Store) GroupCount(e types.EntityID) int {
	return len(s.membership[e])
}

// GroupTypeCount returns the number of distinct types among e's groups.
func (s *Store) GroupTypeCount(e types.EntityID) int {
	seen := make(map[types.GroupTypeID]struct{}, len(s.membership[e]))
	for id := range s.membership[e] {
		seen[s.groups[id]] = struct{}{}
	}
	return len(seen)
}

func (s *Store) GroupCountForType(e types.EntityID, typ types.GroupTypeID) int {
	n := 0
	for id := range s.membership[e] {
		if s.groups[id] == typ {
			n++
		}
	}
	return n
}
