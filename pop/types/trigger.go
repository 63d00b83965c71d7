package types

import (
	"sort"
)

// TriggerClass groups trigger kinds by the dimension they mutate.
type TriggerClass uint8

const (
	TriggerProperty TriggerClass = iota + 1
	TriggerCategory
	TriggerResource
	TriggerGroupMembership
)

func (c TriggerClass) String() string {
	switch c {
	case TriggerProperty:
		return "property"
	case TriggerCategory:
		return "category"
	case TriggerResource:
		return "resource"
	case TriggerGroupMembership:
		return "group_membership"
	default:
		return "unknown"
	}
}

// TriggerKind is a category of attribute mutation that can change a filter's
// truth value. It is comparable and used as a map key.
type TriggerKind struct {
	Class TriggerClass
	ID    string
}

func PropertyChanged(id PropertyID) TriggerKind {
	return TriggerKind{Class: TriggerProperty, ID: string(id)}
}

func CategoryChanged(c Category) TriggerKind {
	return TriggerKind{Class: TriggerCategory, ID: c.String()}
}

func ResourceChanged(id ResourceID) TriggerKind {
	return TriggerKind{Class: TriggerResource, ID: string(id)}
}

// GroupMembershipChanged fires when an entity joins or leaves any group.
func GroupMembershipChanged() TriggerKind {
	return TriggerKind{Class: TriggerGroupMembership}
}

func (k TriggerKind) String() string {
	if k.ID == "" {
		return k.Class.String()
	}
	return k.Class.String() + ":" + k.ID
}

// TriggerSet is a set of trigger kinds.
type TriggerSet map[TriggerKind]struct{}

// NewTriggerSet returns a set holding kinds.
func NewTriggerSet(kinds ...TriggerKind) TriggerSet {
	s := make(TriggerSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

func (s TriggerSet) Add(k TriggerKind) { s[k] = struct{}{} }

func (s TriggerSet) Has(k TriggerKind) bool {
	_, ok := s[k]
	return ok
}

// Union adds every kind of other to s.
func (s TriggerSet) Union(other TriggerSet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

// Sorted returns the kinds ordered by class then id.
func (s TriggerSet) Sorted() []TriggerKind {
	out := make([]TriggerKind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].ID < out[j].ID
	})
	return out
}
