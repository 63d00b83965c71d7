// Package filter implements composable boolean predicates over one entity's
// attributes.
//
// Filters are built lazily: the leaf builders never inspect the schema and
// never fail. Schema and type errors surface only when a filter is bound to
// an index, through Validate. The combinators reject nil operands
// immediately with errors.ErrNullFilter.
//
//	adults := filter.Property("age", types.GreaterOrEqual, types.Int(18))
//	north := filter.Regions("north")
//	f, err := adults.And(north)
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/pop/types"
)

// Op is the node tag of a Filter.
type Op uint8

const (
	OpAll Op = iota + 1
	OpLeaf
	OpAnd
	OpOr
	OpNot
)

// Dimension identifies what a leaf predicate reads.
type Dimension uint8

const (
	DimProperty Dimension = iota + 1
	DimCategory
	DimResource
	DimGroup
	DimGroupCount
	DimGroupTypeCount
	DimGroupCountForType
)

func (d Dimension) String() string {
	switch d {
	case DimProperty:
		return "property"
	case DimCategory:
		return "category"
	case DimResource:
		return "resource"
	case DimGroup:
		return "group"
	case DimGroupCount:
		return "groups_for_entity"
	case DimGroupTypeCount:
		return "group_types_for_entity"
	case DimGroupCountForType:
		return "groups_for_entity_and_type"
	default:
		return "unknown"
	}
}

// Leaf is a single predicate. Only the fields relevant to Dimension are set.
type Leaf struct {
	Dimension Dimension

	Property types.PropertyID
	Value    types.Value

	Category types.Category
	Allowed  []string

	Resource  types.ResourceID
	Group     types.GroupID
	GroupType types.GroupTypeID

	Cmp    types.Comparator
	Amount int64

	allowed map[string]struct{}
}

// Filter is an immutable predicate tree.
type Filter struct {
	op    Op
	leaf  *Leaf
	left  *Filter
	right *Filter
}

var all = &Filter{op: OpAll}

// AllEntities matches every entity in the population.
func AllEntities() *Filter { return all }

// Property matches entities whose property id compares to value under cmp.
func Property(id types.PropertyID, cmp types.Comparator, value types.Value) *Filter {
	return leaf(&Leaf{Dimension: DimProperty, Property: id, Cmp: cmp, Value: value})
}

// Compartments matches entities currently in any of the given compartments.
func Compartments(ids ...types.CompartmentID) *Filter {
	allowed := make([]string, len(ids))
	for i, id := range ids {
		allowed[i] = string(id)
	}
	return category(types.CategoryCompartment, allowed)
}

// Regions matches entities currently in any of the given regions.
func Regions(ids ...types.RegionID) *Filter {
	allowed := make([]string, len(ids))
	for i, id := range ids {
		allowed[i] = string(id)
	}
	return category(types.CategoryRegion, allowed)
}

// Resource matches entities whose level of resource id compares to amount.
func Resource(id types.ResourceID, cmp types.Comparator, amount int64) *Filter {
	return leaf(&Leaf{Dimension: DimResource, Resource: id, Cmp: cmp, Amount: amount})
}

// Group matches members of group id.
func Group(id types.GroupID) *Filter {
	return leaf(&Leaf{Dimension: DimGroup, Group: id})
}

// GroupsForEntity compares the number of groups an entity belongs to.
func GroupsForEntity(cmp types.Comparator, count int64) *Filter {
	return leaf(&Leaf{Dimension: DimGroupCount, Cmp: cmp, Amount: count})
}

// GroupTypesForEntity compares the number of distinct group types among an
// entity's groups.
func GroupTypesForEntity(cmp types.Comparator, count int64) *Filter {
	return leaf(&Leaf{Dimension: DimGroupTypeCount, Cmp: cmp, Amount: count})
}

// GroupsForEntityAndType compares the number of groups of type id an entity
// belongs to.
func GroupsForEntityAndType(id types.GroupTypeID, cmp types.Comparator, count int64) *Filter {
	return leaf(&Leaf{Dimension: DimGroupCountForType, GroupType: id, Cmp: cmp, Amount: count})
}

func leaf(l *Leaf) *Filter {
	return &Filter{op: OpLeaf, leaf: l}
}

func category(c types.Category, allowed []string) *Filter {
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	return leaf(&Leaf{Dimension: DimCategory, Category: c, Allowed: allowed, allowed: set})
}

// And returns a filter matching entities both a and b match.
func And(a, b *Filter) (*Filter, error) {
	if a == nil || b == nil {
		return nil, errors.Wrap(errors.ErrNullFilter, "and")
	}
	return &Filter{op: OpAnd, left: a, right: b}, nil
}

// Or returns a filter matching entities either a or b matches.
func Or(a, b *Filter) (*Filter, error) {
	if a == nil || b == nil {
		return nil, errors.Wrap(errors.ErrNullFilter, "or")
	}
	return &Filter{op: OpOr, left: a, right: b}, nil
}

// Not returns the complement of a within the population.
func Not(a *Filter) (*Filter, error) {
	if a == nil {
		return nil, errors.Wrap(errors.ErrNullFilter, "negate")
	}
	return &Filter{op: OpNot, left: a}, nil
}

func (f *Filter) And(other *Filter) (*Filter, error) { return And(f, other) }
func (f *Filter) Or(other *Filter) (*Filter, error)  { return Or(f, other) }
func (f *Filter) Negate() (*Filter, error)           { return Not(f) }

// Op returns the node tag.
func (f *Filter) Op() Op { return f.op }

// Leaf returns the predicate of a leaf node, nil otherwise.
func (f *Filter) Leaf() *Leaf { return f.leaf }

// Children returns the operands of a combinator node.
func (f *Filter) Children() (left, right *Filter) { return f.left, f.right }

// Size returns the number of nodes in the tree.
func (f *Filter) Size() int {
	if f == nil {
		return 0
	}
	return 1 + f.left.Size() + f.right.Size()
}

func (f *Filter) String() string {
	var b strings.Builder
	f.write(&b)
	return b.String()
}

func (f *Filter) write(b *strings.Builder) {
	if f == nil {
		b.WriteString("<nil>")
		return
	}
	switch f.op {
	case OpAll:
		b.WriteString("ALL")
	case OpLeaf:
		b.WriteString(f.leaf.String())
	case OpAnd, OpOr:
		b.WriteByte('(')
		f.left.write(b)
		if f.op == OpAnd {
			b.WriteString(" AND ")
		} else {
			b.WriteString(" OR ")
		}
		f.right.write(b)
		b.WriteByte(')')
	case OpNot:
		b.WriteString("NOT ")
		f.left.write(b)
	}
}

func (l *Leaf) String() string {
	switch l.Dimension {
	case DimProperty:
		return fmt.Sprintf("property:%s %s %s", l.Property, l.Cmp, l.Value)
	case DimCategory:
		ids := append([]string(nil), l.Allowed...)
		sort.Strings(ids)
		return fmt.Sprintf("%s in {%s}", l.Category, strings.Join(ids, ","))
	case DimResource:
		return fmt.Sprintf("resource:%s %s %d", l.Resource, l.Cmp, l.Amount)
	case DimGroup:
		return fmt.Sprintf("group:%s", l.Group)
	case DimGroupCountForType:
		return fmt.Sprintf("%s:%s %s %d", l.Dimension, l.GroupType, l.Cmp, l.Amount)
	default:
		return fmt.Sprintf("%s %s %d", l.Dimension, l.Cmp, l.Amount)
	}
}
