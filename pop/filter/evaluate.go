package filter

import (
	"github.com/teranos/popidx/pop/types"
)

// Attributes reads an entity's current attribute values. It is implemented
// by the attribute store that owns the population.
type Attributes interface {
	Property(e types.EntityID, id types.PropertyID) types.Value
	Category(e types.EntityID, c types.Category) string
	ResourceLevel(e types.EntityID, id types.ResourceID) int64
	InGroup(e types.EntityID, id types.GroupID) bool
	GroupCount(e types.EntityID) int
	GroupTypeCount(e types.EntityID) int
	GroupCountForType(e types.EntityID, id types.GroupTypeID) int
}

// Evaluate reports whether entity e currently satisfies f. The whole tree is
// evaluated against current values; cost is bounded by f.Size().
func Evaluate(f *Filter, attrs Attributes, e types.EntityID) bool {
	switch f.op {
	case OpAll:
		return true
	case OpLeaf:
		return f.leaf.evaluate(attrs, e)
	case OpAnd:
		return Evaluate(f.left, attrs, e) && Evaluate(f.right, attrs, e)
	case OpOr:
		return Evaluate(f.left, attrs, e) || Evaluate(f.right, attrs, e)
	case OpNot:
		return !Evaluate(f.left, attrs, e)
	}
	return false
}

func (l *Leaf) evaluate(attrs Attributes, e types.EntityID) bool {
	switch l.Dimension {
	case DimProperty:
		return compareValue(l.Cmp, attrs.Property(e, l.Property), l.Value)
	case DimCategory:
		_, ok := l.allowed[attrs.Category(e, l.Category)]
		return ok
	case DimResource:
		return l.Cmp.HoldsInt64(attrs.ResourceLevel(e, l.Resource), l.Amount)
	case DimGroup:
		return attrs.InGroup(e, l.Group)
	case DimGroupCount:
		return l.Cmp.HoldsInt64(int64(attrs.GroupCount(e)), l.Amount)
	case DimGroupTypeCount:
		return l.Cmp.HoldsInt64(int64(attrs.GroupTypeCount(e)), l.Amount)
	case DimGroupCountForType:
		return l.Cmp.HoldsInt64(int64(attrs.GroupCountForType(e, l.GroupType)), l.Amount)
	}
	return false
}

// compareValue applies cmp to an observed property value. Values of
// different kinds are unequal and unordered.
func compareValue(cmp types.Comparator, observed, operand types.Value) bool {
	switch cmp {
	case types.Equal:
		return observed.Equal(operand)
	case types.NotEqual:
		return !observed.Equal(operand)
	}
	order, ok := observed.Compare(operand)
	if !ok {
		return false
	}
	return cmp.Holds(order)
}
