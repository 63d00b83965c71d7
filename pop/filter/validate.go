package filter

import (
	"fmt"

	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/pop/types"
)

// PropertyDef describes a property's declared value kind. Orderable marks
// Bool, Text or Opaque properties that accept ordering comparators.
type PropertyDef struct {
	Kind      types.Kind
	Orderable bool
}

// AllowsOrdering reports whether ordering comparators are legal on the
// property.
func (d PropertyDef) AllowsOrdering() bool {
	return d.Kind.Numeric() || d.Orderable
}

// Schema enumerates the identifiers an attribute store knows about.
type Schema interface {
	PropertyDef(id types.PropertyID) (PropertyDef, bool)
	HasCompartment(id types.CompartmentID) bool
	HasRegion(id types.RegionID) bool
	HasResource(id types.ResourceID) bool
	HasGroup(id types.GroupID) bool
	HasGroupType(id types.GroupTypeID) bool
}

// Validate checks f against schema. Every node is visited, but only the
// first error encountered in post-order is returned.
func Validate(f *Filter, schema Schema) error {
	v := validator{schema: schema}
	v.walk(f, "root")
	return v.err
}

type validator struct {
	schema Schema
	err    error
}

func (v *validator) fail(err error, path string) {
	if v.err == nil {
		v.err = errors.WithDetailf(err, "filter node %s", path)
	}
}

func (v *validator) walk(f *Filter, path string) {
	if f == nil {
		v.fail(errors.ErrNullFilter, path)
		return
	}
	switch f.op {
	case OpAll:
	case OpLeaf:
		if err := v.checkLeaf(f.leaf); err != nil {
			v.fail(err, path)
		}
	case OpAnd, OpOr:
		v.walk(f.left, path+".left")
		v.walk(f.right, path+".right")
	case OpNot:
		v.walk(f.left, path+".operand")
	default:
		v.fail(errors.ErrNullFilter, path)
	}
}

func (v *validator) checkLeaf(l *Leaf) error {
	if l == nil {
		return errors.ErrNullFilter
	}
	switch l.Dimension {
	case DimProperty:
		return v.checkProperty(l)
	case DimCategory:
		return v.checkCategory(l)
	case DimResource:
		if l.Resource == "" {
			return errors.ErrNullResourceID
		}
		if !v.schema.HasResource(l.Resource) {
			return errors.Wrapf(errors.ErrUnknownResourceID, "resource %q", l.Resource)
		}
		if !l.Cmp.IsSet() {
			return errors.ErrNullEquality
		}
	case DimGroup:
		if l.Group == "" {
			return errors.ErrNullGroupID
		}
		if !v.schema.HasGroup(l.Group) {
			return errors.Wrapf(errors.ErrUnknownGroupID, "group %q", l.Group)
		}
	case DimGroupCountForType:
		if l.GroupType == "" {
			return errors.ErrNullGroupTypeID
		}
		if !v.schema.HasGroupType(l.GroupType) {
			return errors.Wrapf(errors.ErrUnknownGroupTypeID, "group type %q", l.GroupType)
		}
		return checkCount(l)
	case DimGroupCount, DimGroupTypeCount:
		return checkCount(l)
	default:
		return errors.Wrapf(errors.ErrNullFilter, "leaf with unknown dimension %d", l.Dimension)
	}
	return nil
}

func (v *validator) checkProperty(l *Leaf) error {
	if l.Property == "" {
		return errors.ErrNullPropertyID
	}
	def, ok := v.schema.PropertyDef(l.Property)
	if !ok {
		return errors.Wrapf(errors.ErrUnknownPropertyID, "property %q", l.Property)
	}
	if !l.Cmp.IsSet() {
		return errors.ErrNullEquality
	}
	if l.Value.IsNull() {
		return errors.Wrapf(errors.ErrNullPropertyValue, "property %q", l.Property)
	}
	if l.Value.Kind() != def.Kind {
		return errors.WithHintf(
			errors.Wrapf(errors.ErrIncompatiblePropertyValue, "property %q", l.Property),
			"property is declared %s, filter value is %s", def.Kind, l.Value.Kind())
	}
	if l.Cmp.IsOrdering() && !def.AllowsOrdering() && !l.Value.Orderable() {
		return errors.Wrapf(errors.ErrNonComparableProperty,
			"property %q of kind %s used with %s", l.Property, def.Kind, l.Cmp)
	}
	return nil
}

func (v *validator) checkCategory(l *Leaf) error {
	var nullErr, unknownErr error
	var known func(string) bool
	switch l.Category {
	case types.CategoryCompartment:
		nullErr, unknownErr = errors.ErrNullCompartmentID, errors.ErrUnknownCompartmentID
		known = func(id string) bool { return v.schema.HasCompartment(types.CompartmentID(id)) }
	case types.CategoryRegion:
		nullErr, unknownErr = errors.ErrNullRegionID, errors.ErrUnknownRegionID
		known = func(id string) bool { return v.schema.HasRegion(types.RegionID(id)) }
	default:
		return errors.Wrapf(errors.ErrNullFilter, "unknown category %d", l.Category)
	}
	if len(l.Allowed) == 0 {
		return errors.Wrapf(nullErr, "empty %s set", l.Category)
	}
	for _, id := range l.Allowed {
		if id == "" {
			return nullErr
		}
		if !known(id) {
			return errors.Wrap(unknownErr, fmt.Sprintf("%s %q", l.Category, id))
		}
	}
	return nil
}

func checkCount(l *Leaf) error {
	if !l.Cmp.IsSet() {
		return errors.ErrNullEquality
	}
	if l.Amount < 0 {
		return errors.Wrapf(errors.ErrNegativeGroupCount, "%s %s %d", l.Dimension, l.Cmp, l.Amount)
	}
	return nil
}
