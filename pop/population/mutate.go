package population

import (
	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/pop/types"
)

// EntityOption sets an attribute of a new entity before the population
// reports it.
type EntityOption func(s *Store, e types.EntityID) error

// WithProperty sets a property value on a new entity.
func WithProperty(id types.PropertyID, v types.Value) EntityOption {
	return func(s *Store, e types.EntityID) error {
		return s.setProperty(e, id, v)
	}
}

// InCompartment places a new entity in compartment id.
func InCompartment(id types.CompartmentID) EntityOption {
	return func(s *Store, e types.EntityID) error {
		if !s.HasCompartment(id) {
			return errors.Wrapf(errors.ErrUnknownCompartmentID, "compartment %q", id)
		}
		s.placement[types.CategoryCompartment][e] = string(id)
		return nil
	}
}

// InRegion places a new entity in region id.
func InRegion(id types.RegionID) EntityOption {
	return func(s *Store, e types.EntityID) error {
		if !s.HasRegion(id) {
			return errors.Wrapf(errors.ErrUnknownRegionID, "region %q", id)
		}
		s.placement[types.CategoryRegion][e] = string(id)
		return nil
	}
}

// AddEntity joins e to the population with the given initial attributes.
func (s *Store) AddEntity(e types.EntityID, opts ...EntityOption) error {
	if s.Contains(e) {
		return errors.Wrapf(errors.ErrConflict, "entity %d already in population", e)
	}
	if err := s.admit(); err != nil {
		return err
	}
	s.entities[e] = struct{}{}
	for _, opt := range opts {
		if err := opt(s, e); err != nil {
			s.forget(e)
			return err
		}
	}
	if s.listener == nil {
		return nil
	}
	return s.listener.OnEntityAdded(e)
}

// RemoveEntity permanently removes e and all of its attributes.
func (s *Store) RemoveEntity(e types.EntityID) error {
	if !s.Contains(e) {
		return errors.Wrapf(errors.ErrNotFound, "entity %d", e)
	}
	if err := s.admit(); err != nil {
		return err
	}
	s.forget(e)
	if s.listener == nil {
		return nil
	}
	return s.listener.OnEntityRemoved(e)
}

func (s *Store) forget(e types.EntityID) {
	delete(s.entities, e)
	for _, p := range s.properties {
		delete(p.values, e)
	}
	for _, m := range s.placement {
		delete(m, e)
	}
	for _, m := range s.levels {
		delete(m, e)
	}
	delete(s.membership, e)
}

// SetProperty assigns a property value.
func (s *Store) SetProperty(e types.EntityID, id types.PropertyID, v types.Value) error {
	if err := s.requireEntity(e); err != nil {
		return err
	}
	if err := s.setProperty(e, id, v); err != nil {
		return err
	}
	return s.notify(e, types.PropertyChanged(id))
}

func (s *Store) setProperty(e types.EntityID, id types.PropertyID, v types.Value) error {
	p, ok := s.properties[id]
	if !ok {
		return errors.Wrapf(errors.ErrUnknownPropertyID, "property %q", id)
	}
	if v.IsNull() {
		return errors.Wrapf(errors.ErrNullPropertyValue, "property %q", id)
	}
	if v.Kind() != p.def.Kind {
		return errors.Wrapf(errors.ErrIncompatiblePropertyValue, "property %q is %s, got %s", id, p.def.Kind, v.Kind())
	}
	p.values[e] = v
	return nil
}

// MoveToCompartment relocates e to compartment id.
func (s *Store) MoveToCompartment(e types.EntityID, id types.CompartmentID) error {
	if err := s.requireEntity(e); err != nil {
		return err
	}
	if !s.HasCompartment(id) {
		return errors.Wrapf(errors.ErrUnknownCompartmentID, "compartment %q", id)
	}
	s.placement[types.CategoryCompartment][e] = string(id)
	return s.notify(e, types.CategoryChanged(types.CategoryCompartment))
}

// MoveToRegion relocates e to region id.
func (s *Store) MoveToRegion(e types.EntityID, id types.RegionID) error {
	if err := s.requireEntity(e); err != nil {
		return err
	}
	if !s.HasRegion(id) {
		return errors.Wrapf(errors.ErrUnknownRegionID, "region %q", id)
	}
	s.placement[types.CategoryRegion][e] = string(id)
	return s.notify(e, types.CategoryChanged(types.CategoryRegion))
}

// SetResourceLevel sets e's holding of resource id. Levels are never negative.
func (s *Store) SetResourceLevel(e types.EntityID, id types.ResourceID, level int64) error {
	if err := s.requireEntity(e); err != nil {
		return err
	}
	if !s.HasResource(id) {
		return errors.Wrapf(errors.ErrUnknownResourceID, "resource %q", id)
	}
	if level < 0 {
		return errors.Wrapf(errors.ErrInvalidRequest, "negative level %d for resource %q", level, id)
	}
	s.levels[id][e] = level
	return s.notify(e, types.ResourceChanged(id))
}

// AddResource adjusts e's holding of resource id by delta.
func (s *Store) AddResource(e types.EntityID, id types.ResourceID, delta int64) error {
	return s.SetResourceLevel(e, id, s.ResourceLevel(e, id)+delta)
}

// AddToGroup makes e a member of group id.
func (s *Store) AddToGroup(e types.EntityID, id types.GroupID) error {
	if err := s.requireEntity(e); err != nil {
		return err
	}
	if !s.HasGroup(id) {
		return errors.Wrapf(errors.ErrUnknownGroupID, "group %q", id)
	}
	groups := s.membership[e]
	if groups == nil {
		groups = make(map[types.GroupID]struct{})
		s.membership[e] = groups
	}
	if _, ok := groups[id]; ok {
		return errors.Wrapf(errors.ErrConflict, "entity %d already in group %q", e, id)
	}
	groups[id] = struct{}{}
	return s.notify(e, types.GroupMembershipChanged())
}

// RemoveFromGroup ends e's membership of group id.
func (s *Store) RemoveFromGroup(e types.EntityID, id types.GroupID) error {
	if err := s.requireEntity(e); err != nil {
		return err
	}
	if _, ok := s.membership[e][id]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "entity %d not in group %q", e, id)
	}
	delete(s.membership[e], id)
	return s.notify(e, types.GroupMembershipChanged())
}

// requireEntity checks that e exists and that the listener admits a
// mutation now.
func (s *Store) requireEntity(e types.EntityID) error {
	if !s.Contains(e) {
		return errors.Wrapf(errors.ErrNotFound, "entity %d", e)
	}
	return s.admit()
}

func (s *Store) notify(e types.EntityID, kind types.TriggerKind) error {
	if !s.Interested(kind) {
		return nil
	}
	return s.listener.OnMutation(e, kind)
}
