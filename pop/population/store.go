// Package population is an in-memory attribute store for a population of
// entities. It owns property definitions, per-entity values, compartment and
// region placement, resource levels and group memberships, and reports every
// mutation synchronously to an attached Listener.
//
// The indexing engine treats the store as an external collaborator; this
// implementation backs the CLI simulation and the engine's tests.
//
// Store is not safe for concurrent use.
package population

import (
	"sort"

	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/types"
)

// Listener receives mutation notifications in simulation order. Each call
// happens after the store has applied the mutation.
type Listener interface {
	OnMutation(e types.EntityID, kind types.TriggerKind) error
	OnEntityAdded(e types.EntityID) error
	OnEntityRemoved(e types.EntityID) error
}

// Gate is implemented by listeners that may refuse a mutation before the
// store applies it.
type Gate interface {
	Admit() error
}

type property struct {
	def    filter.PropertyDef
	dflt   types.Value
	values map[types.EntityID]types.Value
}

// Store holds the population and its attributes.
type Store struct {
	time float64

	properties   map[types.PropertyID]*property
	compartments map[types.CompartmentID]struct{}
	regions      map[types.RegionID]struct{}
	resources    map[types.ResourceID]struct{}
	groupTypes   map[types.GroupTypeID]struct{}
	groups       map[types.GroupID]types.GroupTypeID

	entities   map[types.EntityID]struct{}
	placement  map[types.Category]map[types.EntityID]string
	levels     map[types.ResourceID]map[types.EntityID]int64
	membership map[types.EntityID]map[types.GroupID]struct{}

	listener Listener
	interest types.TriggerSet
}

// New returns an empty store.
func New() *Store {
	return &Store{
		properties:   make(map[types.PropertyID]*property),
		compartments: make(map[types.CompartmentID]struct{}),
		regions:      make(map[types.RegionID]struct{}),
		resources:    make(map[types.ResourceID]struct{}),
		groupTypes:   make(map[types.GroupTypeID]struct{}),
		groups:       make(map[types.GroupID]types.GroupTypeID),
		entities:     make(map[types.EntityID]struct{}),
		placement: map[types.Category]map[types.EntityID]string{
			types.CategoryCompartment: make(map[types.EntityID]string),
			types.CategoryRegion:      make(map[types.EntityID]string),
		},
		levels:     make(map[types.ResourceID]map[types.EntityID]int64),
		membership: make(map[types.EntityID]map[types.GroupID]struct{}),
	}
}

// Attach routes mutation notifications to l. A nil listener detaches.
func (s *Store) Attach(l Listener) {
	s.listener = l
}

// SetInterest restricts attribute notifications to the given trigger kinds.
// Population joins and departures are always reported.
func (s *Store) SetInterest(kinds types.TriggerSet) {
	s.interest = kinds
}

func (s *Store) admit() error {
	if g, ok := s.listener.(Gate); ok {
		return g.Admit()
	}
	return nil
}

// Interested reports whether a mutation of kind would be reported.
func (s *Store) Interested(kind types.TriggerKind) bool {
	return s.listener != nil && s.interest.Has(kind)
}

// Now returns the current simulation time.
func (s *Store) Now() float64 { return s.time }

// SetTime moves the simulation clock. Time never runs backwards.
func (s *Store) SetTime(t float64) error {
	if t < s.time {
		return errors.Wrapf(errors.ErrInvalidRequest, "time %g precedes current time %g", t, s.time)
	}
	s.time = t
	return nil
}

// Schema definition.

// DefineProperty declares a property with its value kind and default.
func (s *Store) DefineProperty(id types.PropertyID, def filter.PropertyDef, dflt types.Value) error {
	if id == "" {
		return errors.ErrNullPropertyID
	}
	if _, ok := s.properties[id]; ok {
		return errors.Wrapf(errors.ErrConflict, "property %q already defined", id)
	}
	if !dflt.IsNull() && dflt.Kind() != def.Kind {
		return errors.Wrapf(errors.ErrIncompatiblePropertyValue, "default for %q is %s, declared %s", id, dflt.Kind(), def.Kind)
	}
	s.properties[id] = &property{def: def, dflt: dflt, values: make(map[types.EntityID]types.Value)}
	return nil
}

func (s *Store) DefineCompartment(id types.CompartmentID) error {
	if id == "" {
		return errors.ErrNullCompartmentID
	}
	s.compartments[id] = struct{}{}
	return nil
}

func (s *Store) DefineRegion(id types.RegionID) error {
	if id == "" {
		return errors.ErrNullRegionID
	}
	s.regions[id] = struct{}{}
	return nil
}

func (s *Store) DefineResource(id types.ResourceID) error {
	if id == "" {
		return errors.ErrNullResourceID
	}
	s.resources[id] = struct{}{}
	s.levels[id] = make(map[types.EntityID]int64)
	return nil
}

func (s *Store) DefineGroupType(id types.GroupTypeID) error {
	if id == "" {
		return errors.ErrNullGroupTypeID
	}
	s.groupTypes[id] = struct{}{}
	return nil
}

// AddGroup creates group id of the given type.
func (s *Store) AddGroup(id types.GroupID, typ types.GroupTypeID) error {
	if id == "" {
		return errors.ErrNullGroupID
	}
	if _, ok := s.groupTypes[typ]; !ok {
		return errors.Wrapf(errors.ErrUnknownGroupTypeID, "group type %q", typ)
	}
	if _, ok := s.groups[id]; ok {
		return errors.Wrapf(errors.ErrConflict, "group %q already exists", id)
	}
	s.groups[id] = typ
	return nil
}

// filter.Schema

func (s *Store) PropertyDef(id types.PropertyID) (filter.PropertyDef, bool) {
	p, ok := s.properties[id]
	if !ok {
		return filter.PropertyDef{}, false
	}
	return p.def, true
}

func (s *Store) HasCompartment(id types.CompartmentID) bool {
	_, ok := s.compartments[id]
	return ok
}

func (s *Store) HasRegion(id types.RegionID) bool {
	_, ok := s.regions[id]
	return ok
}

func (s *Store) HasResource(id types.ResourceID) bool {
	_, ok := s.resources[id]
	return ok
}

func (s *Store) HasGroup(id types.GroupID) bool {
	_, ok := s.groups[id]
	return ok
}

func (s *Store) HasGroupType(id types.GroupTypeID) bool {
	_, ok := s.groupTypes[id]
	return ok
}

// Groups returns the defined group ids in sorted order.
func (s *Store) Groups() []types.GroupID {
	out := make([]types.GroupID, 0, len(s.groups))
	for id := range s.groups {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Population.

// Entities returns the current population in ascending id order.
func (s *Store) Entities() []types.EntityID {
	out := make([]types.EntityID, 0, len(s.entities))
	for e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Size returns the number of entities in the population.
func (s *Store) Size() int { return len(s.entities) }

// Contains reports whether e is in the population.
func (s *Store) Contains(e types.EntityID) bool {
	_, ok := s.entities[e]
	return ok
}
