package manager

import (
	"slices"

	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/logger"
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/index"
	"github.com/teranos/popidx/pop/types"
)

// AddIndex validates f against the population schema, binds it to key and
// populates it with one scan of the population. On error nothing is
// registered and key remains available.
func (m *Manager) AddIndex(f *filter.Filter, key types.Key) (err error) {
	defer func() { m.metrics.IndexAdded(err) }()

	if key.IsNull() {
		return errors.ErrNullPopulationIndexKey
	}
	if _, ok := m.indexes[key]; ok {
		return errors.Wrapf(errors.ErrDuplicateIndexKey, "key %q", key)
	}
	if err := filter.Validate(f, m.pop); err != nil {
		return errors.Wrapf(err, "index %q", key)
	}

	ix := index.New(key, f)
	entities := m.pop.Entities()
	ix.Populate(entities, m.pop)
	m.metrics.Evaluated(len(entities))

	m.indexes[key] = ix
	m.order = append(m.order, key)
	m.router.Open(key)
	m.retain(ix.Dependencies())

	m.logger.Debugw("Index added",
		logger.FieldIndexKey, key,
		logger.FieldFilter, f.String(),
		logger.FieldMembers, ix.Size(),
		logger.FieldDeps, len(ix.Dependencies()))
	return nil
}

// RemoveIndex discards the index bound to key together with its
// subscriptions. Deliveries in progress for key stop.
func (m *Manager) RemoveIndex(key types.Key) (err error) {
	defer func() { m.metrics.IndexRemoved(err) }()

	ix, err := m.lookup(key)
	if err != nil {
		return err
	}
	delete(m.indexes, key)
	m.order = slices.DeleteFunc(m.order, func(k types.Key) bool { return k == key })
	m.router.Close(key)
	m.release(ix.Dependencies())

	m.logger.Debugw("Index removed",
		logger.FieldIndexKey, key,
		logger.FieldMembers, ix.Size())
	return nil
}

// SetSubscription enables or disables delivery of key's events to sub.
// Repeating a call is a no-op.
func (m *Manager) SetSubscription(enable bool, key types.Key, sub types.SubscriberID) error {
	if _, err := m.lookup(key); err != nil {
		return err
	}
	return m.router.SetSubscription(key, sub, enable)
}

// Members returns the current members of key's index in the order of their
// most recent entry, so a member that left and re-entered is listed last.
// The sequence is identical between mutations.
func (m *Manager) Members(key types.Key) ([]types.EntityID, error) {
	ix, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return ix.Members(), nil
}

// Contains reports whether e is a member of key's index.
func (m *Manager) Contains(key types.Key, e types.EntityID) (bool, error) {
	ix, err := m.lookup(key)
	if err != nil {
		return false, err
	}
	return ix.Contains(e), nil
}

// Size returns the member count of key's index.
func (m *Manager) Size(key types.Key) (int, error) {
	ix, err := m.lookup(key)
	if err != nil {
		return 0, err
	}
	return ix.Size(), nil
}

// Filter returns the filter bound to key.
func (m *Manager) Filter(key types.Key) (*filter.Filter, error) {
	ix, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return ix.Filter(), nil
}

// Dependencies returns the trigger kinds key's index depends on.
func (m *Manager) Dependencies(key types.Key) (types.TriggerSet, error) {
	ix, err := m.lookup(key)
	if err != nil {
		return nil, err
	}
	return ix.Dependencies(), nil
}

// Keys returns the active keys in registration order.
func (m *Manager) Keys() []types.Key {
	return slices.Clone(m.order)
}

// Interest returns the union of all active dependency sets.
func (m *Manager) Interest() types.TriggerSet {
	set := types.NewTriggerSet()
	for kind := range m.interest {
		set.Add(kind)
	}
	return set
}

func (m *Manager) lookup(key types.Key) (*index.Index, error) {
	if key.IsNull() {
		return nil, errors.ErrNullPopulationIndexKey
	}
	ix, ok := m.indexes[key]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownPopulationIndexKey, "key %q", key)
	}
	return ix, nil
}

func (m *Manager) retain(deps types.TriggerSet) {
	changed := false
	for kind := range deps {
		if m.interest[kind] == 0 {
			changed = true
		}
		m.interest[kind]++
	}
	if changed {
		m.publishInterest()
	}
}

func (m *Manager) release(deps types.TriggerSet) {
	changed := false
	for kind := range deps {
		m.interest[kind]--
		if m.interest[kind] <= 0 {
			delete(m.interest, kind)
			changed = true
		}
	}
	if changed {
		m.publishInterest()
	}
}

func (m *Manager) publishInterest() {
	if m.sink == nil {
		return
	}
	m.sink.SetInterest(m.Interest())
}
