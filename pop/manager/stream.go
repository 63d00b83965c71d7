package manager

import (
	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/logger"
	"github.com/teranos/popidx/pop/types"
)

type changeKind uint8

const (
	changeAttribute changeKind = iota
	changeJoined
	changeLeft
)

func (c changeKind) String() string {
	switch c {
	case changeJoined:
		return "entity_added"
	case changeLeft:
		return "entity_removed"
	}
	return "attribute"
}

// pendingChange is a notification received during delivery.
type pendingChange struct {
	kind    changeKind
	entity  types.EntityID
	trigger types.TriggerKind
}

// Admit refuses mutations while events are being delivered when the policy
// is ReentrancyReject. Populations call it before applying a mutation.
func (m *Manager) Admit() error {
	if m.dispatching && m.reentrancy == ReentrancyReject {
		m.metrics.Rejected()
		return errors.WithHint(
			errors.Wrap(errors.ErrReentrantMutation, "mutation during event delivery"),
			"set index.reentrancy = \"defer\" to queue nested mutations")
	}
	return nil
}

// OnMutation re-evaluates e against every index that depends on trigger.
func (m *Manager) OnMutation(e types.EntityID, trigger types.TriggerKind) error {
	m.metrics.Mutation(trigger.Class.String())
	return m.receive(pendingChange{kind: changeAttribute, entity: e, trigger: trigger})
}

// OnEntityAdded evaluates every index for an entity that joined the
// population.
func (m *Manager) OnEntityAdded(e types.EntityID) error {
	m.metrics.Mutation(changeJoined.String())
	return m.receive(pendingChange{kind: changeJoined, entity: e})
}

// OnEntityRemoved drops e from every index without evaluating filters.
func (m *Manager) OnEntityRemoved(e types.EntityID) error {
	m.metrics.Mutation(changeLeft.String())
	return m.receive(pendingChange{kind: changeLeft, entity: e})
}

func (m *Manager) receive(c pendingChange) error {
	if m.dispatching {
		if err := m.Admit(); err != nil {
			return err
		}
		m.pending = append(m.pending, c)
		m.metrics.Deferred(len(m.pending))
		m.logger.Debugw("Mutation deferred",
			logger.FieldEntity, c.entity,
			logger.FieldOperation, c.kind.String(),
			logger.FieldPending, len(m.pending))
		return nil
	}
	m.apply(c)
	for len(m.pending) > 0 {
		next := m.pending[0]
		m.pending = m.pending[1:]
		m.metrics.Drained(len(m.pending))
		m.apply(next)
	}
	m.pending = nil
	return nil
}

func (m *Manager) apply(c pendingChange) {
	// Snapshot so that indexes added or removed by callbacks do not disturb
	// this pass.
	keys := m.Keys()
	evaluated := 0
	defer func() { m.metrics.Evaluated(evaluated) }()

	for _, key := range keys {
		ix, ok := m.indexes[key]
		if !ok {
			continue
		}
		switch c.kind {
		case changeLeft:
			if ix.Drop(c.entity) && m.notifyRemoval {
				m.dispatch(key, types.EventRemoval, c.entity)
			}
		case changeAttribute:
			if !ix.DependsOn(c.trigger) {
				continue
			}
			fallthrough
		case changeJoined:
			// A callback may have removed the entity; its departure is
			// already queued and will clean up.
			if !m.pop.Contains(c.entity) {
				return
			}
			evaluated++
			if kind, changed := ix.Reevaluate(c.entity, m.pop); changed {
				m.dispatch(key, kind, c.entity)
			}
		}
	}
}

func (m *Manager) dispatch(key types.Key, kind types.EventKind, e types.EntityID) {
	var now float64
	if m.clock != nil {
		now = m.clock.Now()
	}
	m.dispatching = true
	defer func() { m.dispatching = false }()

	n := m.router.Deliver(key, kind, e, now)
	m.metrics.Transition(kind, n)
}
