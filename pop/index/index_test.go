package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/types"
)

func TestMemberSet_InsertionOrder(t *testing.T) {
	m := newMemberSet()
	for _, e := range []types.EntityID{5, 2, 9} {
		assert.True(t, m.insert(e))
	}
	assert.False(t, m.insert(2), "second insert is a no-op")
	assert.Equal(t, []types.EntityID{5, 2, 9}, m.list())

	assert.True(t, m.remove(2))
	assert.False(t, m.remove(2))
	assert.True(t, m.insert(2))
	assert.Equal(t, []types.EntityID{5, 9, 2}, m.list(), "re-entry goes to the back")
}

func TestMemberSet_SnapshotStable(t *testing.T) {
	m := newMemberSet()
	m.insert(1)
	m.insert(2)

	first := m.list()
	second := m.list()
	assert.Equal(t, first, second)

	first[0] = 99
	assert.Equal(t, []types.EntityID{1, 2}, m.list(), "callers cannot mutate the set through a snapshot")
}

func TestMemberSet_Compaction(t *testing.T) {
	m := newMemberSet()
	for e := types.EntityID(0); e < 100; e++ {
		m.insert(e)
	}
	for e := types.EntityID(0); e < 100; e += 2 {
		m.remove(e)
	}
	for e := types.EntityID(1); e < 60; e += 2 {
		m.remove(e)
	}

	assert.Equal(t, 20, m.len())
	assert.LessOrEqual(t, len(m.order), 2*m.len()+1, "tombstones are compacted")

	want := make([]types.EntityID, 0, 20)
	for e := types.EntityID(61); e < 100; e += 2 {
		want = append(want, e)
	}
	assert.Equal(t, want, m.list())
	for _, e := range want {
		assert.True(t, m.contains(e))
	}
}

type levels map[types.EntityID]int64

func (l levels) Property(types.EntityID, types.PropertyID) types.Value { return types.Value{} }
func (l levels) Category(types.EntityID, types.Category) string        { return "" }
func (l levels) ResourceLevel(e types.EntityID, _ types.ResourceID) int64 {
	return l[e]
}
func (l levels) InGroup(types.EntityID, types.GroupID) bool              { return false }
func (l levels) GroupCount(types.EntityID) int                           { return 0 }
func (l levels) GroupTypeCount(types.EntityID) int                       { return 0 }
func (l levels) GroupCountForType(types.EntityID, types.GroupTypeID) int { return 0 }

func TestIndex_Reevaluate(t *testing.T) {
	attrs := levels{1: 5, 2: 0, 3: 7}
	ix := New("stocked", filter.Resource("doses", types.Greater, 0))

	require.Equal(t, 2, ix.Populate([]types.EntityID{1, 2, 3}, attrs))
	assert.True(t, ix.DependsOn(types.ResourceChanged("doses")))
	assert.False(t, ix.DependsOn(types.ResourceChanged("masks")))

	_, changed := ix.Reevaluate(1, attrs)
	assert.False(t, changed, "unchanged membership produces no transition")

	attrs[2] = 1
	kind, changed := ix.Reevaluate(2, attrs)
	assert.True(t, changed)
	assert.Equal(t, types.EventAddition, kind)

	attrs[1] = 0
	kind, changed = ix.Reevaluate(1, attrs)
	assert.True(t, changed)
	assert.Equal(t, types.EventRemoval, kind)

	assert.Equal(t, []types.EntityID{3, 2}, ix.Members())
	assert.True(t, ix.Drop(3))
	assert.False(t, ix.Drop(3))
	assert.Equal(t, 1, ix.Size())
}
