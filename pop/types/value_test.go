package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

type version struct{ major, minor int }

func (v version) Compare(other any) int {
	o := other.(version)
	if v.major != o.major {
		return v.major - o.major
	}
	return v.minor - o.minor
}

type tag struct{ name string }

// wrapper has a comparable type but may hold an uncomparable payload.
type wrapper struct{ v any }

func TestValue_Null(t *testing.T) {
	var zero Value
	assert.True(t, zero.IsNull())
	assert.Equal(t, KindNone, zero.Kind())
	assert.True(t, Opaque(nil).IsNull())
	assert.False(t, Long(0).IsNull())
}

func TestValue_Orderable(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"int", Int(3), true},
		{"long", Long(3), true},
		{"double", Double(0.5), true},
		{"bool", Bool(true), false},
		{"text", Text("a"), false},
		{"opaque plain", Opaque(tag{"x"}), false},
		{"opaque ordered", Opaque(version{1, 2}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Orderable())
		})
	}
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Int(4).Equal(Int(4)))
	assert.False(t, Int(4).Equal(Long(4)), "kinds differ")
	assert.True(t, Text("x").Equal(Text("x")))
	assert.True(t, Opaque(tag{"a"}).Equal(Opaque(tag{"a"})))
	assert.False(t, Opaque(tag{"a"}).Equal(Opaque(tag{"b"})))
	assert.True(t, Value{}.Equal(Value{}))

	assert.NotPanics(t, func() {
		assert.True(t, Opaque([]int{1, 2}).Equal(Opaque([]int{1, 2})))
		assert.False(t, Opaque([]int{1, 2}).Equal(Opaque([]int{2, 1})))
		assert.False(t, Opaque([]int{1}).Equal(Opaque([]int64{1})), "payload types differ")
		assert.True(t, Opaque(map[string]int{"a": 1}).Equal(Opaque(map[string]int{"a": 1})))
		assert.True(t, Opaque(wrapper{[]int{3}}).Equal(Opaque(wrapper{[]int{3}})))
	})
	assert.False(t, Double(math.NaN()).Equal(Double(math.NaN())))
}

func TestValue_Compare(t *testing.T) {
	c, ok := Long(2).Compare(Long(5))
	assert.True(t, ok)
	assert.Negative(t, c)

	c, ok = Double(2.5).Compare(Double(2.5))
	assert.True(t, ok)
	assert.Zero(t, c)

	c, ok = Opaque(version{2, 0}).Compare(Opaque(version{1, 9}))
	assert.True(t, ok)
	assert.Positive(t, c)

	_, ok = Opaque(tag{"a"}).Compare(Opaque(tag{"a"}))
	assert.False(t, ok)

	_, ok = Int(1).Compare(Double(1))
	assert.False(t, ok)

	nan := Double(math.NaN())
	for _, other := range []Value{Double(5), nan} {
		_, ok = nan.Compare(other)
		assert.False(t, ok, "NaN is unordered against %s", other)
		_, ok = other.Compare(nan)
		assert.False(t, ok, "NaN is unordered against %s", other)
	}
}

func TestComparator(t *testing.T) {
	assert.False(t, CmpUnset.IsSet())
	assert.True(t, Equal.IsSet())
	assert.False(t, Equal.IsOrdering())
	assert.False(t, NotEqual.IsOrdering())
	assert.True(t, LessOrEqual.IsOrdering())

	assert.True(t, GreaterOrEqual.HoldsInt64(3, 3))
	assert.False(t, Greater.HoldsInt64(3, 3))
	assert.True(t, Less.HoldsInt64(2, 3))
	assert.True(t, NotEqual.HoldsInt64(2, 3))
	assert.False(t, CmpUnset.HoldsInt64(3, 3))
}

func TestTriggerSet(t *testing.T) {
	s := NewTriggerSet(PropertyChanged("age"), GroupMembershipChanged())
	s.Union(NewTriggerSet(PropertyChanged("age"), CategoryChanged(CategoryRegion)))

	assert.Len(t, s, 3)
	assert.True(t, s.Has(CategoryChanged(CategoryRegion)))
	assert.False(t, s.Has(ResourceChanged("vaccine")))
	assert.Equal(t, []TriggerKind{
		PropertyChanged("age"),
		CategoryChanged(CategoryRegion),
		GroupMembershipChanged(),
	}, s.Sorted())
	assert.Equal(t, "property:age", PropertyChanged("age").String())
	assert.Equal(t, "group_membership", GroupMembershipChanged().String())
}
