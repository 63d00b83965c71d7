package manager_test

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/popidx/errors"
	poptest "github.com/teranos/popidx/internal/testing"
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/manager"
	"github.com/teranos/popidx/pop/population"
	"github.com/teranos/popidx/pop/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func must(t *testing.T) func(*filter.Filter, error) *filter.Filter {
	return func(f *filter.Filter, err error) *filter.Filter {
		t.Helper()
		require.NoError(t, err)
		return f
	}
}

func sorted(ids []types.EntityID) []types.EntityID {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

func members(t *testing.T, m *manager.Manager, key types.Key) []types.EntityID {
	t.Helper()
	got, err := m.Members(key)
	require.NoError(t, err)
	return sorted(got)
}

func TestModuloScenario(t *testing.T) {
	h := poptest.NewHarness(t)
	intDef := filter.PropertyDef{Kind: types.KindInt}
	require.NoError(t, h.Store.DefineProperty("p1", intDef, types.Int(0)))
	require.NoError(t, h.Store.DefineProperty("p2", intDef, types.Int(0)))

	const n = 1000
	for e := types.EntityID(1); e <= n; e++ {
		require.NoError(t, h.Store.AddEntity(e))
	}

	f := must(t)(filter.Property("p1", types.Equal, types.Int(1)).And(filter.Property("p2", types.Equal, types.Int(2))))
	require.NoError(t, h.Manager.AddIndex(f, "k"))

	assign := func(m1, m2 int64) []types.EntityID {
		var want []types.EntityID
		for e := types.EntityID(1); e <= n; e++ {
			require.NoError(t, h.Store.SetProperty(e, "p1", types.Int(int32(int64(e)%m1))))
			require.NoError(t, h.Store.SetProperty(e, "p2", types.Int(int32(int64(e)%m2))))
			if int64(e)%m1 == 1 && int64(e)%m2 == 2 {
				want = append(want, e)
			}
		}
		return want
	}

	want := assign(2, 3)
	assert.Equal(t, want, members(t, h.Manager, "k"))
	assert.Len(t, want, 166)

	want = assign(5, 7)
	assert.Equal(t, want, members(t, h.Manager, "k"), "no residue from the first assignment")
	poptest.AssertExact(t, h, "k")
}

func TestCompositionLaws(t *testing.T) {
	h := poptest.NewHarness(t)
	rng := rand.New(rand.NewSource(7))
	for e := types.EntityID(1); e <= 200; e++ {
		require.NoError(t, h.Store.AddEntity(e,
			population.WithProperty(poptest.PropAge, types.Int(int32(rng.Intn(90)))),
			population.InRegion(poptest.Regions[rng.Intn(len(poptest.Regions))]),
		))
	}

	F := adults()
	G := filter.Regions("north", "east")
	require.NoError(t, h.Manager.AddIndex(F, "f"))
	require.NoError(t, h.Manager.AddIndex(G, "g"))
	require.NoError(t, h.Manager.AddIndex(must(t)(F.And(G)), "and"))
	require.NoError(t, h.Manager.AddIndex(must(t)(F.Or(G)), "or"))
	require.NoError(t, h.Manager.AddIndex(must(t)(F.Negate()), "not"))

	check := func() {
		t.Helper()
		f := members(t, h.Manager, "f")
		g := members(t, h.Manager, "g")

		var inter, union, comp []types.EntityID
		for _, e := range h.Store.Entities() {
			inF, inG := slices.Contains(f, e), slices.Contains(g, e)
			if inF && inG {
				inter = append(inter, e)
			}
			if inF || inG {
				union = append(union, e)
			}
			if !inF {
				comp = append(comp, e)
			}
		}
		assert.Equal(t, inter, members(t, h.Manager, "and"))
		assert.Equal(t, union, members(t, h.Manager, "or"))
		assert.Equal(t, comp, members(t, h.Manager, "not"))
	}

	check()
	for step := 0; step < 300; step++ {
		e := types.EntityID(rng.Intn(200) + 1)
		if rng.Intn(2) == 0 {
			require.NoError(t, h.Store.SetProperty(e, poptest.PropAge, types.Int(int32(rng.Intn(90)))))
		} else {
			require.NoError(t, h.Store.MoveToRegion(e, poptest.Regions[rng.Intn(len(poptest.Regions))]))
		}
	}
	check()
}

func TestNoSpuriousEvents(t *testing.T) {
	h := poptest.NewHarness(t)
	require.NoError(t, h.Store.AddEntity(1, population.InRegion("south"), population.InCompartment("home")))

	require.NoError(t, h.Manager.AddIndex(filter.Regions("north"), "north"))
	require.NoError(t, h.Manager.AddIndex(filter.Compartments("hospital"), "hospital"))
	rec := &poptest.Recorder{}
	sub := h.Manager.Subscribe(rec.Handle)
	require.NoError(t, h.Manager.SetSubscription(true, "north", sub))
	require.NoError(t, h.Manager.SetSubscription(true, "hospital", sub))

	require.NoError(t, h.Store.MoveToCompartment(1, "work"))
	require.NoError(t, h.Store.MoveToCompartment(1, "school"))
	require.NoError(t, h.Store.MoveToRegion(1, "east"))
	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(50)))
	assert.Zero(t, rec.Len())

	require.NoError(t, h.Store.MoveToRegion(1, "north"))
	require.NoError(t, h.Store.MoveToRegion(1, "north"))
	assert.Equal(t, 1, rec.Count("north", types.EventAddition))
	assert.Equal(t, 1, rec.Len())
}

func TestSubscriberIsolation(t *testing.T) {
	h := poptest.NewHarness(t)
	addPeople(t, h, 10, 10, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))

	a, b := &poptest.Recorder{}, &poptest.Recorder{}
	subA := h.Manager.Subscribe(a.Handle)
	subB := h.Manager.Subscribe(b.Handle)
	require.NoError(t, h.Manager.SetSubscription(true, "adults", subA))
	require.NoError(t, h.Manager.SetSubscription(true, "adults", subB))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(20)))
	require.NoError(t, h.Store.SetProperty(2, poptest.PropAge, types.Int(20)))
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 2, b.Len())

	require.NoError(t, h.Manager.SetSubscription(false, "adults", subA))
	require.NoError(t, h.Store.SetProperty(3, poptest.PropAge, types.Int(20)))
	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(2)))

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 1, b.Count("adults", types.EventRemoval))
	for _, ev := range b.Events() {
		assert.Equal(t, subB, ev.Subscriber)
	}
}

func TestIdempotentSubscription(t *testing.T) {
	h := poptest.NewHarness(t)
	addPeople(t, h, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))

	rec := &poptest.Recorder{}
	sub := h.Manager.Subscribe(rec.Handle)
	require.NoError(t, h.Manager.SetSubscription(true, "adults", sub))
	require.NoError(t, h.Manager.SetSubscription(true, "adults", sub))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))
	assert.Equal(t, 1, rec.Len())
	assert.Equal(t, []types.SubscriberID{sub}, h.Manager.Router().Subscribers("adults"))
}

func TestEventCarriesClockTime(t *testing.T) {
	h := poptest.NewHarness(t)
	addPeople(t, h, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))
	rec := &poptest.Recorder{}
	require.NoError(t, h.Manager.SetSubscription(true, "adults", h.Manager.Subscribe(rec.Handle)))

	require.NoError(t, h.Store.SetTime(12.5))
	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))

	require.Equal(t, 1, rec.Len())
	ev := rec.Events()[0]
	assert.Equal(t, 12.5, ev.Time)
	assert.Equal(t, types.Key("adults"), ev.Key)
	assert.Equal(t, types.EntityID(1), ev.Entity)
	assert.Equal(t, types.EventAddition, ev.Kind)
}

func TestEntityJoinAndLeave(t *testing.T) {
	tests := []struct {
		name       string
		notify     bool
		wantRemove int
	}{
		{"notify on removal", true, 1},
		{"silent removal", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := poptest.NewHarness(t, manager.WithRemovalNotification(tt.notify))
			require.NoError(t, h.Manager.AddIndex(adults(), "adults"))
			require.NoError(t, h.Manager.AddIndex(filter.AllEntities(), "all"))
			rec := &poptest.Recorder{}
			sub := h.Manager.Subscribe(rec.Handle)
			require.NoError(t, h.Manager.SetSubscription(true, "adults", sub))

			require.NoError(t, h.Store.AddEntity(1, population.WithProperty(poptest.PropAge, types.Int(40))))
			require.NoError(t, h.Store.AddEntity(2, population.WithProperty(poptest.PropAge, types.Int(4))))
			assert.Equal(t, 1, rec.Count("adults", types.EventAddition))
			size, err := h.Manager.Size("all")
			require.NoError(t, err)
			assert.Equal(t, 2, size)

			require.NoError(t, h.Store.RemoveEntity(2))
			assert.Zero(t, rec.Count("adults", types.EventRemoval), "non-member departure emits nothing")

			require.NoError(t, h.Store.RemoveEntity(1))
			assert.Equal(t, tt.wantRemove, rec.Count("adults", types.EventRemoval))

			poptest.AssertExact(t, h, "adults")
			poptest.AssertExact(t, h, "all")
			size, err = h.Manager.Size("all")
			require.NoError(t, err)
			assert.Zero(t, size)
		})
	}
}

func TestGroupCountScenario(t *testing.T) {
	h := poptest.NewHarness(t)
	rng := rand.New(rand.NewSource(42))
	groups := append(slices.Clone(poptest.Households), poptest.Workplaces...)
	require.Len(t, groups, 5)

	const n = 300
	for e := types.EntityID(1); e <= n; e++ {
		require.NoError(t, h.Store.AddEntity(e))
		for _, g := range rng.Perm(len(groups))[:rng.Intn(len(groups)+1)] {
			require.NoError(t, h.Store.AddToGroup(e, groups[g]))
		}
	}

	require.NoError(t, h.Manager.AddIndex(filter.GroupsForEntity(types.Equal, 2), "two"))
	require.NoError(t, h.Manager.AddIndex(filter.GroupsForEntityAndType(poptest.TypeHousehold, types.GreaterOrEqual, 2), "households"))
	require.NoError(t, h.Manager.AddIndex(filter.GroupTypesForEntity(types.Equal, 1), "one_type"))

	expectTwo := func() []types.EntityID {
		var want []types.EntityID
		for e := types.EntityID(1); e <= n; e++ {
			if h.Store.GroupCount(e) == 2 {
				want = append(want, e)
			}
		}
		return want
	}
	assert.Equal(t, expectTwo(), members(t, h.Manager, "two"))

	for step := 1; step <= 3000; step++ {
		e := types.EntityID(rng.Intn(n) + 1)
		g := groups[rng.Intn(len(groups))]
		if h.Store.InGroup(e, g) {
			require.NoError(t, h.Store.RemoveFromGroup(e, g))
		} else {
			require.NoError(t, h.Store.AddToGroup(e, g))
		}
		if step%500 == 0 {
			assert.Equal(t, expectTwo(), members(t, h.Manager, "two"), "checkpoint %d", step)
			poptest.AssertExact(t, h, "households")
			poptest.AssertExact(t, h, "one_type")
		}
	}
}

// TestExactnessUnderRandomMutation drives every attribute dimension and
// checks each index against a scan after every step, and that the event
// stream replays to the final membership.
func TestExactnessUnderRandomMutation(t *testing.T) {
	h := poptest.NewHarness(t)
	rng := rand.New(rand.NewSource(1))
	next := types.EntityID(1)
	addRandom := func() {
		require.NoError(t, h.Store.AddEntity(next,
			population.WithProperty(poptest.PropAge, types.Int(int32(rng.Intn(80)))),
			population.InCompartment(poptest.Compartments[rng.Intn(len(poptest.Compartments))]),
		))
		next++
	}
	for i := 0; i < 60; i++ {
		addRandom()
	}

	indexes := map[types.Key]*filter.Filter{
		"adult_north": must(t)(adults().And(filter.Regions("north"))),
		"dosed_or_home": must(t)(filter.Resource(poptest.ResDoses, types.Greater, 1).
			Or(filter.Compartments("home"))),
		"not_h1": must(t)(filter.Group("h1").Negate()),
		"vaccinated_workers": must(t)(filter.Property(poptest.PropVaccinated, types.Equal, types.Bool(true)).
			And(filter.GroupsForEntityAndType(poptest.TypeWorkplace, types.Equal, 1))),
		"named": filter.Property(poptest.PropName, types.Greater, types.Text("m")),
		"all":   filter.AllEntities(),
	}
	keys := make([]types.Key, 0, len(indexes))
	for k := range indexes {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rec := &poptest.Recorder{}
	sub := h.Manager.Subscribe(rec.Handle)
	initial := make(map[types.Key][]types.EntityID)
	for _, k := range keys {
		require.NoError(t, h.Manager.AddIndex(indexes[k], k))
		require.NoError(t, h.Manager.SetSubscription(true, k, sub))
		initial[k] = members(t, h.Manager, k)
	}

	groups := append(slices.Clone(poptest.Households), poptest.Workplaces...)
	names := []string{"ada", "max", "zoe", "nia"}
	for step := 0; step < 1500; step++ {
		live := h.Store.Entities()
		if len(live) == 0 {
			addRandom()
			continue
		}
		e := live[rng.Intn(len(live))]
		switch rng.Intn(10) {
		case 0:
			require.NoError(t, h.Store.SetProperty(e, poptest.PropAge, types.Int(int32(rng.Intn(80)))))
		case 1:
			require.NoError(t, h.Store.SetProperty(e, poptest.PropVaccinated, types.Bool(rng.Intn(2) == 0)))
		case 2:
			require.NoError(t, h.Store.SetProperty(e, poptest.PropName, types.Text(names[rng.Intn(len(names))])))
		case 3:
			require.NoError(t, h.Store.MoveToCompartment(e, poptest.Compartments[rng.Intn(len(poptest.Compartments))]))
		case 4:
			require.NoError(t, h.Store.MoveToRegion(e, poptest.Regions[rng.Intn(len(poptest.Regions))]))
		case 5:
			require.NoError(t, h.Store.SetResourceLevel(e, poptest.ResDoses, int64(rng.Intn(4))))
		case 6, 7:
			g := groups[rng.Intn(len(groups))]
			if h.Store.InGroup(e, g) {
				require.NoError(t, h.Store.RemoveFromGroup(e, g))
			} else {
				require.NoError(t, h.Store.AddToGroup(e, g))
			}
		case 8:
			require.NoError(t, h.Store.RemoveEntity(e))
		case 9:
			addRandom()
		}

		for _, k := range keys {
			poptest.AssertExact(t, h, k)
		}
		if t.Failed() {
			t.Fatalf("diverged at step %d", step)
		}
	}

	for _, k := range keys {
		replayed := rec.Replay(k, initial[k])
		var got []types.EntityID
		for e := range replayed {
			got = append(got, e)
		}
		assert.Equal(t, members(t, h.Manager, k), sorted(got), "event stream of %q replays to membership", k)
	}
}

func TestReentrancy_Defer(t *testing.T) {
	h := poptest.NewHarness(t)
	addPeople(t, h, 10)
	vaccinated := filter.Property(poptest.PropVaccinated, types.Equal, types.Bool(true))
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))
	require.NoError(t, h.Manager.AddIndex(vaccinated, "vaccinated"))

	var (
		nestedErr      error
		pendingInside  int
		visibleInside  bool
		dispatchInside bool
	)
	reactor := h.Manager.Subscribe(func(ev types.Event) {
		if ev.Kind != types.EventAddition {
			return
		}
		dispatchInside = h.Manager.Dispatching()
		nestedErr = h.Store.SetProperty(ev.Entity, poptest.PropVaccinated, types.Bool(true))
		pendingInside = h.Manager.Pending()
		visibleInside, _ = h.Manager.Contains("vaccinated", ev.Entity)
	})
	require.NoError(t, h.Manager.SetSubscription(true, "adults", reactor))
	rec := &poptest.Recorder{}
	require.NoError(t, h.Manager.SetSubscription(true, "vaccinated", h.Manager.Subscribe(rec.Handle)))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))

	require.NoError(t, nestedErr)
	assert.True(t, dispatchInside)
	assert.Equal(t, 1, pendingInside, "nested mutation is queued")
	assert.False(t, visibleInside, "queued mutation is not applied during delivery")

	assert.Zero(t, h.Manager.Pending())
	assert.False(t, h.Manager.Dispatching())
	assert.Equal(t, 1, rec.Count("vaccinated", types.EventAddition))
	poptest.AssertExact(t, h, "vaccinated")
	poptest.AssertExact(t, h, "adults")
}

func TestReentrancy_Reject(t *testing.T) {
	h := poptest.NewHarness(t, manager.WithReentrancy(manager.ReentrancyReject))
	addPeople(t, h, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))
	require.NoError(t, h.Manager.AddIndex(filter.Property(poptest.PropVaccinated, types.Equal, types.Bool(true)), "vaccinated"))

	var nestedErr error
	reactor := h.Manager.Subscribe(func(ev types.Event) {
		nestedErr = h.Store.SetProperty(ev.Entity, poptest.PropVaccinated, types.Bool(true))
	})
	require.NoError(t, h.Manager.SetSubscription(true, "adults", reactor))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))

	assert.True(t, errors.Is(nestedErr, errors.ErrReentrantMutation))
	assert.NotEmpty(t, errors.GetAllHints(nestedErr))
	assert.Equal(t, types.Bool(false), h.Store.Property(1, poptest.PropVaccinated), "refused mutation is not applied")
	poptest.AssertExact(t, h, "vaccinated")

	require.NoError(t, h.Store.SetProperty(1, poptest.PropVaccinated, types.Bool(true)), "outside delivery mutations are accepted")
	poptest.AssertExact(t, h, "vaccinated")
}

func TestReentrancy_RemoveEntityDuringDelivery(t *testing.T) {
	h := poptest.NewHarness(t)
	addPeople(t, h, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))
	require.NoError(t, h.Manager.AddIndex(filter.Property(poptest.PropAge, types.Greater, types.Int(12)), "teens_up"))

	remover := h.Manager.Subscribe(func(ev types.Event) {
		if ev.Kind == types.EventAddition {
			require.NoError(t, h.Store.RemoveEntity(ev.Entity))
		}
	})
	require.NoError(t, h.Manager.SetSubscription(true, "adults", remover))
	rec := &poptest.Recorder{}
	require.NoError(t, h.Manager.SetSubscription(true, "teens_up", h.Manager.Subscribe(rec.Handle)))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))

	assert.Zero(t, rec.Len(), "departed entity is not added to later indexes")
	assert.False(t, h.Store.Contains(1))
	poptest.AssertExact(t, h, "adults")
	poptest.AssertExact(t, h, "teens_up")
}

func TestRemoveIndexDuringDelivery(t *testing.T) {
	h := poptest.NewHarness(t)
	addPeople(t, h, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))

	remover := h.Manager.Subscribe(func(types.Event) {
		require.NoError(t, h.Manager.RemoveIndex("adults"))
	})
	rec := &poptest.Recorder{}
	other := h.Manager.Subscribe(rec.Handle)
	require.NoError(t, h.Manager.SetSubscription(true, "adults", remover))
	require.NoError(t, h.Manager.SetSubscription(true, "adults", other))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))
	assert.Zero(t, rec.Len(), "remaining deliveries for a removed index are dropped")
	assert.Empty(t, h.Manager.Keys())
}

func TestEventTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := poptest.NewHarness(t,
		manager.WithLogger(zap.New(core).Sugar()),
		manager.WithEventTrace(true))
	addPeople(t, h, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "adults"))
	rec := &poptest.Recorder{}
	require.NoError(t, h.Manager.SetSubscription(true, "adults", h.Manager.Subscribe(rec.Handle)))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))
	require.Equal(t, 1, rec.Len())
	entries := logs.FilterMessage("Delivering event").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, "adults", entries[0].ContextMap()["key"])
}

func TestReplaceIndexDuringDelivery(t *testing.T) {
	h := poptest.NewHarness(t)
	addPeople(t, h, 10)
	require.NoError(t, h.Manager.AddIndex(adults(), "k"))

	replacer := h.Manager.Subscribe(func(types.Event) {
		require.NoError(t, h.Manager.RemoveIndex("k"))
		require.NoError(t, h.Manager.AddIndex(filter.AllEntities(), "k"))
	})
	stale := &poptest.Recorder{}
	old := h.Manager.Subscribe(stale.Handle)
	require.NoError(t, h.Manager.SetSubscription(true, "k", replacer))
	require.NoError(t, h.Manager.SetSubscription(true, "k", old))

	require.NoError(t, h.Store.SetProperty(1, poptest.PropAge, types.Int(30)))
	assert.Zero(t, stale.Len(), "subscribers of a replaced index never see its pending event")
	assert.Equal(t, []types.Key{"k"}, h.Manager.Keys())
	assert.False(t, h.Manager.Router().Subscribed("k", old), "the new index starts without subscribers")

	members, err := h.Manager.Members("k")
	require.NoError(t, err)
	assert.Equal(t, []types.EntityID{1}, members)
}
