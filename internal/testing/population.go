package testing

import (
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/manager"
	"github.com/teranos/popidx/pop/metrics"
	"github.com/teranos/popidx/pop/population"
	"github.com/teranos/popidx/pop/types"
	"go.uber.org/zap/zaptest"
)

// Schema identifiers defined by NewStore.
const (
	PropAge        types.PropertyID = "age"
	PropName       types.PropertyID = "name"
	PropVaccinated types.PropertyID = "vaccinated"

	ResDoses types.ResourceID = "doses"

	TypeHousehold types.GroupTypeID = "household"
	TypeWorkplace types.GroupTypeID = "workplace"
)

var (
	Compartments = []types.CompartmentID{"home", "work", "school", "hospital"}
	Regions      = []types.RegionID{"north", "south", "east", "west"}
	Households   = []types.GroupID{"h1", "h2", "h3"}
	Workplaces   = []types.GroupID{"w1", "w2"}
)

// NewStore returns a store with the standard test schema and no entities.
func NewStore(t *testing.T) *population.Store {
	t.Helper()
	s := population.New()

	must(t, s.DefineProperty(PropAge, filter.PropertyDef{Kind: types.KindInt, Orderable: true}, types.Int(0)))
	must(t, s.DefineProperty(PropName, filter.PropertyDef{Kind: types.KindText, Orderable: true}, types.Text("")))
	must(t, s.DefineProperty(PropVaccinated, filter.PropertyDef{Kind: types.KindBool}, types.Bool(false)))
	must(t, s.DefineResource(ResDoses))
	for _, c := range Compartments {
		must(t, s.DefineCompartment(c))
	}
	for _, r := range Regions {
		must(t, s.DefineRegion(r))
	}
	must(t, s.DefineGroupType(TypeHousehold))
	must(t, s.DefineGroupType(TypeWorkplace))
	for _, g := range Households {
		must(t, s.AddGroup(g, TypeHousehold))
	}
	for _, g := range Workplaces {
		must(t, s.AddGroup(g, TypeWorkplace))
	}
	return s
}

// Harness is a store with a manager attached to it.
type Harness struct {
	Store    *population.Store
	Manager  *manager.Manager
	Registry *prometheus.Registry
}

// NewHarness builds the standard store, a manager with test logging and a
// private metrics registry, and attaches the manager to the store.
func NewHarness(t *testing.T, opts ...manager.Option) *Harness {
	t.Helper()
	store := NewStore(t)
	reg := prometheus.NewRegistry()

	base := []manager.Option{
		manager.WithLogger(zaptest.NewLogger(t).Sugar()),
		manager.WithMetrics(metrics.New(reg, "popidx_test")),
	}
	mgr := manager.New(store, store, append(base, opts...)...)
	store.Attach(mgr)

	return &Harness{Store: store, Manager: mgr, Registry: reg}
}

// ExpectedMembers evaluates f over the whole population by brute force.
// The result is in ascending id order.
func ExpectedMembers(pop manager.Population, f *filter.Filter) []types.EntityID {
	var out []types.EntityID
	for _, e := range pop.Entities() {
		if filter.Evaluate(f, pop, e) {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return out
}

// AssertExact fails t if key's members differ from a brute-force scan.
func AssertExact(t *testing.T, h *Harness, key types.Key) {
	t.Helper()
	f, err := h.Manager.Filter(key)
	if err != nil {
		t.Fatalf("filter for %q: %v", key, err)
	}
	got, err := h.Manager.Members(key)
	if err != nil {
		t.Fatalf("members of %q: %v", key, err)
	}
	slices.Sort(got)
	want := ExpectedMembers(h.Store, f)
	if !slices.Equal(got, want) {
		t.Errorf("index %q diverges from scan:\n got  %v\n want %v", key, got, want)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}
