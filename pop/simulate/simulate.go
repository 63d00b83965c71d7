// Package simulate drives a reference population through random churn while
// a manager keeps a fixed set of indexes current. At every checkpoint each
// index is compared with a brute-force scan and with the membership replayed
// from its event stream.
package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/logger"
	"github.com/teranos/popidx/pop/filter"
	"github.com/teranos/popidx/pop/manager"
	"github.com/teranos/popidx/pop/population"
	"github.com/teranos/popidx/pop/types"
	"go.uber.org/zap"
)

// Schema identifiers of the simulated population.
const (
	PropP1  types.PropertyID = "p1"
	PropP2  types.PropertyID = "p2"
	PropAge types.PropertyID = "age"

	ResDoses types.ResourceID = "doses"

	TypeHousehold types.GroupTypeID = "household"
	TypeClub      types.GroupTypeID = "club"
)

var (
	compartments = []types.CompartmentID{"home", "work", "school", "hospital"}
	regions      = []types.RegionID{"north", "south", "east", "west"}
	moduli       = []int64{2, 3, 5, 7}
)

// Config sizes a run.
type Config struct {
	Population         int
	Groups             int // groups per group type
	MaxGroupsPerEntity int
	ChurnSteps         int
	Checkpoint         int
	Seed               int64
	NotifyRemoval      bool // must match the manager's removal policy
}

// Scenario is one index registered by the simulation.
type Scenario struct {
	Key    types.Key
	Filter *filter.Filter
}

// Scenarios returns the indexes every run registers.
func Scenarios() ([]Scenario, error) {
	modulo, err := filter.Property(PropP1, types.Equal, types.Int(1)).And(filter.Property(PropP2, types.Equal, types.Int(2)))
	if err != nil {
		return nil, err
	}
	outsideNorth, err := filter.Regions("north").Negate()
	if err != nil {
		return nil, err
	}
	adultsAtWork, err := filter.Property(PropAge, types.GreaterOrEqual, types.Int(18)).And(filter.Compartments("work"))
	if err != nil {
		return nil, err
	}
	dosedOrHospital, err := filter.Resource(ResDoses, types.GreaterOrEqual, 2).Or(filter.Compartments("hospital"))
	if err != nil {
		return nil, err
	}
	return []Scenario{
		{"modulo", modulo},
		{"two-groups", filter.GroupsForEntity(types.Equal, 2)},
		{"outside-north", outsideNorth},
		{"adults-at-work", adultsAtWork},
		{"dosed-or-hospital", dosedOrHospital},
		{"multi-household", filter.GroupsForEntityAndType(TypeHousehold, types.GreaterOrEqual, 2)},
		{"grouped", filter.GroupTypesForEntity(types.GreaterOrEqual, 1)},
	}, nil
}

// IndexReport summarizes one index after a run.
type IndexReport struct {
	Key         types.Key `json:"key"`
	Filter      string    `json:"filter"`
	Size        int       `json:"size"`
	Expected    int       `json:"expected"`
	Added       int       `json:"added"`
	Removed     int       `json:"removed"`
	Spurious    int       `json:"spurious"`
	Divergences int       `json:"divergences"`
}

// Report is the outcome of Run.
type Report struct {
	Seed        int64         `json:"seed"`
	Entities    int           `json:"entities"`
	Steps       int           `json:"steps"`
	Checkpoints int           `json:"checkpoints"`
	Divergences int           `json:"divergences"`
	Elapsed     time.Duration `json:"elapsed"`
	Indexes     []IndexReport `json:"indexes"`
}

// OK reports whether every checkpoint matched the oracle.
func (r *Report) OK() bool { return r.Divergences == 0 }

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the simulation's logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithProgress reports stages and checkpoints to p.
func WithProgress(p Progress) Option {
	return func(s *Simulation) {
		if p != nil {
			s.progress = p
		}
	}
}

// WithManagerOptions passes opts to the manager the simulation creates.
func WithManagerOptions(opts ...manager.Option) Option {
	return func(s *Simulation) { s.mgrOpts = append(s.mgrOpts, opts...) }
}

type tracked struct {
	report *IndexReport
	filter *filter.Filter
	shadow map[types.EntityID]bool
}

// Simulation owns a store, a manager attached to it and the churn driver.
type Simulation struct {
	cfg      Config
	logger   *zap.SugaredLogger
	progress Progress
	mgrOpts  []manager.Option

	rng     *rand.Rand
	store   *population.Store
	mgr     *manager.Manager
	groups  []types.GroupID
	live    []types.EntityID
	next    types.EntityID
	keys    []types.Key
	indexes map[types.Key]*tracked
}

// New builds the schema and the manager. No entities exist until Run.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if cfg.Population < 0 || cfg.Groups < 0 || cfg.MaxGroupsPerEntity < 0 || cfg.ChurnSteps < 0 {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "simulation sizes must be non-negative")
	}
	if cfg.Checkpoint <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "checkpoint interval must be positive, got %d", cfg.Checkpoint)
	}

	s := &Simulation{
		cfg:      cfg,
		logger:   zap.NewNop().Sugar(),
		progress: nopProgress{},
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		store:    population.New(),
		indexes:  make(map[types.Key]*tracked),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.defineSchema(); err != nil {
		return nil, errors.Wrap(err, "failed to define schema")
	}

	mgrOpts := append(s.mgrOpts, manager.WithRemovalNotification(cfg.NotifyRemoval))
	s.mgr = manager.New(s.store, s.store, mgrOpts...)
	s.store.Attach(s.mgr)
	return s, nil
}

// Manager returns the manager under test.
func (s *Simulation) Manager() *manager.Manager { return s.mgr }

// Store returns the simulated population.
func (s *Simulation) Store() *population.Store { return s.store }

func (s *Simulation) defineSchema() error {
	intDef := filter.PropertyDef{Kind: types.KindInt, Orderable: true}
	for _, p := range []types.PropertyID{PropP1, PropP2, PropAge} {
		if err := s.store.DefineProperty(p, intDef, types.Int(0)); err != nil {
			return err
		}
	}
	if err := s.store.DefineResource(ResDoses); err != nil {
		return err
	}
	for _, c := range compartments {
		if err := s.store.DefineCompartment(c); err != nil {
			return err
		}
	}
	for _, r := range regions {
		if err := s.store.DefineRegion(r); err != nil {
			return err
		}
	}
	for _, typ := range []types.GroupTypeID{TypeHousehold, TypeClub} {
		if err := s.store.DefineGroupType(typ); err != nil {
			return err
		}
		for i := 1; i <= s.cfg.Groups; i++ {
			id := types.GroupID(fmt.Sprintf("%s-%d", typ, i))
			if err := s.store.AddGroup(id, typ); err != nil {
				return err
			}
			s.groups = append(s.groups, id)
		}
	}
	return nil
}

// Run populates the store, registers the scenarios and applies the churn.
// It returns an error only when the run could not proceed; divergences are
// reported in the Report.
func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{Seed: s.cfg.Seed}

	s.progress.EmitStage("populate", fmt.Sprintf("%d entities, %d groups", s.cfg.Population, len(s.groups)))
	for i := 0; i < s.cfg.Population; i++ {
		if err := s.spawn(); err != nil {
			return nil, errors.Wrap(err, "failed to populate")
		}
	}

	scenarios, err := Scenarios()
	if err != nil {
		return nil, err
	}
	s.progress.EmitStage("register", fmt.Sprintf("%d indexes", len(scenarios)))
	sub := s.mgr.Subscribe(s.observe)
	for _, sc := range scenarios {
		if err := s.register(sc, sub); err != nil {
			return nil, errors.Wrapf(err, "failed to register %q", sc.Key)
		}
	}
	report.Divergences += s.check(0)
	report.Checkpoints++

	s.progress.EmitStage("churn", fmt.Sprintf("%d steps", s.cfg.ChurnSteps))
	for step := 1; step <= s.cfg.ChurnSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.store.SetTime(float64(step)); err != nil {
			return nil, err
		}
		if err := s.mutate(); err != nil {
			return nil, errors.Wrapf(err, "step %d", step)
		}
		report.Steps = step
		if step%s.cfg.Checkpoint == 0 || step == s.cfg.ChurnSteps {
			d := s.check(step)
			report.Divergences += d
			report.Checkpoints++
			s.progress.EmitCheckpoint(step, d)
		}
	}

	report.Entities = len(s.live)
	report.Elapsed = time.Since(start)
	for _, key := range s.keys {
		report.Indexes = append(report.Indexes, *s.indexes[key].report)
	}
	s.progress.EmitComplete(report)
	s.logger.Infow("Simulation finished",
		logger.FieldSeed, s.cfg.Seed,
		logger.FieldStep, report.Steps,
		logger.FieldPopulation, report.Entities,
		"divergences", report.Divergences)
	return report, nil
}

func (s *Simulation) register(sc Scenario, sub types.SubscriberID) error {
	if err := s.mgr.AddIndex(sc.Filter, sc.Key); err != nil {
		return err
	}
	if err := s.mgr.SetSubscription(true, sc.Key, sub); err != nil {
		return err
	}
	members, err := s.mgr.Members(sc.Key)
	if err != nil {
		return err
	}
	t := &tracked{
		report: &IndexReport{Key: sc.Key, Filter: sc.Filter.String()},
		filter: sc.Filter,
		shadow: make(map[types.EntityID]bool, len(members)),
	}
	for _, e := range members {
		t.shadow[e] = true
	}
	s.indexes[sc.Key] = t
	s.progress.EmitIndex(sc.Key, t.report.Filter, len(members))
	s.keys = append(s.keys, sc.Key)
	return nil
}

// observe replays events onto each index's shadow membership.
func (s *Simulation) observe(ev types.Event) {
	t, ok := s.indexes[ev.Key]
	if !ok {
		return
	}
	switch ev.Kind {
	case types.EventAddition:
		t.report.Added++
		if t.shadow[ev.Entity] {
			t.report.Spurious++
		}
		t.shadow[ev.Entity] = true
	case types.EventRemoval:
		t.report.Removed++
		if !t.shadow[ev.Entity] {
			t.report.Spurious++
		}
		delete(t.shadow, ev.Entity)
	}
}

func (s *Simulation) spawn() error {
	s.next++
	e := s.next
	err := s.store.AddEntity(e,
		population.WithProperty(PropP1, types.Int(int32(int64(e)%2))),
		population.WithProperty(PropP2, types.Int(int32(int64(e)%3))),
		population.WithProperty(PropAge, types.Int(int32(s.rng.Intn(90)))),
		population.InCompartment(compartments[s.rng.Intn(len(compartments))]),
		population.InRegion(regions[s.rng.Intn(len(regions))]),
	)
	if err != nil {
		return err
	}
	s.live = append(s.live, e)

	if len(s.groups) == 0 {
		return nil
	}
	k := min(s.rng.Intn(s.cfg.MaxGroupsPerEntity+1), len(s.groups))
	for _, i := range s.rng.Perm(len(s.groups))[:k] {
		if err := s.store.AddToGroup(e, s.groups[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) despawn(i int) error {
	e := s.live[i]
	if err := s.store.RemoveEntity(e); err != nil {
		return err
	}
	s.live[i] = s.live[len(s.live)-1]
	s.live = s.live[:len(s.live)-1]
	if !s.cfg.NotifyRemoval {
		// No REMOVE is delivered, so the shadow forgets departed entities here.
		for _, t := range s.indexes {
			delete(t.shadow, e)
		}
	}
	return nil
}

// mutate applies one random mutation to a random live entity.
func (s *Simulation) mutate() error {
	if len(s.live) == 0 {
		return s.spawn()
	}
	i := s.rng.Intn(len(s.live))
	e := s.live[i]

	switch s.rng.Intn(8) {
	case 0:
		m1, m2 := moduli[s.rng.Intn(len(moduli))], moduli[s.rng.Intn(len(moduli))]
		if err := s.store.SetProperty(e, PropP1, types.Int(int32(int64(e)%m1))); err != nil {
			return err
		}
		return s.store.SetProperty(e, PropP2, types.Int(int32(int64(e)%m2)))
	case 1:
		return s.store.SetProperty(e, PropAge, types.Int(int32(s.rng.Intn(90))))
	case 2:
		return s.store.MoveToCompartment(e, compartments[s.rng.Intn(len(compartments))])
	case 3:
		return s.store.MoveToRegion(e, regions[s.rng.Intn(len(regions))])
	case 4:
		return s.store.SetResourceLevel(e, ResDoses, s.rng.Int63n(4))
	case 5:
		if len(s.groups) == 0 {
			return s.store.SetProperty(e, PropAge, types.Int(int32(s.rng.Intn(90))))
		}
		g := s.groups[s.rng.Intn(len(s.groups))]
		if s.store.InGroup(e, g) {
			return s.store.RemoveFromGroup(e, g)
		}
		return s.store.AddToGroup(e, g)
	case 6:
		return s.despawn(i)
	default:
		return s.spawn()
	}
}

// check compares every index with a brute-force scan and with its shadow.
// It returns the number of diverging indexes.
func (s *Simulation) check(step int) int {
	diverged := 0
	for _, key := range s.keys {
		t := s.indexes[key]
		want := make(map[types.EntityID]bool)
		for _, e := range s.live {
			if filter.Evaluate(t.filter, s.store, e) {
				want[e] = true
			}
		}
		got, err := s.mgr.Members(key)
		if err != nil {
			s.logger.Errorw("Index vanished", logger.FieldIndexKey, key, logger.FieldError, err)
			t.report.Divergences++
			diverged++
			continue
		}

		t.report.Size, t.report.Expected = len(got), len(want)
		if !sameMembers(got, want) || !sameShadow(t.shadow, want) {
			s.logger.Warnw("Index diverges from scan",
				logger.FieldIndexKey, key,
				logger.FieldStep, step,
				logger.FieldMembers, len(got),
				"expected", len(want),
				"shadow", len(t.shadow))
			t.report.Divergences++
			diverged++
		}
	}
	s.logger.Debugw("Checkpoint", logger.FieldStep, step, logger.FieldCount, diverged)
	return diverged
}

func sameMembers(got []types.EntityID, want map[types.EntityID]bool) bool {
	if len(got) != len(want) {
		return false
	}
	for _, e := range got {
		if !want[e] {
			return false
		}
	}
	return true
}

func sameShadow(shadow, want map[types.EntityID]bool) bool {
	if len(shadow) != len(want) {
		return false
	}
	for e := range shadow {
		if !want[e] {
			return false
		}
	}
	return true
}
