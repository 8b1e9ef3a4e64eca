// Package economy runs the per-tick economic decisions of an agent: it
// classifies new units, sizes the workforce, spreads gatherers across
// resources by demand, sends builders to foundations and requests the
// structures the economy needs.
package economy

import (
	"cmp"
	"slices"

	"github.com/rs/zerolog"

	"github.com/napolitain/rts-economy/internal/density"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/placement"
)

// Worker is the allocator's record of one of our units
type Worker struct {
	ID      models.EntityID `json:"id"`
	Role    models.Role     `json:"role"`
	Subrole models.Subrole  `json:"subrole,omitempty"`
	// GatherType is set only while Subrole is SubroleGatherer
	GatherType models.ResourceType `json:"gather_type,omitempty"`
}

// Targets are the workforce sizes the manager aims for
type Targets struct {
	Workers  int `json:"workers"`
	Builders int `json:"builders"`
	Fields   int `json:"fields"`
}

// QueuedPlan is a plan together with the queue it was written to
type QueuedPlan struct {
	Queue models.QueueName `json:"queue"`
	models.Plan
}

// Decision is everything the manager asked for during one tick
type Decision struct {
	Tick     int              `json:"tick"`
	Commands []models.Command `json:"commands"`
	Plans    []QueuedPlan     `json:"plans"`
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger used by the manager and its helpers
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns all economic state of one agent. It is not safe for
// concurrent use; the host drives it one tick at a time.
type Manager struct {
	tuning models.Tuning
	logger zerolog.Logger

	tracker *density.Tracker
	planner *placement.Planner

	workers map[models.EntityID]*Worker
	order   []models.EntityID

	targets     Targets
	initialised bool
	tick        int
	setCount    int

	workerTemplate   string
	fieldTemplate    string
	centreTemplate   string
	dropsiteTemplate string
}

// NewManager creates a manager from validated tuning
func NewManager(t models.Tuning, opts ...Option) *Manager {
	m := &Manager{
		tuning:  t,
		logger:  zerolog.Nop(),
		workers: make(map[models.EntityID]*Worker),
		targets: Targets{
			Builders: t.Workforce.Builders,
			Fields:   t.Workforce.Fields,
		},
		workerTemplate:   t.ApplyCiv(t.Templates.Worker),
		fieldTemplate:    t.ApplyCiv(t.Templates.Field),
		centreTemplate:   t.ApplyCiv(t.Templates.CivilCentre),
		dropsiteTemplate: t.ApplyCiv(t.Templates.Dropsite),
	}
	for _, opt := range opts {
		opt(m)
	}
	base := m.logger
	m.logger = base.With().Str("component", "EconomyManager").Logger()
	m.tracker = density.NewTracker(t.Density, base)
	m.planner = placement.NewPlanner(t, m.tracker, base)
	return m
}

// Init computes the worker target from the population cap. It runs once;
// Update calls it on the first tick when the host did not.
func (m *Manager) Init(w models.World) {
	if m.initialised {
		return
	}
	m.targets.Workers = w.PopulationMax() / m.tuning.Workforce.PopulationDivisor
	m.initialised = true
	m.logger.Info().
		Int("workers", m.targets.Workers).
		Int("population_max", w.PopulationMax()).
		Msg("economy initialised")
}

// Update runs one decision tick against the world snapshot w. Plans are
// written to queues; worker orders are returned in the decision.
func (m *Manager) Update(w models.World, queues models.Queues, events []models.Event) Decision {
	m.Init(w)
	m.tick++
	d := Decision{Tick: m.tick}
	q := recordQueues(queues, &d.Plans)

	units := w.OwnUnits()
	slices.SortFunc(units, func(a, b models.Unit) int { return cmp.Compare(a.ID, b.ID) })
	m.sync(units)

	m.triage(units)
	m.refreshBuilderTarget(w)

	m.buildNewCC(w, q)
	m.trainMoreWorkers(w, q)
	m.buildMoreFields(w, q)

	m.tracker.Update(w, events)

	unitByID := make(map[models.EntityID]models.Unit, len(units))
	for _, u := range units {
		unitByID[u.ID] = u
	}
	d.Commands = append(d.Commands, m.reassignIdleWorkers(w, unitByID)...)

	m.setCount++
	if m.setCount >= m.tuning.Workforce.RebalanceInterval {
		m.setWorkersIdleByPriority(w)
		m.setCount = 0
	}

	d.Commands = append(d.Commands, m.assignToFoundations(w, units)...)
	m.buildEconomicBuilding(w, q)

	m.logger.Debug().
		Int("tick", m.tick).
		Int("commands", len(d.Commands)).
		Int("plans", len(d.Plans)).
		Msg("tick complete")
	return d
}

// sync creates records for units seen for the first time and drops the
// records of units that left the world
func (m *Manager) sync(units []models.Unit) {
	seen := make(map[models.EntityID]bool, len(units))
	order := make([]models.EntityID, 0, len(units))
	for _, u := range units {
		seen[u.ID] = true
		order = append(order, u.ID)
		if _, ok := m.workers[u.ID]; !ok {
			m.workers[u.ID] = &Worker{ID: u.ID, Role: u.SpawnRole}
		}
	}
	for id := range m.workers {
		if !seen[id] {
			delete(m.workers, id)
		}
	}
	m.order = order
}

// each calls fn for every record with the given role in ID order
func (m *Manager) each(role models.Role, fn func(*Worker)) {
	for _, id := range m.order {
		if wk := m.workers[id]; wk.Role == role {
			fn(wk)
		}
	}
}

// Workers returns a copy of every record in ID order
func (m *Manager) Workers() []Worker {
	out := make([]Worker, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.workers[id])
	}
	return out
}

// Worker returns the record of one unit
func (m *Manager) Worker(id models.EntityID) (Worker, bool) {
	wk, ok := m.workers[id]
	if !ok {
		return Worker{}, false
	}
	return *wk, true
}

// Targets returns the current workforce targets
func (m *Manager) Targets() Targets { return m.targets }

// Tick returns the number of completed updates
func (m *Manager) Tick() int { return m.tick }

// Tracker exposes the density maps
func (m *Manager) Tracker() *density.Tracker { return m.tracker }

// Planner exposes the site planner bound to the manager's density maps
func (m *Manager) Planner() *placement.Planner { return m.planner }

// GathererCounts returns the number of gatherers per resource
func (m *Manager) GathererCounts() map[models.ResourceType]int {
	counts := make(map[models.ResourceType]int, 3)
	for _, rt := range models.AllResourceTypes() {
		counts[rt] = 0
	}
	m.each(models.RoleWorker, func(wk *Worker) {
		if wk.Subrole == models.SubroleGatherer {
			counts[wk.GatherType]++
		}
	})
	return counts
}

// recordingQueue forwards plans to the host queue and keeps a copy
type recordingQueue struct {
	models.Queue
	name  models.QueueName
	plans *[]QueuedPlan
}

func (r recordingQueue) AddItem(p models.Plan) {
	r.Queue.AddItem(p)
	*r.plans = append(*r.plans, QueuedPlan{Queue: r.name, Plan: p})
}

func recordQueues(q models.Queues, plans *[]QueuedPlan) models.Queues {
	wrap := func(name models.QueueName) models.Queue {
		return recordingQueue{Queue: q.Get(name), name: name, plans: plans}
	}
	return models.Queues{
		Villager:         wrap(models.QueueVillager),
		Field:            wrap(models.QueueField),
		CivilCentre:      wrap(models.QueueCivilCentre),
		EconomicBuilding: wrap(models.QueueEconomicBuilding),
	}
}
