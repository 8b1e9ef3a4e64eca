package world

import (
	"math"
	"slices"
	"time"

	"github.com/napolitain/rts-economy/internal/models"
)

// SimConfig holds the sandbox dynamics
type SimConfig struct {
	TickDuration time.Duration `json:"tick_duration"`
	// TrainTicks is how long one unit takes to train
	TrainTicks int `json:"train_ticks"`
	// BuildWork is the number of builder-ticks a foundation needs
	BuildWork int `json:"build_work"`
	// GatherRate is the amount one gatherer collects per tick
	GatherRate float64 `json:"gather_rate"`
	// PlacementRing is the distance from the anchor at which unplaced
	// buildings are laid out, in world units
	PlacementRing float64 `json:"placement_ring"`
}

// DefaultSimConfig returns sandbox dynamics roughly matching a real match
func DefaultSimConfig() SimConfig {
	return SimConfig{
		TickDuration:  time.Second,
		TrainTicks:    10,
		BuildWork:     20,
		GatherRate:    10,
		PlacementRing: 40,
	}
}

// Archetype is what the sandbox knows about a template
type Archetype struct {
	Classes       []string
	DropsiteTypes []models.ResourceType
}

// Catalog maps templates to archetypes
type Catalog map[string]Archetype

// DefaultCatalog describes the templates named by the tuning
func DefaultCatalog(t models.Tuning) Catalog {
	return Catalog{
		t.ApplyCiv(t.Templates.Worker): {
			Classes: []string{models.ClassWorker, models.ClassFemale},
		},
		t.ApplyCiv(t.Templates.CivilCentre): {
			Classes:       []string{models.ClassCivCentre},
			DropsiteTypes: models.AllResourceTypes(),
		},
		t.ApplyCiv(t.Templates.Dropsite): {
			DropsiteTypes: models.AllResourceTypes(),
		},
		t.ApplyCiv(t.Templates.Field): {},
	}
}

// Sim advances a State tick by tick, executing the plans queued by the
// economy and the orders it handed to units. Iteration follows entity ID
// order so identical inputs give identical runs.
type Sim struct {
	State *State

	cfg     SimConfig
	catalog Catalog
	pending *eventQueue
	tick    int

	villager *models.PlanQueue
	field    *models.PlanQueue
	centre   *models.PlanQueue
	economic *models.PlanQueue
}

// NewSim wraps state with empty production queues
func NewSim(state *State, catalog Catalog, cfg SimConfig) *Sim {
	if state.Stockpile == nil {
		state.Stockpile = make(map[models.ResourceType]float64)
	}
	return &Sim{
		State:    state,
		cfg:      cfg,
		catalog:  catalog,
		pending:  newEventQueue(),
		villager: models.NewPlanQueue(),
		field:    models.NewPlanQueue(),
		centre:   models.NewPlanQueue(),
		economic: models.NewPlanQueue(),
	}
}

// Queues returns the production queues the economy writes to
func (s *Sim) Queues() models.Queues {
	return models.Queues{
		Villager:         s.villager,
		Field:            s.field,
		CivilCentre:      s.centre,
		EconomicBuilding: s.economic,
	}
}

// Tick returns the number of completed steps
func (s *Sim) Tick() int { return s.tick }

// InProduction returns the number of units still training
func (s *Sim) InProduction() int { return s.pending.Len() }

// Step advances the world one tick and returns the events it produced
func (s *Sim) Step() []models.Event {
	s.tick++
	s.State.ElapsedMs += s.cfg.TickDuration.Milliseconds()

	var events []models.Event
	for _, due := range s.pending.PopDue(s.tick) {
		if ev, ok := s.finishTraining(due.Job); ok {
			events = append(events, ev)
		}
	}

	s.startTraining()
	for _, q := range []*models.PlanQueue{s.centre, s.field, s.economic} {
		s.layFoundations(q)
	}

	events = append(events, s.gather()...)
	events = append(events, s.build()...)
	return events
}

func (s *Sim) startTraining() {
	if _, ok := s.trainingCentre(); !ok {
		return
	}
	for {
		p, ok := s.villager.Pop()
		if !ok {
			return
		}
		if p.Kind != models.PlanTrain {
			continue
		}
		s.State.InTraining = append(s.State.InTraining, p.Template)
		s.pending.Push(timedEvent{
			Tick: s.tick + s.cfg.TrainTicks,
			Job:  trainingJob{Template: p.Template, Role: p.Role},
		})
	}
}

func (s *Sim) finishTraining(job trainingJob) (models.Event, bool) {
	if i := slices.Index(s.State.InTraining, job.Template); i >= 0 {
		s.State.InTraining = slices.Delete(s.State.InTraining, i, i+1)
	}
	cc, ok := s.trainingCentre()
	if !ok {
		return models.Event{}, false
	}

	pos := models.Position{X: cc.Position.X + 8, Z: cc.Position.Z + 8}
	id := s.State.AddUnit(job.Template, pos, s.catalog[job.Template].Classes...)
	u, _ := s.State.Unit(id)
	u.SpawnRole = job.Role

	return models.Event{
		Type:   models.EventTrainingFinished,
		Entity: &models.EntityState{ID: id, Template: job.Template, Position: pos},
	}, true
}

// trainingCentre is the finished civil centre with the lowest ID
func (s *Sim) trainingCentre() (models.Structure, bool) {
	for _, st := range s.State.Structures {
		if st.HasClass(models.ClassCivCentre) && !st.Foundation {
			return st, true
		}
	}
	return models.Structure{}, false
}

func (s *Sim) layFoundations(q *models.PlanQueue) {
	for {
		p, ok := q.Pop()
		if !ok {
			return
		}
		if p.Kind != models.PlanBuild {
			continue
		}
		pos, ok := s.placeFor(p)
		if !ok {
			continue
		}
		arch := s.catalog[p.Template]
		s.State.AddStructure(models.Structure{
			Template:      p.Template,
			Position:      pos,
			Classes:       arch.Classes,
			DropsiteTypes: arch.DropsiteTypes,
			Foundation:    true,
		})
	}
}

// placeFor returns the plan position, or the first unobstructed spot on a
// ring around the oldest structure
func (s *Sim) placeFor(p models.Plan) (models.Position, bool) {
	if p.Position != nil {
		return *p.Position, true
	}

	anchor := models.Position{
		X: float64(s.State.Cols) * s.State.Cell / 2,
		Z: float64(s.State.Rows) * s.State.Cell / 2,
	}
	if len(s.State.Structures) > 0 {
		anchor = s.State.Structures[0].Position
	}

	// golden angle spacing keeps successive buildings apart
	const golden = 2.399963229728653
	start := len(s.State.Structures)
	for i := 0; i < 64; i++ {
		n := float64(start + i)
		r := s.cfg.PlacementRing + 4*math.Sqrt(n)
		pos := models.Position{
			X: anchor.X + r*math.Cos(n*golden),
			Z: anchor.Z + r*math.Sin(n*golden),
		}
		cx := int(math.Round(pos.X / s.State.Cell))
		cz := int(math.Round(pos.Z / s.State.Cell))
		if !s.State.Obstructed(cx, cz) {
			return pos, true
		}
	}
	return models.Position{}, false
}

func (s *Sim) gather() []models.Event {
	var events []models.Event
	for i := range s.State.Units {
		u := &s.State.Units[i]
		if u.Order == nil || u.Order.Kind != models.OrderGather {
			continue
		}
		sup, ok := s.State.Supply(u.Order.Target)
		if !ok {
			u.Order = nil
			continue
		}

		take := math.Min(s.cfg.GatherRate, sup.Amount)
		sup.Amount -= take
		s.State.Stockpile[sup.Type] += take
		if sup.Amount > 0 {
			continue
		}

		gone := *sup
		s.State.RemoveSupply(gone.ID)
		s.clearOrders(models.OrderGather, gone.ID)
		events = append(events, models.Event{
			Type: models.EventDestroy,
			Entity: &models.EntityState{
				ID:         gone.ID,
				Template:   gone.Template,
				Position:   gone.Position,
				SupplyType: gone.Type,
				SupplyMax:  gone.Max,
			},
		})
	}
	return events
}

func (s *Sim) build() []models.Event {
	var events []models.Event
	for i := range s.State.Units {
		u := &s.State.Units[i]
		if u.Order == nil || u.Order.Kind != models.OrderRepair {
			continue
		}
		st, ok := s.State.Structure(u.Order.Target)
		if !ok || !st.Foundation {
			u.Order = nil
			continue
		}

		st.BuildProgress++
		if st.BuildProgress < s.cfg.BuildWork {
			continue
		}
		st.Foundation = false
		s.clearOrders(models.OrderRepair, st.ID)
		events = append(events, models.Event{
			Type:   models.EventConstructionFinished,
			Entity: &models.EntityState{ID: st.ID, Template: st.Template, Position: st.Position},
		})
	}
	return events
}

func (s *Sim) clearOrders(kind models.OrderKind, target models.EntityID) {
	for i := range s.State.Units {
		o := s.State.Units[i].Order
		if o != nil && o.Kind == kind && o.Target == target {
			s.State.Units[i].Order = nil
		}
	}
}
