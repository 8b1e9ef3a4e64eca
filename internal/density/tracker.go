// Package density maintains one influence map per resource type showing
// where that resource is concentrated. Maps are seeded once from the known
// supplies and then patched from destruction events, never rebuilt.
package density

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/napolitain/rts-economy/internal/influence"
	"github.com/napolitain/rts-economy/internal/models"
)

// Source is the part of the world the tracker reads
type Source interface {
	CellSize() float64
	MapSize() (width, height int)
	ResourceSupplies() map[models.ResourceType][]models.Supply
}

// Tracker owns the density maps for the lifetime of the agent
type Tracker struct {
	cfg    map[models.ResourceType]models.ResourceDensity
	maps   map[models.ResourceType]*influence.Map
	logger zerolog.Logger
}

// NewTracker creates a tracker with no maps yet
func NewTracker(cfg map[models.ResourceType]models.ResourceDensity, logger zerolog.Logger) *Tracker {
	return &Tracker{
		cfg:    cfg,
		maps:   make(map[models.ResourceType]*influence.Map),
		logger: logger.With().Str("component", "DensityTracker").Logger(),
	}
}

// Strength is the peak influence of a supply holding supplyMax of rt
func (t *Tracker) Strength(rt models.ResourceType, supplyMax float64) float64 {
	return math.Round(supplyMax / t.cfg[rt].DecreaseFactor)
}

// Has reports whether the map for rt has been seeded
func (t *Tracker) Has(rt models.ResourceType) bool {
	_, ok := t.maps[rt]
	return ok
}

// Map returns the density map for rt, seeding it from w on first use
func (t *Tracker) Map(w Source, rt models.ResourceType) *influence.Map {
	m, _ := t.ensure(w, rt)
	return m
}

// Update seeds missing maps and subtracts the contribution of every supply
// destroyed this tick. A map seeded during this call already reflects the
// destructions, so the events are not applied to it.
func (t *Tracker) Update(w Source, events []models.Event) {
	for _, rt := range models.AllResourceTypes() {
		m, created := t.ensure(w, rt)
		if created {
			continue
		}

		removed := 0
		for _, e := range events {
			if e.Type != models.EventDestroy || e.Entity == nil {
				continue
			}
			ent := e.Entity
			if ent.Template == "" || !ent.HasSupply() || ent.SupplyType != rt {
				continue
			}
			t.apply(m, rt, ent.Position, ent.SupplyMax, w.CellSize(), -1)
			removed++
		}
		if removed > 0 {
			t.logger.Debug().
				Str("resource", string(rt)).
				Int("removed", removed).
				Msg("subtracted destroyed supplies")
		}
	}
}

func (t *Tracker) ensure(w Source, rt models.ResourceType) (*influence.Map, bool) {
	if m, ok := t.maps[rt]; ok {
		return m, false
	}

	width, height := w.MapSize()
	m := influence.New(width, height)
	supplies := w.ResourceSupplies()[rt]
	for _, s := range supplies {
		t.apply(m, rt, s.Position, s.Max, w.CellSize(), 1)
	}
	t.maps[rt] = m

	t.logger.Debug().
		Str("resource", string(rt)).
		Int("supplies", len(supplies)).
		Int("width", width).
		Int("height", height).
		Msg("seeded density map")
	return m, true
}

func (t *Tracker) apply(m *influence.Map, rt models.ResourceType, pos models.Position, supplyMax, cellSize, sign float64) {
	x, z := influence.WorldToCell(pos.X, pos.Z, cellSize)
	m.AddInfluence(x, z, t.cfg[rt].Radius, sign*t.Strength(rt, supplyMax), influence.Linear)
}
