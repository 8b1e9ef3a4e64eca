// Package placement picks build sites for resource dropsites by combining
// the density maps with friendly structure influence and terrain obstruction.
package placement

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/napolitain/rts-economy/internal/density"
	"github.com/napolitain/rts-economy/internal/influence"
	"github.com/napolitain/rts-economy/internal/models"
)

// Candidate is a possible build site
type Candidate struct {
	Position models.Position
	CellX    int
	CellZ    int
	Score    float64
}

// Coverage is the density around one dropsite
type Coverage struct {
	ID         models.EntityID
	Template   string
	Sum        float64
	Sufficient bool
}

// Planner answers where to build and whether more dropsites are needed
type Planner struct {
	cfg     models.PlacementConfig
	density map[models.ResourceType]models.ResourceDensity
	tracker *density.Tracker
	logger  zerolog.Logger
}

// NewPlanner creates a planner reading the tracker's density maps
func NewPlanner(t models.Tuning, tracker *density.Tracker, logger zerolog.Logger) *Planner {
	return &Planner{
		cfg:     t.Placement,
		density: t.Density,
		tracker: tracker,
		logger:  logger.With().Str("component", "SitePlanner").Logger(),
	}
}

// SuitabilityMap scores every cell for a new rt dropsite: positive near our
// civil centres, strongly negative next to existing rt dropsites, and scaled
// by the rt density so cells without the resource score zero.
func (p *Planner) SuitabilityMap(w models.World, rt models.ResourceType) (*influence.Map, error) {
	width, height := w.MapSize()
	m := influence.New(width, height)
	cs := w.CellSize()

	for _, st := range w.OwnStructures() {
		x, z := influence.WorldToCell(st.Position.X, st.Position.Z, cs)
		if st.HasClass(models.ClassCivCentre) {
			r := p.cfg.CivCentreRadius
			m.AddInfluence(x, z, r, p.cfg.CivCentreWeight*float64(r), influence.Linear)
		}
		if st.AcceptsResource(rt) {
			m.AddInfluence(x, z, p.cfg.DropsiteRadius, p.cfg.DropsitePenalty, influence.Constant)
		}
	}

	if err := m.Multiply(p.tracker.Map(w, rt)); err != nil {
		return nil, fmt.Errorf("suitability for %s: %w", rt, err)
	}
	return m, nil
}

// ObstructionMap marks blocked terrain and the footprint of every structure,
// then dilates so cells near an obstruction are positive too
func (p *Planner) ObstructionMap(w models.World) *influence.Map {
	width, height := w.MapSize()
	m := influence.New(width, height)
	clearance := p.cfg.ObstructionClearance

	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			if w.Obstructed(x, z) {
				m.Set(x, z, clearance)
			}
		}
	}

	fp := p.cfg.StructureFootprint
	for _, st := range w.OwnStructures() {
		cx, cz := influence.WorldToCell(st.Position.X, st.Position.Z, w.CellSize())
		for z := cz - fp; z <= cz+fp; z++ {
			for x := cx - fp; x <= cx+fp; x++ {
				dx, dz := x-cx, z-cz
				if dx*dx+dz*dz <= fp*fp && m.At(x, z) < clearance {
					m.Set(x, z, clearance)
				}
			}
		}
	}

	m.ExpandInfluences()
	return m
}

// Candidates returns up to n build sites for rt in decreasing score
func (p *Planner) Candidates(w models.World, rt models.ResourceType, n int) ([]Candidate, error) {
	suit, err := p.SuitabilityMap(w, rt)
	if err != nil {
		return nil, err
	}
	tiles, err := suit.FindBestTiles(n, p.cfg.MinSeparation, p.ObstructionMap(w))
	if err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(tiles))
	for _, t := range tiles {
		x, z := suit.CellCenter(t.Index, w.CellSize())
		out = append(out, Candidate{
			Position: models.Position{X: x, Z: z},
			CellX:    t.X,
			CellZ:    t.Z,
			Score:    t.Value,
		})
	}
	return out, nil
}

// BestResourceBuildSpot returns the best place for a new rt dropsite. It
// reports false when no unobstructed cell scores above zero; the caller
// should skip rt for this tick.
func (p *Planner) BestResourceBuildSpot(w models.World, rt models.ResourceType) (models.Position, bool) {
	c, err := p.Candidates(w, rt, 1)
	if err != nil {
		if errors.Is(err, influence.ErrNoTile) {
			p.logger.Debug().Str("resource", string(rt)).Msg("no free tile")
		} else {
			p.logger.Warn().Err(err).Str("resource", string(rt)).Msg("placement failed")
		}
		return models.Position{}, false
	}
	return c[0].Position, true
}

// DropsiteCoverage reports the rt density around each of our rt dropsites
func (p *Planner) DropsiteCoverage(w models.World, rt models.ResourceType) []Coverage {
	dens := p.tracker.Map(w, rt)
	required := p.density[rt].RequiredInfluence

	var out []Coverage
	for _, st := range w.OwnStructures() {
		if !st.AcceptsResource(rt) {
			continue
		}
		x, z := influence.WorldToCell(st.Position.X, st.Position.Z, w.CellSize())
		sum := dens.SumInfluence(x, z, p.cfg.ConcentrationRadius)
		out = append(out, Coverage{
			ID:         st.ID,
			Template:   st.Template,
			Sum:        sum,
			Sufficient: sum > required,
		})
	}
	return out
}

// ResourceConcentrations counts our rt dropsites with enough rt nearby
func (p *Planner) ResourceConcentrations(w models.World, rt models.ResourceType) int {
	n := 0
	for _, c := range p.DropsiteCoverage(w, rt) {
		if c.Sufficient {
			n++
		}
	}
	return n
}
