package placement

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/napolitain/rts-economy/internal/density"
	"github.com/napolitain/rts-economy/internal/influence"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/world"
)

var tuning = models.DefaultTuning()

// cellPos is the world position that rounds to cell (x, z)
func cellPos(x, z int) models.Position {
	return models.Position{X: float64(x) * 4, Z: float64(z) * 4}
}

func newPlanner() *Planner {
	return NewPlanner(tuning, density.NewTracker(tuning.Density, zerolog.Nop()), zerolog.Nop())
}

func civCentre(at models.Position) models.Structure {
	return models.Structure{
		Template:      tuning.ApplyCiv(tuning.Templates.CivilCentre),
		Position:      at,
		Classes:       []string{models.ClassCivCentre},
		DropsiteTypes: models.AllResourceTypes(),
	}
}

func mill(at models.Position) models.Structure {
	return models.Structure{
		Template:      tuning.ApplyCiv(tuning.Templates.Dropsite),
		Position:      at,
		DropsiteTypes: models.AllResourceTypes(),
	}
}

func forest(s *world.State, cx, cz int) {
	for dz := -2; dz <= 2; dz++ {
		for dx := -2; dx <= 2; dx++ {
			s.AddSupply(models.Supply{
				Template: world.TreeTemplate, Type: models.Wood,
				Position: cellPos(cx+dx, cz+dz), Max: 200,
			})
		}
	}
}

func TestBestResourceBuildSpot(t *testing.T) {
	s := world.NewState(64, 64, 4)
	s.AddStructure(civCentre(cellPos(20, 20)))
	forest(s, 44, 20)

	pos, ok := newPlanner().BestResourceBuildSpot(s, models.Wood)
	require.True(t, ok)

	x, z := influence.WorldToCell(pos.X-2, pos.Z-2, 4)
	dCC := (x-20)*(x-20) + (z-20)*(z-20)
	dWood := (x-44)*(x-44) + (z-20)*(z-20)
	assert.GreaterOrEqual(t, dCC, 20*20, "outside the dropsite penalty of the civil centre")
	assert.Less(t, dWood, 15*15, "inside the forest density")
}

func TestBestResourceBuildSpotNoDensity(t *testing.T) {
	s := world.NewState(64, 64, 4)
	s.AddStructure(civCentre(cellPos(20, 20)))

	_, ok := newPlanner().BestResourceBuildSpot(s, models.Metal)
	assert.False(t, ok, "no metal anywhere")
}

func TestBestResourceBuildSpotAvoidsObstruction(t *testing.T) {
	s := world.NewState(64, 64, 4)
	s.AddStructure(civCentre(cellPos(20, 20)))
	forest(s, 44, 20)
	p := newPlanner()

	open, ok := p.BestResourceBuildSpot(s, models.Wood)
	require.True(t, ok)
	ox, oz := influence.WorldToCell(open.X-2, open.Z-2, 4)

	s.Block(ox, oz)
	moved, ok := p.BestResourceBuildSpot(s, models.Wood)
	require.True(t, ok)
	mx, mz := influence.WorldToCell(moved.X-2, moved.Z-2, 4)
	d := abs(mx-ox) + abs(mz-oz)
	assert.GreaterOrEqual(t, d, 4, "dilated obstruction keeps the site clear")
}

func TestObstructionMap(t *testing.T) {
	s := world.NewState(32, 32, 4)
	s.Block(5, 5)
	s.AddStructure(mill(cellPos(20, 20)))
	obs := newPlanner().ObstructionMap(s)

	tests := []struct {
		name string
		x, z int
		want float64
	}{
		{"blocked cell", 5, 5, 4},
		{"one step", 6, 5, 3},
		{"three steps", 5, 8, 1},
		{"four steps", 5, 9, 0},
		{"structure centre", 20, 20, 4},
		{"structure footprint edge", 22, 20, 4},
		{"structure diagonal outside footprint", 22, 22, 2},
		{"beyond structure", 25, 20, 1},
		{"open ground", 12, 12, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, obs.At(tt.x, tt.z))
		})
	}
}

func TestSuitabilityPenalisesExistingDropsites(t *testing.T) {
	s := world.NewState(64, 64, 4)
	s.AddStructure(civCentre(cellPos(10, 10)))
	forest(s, 40, 40)
	p := newPlanner()

	before, err := p.SuitabilityMap(s, models.Wood)
	require.NoError(t, err)
	assert.Greater(t, before.At(40, 40), 0.0)
	assert.Zero(t, before.At(5, 60), "no density")

	s.AddStructure(mill(cellPos(40, 40)))
	after, err := p.SuitabilityMap(s, models.Wood)
	require.NoError(t, err)
	assert.Less(t, after.At(40, 40), 0.0)

	stone, err := p.SuitabilityMap(s, models.Stone)
	require.NoError(t, err)
	assert.Zero(t, stone.SumInfluence(32, 32, 64))
}

func TestCandidatesAreSeparated(t *testing.T) {
	s := world.NewState(64, 64, 4)
	s.AddStructure(civCentre(cellPos(10, 32)))
	forest(s, 45, 32)

	got, err := newPlanner().Candidates(s, models.Wood, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range got {
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
		}
		for _, o := range got[:i] {
			dx, dz := got[i].CellX-o.CellX, got[i].CellZ-o.CellZ
			assert.GreaterOrEqual(t, dx*dx+dz*dz, 16)
		}
	}
}

func TestResourceConcentrations(t *testing.T) {
	s := world.NewState(64, 64, 4)
	s.AddStructure(mill(cellPos(30, 30)))
	s.AddSupply(models.Supply{
		Template: world.StoneTemplate, Type: models.Stone,
		Position: cellPos(30, 30), Max: 240,
	})
	p := newPlanner()

	cov := p.DropsiteCoverage(s, models.Stone)
	require.Len(t, cov, 1)
	assert.Greater(t, cov[0].Sum, 200.0)
	assert.Less(t, cov[0].Sum, 300.0)
	assert.False(t, cov[0].Sufficient)
	assert.Equal(t, 0, p.ResourceConcentrations(s, models.Stone))

	rich := world.NewState(64, 64, 4)
	rich.AddStructure(mill(cellPos(30, 30)))
	for i := 0; i < 2; i++ {
		rich.AddSupply(models.Supply{
			Template: world.StoneTemplate, Type: models.Stone,
			Position: cellPos(30, 30), Max: 240,
		})
	}
	assert.Equal(t, 1, newPlanner().ResourceConcentrations(rich, models.Stone))
	assert.Equal(t, 0, newPlanner().ResourceConcentrations(rich, models.Metal))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
