package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/napolitain/rts-economy/internal/models"
)

// Supply templates placed by the generator
const (
	TreeTemplate  = "gaia/flora_tree_oak"
	StoneTemplate = "gaia/geology_stone_mediterranean"
	MetalTemplate = "gaia/geology_metal_mediterranean"
)

// GenConfig holds sandbox map generation parameters
type GenConfig struct {
	Seed          int64   `json:"seed"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	CellSize      float64 `json:"cell_size"`
	PopulationMax int     `json:"population_max"`
	Workers       int     `json:"workers"`
	// WaterLevel is the elevation below which cells are impassable
	WaterLevel float64 `json:"water_level"`
	// ForestLevel is the forest noise above which trees grow
	ForestLevel float64 `json:"forest_level"`
	// BaseClearance keeps trees and water away from the starting CC, in cells
	BaseClearance int `json:"base_clearance"`
	// Mines is the number of stone and of metal mines
	Mines   int                  `json:"mines"`
	TreeMax float64              `json:"tree_max"`
	MineMax float64              `json:"mine_max"`
	Demand  models.DemandWeights `json:"demand"`
	Tuning  models.Tuning        `json:"-"`
	Catalog Catalog              `json:"-"`
}

// DefaultGenConfig returns a small single-player map
func DefaultGenConfig() GenConfig {
	t := models.DefaultTuning()
	return GenConfig{
		Seed:          42,
		Width:         128,
		Height:        128,
		CellSize:      4,
		PopulationMax: 150,
		Workers:       8,
		WaterLevel:    0.28,
		ForestLevel:   0.62,
		BaseClearance: 10,
		Mines:         3,
		TreeMax:       200,
		MineMax:       5000,
		Demand:        models.DemandWeights{models.Wood: 3, models.Stone: 1, models.Metal: 1},
		Tuning:        t,
		Catalog:       DefaultCatalog(t),
	}
}

// Generate builds a world from layered simplex noise: water is blocked
// terrain, forests grow where the forest layer is high, mines are scattered
// around the starting civil centre and the workers stand next to it.
func Generate(cfg GenConfig) *State {
	seed := cfg.Seed
	elevNoise := opensimplex.NewNormalized(seed)
	forestNoise := opensimplex.NewNormalized(seed + 1)
	rng := rand.New(rand.NewSource(seed + 100))

	s := NewState(cfg.Width, cfg.Height, cfg.CellSize)
	s.PopulationCap = cfg.PopulationMax
	s.Demand = models.DemandWeights{}
	for rt, w := range cfg.Demand {
		s.Demand[rt] = w
	}

	cx, cz := cfg.Width/2, cfg.Height/2
	clear2 := cfg.BaseClearance * cfg.BaseClearance
	centre := func(x, z int) models.Position {
		return models.Position{
			X: (float64(x) + 0.5) * cfg.CellSize,
			Z: (float64(z) + 0.5) * cfg.CellSize,
		}
	}

	for z := 0; z < cfg.Height; z++ {
		for x := 0; x < cfg.Width; x++ {
			dx, dz := x-cx, z-cz
			if dx*dx+dz*dz < clear2 {
				continue
			}
			elev := octaveNoise(elevNoise, float64(x), float64(z), 4, 0.04, 0.5)
			if elev < cfg.WaterLevel {
				s.Block(x, z)
				continue
			}
			// trees on every other cell keep forests walkable
			if x%2 == 0 && z%2 == 0 {
				if octaveNoise(forestNoise, float64(x), float64(z), 3, 0.08, 0.5) > cfg.ForestLevel {
					s.AddSupply(models.Supply{
						Template: TreeTemplate,
						Position: centre(x, z),
						Type:     models.Wood,
						Max:      cfg.TreeMax,
					})
				}
			}
		}
	}

	t := cfg.Tuning
	ccTemplate := t.ApplyCiv(t.Templates.CivilCentre)
	ccArch := cfg.Catalog[ccTemplate]
	ccPos := centre(cx, cz)
	s.AddStructure(models.Structure{
		Template:      ccTemplate,
		Position:      ccPos,
		Classes:       ccArch.Classes,
		DropsiteTypes: ccArch.DropsiteTypes,
	})

	for _, rt := range []models.ResourceType{models.Stone, models.Metal} {
		template := StoneTemplate
		if rt == models.Metal {
			template = MetalTemplate
		}
		placed := 0
		for attempt := 0; placed < cfg.Mines && attempt < cfg.Mines*20; attempt++ {
			angle := rng.Float64() * 2 * math.Pi
			dist := float64(cfg.BaseClearance) + 4 + rng.Float64()*float64(cfg.BaseClearance)*3
			mx := cx + int(math.Round(dist*math.Cos(angle)))
			mz := cz + int(math.Round(dist*math.Sin(angle)))
			if s.Obstructed(mx, mz) {
				continue
			}
			s.AddSupply(models.Supply{
				Template: template,
				Position: centre(mx, mz),
				Type:     rt,
				Max:      cfg.MineMax,
			})
			placed++
		}
	}

	workerTemplate := t.ApplyCiv(t.Templates.Worker)
	classes := cfg.Catalog[workerTemplate].Classes
	for i := 0; i < cfg.Workers; i++ {
		angle := float64(i) / float64(max(cfg.Workers, 1)) * 2 * math.Pi
		pos := models.Position{
			X: ccPos.X + 12*math.Cos(angle),
			Z: ccPos.Z + 12*math.Sin(angle),
		}
		s.AddUnit(workerTemplate, pos, classes...)
	}

	return s
}

// octaveNoise generates fractal noise by layering multiple frequencies
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
