package economy

import (
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/world"
)

var (
	testTuning     = models.DefaultTuning()
	workerTemplate = testTuning.ApplyCiv(testTuning.Templates.Worker)
	centreTemplate = testTuning.ApplyCiv(testTuning.Templates.CivilCentre)
	millTemplate   = testTuning.ApplyCiv(testTuning.Templates.Dropsite)
)

// newTestWorld creates an empty 256x256 world with 4-unit cells
func newTestWorld() *world.State {
	return world.NewState(256, 256, 4)
}

func addWorker(s *world.State, x, z float64) models.EntityID {
	return s.AddUnit(workerTemplate, models.Position{X: x, Z: z}, models.ClassWorker, models.ClassFemale)
}

func addSupply(s *world.State, rt models.ResourceType, x, z, max float64) models.EntityID {
	return s.AddSupply(models.Supply{
		Template: "gaia/" + string(rt),
		Type:     rt,
		Position: models.Position{X: x, Z: z},
		Max:      max,
	})
}

func addCivCentre(s *world.State, x, z float64) models.EntityID {
	return s.AddStructure(models.Structure{
		Template:      centreTemplate,
		Position:      models.Position{X: x, Z: z},
		Classes:       []string{models.ClassCivCentre},
		DropsiteTypes: models.AllResourceTypes(),
	})
}

func addMill(s *world.State, x, z float64, foundation bool) models.EntityID {
	return s.AddStructure(models.Structure{
		Template:      millTemplate,
		Position:      models.Position{X: x, Z: z},
		DropsiteTypes: models.AllResourceTypes(),
		Foundation:    foundation,
	})
}

// step runs one tick and hands the orders to the units
func step(m *Manager, s *world.State, q models.Queues) Decision {
	d := m.Update(s, q, nil)
	s.Apply(d.Commands)
	return d
}

func countSubrole(m *Manager, sub models.Subrole) int {
	n := 0
	for _, wk := range m.Workers() {
		if wk.Role == models.RoleWorker && wk.Subrole == sub {
			n++
		}
	}
	return n
}
