package economy

import (
	"cmp"
	"slices"

	"github.com/napolitain/rts-economy/internal/models"
)

// buildNewCC requests a civil centre when none exists or is queued
func (m *Manager) buildNewCC(w models.World, q models.Queues) {
	n := w.CountEntitiesAndQueuedWithType(m.centreTemplate) + q.CivilCentre.TotalLength()
	for i := n; i < 1; i++ {
		q.CivilCentre.AddItem(models.BuildingConstructionPlan(m.centreTemplate, nil))
		m.logger.Info().Str("template", m.centreTemplate).Msg("requested civil centre")
	}
}

// trainMoreWorkers queues one worker per unit short of the target. Workers
// are counted by role so other worker templates count too.
func (m *Manager) trainMoreWorkers(w models.World, q models.Queues) {
	n := 0
	m.each(models.RoleWorker, func(*Worker) { n++ })
	n += w.CountEntitiesAndQueuedWithType(m.workerTemplate) - w.CountEntitiesWithType(m.workerTemplate)
	n += q.Villager.CountTotalQueuedUnits()
	short := m.targets.Workers - n
	if short <= 0 {
		return
	}
	for i := 0; i < short; i++ {
		q.Villager.AddItem(models.UnitTrainingPlan(m.workerTemplate, models.RoleWorker))
	}
	m.logger.Info().Int("units", short).Str("template", m.workerTemplate).Msg("queued workers")
}

// buildMoreFields tops fields up to the target once the grace period is over
func (m *Manager) buildMoreFields(w models.World, q models.Queues) {
	if w.TimeElapsed() < m.tuning.Workforce.GracePeriod {
		return
	}
	n := w.CountEntitiesAndQueuedWithType(m.fieldTemplate) + q.Field.TotalLength()
	for i := n; i < m.targets.Fields; i++ {
		q.Field.AddItem(models.BuildingConstructionPlan(m.fieldTemplate, nil))
	}
}

type dropsiteNeed struct {
	resource models.ResourceType
	deficit  int
}

// dropsiteNeeds lists the resources short of well supplied dropsites,
// largest deficit first
func (m *Manager) dropsiteNeeds(w models.World) []dropsiteNeed {
	var needs []dropsiteNeed
	for _, rt := range models.AllResourceTypes() {
		want := m.tuning.DensityFor(rt).Dropsites
		have := m.planner.ResourceConcentrations(w, rt)
		if have < want {
			needs = append(needs, dropsiteNeed{resource: rt, deficit: want - have})
		}
	}
	slices.SortStableFunc(needs, func(a, b dropsiteNeed) int {
		return cmp.Compare(b.deficit, a.deficit)
	})
	return needs
}

// buildEconomicBuilding requests one dropsite at a time for the resource
// with the weakest coverage. Far from any civil centre a new civil centre
// is requested instead.
func (m *Manager) buildEconomicBuilding(w models.World, q models.Queues) {
	if q.EconomicBuilding.TotalLength() != 0 ||
		w.CountFoundationsWithType(m.dropsiteTemplate) != 0 ||
		w.CountFoundationsWithType(m.centreTemplate) != 0 {
		return
	}
	if w.TimeElapsed() <= m.tuning.Workforce.GracePeriod {
		return
	}

	for _, need := range m.dropsiteNeeds(w) {
		spot, ok := m.planner.BestResourceBuildSpot(w, need.resource)
		if !ok {
			m.logger.Debug().Str("resource", string(need.resource)).Msg("no build spot, trying next resource")
			continue
		}

		template := m.centreTemplate
		if m.civCentreNear(w, spot) {
			template = m.dropsiteTemplate
		}
		q.EconomicBuilding.AddItem(models.BuildingConstructionPlan(template, &spot))
		m.logger.Info().
			Str("resource", string(need.resource)).
			Str("template", template).
			Float64("x", spot.X).
			Float64("z", spot.Z).
			Msg("requested economic building")
		return
	}
}

func (m *Manager) civCentreNear(w models.World, pos models.Position) bool {
	r := m.tuning.Workforce.CivilCentreRange
	for _, st := range w.OwnStructures() {
		if st.HasClass(models.ClassCivCentre) && st.Position.DistanceSquaredTo(pos) < r*r {
			return true
		}
	}
	return false
}
