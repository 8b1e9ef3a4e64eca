package economy

import (
	"cmp"
	"slices"

	"github.com/napolitain/rts-economy/internal/models"
)

// refreshBuilderTarget raises the builder target once the worker population
// passes the late-game threshold
func (m *Manager) refreshBuilderTarget(w models.World) {
	wf := m.tuning.Workforce
	target := wf.Builders
	if w.CountEntitiesWithType(m.workerTemplate) > wf.LateGameWorkers {
		target = wf.LateBuilders
	}
	if target != m.targets.Builders {
		m.logger.Info().
			Int("from", m.targets.Builders).
			Int("to", target).
			Msg("builder target changed")
	}
	m.targets.Builders = target
}

// pickFoundation selects the foundation that receives new builders
func (m *Manager) pickFoundation(foundations []models.Structure) models.Structure {
	if m.tuning.Workforce.FoundationSelection == models.FoundationOldest {
		return slices.MinFunc(foundations, func(a, b models.Structure) int {
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return foundations[0]
}

// assignToFoundations keeps the builder count at the target: surplus
// builders are idled, and while foundations exist the shortfall is filled
// with the workers nearest to the selected foundation
func (m *Manager) assignToFoundations(w models.World, units []models.Unit) []models.Command {
	var builders []*Worker
	m.each(models.RoleWorker, func(wk *Worker) {
		if wk.Subrole == models.SubroleBuilder {
			builders = append(builders, wk)
		}
	})

	if surplus := len(builders) - m.targets.Builders; surplus > 0 {
		for _, wk := range builders[len(builders)-surplus:] {
			wk.Subrole = models.SubroleIdle
		}
		m.logger.Debug().Int("builders", surplus).Msg("released surplus builders")
		return nil
	}

	foundations := models.Foundations(w)
	if len(foundations) == 0 {
		return nil
	}
	extraNeeded := m.targets.Builders - len(builders)
	if extraNeeded <= 0 {
		return nil
	}

	target := m.pickFoundation(foundations)
	var candidates []models.Unit
	for _, u := range units {
		wk := m.workers[u.ID]
		if wk.Role == models.RoleWorker && wk.Subrole != models.SubroleBuilder {
			candidates = append(candidates, u)
		}
	}
	slices.SortStableFunc(candidates, func(a, b models.Unit) int {
		return cmp.Compare(a.Position.DistanceSquaredTo(target.Position), b.Position.DistanceSquaredTo(target.Position))
	})
	if len(candidates) > extraNeeded {
		candidates = candidates[:extraNeeded]
	}

	cmds := make([]models.Command, 0, len(candidates))
	for _, u := range candidates {
		wk := m.workers[u.ID]
		wk.Subrole = models.SubroleBuilder
		wk.GatherType = ""
		cmds = append(cmds, models.Command{Kind: models.CommandRepair, Unit: u.ID, Target: target.ID})
	}
	if len(cmds) > 0 {
		m.logger.Debug().
			Int("builders", len(cmds)).
			Int64("foundation", int64(target.ID)).
			Msg("assigned builders")
	}
	return cmds
}
