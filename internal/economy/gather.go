package economy

import (
	"cmp"
	"math"
	"slices"

	"github.com/napolitain/rts-economy/internal/models"
)

// rankResources orders the resource types from most to least underserved:
// ascending by gatherers/(weight+1), equal ratios keep the fixed resource
// order
func rankResources(counts map[models.ResourceType]int, weights models.DemandWeights) []models.ResourceType {
	types := models.AllResourceTypes()
	slices.SortStableFunc(types, func(a, b models.ResourceType) int {
		va := float64(counts[a]) / (weights.Weight(a) + 1)
		vb := float64(counts[b]) / (weights.Weight(b) + 1)
		return cmp.Compare(va, vb)
	})
	return types
}

// nearestSupply returns the closest gatherable supply within reach of pos.
// Equal distances keep the earlier supply.
func nearestSupply(supplies []models.Supply, pos models.Position, reach float64) (models.Supply, bool) {
	reach2 := reach * reach
	var candidates []models.Supply
	for _, s := range supplies {
		if s.Unhuntable || s.HasClass(models.ClassSeaCreature) {
			continue
		}
		if s.Position.DistanceSquaredTo(pos) > reach2 {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return models.Supply{}, false
	}
	return slices.MinFunc(candidates, func(a, b models.Supply) int {
		return cmp.Compare(a.Position.DistanceSquaredTo(pos), b.Position.DistanceSquaredTo(pos))
	}), true
}

// reassignIdleWorkers sends every idle worker to the most needed resource
// it can reach. Workers that reach nothing are tagged idle and retried on
// the next tick.
func (m *Manager) reassignIdleWorkers(w models.World, units map[models.EntityID]models.Unit) []models.Command {
	var idle []*Worker
	m.each(models.RoleWorker, func(wk *Worker) {
		if units[wk.ID].IsIdle() || wk.Subrole == models.SubroleIdle {
			idle = append(idle, wk)
		}
	})
	if len(idle) == 0 {
		return nil
	}

	weights := w.FutureNeeds()
	counts := m.GathererCounts()
	supplies := w.ResourceSupplies()
	reach := m.tuning.Workforce.GatherRange

	var cmds []models.Command
	for _, wk := range idle {
		pos := units[wk.ID].Position
		if wk.Subrole == models.SubroleGatherer {
			counts[wk.GatherType]--
		}

		assigned := false
		for _, rt := range rankResources(counts, weights) {
			target, ok := nearestSupply(supplies[rt], pos, reach)
			if !ok {
				continue
			}
			cmds = append(cmds, models.Command{Kind: models.CommandGather, Unit: wk.ID, Target: target.ID})
			wk.Subrole = models.SubroleGatherer
			wk.GatherType = rt
			counts[rt]++
			assigned = true
			break
		}
		if !assigned {
			wk.Subrole = models.SubroleIdle
			wk.GatherType = ""
		}
	}

	m.logger.Debug().
		Int("idle", len(idle)).
		Int("assigned", len(cmds)).
		Msg("reassigned idle workers")
	return cmds
}

// setWorkersIdleByPriority idles the gatherers of every resource that has
// more than its share of the total weight. They are redistributed by the
// next idle reassignment.
func (m *Manager) setWorkersIdleByPriority(w models.World) {
	weights := w.FutureNeeds()
	total := weights.Total()
	if total == 0 {
		m.logger.Debug().Msg("no demand, skipping rebalance")
		return
	}

	counts := m.GathererCounts()
	gatherers := 0
	for _, n := range counts {
		gatherers += n
	}

	for _, rt := range models.AllResourceTypes() {
		allocation := int(math.Floor(float64(gatherers) * weights.Weight(rt) / total))
		excess := counts[rt] - allocation
		if excess <= 0 {
			continue
		}
		m.each(models.RoleWorker, func(wk *Worker) {
			if excess > 0 && wk.Subrole == models.SubroleGatherer && wk.GatherType == rt {
				wk.Subrole = models.SubroleIdle
				wk.GatherType = ""
				excess--
			}
		})
		m.logger.Debug().
			Str("resource", string(rt)).
			Int("gatherers", counts[rt]).
			Int("allocation", allocation).
			Msg("rebalanced gatherers")
	}
}
