package economy

import "github.com/napolitain/rts-economy/internal/models"

// classify picks the role for a unit from its identity classes
func classify(u models.Unit) models.Role {
	switch {
	case u.HasClass(models.ClassWorker):
		return models.RoleWorker
	case u.HasClass(models.ClassCitizenSoldier), u.HasClass(models.ClassSuper):
		return models.RoleSoldier
	default:
		return models.RoleUnknown
	}
}

// triage gives every roleless unit a role and returns how many changed.
// A role once set is never revisited.
func (m *Manager) triage(units []models.Unit) int {
	changed := 0
	for _, u := range units {
		wk, ok := m.workers[u.ID]
		if !ok || wk.Role != models.RoleUnset {
			continue
		}
		wk.Role = classify(u)
		changed++
	}
	if changed > 0 {
		m.logger.Debug().Int("units", changed).Msg("assigned roles")
	}
	return changed
}
