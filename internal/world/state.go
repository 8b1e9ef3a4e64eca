// Package world provides an in-memory world for driving the economy outside
// of a game host: a serialisable snapshot, a tick simulation on top of it and
// a procedural map generator.
package world

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/napolitain/rts-economy/internal/models"
)

// ErrInvalidState is returned by Validate
var ErrInvalidState = errors.New("invalid world state")

// Cell addresses one map cell
type Cell struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// State is a snapshot of everything the economy can see. It implements
// models.World.
type State struct {
	Cell          float64              `json:"cell_size"`
	Cols          int                  `json:"width"`
	Rows          int                  `json:"height"`
	PopulationCap int                  `json:"population_max"`
	ElapsedMs     int64                `json:"elapsed_ms"`
	Units         []models.Unit        `json:"units"`
	Structures    []models.Structure   `json:"structures"`
	Supplies      []models.Supply      `json:"supplies"`
	Blocked       []Cell               `json:"blocked,omitempty"`
	Demand        models.DemandWeights `json:"needs,omitempty"`
	// InTraining lists the templates of units currently in production
	InTraining []string        `json:"in_training,omitempty"`
	NextID     models.EntityID `json:"next_id,omitempty"`
	// Stockpile is what gatherers have collected so far
	Stockpile map[models.ResourceType]float64 `json:"stockpile,omitempty"`

	blocked map[Cell]bool
	indexed int
}

// NewState creates an empty world of width x height cells
func NewState(width, height int, cellSize float64) *State {
	return &State{
		Cell:      cellSize,
		Cols:      width,
		Rows:      height,
		NextID:    1,
		Demand:    models.DemandWeights{},
		Stockpile: make(map[models.ResourceType]float64),
	}
}

// CellSize implements models.World
func (s *State) CellSize() float64 { return s.Cell }

// MapSize implements models.World
func (s *State) MapSize() (int, int) { return s.Cols, s.Rows }

// TimeElapsed implements models.World
func (s *State) TimeElapsed() time.Duration {
	return time.Duration(s.ElapsedMs) * time.Millisecond
}

// PopulationMax implements models.World
func (s *State) PopulationMax() int { return s.PopulationCap }

// OwnUnits implements models.World
func (s *State) OwnUnits() []models.Unit { return slices.Clone(s.Units) }

// OwnStructures implements models.World
func (s *State) OwnStructures() []models.Structure { return slices.Clone(s.Structures) }

// ResourceSupplies implements models.World
func (s *State) ResourceSupplies() map[models.ResourceType][]models.Supply {
	out := make(map[models.ResourceType][]models.Supply)
	for _, sup := range s.Supplies {
		out[sup.Type] = append(out[sup.Type], sup)
	}
	return out
}

// Obstructed implements models.World. Cells off the map count as obstructed.
func (s *State) Obstructed(x, z int) bool {
	if x < 0 || z < 0 || x >= s.Cols || z >= s.Rows {
		return true
	}
	if s.blocked == nil || s.indexed != len(s.Blocked) {
		s.blocked = make(map[Cell]bool, len(s.Blocked))
		for _, c := range s.Blocked {
			s.blocked[c] = true
		}
		s.indexed = len(s.Blocked)
	}
	return s.blocked[Cell{X: x, Z: z}]
}

// CountEntitiesWithType implements models.World
func (s *State) CountEntitiesWithType(template string) int {
	n := 0
	for _, u := range s.Units {
		if u.Template == template {
			n++
		}
	}
	for _, st := range s.Structures {
		if st.Template == template && !st.Foundation {
			n++
		}
	}
	return n
}

// CountEntitiesAndQueuedWithType implements models.World
func (s *State) CountEntitiesAndQueuedWithType(template string) int {
	n := s.CountEntitiesWithType(template) + s.CountFoundationsWithType(template)
	for _, t := range s.InTraining {
		if t == template {
			n++
		}
	}
	return n
}

// CountFoundationsWithType implements models.World
func (s *State) CountFoundationsWithType(template string) int {
	n := 0
	for _, st := range s.Structures {
		if st.Template == template && st.Foundation {
			n++
		}
	}
	return n
}

// FutureNeeds implements models.World
func (s *State) FutureNeeds() models.DemandWeights { return s.Demand }

// Block marks a cell as impassable terrain
func (s *State) Block(x, z int) {
	s.Blocked = append(s.Blocked, Cell{X: x, Z: z})
}

func (s *State) nextID() models.EntityID {
	if s.NextID == 0 {
		s.NextID = 1
	}
	id := s.NextID
	s.NextID++
	return id
}

// AddUnit adds one of our units and returns its ID
func (s *State) AddUnit(template string, pos models.Position, classes ...string) models.EntityID {
	id := s.nextID()
	s.Units = append(s.Units, models.Unit{ID: id, Template: template, Position: pos, Classes: classes})
	return id
}

// AddStructure adds one of our structures and returns its ID
func (s *State) AddStructure(st models.Structure) models.EntityID {
	st.ID = s.nextID()
	s.Structures = append(s.Structures, st)
	return st.ID
}

// AddSupply adds a resource supply and returns its ID
func (s *State) AddSupply(sup models.Supply) models.EntityID {
	sup.ID = s.nextID()
	if sup.Amount == 0 {
		sup.Amount = sup.Max
	}
	s.Supplies = append(s.Supplies, sup)
	return sup.ID
}

// Unit returns the unit with the given ID
func (s *State) Unit(id models.EntityID) (*models.Unit, bool) {
	for i := range s.Units {
		if s.Units[i].ID == id {
			return &s.Units[i], true
		}
	}
	return nil, false
}

// Supply returns the supply with the given ID
func (s *State) Supply(id models.EntityID) (*models.Supply, bool) {
	for i := range s.Supplies {
		if s.Supplies[i].ID == id {
			return &s.Supplies[i], true
		}
	}
	return nil, false
}

// Structure returns the structure with the given ID
func (s *State) Structure(id models.EntityID) (*models.Structure, bool) {
	for i := range s.Structures {
		if s.Structures[i].ID == id {
			return &s.Structures[i], true
		}
	}
	return nil, false
}

// RemoveSupply drops a supply from the world
func (s *State) RemoveSupply(id models.EntityID) bool {
	for i := range s.Supplies {
		if s.Supplies[i].ID == id {
			s.Supplies = slices.Delete(s.Supplies, i, i+1)
			return true
		}
	}
	return false
}

// RemoveUnit drops a unit from the world
func (s *State) RemoveUnit(id models.EntityID) bool {
	for i := range s.Units {
		if s.Units[i].ID == id {
			s.Units = slices.Delete(s.Units, i, i+1)
			return true
		}
	}
	return false
}

// Apply hands the commands to their units. Commands for unknown units are
// dropped; the count of applied commands is returned.
func (s *State) Apply(cmds []models.Command) int {
	applied := 0
	for _, c := range cmds {
		u, ok := s.Unit(c.Unit)
		if !ok {
			continue
		}
		switch c.Kind {
		case models.CommandGather:
			u.Order = &models.Order{Kind: models.OrderGather, Target: c.Target}
		case models.CommandRepair:
			u.Order = &models.Order{Kind: models.OrderRepair, Target: c.Target}
		default:
			continue
		}
		applied++
	}
	return applied
}

// Validate checks the invariants the economy relies on: a positive grid,
// known resource types and unique entity IDs
func (s *State) Validate() error {
	if s.Cell <= 0 {
		return fmt.Errorf("%w: cell size %v", ErrInvalidState, s.Cell)
	}
	if s.Cols <= 0 || s.Rows <= 0 {
		return fmt.Errorf("%w: map size %dx%d", ErrInvalidState, s.Cols, s.Rows)
	}
	if s.PopulationCap < 0 {
		return fmt.Errorf("%w: population max %d", ErrInvalidState, s.PopulationCap)
	}

	seen := make(map[models.EntityID]string)
	claim := func(id models.EntityID, kind string) error {
		if id <= 0 {
			return fmt.Errorf("%w: %s has id %d", ErrInvalidState, kind, id)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: id %d used by %s and %s", ErrInvalidState, id, prev, kind)
		}
		seen[id] = kind
		return nil
	}
	for _, u := range s.Units {
		if err := claim(u.ID, "unit"); err != nil {
			return err
		}
	}
	for _, st := range s.Structures {
		if err := claim(st.ID, "structure"); err != nil {
			return err
		}
	}
	for _, sup := range s.Supplies {
		if err := claim(sup.ID, "supply"); err != nil {
			return err
		}
		if _, err := models.ParseResourceType(string(sup.Type)); err != nil {
			return fmt.Errorf("%w: supply %d: %w", ErrInvalidState, sup.ID, err)
		}
	}
	return nil
}

// Reindex moves NextID past every entity in the state and fills in what a
// decoded state lacks. Supplies without an amount start full.
func (s *State) Reindex() {
	maxID := models.EntityID(0)
	for _, u := range s.Units {
		maxID = max(maxID, u.ID)
	}
	for _, st := range s.Structures {
		maxID = max(maxID, st.ID)
	}
	for i := range s.Supplies {
		maxID = max(maxID, s.Supplies[i].ID)
		if s.Supplies[i].Amount == 0 {
			s.Supplies[i].Amount = s.Supplies[i].Max
		}
	}
	if s.NextID <= maxID {
		s.NextID = maxID + 1
	}
	if s.Demand == nil {
		s.Demand = models.DemandWeights{}
	}
	if s.Stockpile == nil {
		s.Stockpile = make(map[models.ResourceType]float64)
	}
	s.blocked = nil
}
