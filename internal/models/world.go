package models

import "time"

// World is the read-only view of the simulation for the current tick.
// All methods are synchronous snapshot reads.
type World interface {
	// CellSize is the width of one map cell in world units
	CellSize() float64
	// MapSize is the playable area in cells
	MapSize() (width, height int)
	TimeElapsed() time.Duration
	PopulationMax() int

	OwnUnits() []Unit
	// OwnStructures includes foundations
	OwnStructures() []Structure
	ResourceSupplies() map[ResourceType][]Supply
	// Obstructed reports terrain that cannot hold a building
	Obstructed(x, z int) bool

	CountEntitiesWithType(template string) int
	// CountEntitiesAndQueuedWithType counts entities, foundations and
	// units in training
	CountEntitiesAndQueuedWithType(template string) int
	CountFoundationsWithType(template string) int

	// FutureNeeds is the queue manager's projected demand per resource
	FutureNeeds() DemandWeights
}

// Foundations returns the structures of w that are still under construction
func Foundations(w World) []Structure {
	var out []Structure
	for _, s := range w.OwnStructures() {
		if s.Foundation {
			out = append(out, s)
		}
	}
	return out
}
