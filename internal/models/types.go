package models

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrUnknownResource is returned when a resource name is outside the vocabulary
var ErrUnknownResource = errors.New("unknown resource type")

// ResourceType represents the gatherable resource types
type ResourceType string

const (
	Wood  ResourceType = "wood"
	Stone ResourceType = "stone"
	Metal ResourceType = "metal"
)

// AllResourceTypes returns all resource types in deterministic order
func AllResourceTypes() []ResourceType {
	return []ResourceType{Wood, Stone, Metal}
}

// ParseResourceType validates a resource name
func ParseResourceType(s string) (ResourceType, error) {
	rt := ResourceType(s)
	if !slices.Contains(AllResourceTypes(), rt) {
		return "", fmt.Errorf("%w: %q", ErrUnknownResource, s)
	}
	return rt, nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *ResourceType) UnmarshalText(text []byte) error {
	rt, err := ParseResourceType(string(text))
	if err != nil {
		return err
	}
	*r = rt
	return nil
}

// EntityID identifies a world entity
type EntityID int64

// Position is a point on the ground plane in world units
type Position struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// DistanceSquaredTo returns the squared straight-line distance to o
func (p Position) DistanceSquaredTo(o Position) float64 {
	dx := p.X - o.X
	dz := p.Z - o.Z
	return dx*dx + dz*dz
}

// DistanceTo returns the straight-line distance to o
func (p Position) DistanceTo(o Position) float64 {
	return math.Sqrt(p.DistanceSquaredTo(o))
}

// Identity classes used by the economy
const (
	ClassWorker         = "Worker"
	ClassCitizenSoldier = "CitizenSoldier"
	ClassSuper          = "Super"
	ClassCivCentre      = "CivCentre"
	ClassSeaCreature    = "SeaCreature"
	ClassFemale         = "Female"
)

// OrderKind is the kind of order a unit is executing
type OrderKind string

const (
	OrderGather OrderKind = "gather"
	OrderRepair OrderKind = "repair"
)

// Order is the current order of a unit
type Order struct {
	Kind   OrderKind `json:"kind"`
	Target EntityID  `json:"target"`
}

// Unit is a snapshot of one of our mobile units
type Unit struct {
	ID       EntityID `json:"id"`
	Template string   `json:"template"`
	Position Position `json:"position"`
	Classes  []string `json:"classes,omitempty"`
	// SpawnRole is the role requested by the plan that trained the unit
	SpawnRole Role   `json:"spawn_role,omitempty"`
	Order     *Order `json:"order,omitempty"`
}

// HasClass reports whether the unit carries the identity class
func (u Unit) HasClass(class string) bool {
	return slices.Contains(u.Classes, class)
}

// IsIdle reports whether the unit has no current order
func (u Unit) IsIdle() bool {
	return u.Order == nil
}

// Structure is a snapshot of one of our buildings or foundations
type Structure struct {
	ID            EntityID       `json:"id"`
	Template      string         `json:"template"`
	Position      Position       `json:"position"`
	Classes       []string       `json:"classes,omitempty"`
	DropsiteTypes []ResourceType `json:"dropsite_types,omitempty"`
	Foundation    bool           `json:"foundation,omitempty"`
	// BuildProgress counts builder-ticks spent on a foundation
	BuildProgress int `json:"build_progress,omitempty"`
}

// HasClass reports whether the structure carries the identity class
func (s Structure) HasClass(class string) bool {
	return slices.Contains(s.Classes, class)
}

// AcceptsResource reports whether the structure is a dropsite for rt
func (s Structure) AcceptsResource(rt ResourceType) bool {
	return slices.Contains(s.DropsiteTypes, rt)
}

// Supply is a snapshot of a resource supply entity
type Supply struct {
	ID         EntityID     `json:"id"`
	Template   string       `json:"template"`
	Position   Position     `json:"position"`
	Type       ResourceType `json:"type"`
	Max        float64      `json:"max"`
	Amount     float64      `json:"amount"`
	Unhuntable bool         `json:"unhuntable,omitempty"`
	Classes    []string     `json:"classes,omitempty"`
}

// HasClass reports whether the supply carries the identity class
func (s Supply) HasClass(class string) bool {
	return slices.Contains(s.Classes, class)
}

// DemandWeights maps each resource type to its projected future need
type DemandWeights map[ResourceType]float64

// Weight returns the weight for rt, zero when absent or negative
func (d DemandWeights) Weight(rt ResourceType) float64 {
	w := d[rt]
	if w < 0 {
		return 0
	}
	return w
}

// Total returns the sum of all weights in resource order
func (d DemandWeights) Total() float64 {
	var total float64
	for _, rt := range AllResourceTypes() {
		total += d.Weight(rt)
	}
	return total
}

// CommandKind is the kind of order issued to a worker
type CommandKind string

const (
	CommandGather CommandKind = "gather"
	CommandRepair CommandKind = "repair"
)

// Command is a worker order produced by the allocator
type Command struct {
	Kind   CommandKind `json:"kind"`
	Unit   EntityID    `json:"unit"`
	Target EntityID    `json:"target"`
}
