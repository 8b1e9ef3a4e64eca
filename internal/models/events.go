package models

// EventType represents the type of a world event
type EventType int

const (
	EventDestroy EventType = iota
	EventTrainingFinished
	EventConstructionFinished
)

// String returns a string representation of the event type
func (et EventType) String() string {
	switch et {
	case EventDestroy:
		return "Destroy"
	case EventTrainingFinished:
		return "TrainingFinished"
	case EventConstructionFinished:
		return "ConstructionFinished"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (et EventType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (et *EventType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "Destroy":
		*et = EventDestroy
	case "TrainingFinished":
		*et = EventTrainingFinished
	case "ConstructionFinished":
		*et = EventConstructionFinished
	default:
		return ErrUnknownTag
	}
	return nil
}

// EntityState is the last known state of an entity carried by an event.
// Template is empty when the host could not recover the entity.
type EntityState struct {
	ID         EntityID     `json:"id"`
	Template   string       `json:"template,omitempty"`
	Position   Position     `json:"position"`
	SupplyType ResourceType `json:"supply_type,omitempty"`
	SupplyMax  float64      `json:"supply_max,omitempty"`
}

// HasSupply reports whether the entity was a resource supply
func (e EntityState) HasSupply() bool {
	return e.SupplyType != "" && e.SupplyMax > 0
}

// Event is one world delta reported for the current tick
type Event struct {
	Type   EventType    `json:"type"`
	Entity *EntityState `json:"entity,omitempty"`
}
