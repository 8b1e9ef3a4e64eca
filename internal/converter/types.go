package converter

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/napolitain/rts-economy/internal/models"
)

// ErrMissingField is returned when a required message field is absent
var ErrMissingField = errors.New("missing field")

// ErrBadField is returned when a message field has the wrong shape
var ErrBadField = errors.New("bad field")

// PositionToValue converts a model Position to a struct value
func PositionToValue(p models.Position) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"x": structpb.NewNumberValue(p.X),
		"z": structpb.NewNumberValue(p.Z),
	}})
}

// ValueToPosition converts a struct value to a model Position
func ValueToPosition(v *structpb.Value) (models.Position, error) {
	s := v.GetStructValue()
	if s == nil {
		return models.Position{}, fmt.Errorf("%w: position is not an object", ErrBadField)
	}
	x, err := number(s, "x")
	if err != nil {
		return models.Position{}, err
	}
	z, err := number(s, "z")
	if err != nil {
		return models.Position{}, err
	}
	return models.Position{X: x, Z: z}, nil
}

// PlanToValue converts a model Plan to a struct value
func PlanToValue(p models.Plan) *structpb.Value {
	fields := map[string]*structpb.Value{
		"kind":     structpb.NewStringValue(string(p.Kind)),
		"template": structpb.NewStringValue(p.Template),
	}
	if p.Role != models.RoleUnset {
		fields["role"] = structpb.NewStringValue(string(p.Role))
	}
	if p.Position != nil {
		fields["position"] = PositionToValue(*p.Position)
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

// ValueToPlan converts a struct value to a model Plan
func ValueToPlan(v *structpb.Value) (models.Plan, error) {
	s := v.GetStructValue()
	if s == nil {
		return models.Plan{}, fmt.Errorf("%w: plan is not an object", ErrBadField)
	}
	kind, err := text(s, "kind")
	if err != nil {
		return models.Plan{}, err
	}
	p := models.Plan{Kind: models.PlanKind(kind)}
	switch p.Kind {
	case models.PlanTrain, models.PlanBuild:
	default:
		return models.Plan{}, fmt.Errorf("%w: plan kind %q", ErrBadField, kind)
	}
	if p.Template, err = text(s, "template"); err != nil {
		return models.Plan{}, err
	}
	if rv, ok := s.Fields["role"]; ok {
		if p.Role, err = models.ParseRole(rv.GetStringValue()); err != nil {
			return models.Plan{}, fmt.Errorf("%w: %w", ErrBadField, err)
		}
	}
	if pv, ok := s.Fields["position"]; ok {
		pos, err := ValueToPosition(pv)
		if err != nil {
			return models.Plan{}, err
		}
		p.Position = &pos
	}
	return p, nil
}

// CommandToValue converts a model Command to a struct value
func CommandToValue(c models.Command) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"kind":   structpb.NewStringValue(string(c.Kind)),
		"unit":   structpb.NewNumberValue(float64(c.Unit)),
		"target": structpb.NewNumberValue(float64(c.Target)),
	}})
}

// ValueToCommand converts a struct value to a model Command
func ValueToCommand(v *structpb.Value) (models.Command, error) {
	s := v.GetStructValue()
	if s == nil {
		return models.Command{}, fmt.Errorf("%w: command is not an object", ErrBadField)
	}
	kind, err := text(s, "kind")
	if err != nil {
		return models.Command{}, err
	}
	c := models.Command{Kind: models.CommandKind(kind)}
	switch c.Kind {
	case models.CommandGather, models.CommandRepair:
	default:
		return models.Command{}, fmt.Errorf("%w: command kind %q", ErrBadField, kind)
	}
	if c.Unit, err = entityID(s, "unit"); err != nil {
		return models.Command{}, err
	}
	if c.Target, err = entityID(s, "target"); err != nil {
		return models.Command{}, err
	}
	return c, nil
}

// EventToValue converts a model Event to a struct value
func EventToValue(e models.Event) *structpb.Value {
	fields := map[string]*structpb.Value{
		"type": structpb.NewStringValue(e.Type.String()),
	}
	if e.Entity != nil {
		ent := map[string]*structpb.Value{
			"id":       structpb.NewNumberValue(float64(e.Entity.ID)),
			"position": PositionToValue(e.Entity.Position),
		}
		if e.Entity.Template != "" {
			ent["template"] = structpb.NewStringValue(e.Entity.Template)
		}
		if e.Entity.SupplyType != "" {
			ent["supply_type"] = structpb.NewStringValue(string(e.Entity.SupplyType))
			ent["supply_max"] = structpb.NewNumberValue(e.Entity.SupplyMax)
		}
		fields["entity"] = structpb.NewStructValue(&structpb.Struct{Fields: ent})
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

// ValueToEvent converts a struct value to a model Event. Unknown supply
// types are dropped rather than rejected; the density tracker ignores
// entities without a supply.
func ValueToEvent(v *structpb.Value) (models.Event, error) {
	s := v.GetStructValue()
	if s == nil {
		return models.Event{}, fmt.Errorf("%w: event is not an object", ErrBadField)
	}
	typ, err := text(s, "type")
	if err != nil {
		return models.Event{}, err
	}
	var e models.Event
	if err := e.Type.UnmarshalText([]byte(typ)); err != nil {
		return models.Event{}, fmt.Errorf("%w: event type %q", ErrBadField, typ)
	}

	ev, ok := s.Fields["entity"]
	if !ok {
		return e, nil
	}
	es := ev.GetStructValue()
	if es == nil {
		return models.Event{}, fmt.Errorf("%w: entity is not an object", ErrBadField)
	}
	ent := &models.EntityState{Template: es.Fields["template"].GetStringValue()}
	if ent.ID, err = entityID(es, "id"); err != nil {
		return models.Event{}, err
	}
	if pv, ok := es.Fields["position"]; ok {
		if ent.Position, err = ValueToPosition(pv); err != nil {
			return models.Event{}, err
		}
	}
	if rt, err := models.ParseResourceType(es.Fields["supply_type"].GetStringValue()); err == nil {
		ent.SupplyType = rt
		ent.SupplyMax = es.Fields["supply_max"].GetNumberValue()
	}
	e.Entity = ent
	return e, nil
}

func text(s *structpb.Struct, key string) (string, error) {
	v, ok := s.Fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	str, ok := v.Kind.(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrBadField, key)
	}
	return str.StringValue, nil
}

func number(s *structpb.Struct, key string) (float64, error) {
	v, ok := s.Fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	n, ok := v.Kind.(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrBadField, key)
	}
	return n.NumberValue, nil
}

func entityID(s *structpb.Struct, key string) (models.EntityID, error) {
	n, err := number(s, key)
	if err != nil {
		return 0, err
	}
	if n != float64(int64(n)) {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrBadField, key)
	}
	return models.EntityID(n), nil
}

func list(s *structpb.Struct, key string) ([]*structpb.Value, error) {
	v, ok := s.Fields[key]
	if !ok {
		return nil, nil
	}
	if _, null := v.Kind.(*structpb.Value_NullValue); null {
		return nil, nil
	}
	l := v.GetListValue()
	if l == nil {
		return nil, fmt.Errorf("%w: %s is not a list", ErrBadField, key)
	}
	return l.Values, nil
}
