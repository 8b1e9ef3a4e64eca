// Package converter maps between the domain types and the structpb messages
// carried by the decision service.
package converter

import (
	"encoding/json"
	"fmt"
	"slices"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/napolitain/rts-economy/internal/economy"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/world"
)

// Request is the decoded body of a Decide call
type Request struct {
	// Session is empty on the first call of a match
	Session string
	World   *world.State
	// Queues holds the plans already pending in each host queue
	Queues map[models.QueueName][]models.Plan
	Events []models.Event
}

// Response is the decoded body of a Decide reply
type Response struct {
	Session  string
	Decision economy.Decision
	Targets  economy.Targets
}

// PlanQueues rebuilds the host queues of the request
func (r Request) PlanQueues() models.Queues {
	q := models.NewPlanQueues()
	for _, name := range models.AllQueueNames() {
		dst := q.Get(name)
		for _, p := range r.Queues[name] {
			dst.AddItem(p)
		}
	}
	return q
}

// RequestToStruct converts a Request to its wire message
func RequestToStruct(r Request) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		"session": structpb.NewStringValue(r.Session),
	}
	if r.World != nil {
		w, err := WorldToStruct(r.World)
		if err != nil {
			return nil, err
		}
		fields["world"] = structpb.NewStructValue(w)
	}

	queues := make(map[string]*structpb.Value)
	for _, name := range models.AllQueueNames() {
		plans := r.Queues[name]
		if len(plans) == 0 {
			continue
		}
		vals := make([]*structpb.Value, 0, len(plans))
		for _, p := range plans {
			vals = append(vals, PlanToValue(p))
		}
		queues[string(name)] = structpb.NewListValue(&structpb.ListValue{Values: vals})
	}
	fields["queues"] = structpb.NewStructValue(&structpb.Struct{Fields: queues})

	events := make([]*structpb.Value, 0, len(r.Events))
	for _, e := range r.Events {
		events = append(events, EventToValue(e))
	}
	fields["events"] = structpb.NewListValue(&structpb.ListValue{Values: events})

	return &structpb.Struct{Fields: fields}, nil
}

// StructToRequest converts a wire message to a Request. The world is
// validated before it is returned.
func StructToRequest(s *structpb.Struct) (Request, error) {
	var r Request
	if s == nil {
		return r, fmt.Errorf("%w: request", ErrMissingField)
	}
	r.Session = s.Fields["session"].GetStringValue()

	wv, ok := s.Fields["world"]
	if !ok || wv.GetStructValue() == nil {
		return r, fmt.Errorf("%w: world", ErrMissingField)
	}
	w, err := StructToWorld(wv.GetStructValue())
	if err != nil {
		return r, err
	}
	r.World = w

	if qv := s.Fields["queues"].GetStructValue(); qv != nil {
		r.Queues = make(map[models.QueueName][]models.Plan)
		for key := range qv.Fields {
			name := models.QueueName(key)
			if !slices.Contains(models.AllQueueNames(), name) {
				return r, fmt.Errorf("%w: queue %q", ErrBadField, key)
			}
			vals, err := list(qv, key)
			if err != nil {
				return r, err
			}
			for _, v := range vals {
				p, err := ValueToPlan(v)
				if err != nil {
					return r, fmt.Errorf("queue %s: %w", key, err)
				}
				r.Queues[name] = append(r.Queues[name], p)
			}
		}
	}

	events, err := list(s, "events")
	if err != nil {
		return r, err
	}
	for i, v := range events {
		e, err := ValueToEvent(v)
		if err != nil {
			return r, fmt.Errorf("event %d: %w", i, err)
		}
		r.Events = append(r.Events, e)
	}
	return r, nil
}

// ResponseToStruct converts a Response to its wire message
func ResponseToStruct(r Response) *structpb.Struct {
	commands := make([]*structpb.Value, 0, len(r.Decision.Commands))
	for _, c := range r.Decision.Commands {
		commands = append(commands, CommandToValue(c))
	}
	plans := make([]*structpb.Value, 0, len(r.Decision.Plans))
	for _, p := range r.Decision.Plans {
		v := PlanToValue(p.Plan)
		v.GetStructValue().Fields["queue"] = structpb.NewStringValue(string(p.Queue))
		plans = append(plans, v)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"session":  structpb.NewStringValue(r.Session),
		"tick":     structpb.NewNumberValue(float64(r.Decision.Tick)),
		"commands": structpb.NewListValue(&structpb.ListValue{Values: commands}),
		"plans":    structpb.NewListValue(&structpb.ListValue{Values: plans}),
		"targets": structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"workers":  structpb.NewNumberValue(float64(r.Targets.Workers)),
			"builders": structpb.NewNumberValue(float64(r.Targets.Builders)),
			"fields":   structpb.NewNumberValue(float64(r.Targets.Fields)),
		}}),
	}}
}

// StructToResponse converts a wire message to a Response
func StructToResponse(s *structpb.Struct) (Response, error) {
	var r Response
	if s == nil {
		return r, fmt.Errorf("%w: response", ErrMissingField)
	}
	r.Session = s.Fields["session"].GetStringValue()
	tick, err := number(s, "tick")
	if err != nil {
		return r, err
	}
	r.Decision.Tick = int(tick)

	commands, err := list(s, "commands")
	if err != nil {
		return r, err
	}
	for _, v := range commands {
		c, err := ValueToCommand(v)
		if err != nil {
			return r, err
		}
		r.Decision.Commands = append(r.Decision.Commands, c)
	}

	plans, err := list(s, "plans")
	if err != nil {
		return r, err
	}
	for _, v := range plans {
		p, err := ValueToPlan(v)
		if err != nil {
			return r, err
		}
		queue := models.QueueName(v.GetStructValue().Fields["queue"].GetStringValue())
		r.Decision.Plans = append(r.Decision.Plans, economy.QueuedPlan{Queue: queue, Plan: p})
	}

	if t := s.Fields["targets"].GetStructValue(); t != nil {
		r.Targets = economy.Targets{
			Workers:  int(t.Fields["workers"].GetNumberValue()),
			Builders: int(t.Fields["builders"].GetNumberValue()),
			Fields:   int(t.Fields["fields"].GetNumberValue()),
		}
	}
	return r, nil
}

// WorldToStruct converts a world snapshot through its JSON form
func WorldToStruct(w *world.State) (*structpb.Struct, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	return s, nil
}

// StructToWorld converts a message back to a validated world snapshot
func StructToWorld(s *structpb.Struct) (*world.State, error) {
	raw, err := json.Marshal(s.AsMap())
	if err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	w := &world.State{}
	if err := json.Unmarshal(raw, w); err != nil {
		return nil, fmt.Errorf("%w: world: %w", ErrBadField, err)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	w.Reindex()
	return w, nil
}
