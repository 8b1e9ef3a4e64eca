package converter

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/napolitain/rts-economy/internal/economy"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/world"
)

func testWorld() *world.State {
	s := world.NewState(32, 32, 4)
	s.PopulationCap = 90
	s.ElapsedMs = 12000
	s.Demand = models.DemandWeights{models.Wood: 2, models.Stone: 1}
	s.AddStructure(models.Structure{
		Template:      "structures/athen/civil_centre",
		Position:      models.Position{X: 64, Z: 64},
		Classes:       []string{models.ClassCivCentre},
		DropsiteTypes: models.AllResourceTypes(),
	})
	id := s.AddUnit("units/athen/support_female_citizen", models.Position{X: 70, Z: 60}, models.ClassWorker)
	tree := s.AddSupply(models.Supply{Template: world.TreeTemplate, Type: models.Wood, Position: models.Position{X: 20, Z: 20}, Max: 200})
	s.Apply([]models.Command{{Kind: models.CommandGather, Unit: id, Target: tree}})
	s.Block(3, 4)
	return s
}

func TestRequestRoundTrip(t *testing.T) {
	at := models.Position{X: 12.5, Z: 40}
	req := Request{
		Session: "abc",
		World:   testWorld(),
		Queues: map[models.QueueName][]models.Plan{
			models.QueueVillager:         {models.UnitTrainingPlan("units/athen/support_female_citizen", models.RoleWorker)},
			models.QueueEconomicBuilding: {models.BuildingConstructionPlan("structures/athen/storehouse", &at)},
		},
		Events: []models.Event{
			{Type: models.EventDestroy, Entity: &models.EntityState{ID: 9, Template: world.TreeTemplate, SupplyType: models.Wood, SupplyMax: 200}},
			{Type: models.EventConstructionFinished, Entity: &models.EntityState{ID: 4}},
			{Type: models.EventTrainingFinished},
		},
	}

	msg, err := RequestToStruct(req)
	if err != nil {
		t.Fatalf("RequestToStruct: %v", err)
	}
	got, err := StructToRequest(msg)
	if err != nil {
		t.Fatalf("StructToRequest: %v", err)
	}

	if got.Session != "abc" {
		t.Errorf("session = %q", got.Session)
	}
	if got.World.PopulationCap != 90 || got.World.ElapsedMs != 12000 {
		t.Errorf("world header lost: %+v", got.World)
	}
	if len(got.World.Units) != 1 || got.World.Units[0].Order == nil || got.World.Units[0].Order.Kind != models.OrderGather {
		t.Errorf("units = %+v", got.World.Units)
	}
	if !got.World.Obstructed(3, 4) {
		t.Error("blocked cell lost")
	}
	if got.World.Demand.Weight(models.Wood) != 2 {
		t.Errorf("demand = %v", got.World.Demand)
	}
	if got.World.NextID != req.World.NextID {
		t.Errorf("next id = %d, want %d", got.World.NextID, req.World.NextID)
	}

	econ := got.Queues[models.QueueEconomicBuilding]
	if len(econ) != 1 || econ[0].Position == nil || *econ[0].Position != at {
		t.Errorf("economic queue = %+v", econ)
	}
	if v := got.Queues[models.QueueVillager]; len(v) != 1 || v[0].Role != models.RoleWorker {
		t.Errorf("villager queue = %+v", v)
	}

	if len(got.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(got.Events))
	}
	if e := got.Events[0]; e.Type != models.EventDestroy || !e.Entity.HasSupply() || e.Entity.SupplyMax != 200 {
		t.Errorf("destroy event = %+v", e.Entity)
	}
	if e := got.Events[1]; e.Entity == nil || e.Entity.HasSupply() {
		t.Errorf("construction event = %+v", e.Entity)
	}
	if got.Events[2].Entity != nil {
		t.Error("event without entity gained one")
	}

	q := got.PlanQueues()
	if q.Villager.CountTotalQueuedUnits() != 1 || q.EconomicBuilding.TotalLength() != 1 || q.Field.TotalLength() != 0 {
		t.Error("plan queues not rebuilt")
	}
}

func TestStructToRequestErrors(t *testing.T) {
	valid, err := WorldToStruct(testWorld())
	if err != nil {
		t.Fatal(err)
	}
	broken := testWorld()
	broken.Cell = 0
	invalid, err := WorldToStruct(broken)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		msg  *structpb.Struct
		want error
	}{
		{"nil", nil, ErrMissingField},
		{"no world", &structpb.Struct{Fields: map[string]*structpb.Value{}}, ErrMissingField},
		{"invalid world", &structpb.Struct{Fields: map[string]*structpb.Value{
			"world": structpb.NewStructValue(invalid),
		}}, world.ErrInvalidState},
		{"unknown queue", &structpb.Struct{Fields: map[string]*structpb.Value{
			"world": structpb.NewStructValue(valid),
			"queues": structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
				"barracks": structpb.NewListValue(&structpb.ListValue{}),
			}}),
		}}, ErrBadField},
		{"events not a list", &structpb.Struct{Fields: map[string]*structpb.Value{
			"world":  structpb.NewStructValue(valid),
			"events": structpb.NewStringValue("none"),
		}}, ErrBadField},
		{"unknown event", &structpb.Struct{Fields: map[string]*structpb.Value{
			"world": structpb.NewStructValue(valid),
			"events": structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
				structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
					"type": structpb.NewStringValue("Exploded"),
				}}),
			}}),
		}}, ErrBadField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StructToRequest(tt.msg)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	at := models.Position{X: 8, Z: 16}
	resp := Response{
		Session: "s-1",
		Decision: economy.Decision{
			Tick: 21,
			Commands: []models.Command{
				{Kind: models.CommandGather, Unit: 2, Target: 7},
				{Kind: models.CommandRepair, Unit: 5, Target: 1},
			},
			Plans: []economy.QueuedPlan{
				{Queue: models.QueueVillager, Plan: models.UnitTrainingPlan("units/athen/support_female_citizen", models.RoleWorker)},
				{Queue: models.QueueField, Plan: models.BuildingConstructionPlan("structures/athen/field", nil)},
				{Queue: models.QueueEconomicBuilding, Plan: models.BuildingConstructionPlan("structures/athen/storehouse", &at)},
			},
		},
		Targets: economy.Targets{Workers: 50, Builders: 5, Fields: 5},
	}

	got, err := StructToResponse(ResponseToStruct(resp))
	if err != nil {
		t.Fatalf("StructToResponse: %v", err)
	}
	if got.Session != resp.Session || got.Decision.Tick != 21 || got.Targets != resp.Targets {
		t.Errorf("header = %+v", got)
	}
	if len(got.Decision.Commands) != 2 || got.Decision.Commands[1] != resp.Decision.Commands[1] {
		t.Errorf("commands = %+v", got.Decision.Commands)
	}
	if len(got.Decision.Plans) != 3 {
		t.Fatalf("plans = %d, want 3", len(got.Decision.Plans))
	}
	for i, p := range got.Decision.Plans {
		want := resp.Decision.Plans[i]
		if p.Queue != want.Queue || p.Kind != want.Kind || p.Template != want.Template || p.Role != want.Role {
			t.Errorf("plan %d = %+v, want %+v", i, p, want)
		}
	}
	if pos := got.Decision.Plans[2].Position; pos == nil || *pos != at {
		t.Errorf("plan position = %v", pos)
	}
	if got.Decision.Plans[1].Position != nil {
		t.Error("unpositioned plan gained a position")
	}
}

func TestValueToCommandRejectsFractionalIDs(t *testing.T) {
	v := structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"kind":   structpb.NewStringValue("gather"),
		"unit":   structpb.NewNumberValue(1.5),
		"target": structpb.NewNumberValue(2),
	}})
	if _, err := ValueToCommand(v); !errors.Is(err, ErrBadField) {
		t.Errorf("err = %v, want ErrBadField", err)
	}
}
