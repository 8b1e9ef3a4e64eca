package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/napolitain/rts-economy/internal/converter"
	"github.com/napolitain/rts-economy/internal/loader"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/rpc"
)

// dial starts the production server stack on an in-memory listener
func dial(t *testing.T, tuning models.Tuning) *rpc.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := newGRPCServer(tuning, zerolog.Nop())
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return rpc.NewClient(conn)
}

// TestDecideMatchesScenario drives the scenario world through the server
// and checks every idle citizen is put to work on the first tick.
func TestDecideMatchesScenario(t *testing.T) {
	tuning := models.DefaultTuning()
	sc, err := loader.LoadScenario("../../scenarios/river_crossing.json", tuning)
	if err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}
	client := dial(t, tuning)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Decide(ctx, converter.Request{World: sc.State})
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if resp.Session == "" {
		t.Fatal("no session assigned")
	}
	if len(resp.Decision.Commands) != len(sc.State.Units) {
		t.Errorf("commands = %d, want one per citizen (%d)", len(resp.Decision.Commands), len(sc.State.Units))
	}
	if resp.Targets.Workers != sc.State.PopulationCap/tuning.Workforce.PopulationDivisor {
		t.Errorf("worker target = %d", resp.Targets.Workers)
	}

	if err := client.EndSession(ctx, resp.Session); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	err = client.EndSession(ctx, resp.Session)
	if status.Code(err) != codes.NotFound {
		t.Errorf("second EndSession = %v, want NotFound", err)
	}
}
