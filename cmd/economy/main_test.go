package main

import (
	"context"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/napolitain/rts-economy/internal/density"
	"github.com/napolitain/rts-economy/internal/economy"
	"github.com/napolitain/rts-economy/internal/influence"
	"github.com/napolitain/rts-economy/internal/journal"
	"github.com/napolitain/rts-economy/internal/loader"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/rpc"
	"github.com/napolitain/rts-economy/internal/world"
)

func TestPlayJournalsDecisions(t *testing.T) {
	tuning := models.DefaultTuning()
	sc, err := loader.LoadScenario("../../scenarios/river_crossing.json", tuning)
	require.NoError(t, err)

	j, err := journal.Open(filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	defer j.Close()
	run, err := j.StartRun(sc.Name, sc.Seed)
	require.NoError(t, err)

	snapshotEvery = 25
	manager := economy.NewManager(tuning, economy.WithLogger(zerolog.Nop()))
	m := &match{
		sim:     world.NewSim(sc.State, world.DefaultCatalog(tuning), sc.Sim),
		decide:  localDecider{manager: manager},
		manager: manager,
		journal: j,
		run:     run,
	}
	require.NoError(t, m.play(context.Background(), 60))
	assert.Equal(t, 60, m.manager.Tick())

	decisions, err := j.Decisions(run)
	require.NoError(t, err)
	require.Len(t, decisions, 60)
	assert.Equal(t, 1, decisions[0].Tick)
	assert.Len(t, decisions[0].Commands, 5, "every citizen sent to work on the first tick")

	total, err := j.CommandTotal(run)
	require.NoError(t, err)
	assert.Equal(t, m.commands, total)

	wood, err := j.LoadDensity(run, 50, models.Wood)
	require.NoError(t, err)
	assert.Equal(t, m.manager.Tracker().Map(sc.State, models.Wood).Width(), wood.Width())

	assert.Positive(t, sc.State.Stockpile[models.Wood], "citizens gathered wood")
	assert.Greater(t, len(sc.State.Units), 5, "new citizens trained")
}

func TestPlayAgainstServer(t *testing.T) {
	tuning := models.DefaultTuning()
	sc, err := loader.LoadScenario("../../scenarios/river_crossing.json", tuning)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	rpc.RegisterEconomyServer(gs, rpc.NewServer(tuning, zerolog.Nop()))
	go gs.Serve(lis)
	defer gs.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	remote := &remoteDecider{client: rpc.NewClient(conn)}
	m := &match{
		sim:    world.NewSim(sc.State, world.DefaultCatalog(tuning), sc.Sim),
		decide: remote,
	}
	require.NoError(t, m.play(context.Background(), 30))

	assert.NotEmpty(t, remote.session)
	assert.Equal(t, 20, remote.targets.Workers)
	assert.Greater(t, len(sc.State.Units), 5, "plans from the server were trained locally")
	assert.Positive(t, sc.State.Stockpile[models.Wood])
}

func TestWritePNG(t *testing.T) {
	m := influence.New(16, 8)
	m.AddInfluence(8, 4, 4, 10, influence.Linear)
	path := filepath.Join(t.TempDir(), "map.png")
	require.NoError(t, writePNG(path, m))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	require.NoError(t, writePNG(filepath.Join(t.TempDir(), "empty.png"), influence.New(4, 4)))
}

func TestHeatMapFalloff(t *testing.T) {
	tuning := models.DefaultTuning()
	s := world.NewState(32, 32, 4)
	s.AddSupply(models.Supply{Template: "gaia/tree", Type: models.Wood, Position: models.Position{X: 40, Z: 40}, Max: 1500})
	tracker := density.NewTracker(tuning.Density, zerolog.Nop())

	quad := heatMap(s, tracker, models.Wood, 10, influence.Quadratic)
	assert.Equal(t, 100.0, quad.At(10, 10))
	assert.Equal(t, 75.0, quad.At(15, 10))
	assert.Equal(t, 0.0, quad.At(20, 10))

	flat := heatMap(s, tracker, models.Wood, 10, influence.Constant)
	assert.Equal(t, 100.0, flat.At(15, 10))
	assert.Zero(t, heatMap(s, tracker, models.Stone, 10, influence.Linear).At(10, 10))
}

func TestCentreDistance(t *testing.T) {
	s := world.NewState(64, 64, 4)
	pos := models.Position{X: 100, Z: 100}
	assert.Equal(t, "-", distanceLabel(centreDistance(s, pos)))

	s.AddStructure(models.Structure{
		Template: "structures/athen_civil_centre",
		Position: models.Position{X: 130, Z: 140},
		Classes:  []string{models.ClassCivCentre},
	})
	s.AddStructure(models.Structure{Template: "structures/athen_mill", Position: pos})
	assert.Equal(t, 50.0, centreDistance(s, pos))
	assert.Equal(t, "50", distanceLabel(50))
}

func TestShortTemplate(t *testing.T) {
	assert.Equal(t, "athen_mill", shortTemplate("structures/athen_mill"))
	assert.Equal(t, "plain", shortTemplate("plain"))
	assert.Equal(t, "-", dash(""))
}
