package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/napolitain/rts-economy/internal/converter"
	"github.com/napolitain/rts-economy/internal/economy"
	"github.com/napolitain/rts-economy/internal/journal"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/rpc"
	"github.com/napolitain/rts-economy/internal/world"
)

var (
	ticks         int
	journalFile   string
	snapshotEvery int
	serverAddr    string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a sandbox match and report the economy",
		Long: `Alternates economy decisions and sandbox steps for a number of ticks.
Decisions come from an in-process manager, or from a decision server when
--server is set.`,
		RunE: runMatch,
	}
	cmd.Flags().IntVarP(&ticks, "ticks", "n", 0, "Ticks to run (default: scenario length or 300)")
	cmd.Flags().StringVarP(&journalFile, "journal", "j", "", "Record decisions in a SQLite journal")
	cmd.Flags().IntVar(&snapshotEvery, "snapshot-every", 50, "Density snapshot interval in ticks when journaling")
	cmd.Flags().StringVar(&serverAddr, "server", "", "Decision server address (host:port)")
	return cmd
}

// decider produces one tick of economy decisions
type decider interface {
	Decide(ctx context.Context, w *world.State, q models.Queues, events []models.Event) (economy.Decision, error)
}

// localDecider runs the manager in process. Plans go straight to q.
type localDecider struct {
	manager *economy.Manager
}

func (l localDecider) Decide(_ context.Context, w *world.State, q models.Queues, events []models.Event) (economy.Decision, error) {
	return l.manager.Update(w, q, events), nil
}

// remoteDecider asks a decision server and copies the returned plans to q
type remoteDecider struct {
	client  *rpc.Client
	session string
	targets economy.Targets
}

func (r *remoteDecider) Decide(ctx context.Context, w *world.State, q models.Queues, events []models.Event) (economy.Decision, error) {
	req := converter.Request{
		Session: r.session,
		World:   w,
		Queues:  make(map[models.QueueName][]models.Plan),
		Events:  events,
	}
	for _, name := range models.AllQueueNames() {
		if pq, ok := q.Get(name).(*models.PlanQueue); ok {
			req.Queues[name] = pq.Items
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	resp, err := r.client.Decide(ctx, req)
	if err != nil {
		return economy.Decision{}, fmt.Errorf("remote decide: %w", err)
	}
	r.session = resp.Session
	r.targets = resp.Targets
	for _, p := range resp.Decision.Plans {
		if dst := q.Get(p.Queue); dst != nil {
			dst.AddItem(p.Plan)
		}
	}
	return resp.Decision, nil
}

// match is one sandbox run in progress
type match struct {
	sim    *world.Sim
	decide decider
	// manager is nil when decisions come from a server
	manager *economy.Manager
	journal *journal.Journal
	run     string

	commands int
	plans    int
}

func runMatch(cmd *cobra.Command, args []string) error {
	infoColor := color.New(color.FgYellow)
	successColor := color.New(color.FgGreen, color.Bold)

	printTitle("RTS Economy", "Sandbox Match")

	t, err := loadTuning()
	if err != nil {
		return err
	}
	sc, err := loadScenario(t)
	if err != nil {
		return err
	}
	n := ticks
	if n == 0 {
		n = sc.Ticks
	}
	if n == 0 {
		n = 300
	}

	logger := newLogger()
	m := &match{sim: world.NewSim(sc.State, world.DefaultCatalog(t), sc.Sim)}
	var remote *remoteDecider
	if serverAddr != "" {
		conn, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("connecting to %s: %w", serverAddr, err)
		}
		defer conn.Close()
		remote = &remoteDecider{client: rpc.NewClient(conn)}
		m.decide = remote
		defer func() {
			if remote.session != "" {
				_ = remote.client.EndSession(context.Background(), remote.session)
			}
		}()
	} else {
		m.manager = economy.NewManager(t, economy.WithLogger(logger))
		m.decide = localDecider{manager: m.manager}
	}

	if journalFile != "" {
		j, err := journal.Open(journalFile)
		if err != nil {
			return err
		}
		defer j.Close()
		run, err := j.StartRun(sc.Name, sc.Seed)
		if err != nil {
			return err
		}
		m.journal, m.run = j, run
		if !quiet {
			infoColor.Printf("📓 Journaling run %s to %s\n", run, journalFile)
		}
	}

	if !quiet {
		w, h := sc.State.MapSize()
		infoColor.Printf("🗺️  %s: %dx%d cells, %d units, %s supplies\n\n",
			sc.Name, w, h, len(sc.State.Units), humanize.Comma(int64(len(sc.State.Supplies))))
	}

	if err := m.play(cmd.Context(), n); err != nil {
		return err
	}

	successColor.Printf("✓ Played %d ticks (%s of game time)\n\n", n, sc.State.TimeElapsed())
	if quiet {
		return nil
	}
	if m.manager != nil {
		printRoster(m.manager)
	} else {
		fmt.Printf("Session %s targets: %d workers, %d builders, %d fields\n\n",
			remote.session, remote.targets.Workers, remote.targets.Builders, remote.targets.Fields)
	}
	printStructures(sc.State, sc.Sim.BuildWork)
	printStockpile(sc.State)
	printQueues(m.sim.Queues())
	fmt.Printf("\n📨 %s commands, %s plans, %d units still training\n",
		humanize.Comma(int64(m.commands)), humanize.Comma(int64(m.plans)), m.sim.InProduction())
	return nil
}

// play alternates economy decisions and sandbox steps. The events of a
// step are handed to the next decision.
func (m *match) play(ctx context.Context, n int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	state := m.sim.State
	var events []models.Event
	for i := 0; i < n; i++ {
		d, err := m.decide.Decide(ctx, state, m.sim.Queues(), events)
		if err != nil {
			return err
		}
		state.Apply(d.Commands)
		m.commands += len(d.Commands)
		m.plans += len(d.Plans)

		if verbose && (len(d.Commands) > 0 || len(d.Plans) > 0) {
			printDecision(d)
		}
		if err := m.record(d); err != nil {
			return err
		}
		events = m.sim.Step()
	}
	return nil
}

func (m *match) record(d economy.Decision) error {
	if m.journal == nil {
		return nil
	}
	if err := m.journal.RecordDecision(m.run, d); err != nil {
		return err
	}
	if m.manager == nil || snapshotEvery <= 0 || d.Tick%snapshotEvery != 0 {
		return nil
	}
	tracker := m.manager.Tracker()
	for _, rt := range models.AllResourceTypes() {
		if !tracker.Has(rt) {
			continue
		}
		if err := m.journal.RecordDensity(m.run, d.Tick, rt, tracker.Map(m.sim.State, rt)); err != nil {
			return err
		}
	}
	return nil
}
