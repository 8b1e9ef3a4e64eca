package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/napolitain/rts-economy/internal/density"
	"github.com/napolitain/rts-economy/internal/influence"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/placement"
)

var (
	candidates int
	dumpDir    string
	resource   string
	falloff    string
)

func newPlaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Show where new dropsites would go",
		Long: `Scores the map for each resource and prints the best build sites, the
density around existing dropsites and whether more dropsites are needed.
With --dump the density, suitability, obstruction and supply heat maps are
written as grayscale PNG files. --falloff shapes the heat map.`,
		RunE: runPlace,
	}
	cmd.Flags().IntVarP(&candidates, "candidates", "k", 3, "Build sites to list per resource")
	cmd.Flags().StringVar(&dumpDir, "dump", "", "Directory for PNG map dumps")
	cmd.Flags().StringVarP(&resource, "resource", "r", "", "Only this resource (wood, stone, metal)")
	cmd.Flags().StringVar(&falloff, "falloff", "quadratic", "Falloff of the supply heat map dump (linear, constant, quadratic)")
	return cmd
}

func runPlace(cmd *cobra.Command, args []string) error {
	headerColor := color.New(color.FgCyan, color.Bold)
	warnColor := color.New(color.FgYellow)

	printTitle("RTS Economy", "Site Planner")

	t, err := loadTuning()
	if err != nil {
		return err
	}
	sc, err := loadScenario(t)
	if err != nil {
		return err
	}

	heat, err := influence.ParseFalloff(falloff)
	if err != nil {
		return err
	}

	types := models.AllResourceTypes()
	if resource != "" {
		rt, err := models.ParseResourceType(resource)
		if err != nil {
			return err
		}
		types = []models.ResourceType{rt}
	}

	logger := newLogger()
	tracker := density.NewTracker(t.Density, logger)
	planner := placement.NewPlanner(t, tracker, logger)
	state := sc.State

	if dumpDir != "" {
		if err := os.MkdirAll(dumpDir, 0o755); err != nil {
			return fmt.Errorf("creating dump dir: %w", err)
		}
		if err := writePNG(filepath.Join(dumpDir, "obstruction.png"), planner.ObstructionMap(state)); err != nil {
			return err
		}
	}

	for _, rt := range types {
		headerColor.Printf("🪓 %s\n", rt)

		found, err := planner.Candidates(state, rt, candidates)
		if err != nil {
			warnColor.Printf("   no build site: %v\n", err)
		} else {
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"#", "Cell", "Position", "Score", "To CC"}),
			)
			for i, c := range found {
				_ = table.Append([]string{
					fmt.Sprintf("%d", i+1),
					fmt.Sprintf("(%d, %d)", c.CellX, c.CellZ),
					fmt.Sprintf("(%.0f, %.0f)", c.Position.X, c.Position.Z),
					fmt.Sprintf("%.1f", c.Score),
					distanceLabel(centreDistance(state, c.Position)),
				})
			}
			_ = table.Render()
		}

		coverage := planner.DropsiteCoverage(state, rt)
		if len(coverage) > 0 {
			table := tablewriter.NewTable(os.Stdout,
				tablewriter.WithHeader([]string{"Dropsite", "Template", "Density", "Sufficient"}),
			)
			for _, c := range coverage {
				_ = table.Append([]string{
					fmt.Sprintf("%d", c.ID),
					shortTemplate(c.Template),
					fmt.Sprintf("%.0f", c.Sum),
					fmt.Sprintf("%t", c.Sufficient),
				})
			}
			_ = table.Render()
		}
		want := t.DensityFor(rt).Dropsites
		fmt.Printf("Concentrations: %d of %d wanted\n\n", planner.ResourceConcentrations(state, rt), want)

		if dumpDir == "" {
			continue
		}
		if err := writePNG(filepath.Join(dumpDir, fmt.Sprintf("density_%s.png", rt)), tracker.Map(state, rt)); err != nil {
			return err
		}
		suit, err := planner.SuitabilityMap(state, rt)
		if err != nil {
			return err
		}
		if err := writePNG(filepath.Join(dumpDir, fmt.Sprintf("suitability_%s.png", rt)), suit); err != nil {
			return err
		}
		path := filepath.Join(dumpDir, fmt.Sprintf("heat_%s_%s.png", rt, heat))
		if err := writePNG(path, heatMap(state, tracker, rt, t.DensityFor(rt).Radius, heat)); err != nil {
			return err
		}
	}
	return nil
}

// heatMap stamps every supply of rt with its density strength using falloff f
func heatMap(w models.World, tracker *density.Tracker, rt models.ResourceType, radius int, f influence.Falloff) *influence.Map {
	m := influence.New(w.MapSize())
	for _, s := range w.ResourceSupplies()[rt] {
		x, z := influence.WorldToCell(s.Position.X, s.Position.Z, w.CellSize())
		m.AddInfluence(x, z, radius, tracker.Strength(rt, s.Max), f)
	}
	return m
}

// centreDistance is the distance from pos to the closest civil centre, or -1
// when there is none
func centreDistance(w models.World, pos models.Position) float64 {
	best := -1.0
	for _, s := range w.OwnStructures() {
		if !s.HasClass(models.ClassCivCentre) {
			continue
		}
		if d := pos.DistanceTo(s.Position); best < 0 || d < best {
			best = d
		}
	}
	return best
}

func distanceLabel(d float64) string {
	if d < 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f", d)
}

// writePNG renders m scaled so its largest cell is white
func writePNG(path string, m *influence.Map) error {
	peak := 0.0
	for _, v := range m.Cells() {
		peak = max(peak, v)
	}
	scale := 0.0
	if peak > 0 {
		scale = 255 / peak
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, m.Image(scale)); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
