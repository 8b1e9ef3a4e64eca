package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/napolitain/rts-economy/internal/loader"
	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/world"
)

var (
	tuningFile   string
	scenarioFile string
	seed         int64
	mapSize      int
	verbose      bool
	quiet        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "economy",
		Short: "RTS economy decision core sandbox",
		Long: `Drives the economy manager against a sandbox world: a scenario file
or a generated noise map. Use it to watch worker allocation over a match or
to inspect where the site planner would place new dropsites.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&tuningFile, "tuning", "t", "", "Path to YAML tuning file")
	rootCmd.PersistentFlags().StringVarP(&scenarioFile, "scenario", "s", "", "Path to scenario JSON file")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 42, "Map seed when no scenario is given")
	rootCmd.PersistentFlags().IntVar(&mapSize, "size", 128, "Map size in cells when no scenario is given")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging and per-tick output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Minimal output")

	rootCmd.AddCommand(newRunCmd(), newPlaceCmd())

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().
		Logger()
}

func loadTuning() (models.Tuning, error) {
	if tuningFile == "" {
		return models.DefaultTuning(), nil
	}
	t, err := models.LoadTuning(tuningFile)
	if err != nil {
		return models.Tuning{}, fmt.Errorf("loading tuning: %w", err)
	}
	return t, nil
}

// loadScenario reads the scenario file or generates a map from the seed
func loadScenario(t models.Tuning) (*loader.Scenario, error) {
	if scenarioFile != "" {
		return loader.LoadScenario(scenarioFile, t)
	}
	cfg := world.DefaultGenConfig()
	cfg.Seed = seed
	cfg.Width = mapSize
	cfg.Height = mapSize
	cfg.Tuning = t
	cfg.Catalog = world.DefaultCatalog(t)
	return &loader.Scenario{
		Name:  fmt.Sprintf("generated-%d", seed),
		Seed:  seed,
		Sim:   world.DefaultSimConfig(),
		State: world.Generate(cfg),
	}, nil
}

func printTitle(lines ...string) {
	if quiet {
		return
	}
	titleColor := color.New(color.FgCyan, color.Bold)
	titleColor.Println("\n╭───────────────────────────╮")
	for _, l := range lines {
		titleColor.Printf("│  %-25s│\n", l)
	}
	titleColor.Println("╰───────────────────────────╯")
	fmt.Println()
}
