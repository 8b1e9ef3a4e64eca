// Package loader reads sandbox scenarios: a fixed world snapshot or the
// parameters of a generated map, plus the sandbox dynamics.
package loader

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/napolitain/rts-economy/internal/models"
	"github.com/napolitain/rts-economy/internal/world"
)

// ErrInvalidScenario is returned when a scenario fails schema validation
var ErrInvalidScenario = errors.New("invalid scenario")

//go:embed scenario.schema.json
var scenarioSchemaJSON string

var scenarioSchema = jsonschema.MustCompileString("scenario.schema.json", scenarioSchemaJSON)

// ScenarioJSON represents the JSON structure of a scenario file
type ScenarioJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Ticks       int             `json:"ticks,omitempty"`
	Sim         *SimJSON        `json:"sim,omitempty"`
	World       *world.State    `json:"world,omitempty"`
	Generate    json.RawMessage `json:"generate,omitempty"`
}

// SimJSON represents the sandbox dynamics of a scenario. Missing keys keep
// their default.
type SimJSON struct {
	TickMs        int64   `json:"tick_ms,omitempty"`
	TrainTicks    int     `json:"train_ticks,omitempty"`
	BuildWork     int     `json:"build_work,omitempty"`
	GatherRate    float64 `json:"gather_rate,omitempty"`
	PlacementRing float64 `json:"placement_ring,omitempty"`
}

// Scenario is a loaded, ready to run sandbox match
type Scenario struct {
	Name        string
	Description string
	// Ticks is the suggested match length; zero leaves it to the caller
	Ticks int
	// Seed is the generator seed, zero for fixed worlds
	Seed  int64
	Sim   world.SimConfig
	State *world.State
}

// LoadScenario reads and validates a scenario file
func LoadScenario(path string, t models.Tuning) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := ParseScenario(data, t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return sc, nil
}

// LoadScenarios loads every *.json file of dir in name order
func LoadScenarios(dir string, t models.Tuning) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}
	var out []*Scenario
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		sc, err := LoadScenario(filepath.Join(dir, e.Name()), t)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	slices.SortFunc(out, func(a, b *Scenario) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// ParseScenario validates raw scenario JSON against the embedded schema and
// builds its world. Generated worlds use the templates of t.
func ParseScenario(data []byte, t models.Tuning) (*Scenario, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := scenarioSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	var raw ScenarioJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	sc := &Scenario{
		Name:        raw.Name,
		Description: raw.Description,
		Ticks:       raw.Ticks,
		Sim:         simConfig(raw.Sim),
	}

	if raw.World != nil {
		if err := raw.World.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
		}
		raw.World.Reindex()
		sc.State = raw.World
		return sc, nil
	}

	cfg := world.DefaultGenConfig()
	cfg.Tuning = t
	cfg.Catalog = world.DefaultCatalog(t)
	if err := json.Unmarshal(raw.Generate, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse generator settings: %w", err)
	}
	sc.Seed = cfg.Seed
	sc.State = world.Generate(cfg)
	return sc, nil
}

func simConfig(raw *SimJSON) world.SimConfig {
	cfg := world.DefaultSimConfig()
	if raw == nil {
		return cfg
	}
	if raw.TickMs > 0 {
		cfg.TickDuration = time.Duration(raw.TickMs) * time.Millisecond
	}
	if raw.TrainTicks > 0 {
		cfg.TrainTicks = raw.TrainTicks
	}
	if raw.BuildWork > 0 {
		cfg.BuildWork = raw.BuildWork
	}
	if raw.GatherRate > 0 {
		cfg.GatherRate = raw.GatherRate
	}
	if raw.PlacementRing > 0 {
		cfg.PlacementRing = raw.PlacementRing
	}
	return cfg
}
