package models

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FoundationPolicy selects which foundation receives new builders
type FoundationPolicy string

const (
	// FoundationFirst takes the first foundation the world reports
	FoundationFirst FoundationPolicy = "first"
	// FoundationOldest takes the foundation with the lowest entity ID
	FoundationOldest FoundationPolicy = "oldest"
)

// Templates names the structures and units the economy requests.
// "{civ}" is replaced by the civilisation code.
type Templates struct {
	Worker      string `yaml:"worker"`
	Field       string `yaml:"field"`
	CivilCentre string `yaml:"civil_centre"`
	Dropsite    string `yaml:"dropsite"`
}

// WorkforceConfig holds the allocator targets and cadence
type WorkforceConfig struct {
	PopulationDivisor   int              `yaml:"population_divisor"`
	Builders            int              `yaml:"builders"`
	LateBuilders        int              `yaml:"late_builders"`
	LateGameWorkers     int              `yaml:"late_game_workers"`
	Fields              int              `yaml:"fields"`
	RebalanceInterval   int              `yaml:"rebalance_interval"`
	GatherRange         float64          `yaml:"gather_range"`
	GracePeriod         time.Duration    `yaml:"grace_period"`
	CivilCentreRange    float64          `yaml:"civil_centre_range"`
	FoundationSelection FoundationPolicy `yaml:"foundation_selection"`
}

// ResourceDensity holds the per-resource density map constants
type ResourceDensity struct {
	Radius            int     `yaml:"radius"`
	DecreaseFactor    float64 `yaml:"decrease_factor"`
	RequiredInfluence float64 `yaml:"required_influence"`
	Dropsites         int     `yaml:"dropsites"`
}

// PlacementConfig holds the site suitability constants; radii are in cells
type PlacementConfig struct {
	CivCentreRadius      int     `yaml:"civ_centre_radius"`
	CivCentreWeight      float64 `yaml:"civ_centre_weight"`
	DropsiteRadius       int     `yaml:"dropsite_radius"`
	DropsitePenalty      float64 `yaml:"dropsite_penalty"`
	ConcentrationRadius  int     `yaml:"concentration_radius"`
	MinSeparation        int     `yaml:"min_separation"`
	ObstructionClearance float64 `yaml:"obstruction_clearance"`
	StructureFootprint   int     `yaml:"structure_footprint"`
}

// Tuning is the full economy configuration
type Tuning struct {
	Civ       string                           `yaml:"civ"`
	Templates Templates                        `yaml:"templates"`
	Workforce WorkforceConfig                  `yaml:"workforce"`
	Density   map[ResourceType]ResourceDensity `yaml:"density"`
	Placement PlacementConfig                  `yaml:"placement"`
}

// DefaultTuning returns the stock economy constants
func DefaultTuning() Tuning {
	return Tuning{
		Civ: "athen",
		Templates: Templates{
			Worker:      "units/{civ}_support_female_citizen",
			Field:       "structures/{civ}_field",
			CivilCentre: "structures/{civ}_civil_centre",
			Dropsite:    "structures/{civ}_mill",
		},
		Workforce: WorkforceConfig{
			PopulationDivisor:   3,
			Builders:            5,
			LateBuilders:        10,
			LateGameWorkers:     50,
			Fields:              5,
			RebalanceInterval:   20,
			GatherRange:         512,
			GracePeriod:         30 * time.Second,
			CivilCentreRange:    190,
			FoundationSelection: FoundationFirst,
		},
		Density: map[ResourceType]ResourceDensity{
			Wood:  {Radius: 13, DecreaseFactor: 15, RequiredInfluence: 16000, Dropsites: 2},
			Stone: {Radius: 10, DecreaseFactor: 100, RequiredInfluence: 300, Dropsites: 1},
			Metal: {Radius: 10, DecreaseFactor: 100, RequiredInfluence: 300, Dropsites: 1},
		},
		Placement: PlacementConfig{
			CivCentreRadius:      90,
			CivCentreWeight:      0.3,
			DropsiteRadius:       20,
			DropsitePenalty:      -100,
			ConcentrationRadius:  14,
			MinSeparation:        4,
			ObstructionClearance: 4,
			StructureFootprint:   2,
		},
	}
}

// LoadTuning reads a YAML tuning file on top of DefaultTuning.
// Keys missing from the file keep their default value; a density entry
// replaces the default entry for that resource as a whole.
func LoadTuning(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	return ParseTuning(raw)
}

// ParseTuning decodes YAML tuning on top of DefaultTuning
func ParseTuning(raw []byte) (Tuning, error) {
	t := DefaultTuning()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate checks that every constant is usable
func (t *Tuning) Validate() error {
	var errs []error
	if t.Civ == "" {
		errs = append(errs, errors.New("civ is empty"))
	}
	templates := []struct{ name, value string }{
		{"worker", t.Templates.Worker},
		{"field", t.Templates.Field},
		{"civil_centre", t.Templates.CivilCentre},
		{"dropsite", t.Templates.Dropsite},
	}
	for _, tmpl := range templates {
		if tmpl.value == "" {
			errs = append(errs, fmt.Errorf("template %s is empty", tmpl.name))
		}
	}

	w := t.Workforce
	if w.PopulationDivisor <= 0 {
		errs = append(errs, errors.New("workforce.population_divisor must be positive"))
	}
	if w.Builders < 0 || w.LateBuilders < 0 || w.Fields < 0 {
		errs = append(errs, errors.New("workforce targets must not be negative"))
	}
	if w.RebalanceInterval <= 0 {
		errs = append(errs, errors.New("workforce.rebalance_interval must be positive"))
	}
	if w.GatherRange <= 0 {
		errs = append(errs, errors.New("workforce.gather_range must be positive"))
	}
	switch w.FoundationSelection {
	case FoundationFirst, FoundationOldest:
	default:
		errs = append(errs, fmt.Errorf("workforce.foundation_selection %q is not first or oldest", w.FoundationSelection))
	}

	for _, rt := range AllResourceTypes() {
		d, ok := t.Density[rt]
		if !ok {
			errs = append(errs, fmt.Errorf("density.%s is missing", rt))
			continue
		}
		if d.Radius <= 0 || d.DecreaseFactor <= 0 {
			errs = append(errs, fmt.Errorf("density.%s radius and decrease_factor must be positive", rt))
		}
	}
	for rt := range t.Density {
		if _, err := ParseResourceType(string(rt)); err != nil {
			errs = append(errs, fmt.Errorf("density: %w", err))
		}
	}

	p := t.Placement
	if p.CivCentreRadius <= 0 || p.DropsiteRadius <= 0 || p.ConcentrationRadius <= 0 {
		errs = append(errs, errors.New("placement radii must be positive"))
	}
	if p.MinSeparation < 0 || p.StructureFootprint < 0 || p.ObstructionClearance < 0 {
		errs = append(errs, errors.New("placement separation, footprint and clearance must not be negative"))
	}

	return errors.Join(errs...)
}

// ApplyCiv substitutes the civilisation code into a template name
func (t *Tuning) ApplyCiv(template string) string {
	return strings.ReplaceAll(template, "{civ}", t.Civ)
}

// DensityFor returns the density constants for rt
func (t *Tuning) DensityFor(rt ResourceType) ResourceDensity {
	return t.Density[rt]
}
