// Package config holds all tuned simulation constants. The numbers are
// empirically balanced, so they live in data rather than in the
// algorithms: a YAML file can override any of them without code changes.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/gridtown/internal/world"
)

// Config is the complete balance sheet for a simulation run.
type Config struct {
	Terrain world.TerrainConfig `yaml:"terrain"`
	Tick    TickConfig          `yaml:"tick"`
	Infra   InfraConfig         `yaml:"infra"`
	Demand  DemandConfig        `yaml:"demand"`
	Growth  GrowthConfig        `yaml:"growth"`
}

// TickConfig controls the fixed-step scheduler.
type TickConfig struct {
	Seconds          float64 `yaml:"seconds"`             // Simulated seconds per tick
	MaxTicksPerFrame int     `yaml:"max_ticks_per_frame"` // Catch-up cap for the wall-clock driver
}

// InfraConfig controls connectivity computations and placement costs.
type InfraConfig struct {
	RoadAccessRadius   int `yaml:"road_access_radius"`  // Half-width of the square road scan
	TransmissionRadius int `yaml:"transmission_radius"` // Chebyshev dilation around powered conductors

	RoadCost      int `yaml:"road_cost"`
	PowerLineCost int `yaml:"power_line_cost"`
	ZoneCost      int `yaml:"zone_cost"`
}

// DemandConfig holds the valve model constants.
type DemandConfig struct {
	RecalcSeconds float64 `yaml:"recalc_seconds"` // Valve/target recomputation period
	SmoothingRate float64 `yaml:"smoothing_rate"` // Fraction of remaining gap closed per sim-second

	PopulationDivisor     float64 `yaml:"population_divisor"`
	BirthRate             float64 `yaml:"birth_rate"`
	LaborBaseMax          float64 `yaml:"labor_base_max"`
	InternalMarketDivisor float64 `yaml:"internal_market_divisor"`
	MinProjectedIndustry  float64 `yaml:"min_projected_industry"`
	RatioCap              float64 `yaml:"ratio_cap"`
	BootstrapRatio        float64 `yaml:"bootstrap_ratio"` // Residential ratio used while population is zero
	TaxEffect             float64 `yaml:"tax_effect"`
	ValveScale            float64 `yaml:"valve_scale"`

	ResidentialValveRange float64 `yaml:"residential_valve_range"`
	CommercialValveRange  float64 `yaml:"commercial_valve_range"`
	IndustrialValveRange  float64 `yaml:"industrial_valve_range"`

	DemandMax float64 `yaml:"demand_max"`

	// Sub-bucket splits per category; each triple sums to 1.
	ResidentialWeights [3]float64 `yaml:"residential_weights"` // low, medium, high density
	CommercialWeights  [3]float64 `yaml:"commercial_weights"`
	IndustrialWeights  [3]float64 `yaml:"industrial_weights"` // agriculture, manufacturing, high-tech

	// Population gates keeping higher tiers at zero until the city is
	// large enough.
	MediumDensityGate int `yaml:"medium_density_gate"`
	HighDensityGate   int `yaml:"high_density_gate"`
	HighTechGate      int `yaml:"high_tech_gate"`
}

// GrowthConfig controls development rolls and the building lifecycle.
type GrowthConfig struct {
	InfraCheckSeconds  float64 `yaml:"infra_check_seconds"`
	DevelopScanSeconds float64 `yaml:"develop_scan_seconds"`
	GraceSeconds       float64 `yaml:"grace_seconds"` // Time without infrastructure before abandonment

	MinDemand        float64 `yaml:"min_demand"`         // Below this a cell never develops
	FastGrowthDemand float64 `yaml:"fast_growth_demand"` // Demand level where the bonus saturates
	BaseRate         float64 `yaml:"base_rate"`          // Per-scan success probability floor
	DemandBonus      float64 `yaml:"demand_bonus"`       // Max probability added by demand
	WaterBonus       float64 `yaml:"water_bonus"`        // Additive bonus for near-water cells

	// Occupancy tables by density tier.
	ResidentialPopulation [3]int `yaml:"residential_population"`
	CommercialJobs        [3]int `yaml:"commercial_jobs"`
	IndustrialJobs        [3]int `yaml:"industrial_jobs"`
}

// Default returns the baseline balance used by all tests and, absent a
// YAML override, by the CLI.
func Default() Config {
	return Config{
		Terrain: world.DefaultTerrainConfig(),
		Tick: TickConfig{
			Seconds:          0.1,
			MaxTicksPerFrame: 8,
		},
		Infra: InfraConfig{
			RoadAccessRadius:   4,
			TransmissionRadius: 3,
			RoadCost:           10,
			PowerLineCost:      5,
			ZoneCost:           25,
		},
		Demand: DemandConfig{
			RecalcSeconds:         10,
			SmoothingRate:         0.1,
			PopulationDivisor:     8,
			BirthRate:             0.02,
			LaborBaseMax:          1.3,
			InternalMarketDivisor: 3.7,
			MinProjectedIndustry:  5,
			RatioCap:              2,
			BootstrapRatio:        1.3,
			TaxEffect:             -12,
			ValveScale:            600,
			ResidentialValveRange: 2000,
			CommercialValveRange:  1500,
			IndustrialValveRange:  1500,
			DemandMax:             100,
			ResidentialWeights:    [3]float64{0.5, 0.3, 0.2},
			CommercialWeights:     [3]float64{0.6, 0.3, 0.1},
			IndustrialWeights:     [3]float64{0.4, 0.4, 0.2},
			MediumDensityGate:     500,
			HighDensityGate:       2000,
			HighTechGate:          4000,
		},
		Growth: GrowthConfig{
			InfraCheckSeconds:     0.5,
			DevelopScanSeconds:    1,
			GraceSeconds:          5,
			MinDemand:             5,
			FastGrowthDemand:      60,
			BaseRate:              0.02,
			DemandBonus:           0.25,
			WaterBonus:            0.05,
			ResidentialPopulation: [3]int{8, 24, 60},
			CommercialJobs:        [3]int{6, 18, 45},
			IndustrialJobs:        [3]int{10, 22, 40},
		},
	}
}

// Load returns the default config overlaid with values from the YAML
// file at path. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
