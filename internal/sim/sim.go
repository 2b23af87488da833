// Package sim ties the city systems together and advances them on a
// fixed simulation tick.
package sim

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/talgya/gridtown/internal/config"
	"github.com/talgya/gridtown/internal/demand"
	"github.com/talgya/gridtown/internal/entity"
	"github.com/talgya/gridtown/internal/entropy"
	"github.com/talgya/gridtown/internal/event"
	"github.com/talgya/gridtown/internal/growth"
	"github.com/talgya/gridtown/internal/infra"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// LogEntry is one line of the recent-event log kept for observers.
type LogEntry struct {
	Tick        uint64 `json:"tick"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Simulation holds the complete city state and wires systems together.
// It replaces any ambient singletons: every system call goes through
// this explicitly constructed context.
type Simulation struct {
	mu sync.Mutex

	cfg config.Config

	reg     *entity.Registry
	terrain *world.Terrain
	zones   *zone.Grid
	roads   *infra.RoadNetwork
	power   *infra.PowerNetwork
	demand  *demand.Engine
	growth  *growth.Manager
	bus     *event.Bus
	rng     entropy.Source

	tick uint64

	// Tick cadences derived from the configured intervals.
	recalcEvery     uint64
	infraCheckEvery uint64
	developEvery    uint64

	events []LogEntry // Recent events (trimmed; full history is in persistence)
}

// New constructs a simulation from configuration and a random seed. A
// zero seed yields a non-reproducible run.
func New(cfg config.Config, seed int64) (*Simulation, error) {
	terrainCfg := cfg.Terrain
	if seed != 0 {
		terrainCfg.Seed = seed
	}
	terrain, err := world.GenerateTerrain(terrainCfg)
	if err != nil {
		return nil, fmt.Errorf("generate terrain: %w", err)
	}
	return NewWithTerrain(cfg, terrain, entropy.NewSeeded(seed))
}

// NewWithTerrain constructs a simulation over an existing terrain
// layer with an injected random source. Tests use this to pin both.
func NewWithTerrain(cfg config.Config, terrain *world.Terrain, rng entropy.Source) (*Simulation, error) {
	w, h := terrain.Width(), terrain.Height()

	zones, err := zone.NewGrid(w, h)
	if err != nil {
		return nil, fmt.Errorf("zone grid: %w", err)
	}
	roads, err := infra.NewRoadNetwork(w, h)
	if err != nil {
		return nil, fmt.Errorf("road network: %w", err)
	}
	power, err := infra.NewPowerNetwork(w, h, cfg.Infra.TransmissionRadius)
	if err != nil {
		return nil, fmt.Errorf("power network: %w", err)
	}

	reg := entity.NewRegistry()
	bus := event.NewBus()
	dmd := demand.NewEngine(cfg.Demand)

	s := &Simulation{
		cfg:     cfg,
		reg:     reg,
		terrain: terrain,
		zones:   zones,
		roads:   roads,
		power:   power,
		demand:  dmd,
		growth:  growth.NewManager(cfg.Growth, reg, zones, dmd, rng, bus),
		bus:     bus,
		rng:     rng,

		recalcEvery:     ticksFor(cfg.Demand.RecalcSeconds, cfg.Tick.Seconds),
		infraCheckEvery: ticksFor(cfg.Growth.InfraCheckSeconds, cfg.Tick.Seconds),
		developEvery:    ticksFor(cfg.Growth.DevelopScanSeconds, cfg.Tick.Seconds),
	}
	s.subscribeLog()
	return s, nil
}

// ticksFor converts a simulated-seconds interval into a tick count.
func ticksFor(seconds, tickSeconds float64) uint64 {
	n := uint64(math.Round(seconds / tickSeconds))
	if n < 1 {
		n = 1
	}
	return n
}

// subscribeLog records notable events into the recent-event log.
func (s *Simulation) subscribeLog() {
	log := func(tick uint64, kind, desc string) {
		s.events = append(s.events, LogEntry{Tick: tick, Kind: kind, Description: desc})
		if len(s.events) > 1000 {
			s.events = s.events[len(s.events)-1000:]
		}
	}
	s.bus.Subscribe(event.KindBuildingDeveloped, func(e event.Event) {
		p := e.(event.BuildingDeveloped)
		log(p.Tick, event.KindName(e.Kind()), fmt.Sprintf(
			"%s/%s building developed at (%d,%d)",
			zone.CategoryName(p.Category), zone.DensityName(p.Density), p.Pos.X, p.Pos.Y))
	})
	s.bus.Subscribe(event.KindBuildingAbandoned, func(e event.Event) {
		p := e.(event.BuildingAbandoned)
		log(p.Tick, event.KindName(e.Kind()), fmt.Sprintf(
			"%s building abandoned at (%d,%d)",
			zone.CategoryName(p.Category), p.Pos.X, p.Pos.Y))
	})
	s.bus.Subscribe(event.KindPowerGridUpdated, func(e event.Event) {
		p := e.(event.PowerGridUpdated)
		log(p.Tick, event.KindName(e.Kind()), fmt.Sprintf(
			"power grid rebuilt: %d cells powered, %d MW capacity",
			len(p.Powered), p.Capacity))
	})
}

// Bus exposes the event bus so collaborators (UI, persistence) can
// subscribe before the loop starts.
func (s *Simulation) Bus() *event.Bus { return s.bus }

// Seed returns the terrain seed the city was generated from.
func (s *Simulation) Seed() int64 { return s.terrain.Seed() }

// Tick returns the most recently processed tick number.
func (s *Simulation) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Now returns the current simulation time in seconds.
func (s *Simulation) Now() float64 {
	return float64(s.Tick()) * s.cfg.Tick.Seconds
}

// Step advances the simulation by one fixed tick. Systems run in a
// fixed order; no system observes a partially-updated state from a
// later system within the same tick, and entity destruction is applied
// only at the end.
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step()
}

func (s *Simulation) step() {
	s.tick++
	now := float64(s.tick) * s.cfg.Tick.Seconds

	// Infrastructure status first, so the demand engine only counts
	// buildings that are actually served this tick.
	if s.tick%s.infraCheckEvery == 0 {
		s.growth.CheckInfrastructure(now, s.tick)
	}

	if s.tick%s.recalcEvery == 0 {
		population, comJobs, indJobs := s.growth.Totals()
		s.demand.Recalc(population, comJobs, indJobs)
		s.bus.Publish(event.DemandUpdated{
			Tick:        s.tick,
			Residential: s.demand.Gauge(zone.CategoryResidential),
			Commercial:  s.demand.Gauge(zone.CategoryCommercial),
			Industrial:  s.demand.Gauge(zone.CategoryIndustrial),
		})
	}

	s.demand.Smooth(s.cfg.Tick.Seconds)

	if s.tick%s.developEvery == 0 {
		s.growth.DevelopScan(s.tick)
	}

	// Deferred deletions flush once everything has run.
	s.reg.Flush()
}

// RunTicks advances the simulation by n ticks. Convenience for tests
// and headless runs.
func (s *Simulation) RunTicks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.step()
	}
}

// CheckInvariants verifies the zone/building linkage invariants:
// developed cells reference a live building and vice versa. Returns
// the first violation found.
func (s *Simulation) CheckInvariants() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	s.zones.Each(func(p world.Point, cell *zone.Cell) {
		if err != nil {
			return
		}
		if cell.Developed && cell.Building == 0 {
			err = fmt.Errorf("developed cell (%d,%d) has no building reference", p.X, p.Y)
			return
		}
		if !cell.Zoned() && cell.Developed {
			err = fmt.Errorf("unzoned cell (%d,%d) is marked developed", p.X, p.Y)
			return
		}
		if cell.Developed && !s.reg.Exists(cell.Building) {
			err = fmt.Errorf("developed cell (%d,%d) references dead entity %d", p.X, p.Y, cell.Building)
		}
	})
	if err != nil {
		return err
	}

	for _, rec := range s.growth.Buildings() {
		cell := s.zones.At(rec.Building.Pos)
		if cell == nil || !cell.Developed || cell.Building != rec.Entity {
			return fmt.Errorf("building %d at (%d,%d) not referenced by its cell",
				rec.Entity, rec.Building.Pos.X, rec.Building.Pos.Y)
		}
	}
	return nil
}

// LogSummary writes a periodic status line, the way long headless runs
// report progress.
func (s *Simulation) LogSummary() {
	s.mu.Lock()
	defer s.mu.Unlock()

	population, comJobs, indJobs := s.growth.Totals()
	zoned, developed := s.zones.Counts()
	slog.Info("city report",
		"tick", s.tick,
		"population", population,
		"jobs", comJobs+indJobs,
		"zoned", zoned[zone.CategoryResidential]+zoned[zone.CategoryCommercial]+zoned[zone.CategoryIndustrial],
		"developed", developed[zone.CategoryResidential]+developed[zone.CategoryCommercial]+developed[zone.CategoryIndustrial],
		"roads", s.roads.Count(),
		"capacity_mw", s.power.Capacity(),
		"res_gauge", fmt.Sprintf("%.2f", s.demand.Gauge(zone.CategoryResidential)),
		"com_gauge", fmt.Sprintf("%.2f", s.demand.Gauge(zone.CategoryCommercial)),
		"ind_gauge", fmt.Sprintf("%.2f", s.demand.Gauge(zone.CategoryIndustrial)),
	)
}
