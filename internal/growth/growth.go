package growth

import (
	"log/slog"

	"github.com/talgya/gridtown/internal/config"
	"github.com/talgya/gridtown/internal/demand"
	"github.com/talgya/gridtown/internal/entity"
	"github.com/talgya/gridtown/internal/entropy"
	"github.com/talgya/gridtown/internal/event"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// Manager runs the development scan and the infrastructure check. It
// owns no state of its own beyond its collaborators; every building
// lives in the entity registry.
type Manager struct {
	cfg    config.GrowthConfig
	reg    *entity.Registry
	zones  *zone.Grid
	demand *demand.Engine
	rng    entropy.Source
	bus    *event.Bus
}

// NewManager wires a lifecycle manager to its collaborators.
func NewManager(cfg config.GrowthConfig, reg *entity.Registry, zones *zone.Grid, dmd *demand.Engine, rng entropy.Source, bus *event.Bus) *Manager {
	return &Manager{cfg: cfg, reg: reg, zones: zones, demand: dmd, rng: rng, bus: bus}
}

// CheckInfrastructure refreshes every building's issue pair from the
// zone layer's cached service flags and advances the status machine.
// now is the current simulation time in seconds.
func (m *Manager) CheckInfrastructure(now float64, tick uint64) {
	if m.zones == nil {
		slog.Debug("infrastructure check skipped, zone grid not initialized")
		return
	}

	for _, id := range m.reg.Query(entity.TypeOf[Building]()) {
		b, ok := entity.Get[Building](m.reg, id)
		if !ok {
			continue
		}

		cell := m.zones.At(b.Pos)
		if cell == nil {
			continue
		}
		b.Issues = Issues{
			NoRoad:  !cell.RoadAccess,
			NoPower: !cell.Powered,
		}

		switch {
		case b.Status == StatusFunctional && b.Issues.Any():
			// First detection: stop contributing immediately, start the
			// grace clock.
			lostAt := now
			b.Status = StatusNonFunctional
			b.LostAt = &lostAt
			b.Contributing = false

		case b.Status == StatusNonFunctional && !b.Issues.Any():
			// Served again before the grace period elapsed; no residual
			// timer carries over.
			b.Status = StatusFunctional
			b.LostAt = nil
			b.Contributing = true

		case b.Status == StatusNonFunctional && b.LostAt != nil && now-*b.LostAt >= m.cfg.GraceSeconds:
			b.Status = StatusAbandoned
			m.zones.Release(b.Pos)
			m.reg.Destroy(id)
			m.bus.Publish(event.BuildingAbandoned{
				Tick:     tick,
				Entity:   id,
				Pos:      b.Pos,
				Category: b.Category,
			})
			slog.Info("building abandoned",
				"entity", uint64(id),
				"pos", b.Pos,
				"category", zone.CategoryName(b.Category),
			)
			continue // record removed; nothing to write back
		}

		m.reg.Add(id, b)
	}
}

// DevelopScan rolls development for every undeveloped zoned cell that
// meets the hard requirements: road access AND power. Water service is
// a soft bonus only.
func (m *Manager) DevelopScan(tick uint64) {
	if m.zones == nil || m.demand == nil {
		slog.Debug("development scan skipped, grids not initialized")
		return
	}

	m.zones.Each(func(p world.Point, cell *zone.Cell) {
		if !cell.Zoned() || cell.Developed {
			return
		}
		if !cell.RoadAccess || !cell.Powered {
			return
		}

		d := m.demand.Demand(cell.Category, cell.Density)
		if d < m.cfg.MinDemand {
			return
		}

		if !entropy.Roll(m.rng, m.successProbability(d, cell.Watered)) {
			return
		}

		m.develop(p, cell, tick)
	})
}

// successProbability combines the base rate, a demand-proportional
// bonus saturating at the fast-growth demand level, and the water
// bonus.
func (m *Manager) successProbability(d float64, watered bool) float64 {
	span := m.cfg.FastGrowthDemand - m.cfg.MinDemand
	frac := 1.0
	if span > 0 {
		frac = (d - m.cfg.MinDemand) / span
		if frac > 1 {
			frac = 1
		}
		if frac < 0 {
			frac = 0
		}
	}
	p := m.cfg.BaseRate + m.cfg.DemandBonus*frac
	if watered {
		p += m.cfg.WaterBonus
	}
	return p
}

// develop instantiates a building entity on a winning cell.
func (m *Manager) develop(p world.Point, cell *zone.Cell, tick uint64) {
	population, jobs := m.occupancy(cell.Category, cell.Density)

	id := m.reg.Create()
	b := Building{
		Pos:          p,
		Category:     cell.Category,
		Density:      cell.Density,
		Population:   population,
		Jobs:         jobs,
		Status:       StatusFunctional,
		Contributing: true,
	}
	m.reg.Add(id, Position{Pos: p})
	m.reg.Add(id, b)
	m.zones.Occupy(p, id)

	// Developed lots pull the cached land value up; a coarse stand-in
	// for the full land-value model, which is out of scope.
	cell.LandValue += 1

	m.bus.Publish(event.BuildingDeveloped{
		Tick:       tick,
		Entity:     id,
		Pos:        p,
		Category:   cell.Category,
		Density:    cell.Density,
		Population: population,
		Jobs:       jobs,
	})
}

// occupancy returns the fixed population/job sizing for a new building.
func (m *Manager) occupancy(cat zone.Category, dens zone.Density) (population, jobs int) {
	switch cat {
	case zone.CategoryResidential:
		return m.cfg.ResidentialPopulation[dens], 0
	case zone.CategoryCommercial:
		return 0, m.cfg.CommercialJobs[dens]
	case zone.CategoryIndustrial:
		return 0, m.cfg.IndustrialJobs[dens]
	}
	return 0, 0
}

// Demolish removes the building occupying p, if any, releasing the
// zone cell. Used by zone removal; no abandonment event is emitted.
func (m *Manager) Demolish(p world.Point) bool {
	cell := m.zones.At(p)
	if cell == nil || !cell.Developed {
		return false
	}
	m.reg.Destroy(cell.Building)
	m.zones.Release(p)
	return true
}

// Totals aggregates population and jobs over contributing buildings.
func (m *Manager) Totals() (population, commercialJobs, industrialJobs int) {
	for _, id := range m.reg.Query(entity.TypeOf[Building]()) {
		b, ok := entity.Get[Building](m.reg, id)
		if !ok || !b.Contributing {
			continue
		}
		switch b.Category {
		case zone.CategoryResidential:
			population += b.Population
		case zone.CategoryCommercial:
			commercialJobs += b.Jobs
		case zone.CategoryIndustrial:
			industrialJobs += b.Jobs
		}
	}
	return population, commercialJobs, industrialJobs
}

// BuildingRecord pairs an entity ID with its building component, for
// read-only queries.
type BuildingRecord struct {
	Entity   entity.ID `json:"entity"`
	Building Building  `json:"building"`
}

// Buildings returns all tracked buildings ordered by entity ID.
func (m *Manager) Buildings() []BuildingRecord {
	ids := m.reg.Query(entity.TypeOf[Building]())
	out := make([]BuildingRecord, 0, len(ids))
	for _, id := range ids {
		if b, ok := entity.Get[Building](m.reg, id); ok {
			out = append(out, BuildingRecord{Entity: id, Building: b})
		}
	}
	return out
}

// BuildingsWithIssues returns buildings currently missing road or
// power service.
func (m *Manager) BuildingsWithIssues() []BuildingRecord {
	var out []BuildingRecord
	for _, rec := range m.Buildings() {
		if rec.Building.Issues.Any() {
			out = append(out, rec)
		}
	}
	return out
}
