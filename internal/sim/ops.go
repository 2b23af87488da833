package sim

import (
	"github.com/talgya/gridtown/internal/entity"
	"github.com/talgya/gridtown/internal/event"
	"github.com/talgya/gridtown/internal/growth"
	"github.com/talgya/gridtown/internal/infra"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// Placement operations. Each returns a success flag; a failed
// placement leaves all state unchanged. Failures are ordinary control
// flow, never errors.

// PlaceZone assigns a zone at p. On success it returns the zoning cost.
func (s *Simulation) PlaceZone(p world.Point, cat zone.Category, dens zone.Density) (cost int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.placeable(p) {
		return 0, false
	}
	if !s.zones.Place(p, cat, dens) {
		return 0, false
	}
	s.refreshZoneServices()
	s.bus.Publish(event.ZonePlaced{
		Tick:     s.tick,
		Pos:      p,
		Category: cat,
		Density:  dens,
		Cost:     s.cfg.Infra.ZoneCost,
	})
	return s.cfg.Infra.ZoneCost, true
}

// RemoveZone clears the zone at p, demolishing any occupying building.
func (s *Simulation) RemoveZone(p world.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.zones.At(p)
	if cell == nil || !cell.Zoned() {
		return false
	}
	if cell.Developed {
		s.growth.Demolish(p)
		s.reg.Flush()
	}
	if !s.zones.Remove(p) {
		return false
	}
	s.bus.Publish(event.ZoneRemoved{Tick: s.tick, Pos: p})
	return true
}

// PlaceRoad adds a road cell at p and refreshes zone access flags.
func (s *Simulation) PlaceRoad(p world.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.placeable(p) {
		return false
	}
	if !s.roads.Place(p) {
		return false
	}
	s.afterRoadChange()
	return true
}

// RemoveRoad deletes the road cell at p.
func (s *Simulation) RemoveRoad(p world.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roads.Remove(p) {
		return false
	}
	s.afterRoadChange()
	return true
}

// PlacePowerLine adds a power line at p and rebuilds the powered set.
func (s *Simulation) PlacePowerLine(p world.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.placeable(p) {
		return false
	}
	if !s.power.PlaceLine(p) {
		return false
	}
	s.afterPowerChange()
	return true
}

// RemovePowerLine deletes the power line at p.
func (s *Simulation) RemovePowerLine(p world.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.power.RemoveLine(p) {
		return false
	}
	s.afterPowerChange()
	return true
}

// PlacePowerPlant installs a plant with its top-left corner at anchor.
// The plant's identity comes from the entity registry.
func (s *Simulation) PlacePowerPlant(t infra.PlantType, anchor world.Point) (entity.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := infra.SpecFor(t)
	for dy := 0; dy < spec.Size; dy++ {
		for dx := 0; dx < spec.Size; dx++ {
			if !s.placeable(world.Point{X: anchor.X + dx, Y: anchor.Y + dy}) {
				return 0, false
			}
		}
	}

	id := s.reg.Create()
	if !s.power.PlacePlant(id, t, anchor) {
		s.reg.Destroy(id)
		s.reg.Flush()
		return 0, false
	}
	s.afterPowerChange()
	return id, true
}

// RemovePowerPlant tears down a plant by identity.
func (s *Simulation) RemovePowerPlant(id entity.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.power.RemovePlant(id) {
		return false
	}
	s.reg.Destroy(id)
	s.reg.Flush()
	s.afterPowerChange()
	return true
}

// placeable checks the cross-layer preconditions common to all
// placements: in bounds, buildable terrain, and not occupied by
// another layer.
func (s *Simulation) placeable(p world.Point) bool {
	if !s.terrain.Buildable(p) {
		return false
	}
	if s.roads.Has(p) {
		return false
	}
	if cell := s.power.At(p); cell != nil && cell.Conductive() {
		return false
	}
	if cell := s.zones.At(p); cell == nil || cell.Zoned() {
		return false
	}
	return true
}

// afterRoadChange recomputes zone access for the whole layer. Full
// recomputation on every edit is intentionally simple; incremental
// patching is not worth the bookkeeping at the supported map sizes.
func (s *Simulation) afterRoadChange() {
	s.refreshZoneServices()
	s.bus.Publish(event.RoadNetworkUpdated{Tick: s.tick, Roads: s.roads.Count()})
}

// afterPowerChange fully rebuilds the powered set and refreshes the
// zone layer's utility flags.
func (s *Simulation) afterPowerChange() {
	update := s.power.Recompute()
	s.refreshZoneServices()
	s.bus.Publish(event.PowerGridUpdated{
		Tick:     s.tick,
		Powered:  update.Powered,
		Capacity: update.Capacity,
	})
}

func (s *Simulation) refreshZoneServices() {
	radius := s.cfg.Infra.RoadAccessRadius
	s.zones.RefreshServices(
		func(p world.Point) bool { return s.roads.AnyWithin(p, radius) },
		s.power.IsPowered,
		s.terrain.NearWater,
	)
}

// Read-only queries. All are side-effect-free.

// GetZoneCell returns a copy of the zone cell at p.
func (s *Simulation) GetZoneCell(p world.Point) (zone.Cell, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.zones.At(p)
	if cell == nil {
		return zone.Cell{}, false
	}
	return *cell, true
}

// HasRoad reports whether a road occupies p.
func (s *Simulation) HasRoad(p world.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roads.Has(p)
}

// HasPower reports whether p currently receives power.
func (s *Simulation) HasPower(p world.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power.IsPowered(p)
}

// Population returns the contributing residential population.
func (s *Simulation) Population() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	population, _, _ := s.growth.Totals()
	return population
}

// Jobs returns the contributing commercial plus industrial jobs.
func (s *Simulation) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, com, ind := s.growth.Totals()
	return com + ind
}

// Buildings returns all tracked buildings.
func (s *Simulation) Buildings() []growth.BuildingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.growth.Buildings()
}

// BuildingsWithIssues returns buildings currently missing road or
// power service.
func (s *Simulation) BuildingsWithIssues() []growth.BuildingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.growth.BuildingsWithIssues()
}

// RecentEvents returns the tail of the recent-event log, newest last.
func (s *Simulation) RecentEvents(limit int) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	out := make([]LogEntry, len(s.events)-start)
	copy(out, s.events[start:])
	return out
}
