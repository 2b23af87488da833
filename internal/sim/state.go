package sim

import (
	"fmt"

	"github.com/talgya/gridtown/internal/demand"
	"github.com/talgya/gridtown/internal/event"
	"github.com/talgya/gridtown/internal/growth"
	"github.com/talgya/gridtown/internal/infra"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// State is the persistent portion of a simulation, in dependency
// order: grid contents first, then building records, then the demand
// valves. Terrain is not included; it regenerates from the seed.
type State struct {
	Seed   int64  `json:"seed"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tick   uint64 `json:"tick"`

	Roads  []world.Point `json:"roads"`
	Lines  []world.Point `json:"lines"`
	Plants []PlantState  `json:"plants"`
	Zones  []ZoneState   `json:"zones"`

	Buildings []growth.Building `json:"buildings"`

	Demand demand.State `json:"demand"`
}

// PlantState is one power plant's persistent record.
type PlantState struct {
	Type   infra.PlantType `json:"type"`
	Anchor world.Point     `json:"anchor"`
}

// ZoneState is one zoned cell's persistent record. Development state
// is not stored here; it is re-derived from the building list.
type ZoneState struct {
	Pos      world.Point   `json:"pos"`
	Category zone.Category `json:"category"`
	Density  zone.Density  `json:"density"`
}

// Export captures the persistent state for a snapshot.
func (s *Simulation) Export() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Seed:   s.terrain.Seed(),
		Width:  s.zones.Width(),
		Height: s.zones.Height(),
		Tick:   s.tick,
		Demand: s.demand.State(),
	}

	s.roads.Each(func(p world.Point, cell *infra.RoadCell) {
		if cell.Present {
			st.Roads = append(st.Roads, p)
		}
	})
	s.power.Each(func(p world.Point, cell *infra.PowerCell) {
		if cell.Line {
			st.Lines = append(st.Lines, p)
		}
	})
	for _, plant := range s.power.Plants() {
		st.Plants = append(st.Plants, PlantState{Type: plant.Type, Anchor: plant.Anchor})
	}
	s.zones.Each(func(p world.Point, cell *zone.Cell) {
		if cell.Zoned() {
			st.Zones = append(st.Zones, ZoneState{Pos: p, Category: cell.Category, Density: cell.Density})
		}
	})
	for _, rec := range s.growth.Buildings() {
		st.Buildings = append(st.Buildings, rec.Building)
	}

	return st
}

// Restore applies a persisted snapshot onto a freshly constructed
// simulation. Entity identities are reissued; only the relationships
// between cells and buildings are preserved. A single power
// recomputation and service refresh runs at the end.
func (s *Simulation) Restore(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.Width != s.zones.Width() || st.Height != s.zones.Height() {
		return fmt.Errorf("restore: snapshot is %dx%d, simulation is %dx%d",
			st.Width, st.Height, s.zones.Width(), s.zones.Height())
	}

	for _, p := range st.Roads {
		if !s.roads.Place(p) {
			return fmt.Errorf("restore: road at (%d,%d) rejected", p.X, p.Y)
		}
	}
	for _, p := range st.Lines {
		if !s.power.PlaceLine(p) {
			return fmt.Errorf("restore: power line at (%d,%d) rejected", p.X, p.Y)
		}
	}
	for _, plant := range st.Plants {
		id := s.reg.Create()
		if !s.power.PlacePlant(id, plant.Type, plant.Anchor) {
			return fmt.Errorf("restore: plant at (%d,%d) rejected", plant.Anchor.X, plant.Anchor.Y)
		}
	}
	for _, z := range st.Zones {
		if !s.zones.Place(z.Pos, z.Category, z.Density) {
			return fmt.Errorf("restore: zone at (%d,%d) rejected", z.Pos.X, z.Pos.Y)
		}
	}
	for _, b := range st.Buildings {
		cell := s.zones.At(b.Pos)
		if cell == nil || !cell.Zoned() || cell.Developed {
			return fmt.Errorf("restore: building at (%d,%d) has no free zoned cell", b.Pos.X, b.Pos.Y)
		}
		id := s.reg.Create()
		s.reg.Add(id, growth.Position{Pos: b.Pos})
		s.reg.Add(id, b)
		cell.Developed = true
		cell.Building = id
	}

	s.demand.Restore(st.Demand)
	s.tick = st.Tick

	update := s.power.Recompute()
	s.refreshZoneServices()
	s.bus.Publish(event.PowerGridUpdated{
		Tick:     s.tick,
		Powered:  update.Powered,
		Capacity: update.Capacity,
	})
	return nil
}
