package sim

import (
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// DemandState is the externally visible demand picture: smoothed
// per-bucket demand plus the raw valves and normalized gauges.
type DemandState struct {
	Residential [3]float64 `json:"residential"` // low, medium, high density
	Commercial  [3]float64 `json:"commercial"`
	Industrial  [3]float64 `json:"industrial"` // agriculture, manufacturing, high-tech

	Valves [3]float64 `json:"valves"` // raw R/C/I valve values
	Gauges [3]float64 `json:"gauges"` // normalized [-1, 1] per category
}

// DemandState returns the current demand picture.
func (s *Simulation) DemandState() DemandState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out DemandState
	for d := zone.DensityLow; d <= zone.DensityHigh; d++ {
		out.Residential[d] = s.demand.Demand(zone.CategoryResidential, d)
		out.Commercial[d] = s.demand.Demand(zone.CategoryCommercial, d)
		out.Industrial[d] = s.demand.Demand(zone.CategoryIndustrial, d)
	}
	for i, cat := range []zone.Category{zone.CategoryResidential, zone.CategoryCommercial, zone.CategoryIndustrial} {
		out.Valves[i] = s.demand.Valve(cat)
		out.Gauges[i] = s.demand.Gauge(cat)
	}
	return out
}

// CellView is one cell of a render snapshot, flattened across layers.
type CellView struct {
	Terrain      world.TerrainKind `json:"terrain"`
	Category     zone.Category     `json:"category"`
	Density      zone.Density      `json:"density"`
	Developed    bool              `json:"developed"`
	Road         bool              `json:"road"`
	PowerLine    bool              `json:"power_line"`
	Plant        bool              `json:"plant"`
	Powered      bool              `json:"powered"`
	Desirability float64           `json:"desirability"`
}

// Snapshot is a read-only copy of the visible world state, pulled by
// renderers once per frame, never during a tick.
type Snapshot struct {
	Tick       uint64      `json:"tick"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Cells      []CellView  `json:"cells"` // Row-major
	Demand     DemandState `json:"demand"`
	Population int         `json:"population"`
	Jobs       int         `json:"jobs"`
	Capacity   int         `json:"capacity"`
}

// At returns the cell view at (x, y).
func (s *Snapshot) At(x, y int) CellView {
	return s.Cells[y*s.Width+x]
}

// Snapshot copies the visible state for rendering and the HTTP API.
func (s *Simulation) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := s.zones.Width(), s.zones.Height()
	snap := &Snapshot{
		Tick:   s.tick,
		Width:  w,
		Height: h,
		Cells:  make([]CellView, w*h),
	}

	s.zones.Each(func(p world.Point, cell *zone.Cell) {
		view := &snap.Cells[p.Y*w+p.X]
		view.Terrain = s.terrain.At(p).Kind
		view.Category = cell.Category
		view.Density = cell.Density
		view.Developed = cell.Developed
		view.Desirability = cell.Desirability
		view.Road = s.roads.Has(p)
		if pc := s.power.At(p); pc != nil {
			view.PowerLine = pc.Line
			view.Plant = pc.Plant != 0
			view.Powered = pc.Powered
		}
	})

	population, comJobs, indJobs := s.growth.Totals()
	snap.Population = population
	snap.Jobs = comJobs + indJobs
	snap.Capacity = s.power.Capacity()

	// DemandState locks too; fill inline instead.
	for d := zone.DensityLow; d <= zone.DensityHigh; d++ {
		snap.Demand.Residential[d] = s.demand.Demand(zone.CategoryResidential, d)
		snap.Demand.Commercial[d] = s.demand.Demand(zone.CategoryCommercial, d)
		snap.Demand.Industrial[d] = s.demand.Demand(zone.CategoryIndustrial, d)
	}
	for i, cat := range []zone.Category{zone.CategoryResidential, zone.CategoryCommercial, zone.CategoryIndustrial} {
		snap.Demand.Valves[i] = s.demand.Valve(cat)
		snap.Demand.Gauges[i] = s.demand.Gauge(cat)
	}

	return snap
}
