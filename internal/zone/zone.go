// Package zone provides the zoning layer: per-cell category and
// density assignments, development state, and cached service flags.
package zone

import (
	"github.com/talgya/gridtown/internal/entity"
	"github.com/talgya/gridtown/internal/world"
)

// Category is a zone's broad land-use class.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryResidential
	CategoryCommercial
	CategoryIndustrial
)

// CategoryName returns a human-readable name for a category.
func CategoryName(c Category) string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryResidential:
		return "residential"
	case CategoryCommercial:
		return "commercial"
	case CategoryIndustrial:
		return "industrial"
	}
	return "unknown"
}

// Density is the tier within a category. For industrial zones the
// tiers map to sub-types (agriculture, manufacturing, high-tech).
type Density uint8

const (
	DensityLow Density = iota
	DensityMedium
	DensityHigh
)

// DensityName returns a human-readable name for a density tier.
func DensityName(d Density) string {
	switch d {
	case DensityLow:
		return "low"
	case DensityMedium:
		return "medium"
	case DensityHigh:
		return "high"
	}
	return "unknown"
}

// Cell is one grid coordinate's zoning state.
//
// Invariants: Developed implies Building != 0, and Category ==
// CategoryNone implies !Developed.
type Cell struct {
	Category  Category  `json:"category"`
	Density   Density   `json:"density"`
	Developed bool      `json:"developed"`
	Building  entity.ID `json:"building,omitempty"`

	// Service flags cached by the connectivity refresh.
	RoadAccess bool `json:"road_access"`
	Powered    bool `json:"powered"`
	Watered    bool `json:"watered"`

	// Cached scalars read by development rolls and the UI.
	Desirability float64 `json:"desirability"`
	LandValue    float64 `json:"land_value"`
}

// Zoned reports whether the cell carries a zone assignment.
func (c *Cell) Zoned() bool {
	return c.Category != CategoryNone
}

// Grid is the zone layer over the world grid.
type Grid struct {
	cells *world.Grid[Cell]
}

// NewGrid creates an empty zone layer of the given dimensions.
func NewGrid(width, height int) (*Grid, error) {
	cells, err := world.NewGrid[Cell](width, height)
	if err != nil {
		return nil, err
	}
	return &Grid{cells: cells}, nil
}

// Width returns the layer width in cells.
func (g *Grid) Width() int { return g.cells.Width() }

// Height returns the layer height in cells.
func (g *Grid) Height() int { return g.cells.Height() }

// At returns the cell at p, or nil when out of bounds.
func (g *Grid) At(p world.Point) *Cell {
	return g.cells.TryAt(p)
}

// Place assigns a zone to an unzoned cell. Returns false without
// mutation when the coordinate is out of bounds, already zoned, or the
// category is none.
func (g *Grid) Place(p world.Point, cat Category, dens Density) bool {
	if cat == CategoryNone {
		return false
	}
	cell := g.cells.TryAt(p)
	if cell == nil || cell.Zoned() {
		return false
	}
	*cell = Cell{Category: cat, Density: dens}
	return true
}

// Remove clears a zone assignment. Returns false when the cell is out
// of bounds or not zoned. The caller must have released any occupying
// building first; removing a developed cell fails.
func (g *Grid) Remove(p world.Point) bool {
	cell := g.cells.TryAt(p)
	if cell == nil || !cell.Zoned() || cell.Developed {
		return false
	}
	*cell = Cell{}
	return true
}

// Release resets a developed cell back to undeveloped, keeping the
// zone assignment. Used when a building is abandoned or demolished.
func (g *Grid) Release(p world.Point) {
	cell := g.cells.TryAt(p)
	if cell == nil {
		return
	}
	cell.Developed = false
	cell.Building = 0
}

// Occupy marks a cell developed by the given building entity.
func (g *Grid) Occupy(p world.Point, id entity.ID) {
	cell := g.cells.TryAt(p)
	if cell == nil {
		return
	}
	cell.Developed = true
	cell.Building = id
}

// RefreshServices recomputes every zoned cell's cached service flags
// from the supplied connectivity predicates. Runs over the whole layer;
// intentionally simple rather than incremental.
func (g *Grid) RefreshServices(hasRoad, powered, watered func(world.Point) bool) {
	g.cells.Each(func(p world.Point, cell *Cell) {
		if !cell.Zoned() {
			return
		}
		cell.RoadAccess = hasRoad(p)
		cell.Powered = powered(p)
		cell.Watered = watered(p)
		cell.Desirability = desirability(cell)
	})
}

// desirability folds the service flags and cached land value into a
// single [0, 1] scalar for display.
func desirability(cell *Cell) float64 {
	d := 0.2
	if cell.RoadAccess {
		d += 0.3
	}
	if cell.Powered {
		d += 0.3
	}
	if cell.Watered {
		d += 0.1
	}
	d += cell.LandValue * 0.01
	if d > 1 {
		d = 1
	}
	return d
}

// Each visits every cell in row-major order.
func (g *Grid) Each(fn func(p world.Point, cell *Cell)) {
	g.cells.Each(fn)
}

// Counts tallies zoned and developed cells per category.
func (g *Grid) Counts() (zoned, developed map[Category]int) {
	zoned = make(map[Category]int)
	developed = make(map[Category]int)
	g.cells.Each(func(_ world.Point, cell *Cell) {
		if !cell.Zoned() {
			return
		}
		zoned[cell.Category]++
		if cell.Developed {
			developed[cell.Category]++
		}
	})
	return zoned, developed
}

// Clone returns a deep copy of the layer, for render snapshots.
func (g *Grid) Clone() *Grid {
	return &Grid{cells: g.cells.Clone(func(c Cell) Cell { return c })}
}
