// Package infra provides the road and power layers and the
// connectivity computations over them: bounded-radius road access and
// two-phase power propagation.
package infra

import "github.com/talgya/gridtown/internal/world"

// RoadCell is one coordinate of the road layer. Connection flags are
// maintained incrementally on placement and removal.
type RoadCell struct {
	Present bool `json:"present"`
	North   bool `json:"north"`
	South   bool `json:"south"`
	East    bool `json:"east"`
	West    bool `json:"west"`
}

// RoadNetwork is the road layer.
type RoadNetwork struct {
	grid  *world.Grid[RoadCell]
	count int
}

// NewRoadNetwork creates an empty road layer.
func NewRoadNetwork(width, height int) (*RoadNetwork, error) {
	grid, err := world.NewGrid[RoadCell](width, height)
	if err != nil {
		return nil, err
	}
	return &RoadNetwork{grid: grid}, nil
}

// Width returns the layer width in cells.
func (r *RoadNetwork) Width() int { return r.grid.Width() }

// Height returns the layer height in cells.
func (r *RoadNetwork) Height() int { return r.grid.Height() }

// Has reports whether a road occupies p.
func (r *RoadNetwork) Has(p world.Point) bool {
	cell := r.grid.TryAt(p)
	return cell != nil && cell.Present
}

// Count returns the number of road cells.
func (r *RoadNetwork) Count() int { return r.count }

// At returns the road cell at p, or nil when out of bounds.
func (r *RoadNetwork) At(p world.Point) *RoadCell {
	return r.grid.TryAt(p)
}

// Place adds a road cell. Returns false without mutation when p is out
// of bounds or already carries a road.
func (r *RoadNetwork) Place(p world.Point) bool {
	cell := r.grid.TryAt(p)
	if cell == nil || cell.Present {
		return false
	}
	cell.Present = true
	r.count++
	r.refreshConnections(p)
	return true
}

// Remove deletes a road cell. Returns false when p is out of bounds or
// has no road.
func (r *RoadNetwork) Remove(p world.Point) bool {
	cell := r.grid.TryAt(p)
	if cell == nil || !cell.Present {
		return false
	}
	*cell = RoadCell{}
	r.count--
	r.refreshConnections(p)
	return true
}

// refreshConnections recomputes the 4-directional flags of p and its
// edge neighbors.
func (r *RoadNetwork) refreshConnections(p world.Point) {
	n := p.Neighbors4()
	for _, q := range [5]world.Point{n[0], n[1], n[2], n[3], p} {
		cell := r.grid.TryAt(q)
		if cell == nil || !cell.Present {
			continue
		}
		cell.North = r.Has(world.Point{X: q.X, Y: q.Y - 1})
		cell.South = r.Has(world.Point{X: q.X, Y: q.Y + 1})
		cell.East = r.Has(world.Point{X: q.X + 1, Y: q.Y})
		cell.West = r.Has(world.Point{X: q.X - 1, Y: q.Y})
	}
}

// AnyWithin reports whether any road cell exists in the square
// neighborhood of half-width radius around p. This is a bounded scan,
// not a shortest-path search; O(R²) per call is acceptable at the map
// sizes the simulation targets.
func (r *RoadNetwork) AnyWithin(p world.Point, radius int) bool {
	found := false
	r.grid.EachInRect(p.X-radius, p.Y-radius, p.X+radius, p.Y+radius,
		func(_ world.Point, cell *RoadCell) {
			if cell.Present {
				found = true
			}
		})
	return found
}

// Each visits every road cell (present or not) in row-major order.
func (r *RoadNetwork) Each(fn func(p world.Point, cell *RoadCell)) {
	r.grid.Each(fn)
}
