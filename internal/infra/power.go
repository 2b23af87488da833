package infra

import (
	"sort"

	"github.com/talgya/gridtown/internal/entity"
	"github.com/talgya/gridtown/internal/world"
)

// PlantType determines a power plant's capacity and footprint.
type PlantType uint8

const (
	PlantWindmill PlantType = iota
	PlantSolar
	PlantCoal
)

// PlantSpec describes a plant type's fixed properties.
type PlantSpec struct {
	Name     string
	Size     int // Square footprint edge length in cells
	Capacity int // Megawatts
}

// SpecFor returns the spec for a plant type.
func SpecFor(t PlantType) PlantSpec {
	switch t {
	case PlantWindmill:
		return PlantSpec{Name: "windmill", Size: 1, Capacity: 300}
	case PlantSolar:
		return PlantSpec{Name: "solar", Size: 2, Capacity: 800}
	case PlantCoal:
		return PlantSpec{Name: "coal", Size: 2, Capacity: 2000}
	}
	return PlantSpec{Name: "unknown", Size: 1, Capacity: 0}
}

// Plant is an installed power plant. Footprint cells reference it via
// their PowerCell flags, not a back-pointer.
type Plant struct {
	ID     entity.ID   `json:"id"`
	Type   PlantType   `json:"type"`
	Anchor world.Point `json:"anchor"` // Top-left footprint corner
	Output int         `json:"output"`
}

// PowerCell is one coordinate of the power layer. Powered is derived
// state, rebuilt by Recompute.
type PowerCell struct {
	Line    bool      `json:"line"`
	Plant   entity.ID `json:"plant,omitempty"` // Footprint owner, 0 when none
	Powered bool      `json:"powered"`
	North   bool      `json:"north"`
	South   bool      `json:"south"`
	East    bool      `json:"east"`
	West    bool      `json:"west"`
}

// Conductive reports whether current can flow through this cell.
func (c *PowerCell) Conductive() bool {
	return c.Line || c.Plant != 0
}

// Update is the result of a power recomputation, published to the zone
// layer and the lifecycle manager.
type Update struct {
	Powered  map[world.Point]struct{}
	Capacity int
}

// PowerNetwork is the power layer: lines, plants, and the derived
// powered set.
type PowerNetwork struct {
	grid               *world.Grid[PowerCell]
	plants             map[entity.ID]*Plant
	transmissionRadius int
	powered            map[world.Point]struct{}
	capacity           int
}

// NewPowerNetwork creates an empty power layer. transmissionRadius is
// the Chebyshev dilation range around powered conductors.
func NewPowerNetwork(width, height, transmissionRadius int) (*PowerNetwork, error) {
	grid, err := world.NewGrid[PowerCell](width, height)
	if err != nil {
		return nil, err
	}
	return &PowerNetwork{
		grid:               grid,
		plants:             make(map[entity.ID]*Plant),
		transmissionRadius: transmissionRadius,
		powered:            make(map[world.Point]struct{}),
	}, nil
}

// Width returns the layer width in cells.
func (n *PowerNetwork) Width() int { return n.grid.Width() }

// Height returns the layer height in cells.
func (n *PowerNetwork) Height() int { return n.grid.Height() }

// At returns the power cell at p, or nil when out of bounds.
func (n *PowerNetwork) At(p world.Point) *PowerCell {
	return n.grid.TryAt(p)
}

// IsPowered reports whether p currently receives power.
func (n *PowerNetwork) IsPowered(p world.Point) bool {
	_, ok := n.powered[p]
	return ok
}

// Capacity returns the aggregate plant capacity.
func (n *PowerNetwork) Capacity() int { return n.capacity }

// Plants returns all installed plants, ordered by ID.
func (n *PowerNetwork) Plants() []*Plant {
	out := make([]*Plant, 0, len(n.plants))
	for _, p := range n.plants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlaceLine adds a power line. Returns false without mutation when p
// is out of bounds or already occupied by a line or plant footprint.
// The caller must Recompute afterwards.
func (n *PowerNetwork) PlaceLine(p world.Point) bool {
	cell := n.grid.TryAt(p)
	if cell == nil || cell.Conductive() {
		return false
	}
	cell.Line = true
	n.refreshConnections(p)
	return true
}

// RemoveLine deletes a power line. Returns false when p carries none.
func (n *PowerNetwork) RemoveLine(p world.Point) bool {
	cell := n.grid.TryAt(p)
	if cell == nil || !cell.Line {
		return false
	}
	cell.Line = false
	n.refreshConnections(p)
	return true
}

// PlacePlant installs a plant with its top-left footprint corner at
// anchor. All footprint cells must be in bounds and unoccupied;
// otherwise it returns false with no mutation. The identity is
// allocated by the caller from the entity registry.
func (n *PowerNetwork) PlacePlant(id entity.ID, t PlantType, anchor world.Point) bool {
	spec := SpecFor(t)
	for dy := 0; dy < spec.Size; dy++ {
		for dx := 0; dx < spec.Size; dx++ {
			cell := n.grid.TryAt(world.Point{X: anchor.X + dx, Y: anchor.Y + dy})
			if cell == nil || cell.Conductive() {
				return false
			}
		}
	}

	for dy := 0; dy < spec.Size; dy++ {
		for dx := 0; dx < spec.Size; dx++ {
			p := world.Point{X: anchor.X + dx, Y: anchor.Y + dy}
			n.grid.TryAt(p).Plant = id
			n.refreshConnections(p)
		}
	}
	n.plants[id] = &Plant{ID: id, Type: t, Anchor: anchor, Output: spec.Capacity}
	return true
}

// RemovePlant tears down a plant and clears its footprint. Returns
// false for an unknown id.
func (n *PowerNetwork) RemovePlant(id entity.ID) bool {
	plant, ok := n.plants[id]
	if !ok {
		return false
	}
	spec := SpecFor(plant.Type)
	for dy := 0; dy < spec.Size; dy++ {
		for dx := 0; dx < spec.Size; dx++ {
			p := world.Point{X: plant.Anchor.X + dx, Y: plant.Anchor.Y + dy}
			if cell := n.grid.TryAt(p); cell != nil {
				cell.Plant = 0
			}
			n.refreshConnections(p)
		}
	}
	delete(n.plants, id)
	return true
}

// Recompute fully rebuilds the powered set in two phases and returns
// the result.
//
// Phase one flood-fills from every plant footprint cell through
// conductive cells (4-directional adjacency), modeling wires actually
// carrying current. Phase two dilates: every cell within the
// transmission radius of a powered conductor is powered too, modeling
// substations energizing nearby lots without a line into every
// building.
//
// The rebuild is total rather than incremental. That wastes work on
// small edits but keeps the monotonicity property trivially correct.
func (n *PowerNetwork) Recompute() Update {
	// Clear derived state.
	n.grid.Each(func(_ world.Point, cell *PowerCell) {
		cell.Powered = false
	})
	powered := make(map[world.Point]struct{})

	// Phase 1: conductive flood-fill from plant footprints.
	var frontier []world.Point
	n.grid.Each(func(p world.Point, cell *PowerCell) {
		if cell.Plant != 0 {
			if _, seen := powered[p]; !seen {
				powered[p] = struct{}{}
				frontier = append(frontier, p)
			}
		}
	})
	for len(frontier) > 0 {
		p := frontier[0]
		frontier = frontier[1:]
		for _, q := range p.Neighbors4() {
			cell := n.grid.TryAt(q)
			if cell == nil || !cell.Conductive() {
				continue
			}
			if _, seen := powered[q]; seen {
				continue
			}
			powered[q] = struct{}{}
			frontier = append(frontier, q)
		}
	}

	// Phase 2: transmission dilation around powered conductors.
	conductors := make([]world.Point, 0, len(powered))
	for p := range powered {
		conductors = append(conductors, p)
	}
	r := n.transmissionRadius
	for _, c := range conductors {
		n.grid.EachInRect(c.X-r, c.Y-r, c.X+r, c.Y+r,
			func(p world.Point, _ *PowerCell) {
				powered[p] = struct{}{}
			})
	}

	for p := range powered {
		n.grid.TryAt(p).Powered = true
	}

	capacity := 0
	for _, plant := range n.plants {
		capacity += plant.Output
	}

	n.powered = powered
	n.capacity = capacity
	return Update{Powered: powered, Capacity: capacity}
}

// refreshConnections recomputes the 4-directional flags of p and its
// edge neighbors against conductive occupancy.
func (n *PowerNetwork) refreshConnections(p world.Point) {
	conductive := func(q world.Point) bool {
		cell := n.grid.TryAt(q)
		return cell != nil && cell.Conductive()
	}
	nb := p.Neighbors4()
	for _, q := range [5]world.Point{nb[0], nb[1], nb[2], nb[3], p} {
		cell := n.grid.TryAt(q)
		if cell == nil || !cell.Conductive() {
			continue
		}
		cell.North = conductive(world.Point{X: q.X, Y: q.Y - 1})
		cell.South = conductive(world.Point{X: q.X, Y: q.Y + 1})
		cell.East = conductive(world.Point{X: q.X + 1, Y: q.Y})
		cell.West = conductive(world.Point{X: q.X - 1, Y: q.Y})
	}
}

// Each visits every power cell in row-major order.
func (n *PowerNetwork) Each(fn func(p world.Point, cell *PowerCell)) {
	n.grid.Each(fn)
}
