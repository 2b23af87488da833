package world

import "fmt"

// Grid is a fixed-size rectangular array of cells. It never resizes
// after construction.
type Grid[T any] struct {
	width  int
	height int
	cells  []T
}

// NewGrid creates a grid of the given dimensions with zero-valued cells.
func NewGrid[T any](width, height int) (*Grid[T], error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%d", width, height)
	}
	return &Grid[T]{
		width:  width,
		height: height,
		cells:  make([]T, width*height),
	}, nil
}

// Width returns the grid width in cells.
func (g *Grid[T]) Width() int { return g.width }

// Height returns the grid height in cells.
func (g *Grid[T]) Height() int { return g.height }

// InBounds reports whether the coordinate lies inside the grid.
func (g *Grid[T]) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// At returns a pointer to the cell at p. Out-of-bounds coordinates are
// an error, never a silent clamp.
func (g *Grid[T]) At(p Point) (*T, error) {
	if !g.InBounds(p) {
		return nil, fmt.Errorf("grid: coordinate (%d,%d) out of bounds %dx%d", p.X, p.Y, g.width, g.height)
	}
	return &g.cells[p.Y*g.width+p.X], nil
}

// TryAt returns the cell pointer at p, or nil when p is out of bounds.
func (g *Grid[T]) TryAt(p Point) *T {
	if !g.InBounds(p) {
		return nil
	}
	return &g.cells[p.Y*g.width+p.X]
}

// Set replaces the cell at p.
func (g *Grid[T]) Set(p Point, v T) error {
	if !g.InBounds(p) {
		return fmt.Errorf("grid: coordinate (%d,%d) out of bounds %dx%d", p.X, p.Y, g.width, g.height)
	}
	g.cells[p.Y*g.width+p.X] = v
	return nil
}

// Each visits every cell in row-major order.
func (g *Grid[T]) Each(fn func(p Point, cell *T)) {
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			fn(Point{X: x, Y: y}, &g.cells[y*g.width+x])
		}
	}
}

// EachInRect visits every in-bounds cell of the rectangle spanning
// (x0,y0)-(x1,y1) inclusive. Corners may lie outside the grid; only
// the overlap is visited.
func (g *Grid[T]) EachInRect(x0, y0, x1, y1 int, fn func(p Point, cell *T)) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 >= g.width {
		x1 = g.width - 1
	}
	if y1 >= g.height {
		y1 = g.height - 1
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			fn(Point{X: x, Y: y}, &g.cells[y*g.width+x])
		}
	}
}

// FillRect sets every in-bounds cell of the rectangle to v.
func (g *Grid[T]) FillRect(x0, y0, x1, y1 int, v T) {
	g.EachInRect(x0, y0, x1, y1, func(_ Point, cell *T) {
		*cell = v
	})
}

// Clone returns a deep copy of the grid. The copier is applied to each
// cell because element types may hold nested mutable state.
func (g *Grid[T]) Clone(copier func(T) T) *Grid[T] {
	out := &Grid[T]{
		width:  g.width,
		height: g.height,
		cells:  make([]T, len(g.cells)),
	}
	for i, c := range g.cells {
		out.cells[i] = copier(c)
	}
	return out
}
