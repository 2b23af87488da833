// Package world provides the square grid index and terrain layer.
// Cells are addressed by integer (x, y) coordinates row-major into a
// flat array.
package world

// Point is a position on the grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CardinalDirections are the four edge-adjacent neighbor offsets,
// ordered north, south, east, west.
var CardinalDirections = [4]Point{
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: 0},
	{X: -1, Y: 0},
}

// OctileDirections are the eight neighbor offsets including diagonals.
var OctileDirections = [8]Point{
	{X: 0, Y: -1}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: -1, Y: 0},
	{X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: -1}, {X: -1, Y: 1},
}

// Add returns p offset by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Neighbors4 returns the four edge-adjacent coordinates.
func (p Point) Neighbors4() [4]Point {
	var result [4]Point
	for i, d := range CardinalDirections {
		result[i] = p.Add(d)
	}
	return result
}

// Neighbors8 returns the eight adjacent coordinates including diagonals.
func (p Point) Neighbors8() [8]Point {
	var result [8]Point
	for i, d := range OctileDirections {
		result[i] = p.Add(d)
	}
	return result
}

// Chebyshev returns the chessboard distance between two points.
func Chebyshev(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}
