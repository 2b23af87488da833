package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/gridtown/internal/world"
)

func TestRoadPlaceRemove(t *testing.T) {
	t.Parallel()

	r, err := NewRoadNetwork(8, 8)
	require.NoError(t, err)
	p := world.Point{X: 3, Y: 3}

	assert.True(t, r.Place(p))
	assert.True(t, r.Has(p))
	assert.Equal(t, 1, r.Count())

	assert.False(t, r.Place(p), "double placement")
	assert.Equal(t, 1, r.Count())

	assert.False(t, r.Place(world.Point{X: -1, Y: 0}))
	assert.False(t, r.Remove(world.Point{X: 0, Y: 0}), "no road there")

	assert.True(t, r.Remove(p))
	assert.False(t, r.Has(p))
	assert.Zero(t, r.Count())
}

func TestRoadConnections(t *testing.T) {
	t.Parallel()

	r, err := NewRoadNetwork(8, 8)
	require.NoError(t, err)

	center := world.Point{X: 3, Y: 3}
	east := world.Point{X: 4, Y: 3}
	north := world.Point{X: 3, Y: 2}

	require.True(t, r.Place(center))
	require.True(t, r.Place(east))
	require.True(t, r.Place(north))

	c := r.At(center)
	assert.True(t, c.East)
	assert.True(t, c.North)
	assert.False(t, c.South)
	assert.False(t, c.West)

	assert.True(t, r.At(east).West)
	assert.True(t, r.At(north).South)

	// Removal updates the neighbors too.
	require.True(t, r.Remove(east))
	assert.False(t, r.At(center).East)
}

// Road access must hold exactly for the cells whose Chebyshev distance
// to some road cell is within the radius.
func TestAnyWithinExhaustive(t *testing.T) {
	t.Parallel()

	const radius = 4
	r, err := NewRoadNetwork(16, 16)
	require.NoError(t, err)

	roads := []world.Point{{X: 2, Y: 2}, {X: 12, Y: 9}}
	for _, p := range roads {
		require.True(t, r.Place(p))
	}

	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			p := world.Point{X: x, Y: y}
			want := false
			for _, road := range roads {
				if world.Chebyshev(p, road) <= radius {
					want = true
				}
			}
			assert.Equal(t, want, r.AnyWithin(p, radius), "at %v", p)
		}
	}
}

func TestAnyWithinNearEdge(t *testing.T) {
	t.Parallel()

	r, err := NewRoadNetwork(8, 8)
	require.NoError(t, err)
	require.True(t, r.Place(world.Point{X: 0, Y: 0}))

	// Scan rectangles falling partly outside the grid must not fault
	// and must still find the corner road.
	assert.True(t, r.AnyWithin(world.Point{X: 0, Y: 0}, 4))
	assert.True(t, r.AnyWithin(world.Point{X: 3, Y: 3}, 4))
	assert.False(t, r.AnyWithin(world.Point{X: 7, Y: 7}, 4))
}
