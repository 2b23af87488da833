package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/gridtown/internal/entity"
	"github.com/talgya/gridtown/internal/world"
)

func newPowerNet(t *testing.T, w, h int) *PowerNetwork {
	t.Helper()
	n, err := NewPowerNetwork(w, h, 3)
	require.NoError(t, err)
	return n
}

func TestPlaceLine(t *testing.T) {
	t.Parallel()

	n := newPowerNet(t, 8, 8)
	p := world.Point{X: 2, Y: 2}

	assert.True(t, n.PlaceLine(p))
	assert.False(t, n.PlaceLine(p), "cell already conductive")
	assert.False(t, n.PlaceLine(world.Point{X: 8, Y: 0}))

	assert.True(t, n.RemoveLine(p))
	assert.False(t, n.RemoveLine(p))
}

func TestPlacePlantFootprint(t *testing.T) {
	t.Parallel()

	n := newPowerNet(t, 8, 8)

	t.Run("windmill occupies one cell", func(t *testing.T) {
		require.True(t, n.PlacePlant(entity.ID(1), PlantWindmill, world.Point{X: 0, Y: 0}))
		assert.True(t, n.At(world.Point{X: 0, Y: 0}).Conductive())
		assert.False(t, n.At(world.Point{X: 1, Y: 0}).Conductive())
	})

	t.Run("coal occupies a 2x2 square", func(t *testing.T) {
		require.True(t, n.PlacePlant(entity.ID(2), PlantCoal, world.Point{X: 4, Y: 4}))
		for dy := 0; dy < 2; dy++ {
			for dx := 0; dx < 2; dx++ {
				cell := n.At(world.Point{X: 4 + dx, Y: 4 + dy})
				assert.Equal(t, entity.ID(2), cell.Plant)
			}
		}
	})

	t.Run("overlapping footprint rejected without mutation", func(t *testing.T) {
		assert.False(t, n.PlacePlant(entity.ID(3), PlantSolar, world.Point{X: 3, Y: 3}))
		assert.Zero(t, n.At(world.Point{X: 3, Y: 3}).Plant)
	})

	t.Run("footprint sticking off the map rejected", func(t *testing.T) {
		assert.False(t, n.PlacePlant(entity.ID(4), PlantCoal, world.Point{X: 7, Y: 7}))
	})

	t.Run("remove clears the footprint", func(t *testing.T) {
		require.True(t, n.RemovePlant(entity.ID(2)))
		assert.Zero(t, n.At(world.Point{X: 4, Y: 4}).Plant)
		assert.False(t, n.RemovePlant(entity.ID(2)))
	})
}

// A windmill at the origin with no lines must power exactly the
// Chebyshev ball of the transmission radius around it.
func TestRecomputeDilation(t *testing.T) {
	t.Parallel()

	n := newPowerNet(t, 8, 8)
	anchor := world.Point{X: 0, Y: 0}
	require.True(t, n.PlacePlant(entity.ID(1), PlantWindmill, anchor))

	update := n.Recompute()
	assert.Equal(t, 300, update.Capacity)

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			p := world.Point{X: x, Y: y}
			want := world.Chebyshev(p, anchor) <= 3
			assert.Equal(t, want, n.IsPowered(p), "at %v", p)
		}
	}
}

func TestRecomputeFloodFollowsLines(t *testing.T) {
	t.Parallel()

	n := newPowerNet(t, 20, 20)
	require.True(t, n.PlacePlant(entity.ID(1), PlantWindmill, world.Point{X: 0, Y: 0}))

	// A line running east from the plant.
	for x := 1; x <= 10; x++ {
		require.True(t, n.PlaceLine(world.Point{X: x, Y: 0}))
	}
	// A disconnected line elsewhere.
	require.True(t, n.PlaceLine(world.Point{X: 0, Y: 15}))

	n.Recompute()

	assert.True(t, n.IsPowered(world.Point{X: 10, Y: 0}), "end of connected line")
	assert.True(t, n.IsPowered(world.Point{X: 13, Y: 0}), "dilation past the line end")
	assert.False(t, n.IsPowered(world.Point{X: 14, Y: 0}), "beyond transmission radius")
	assert.False(t, n.IsPowered(world.Point{X: 0, Y: 15}), "disconnected line stays dark")
}

// Adding conductors never shrinks the powered set.
func TestRecomputeMonotonic(t *testing.T) {
	t.Parallel()

	n := newPowerNet(t, 16, 16)
	require.True(t, n.PlacePlant(entity.ID(1), PlantSolar, world.Point{X: 2, Y: 2}))

	before := n.Recompute()

	require.True(t, n.PlaceLine(world.Point{X: 4, Y: 2}))
	require.True(t, n.PlaceLine(world.Point{X: 5, Y: 2}))
	after := n.Recompute()

	for p := range before.Powered {
		_, still := after.Powered[p]
		assert.True(t, still, "cell %v lost power after adding a line", p)
	}
	assert.Greater(t, len(after.Powered), len(before.Powered))
}

func TestPlantsSortedByID(t *testing.T) {
	t.Parallel()

	n := newPowerNet(t, 16, 16)
	require.True(t, n.PlacePlant(entity.ID(9), PlantWindmill, world.Point{X: 0, Y: 0}))
	require.True(t, n.PlacePlant(entity.ID(2), PlantWindmill, world.Point{X: 5, Y: 5}))
	require.True(t, n.PlacePlant(entity.ID(5), PlantWindmill, world.Point{X: 10, Y: 10}))

	plants := n.Plants()
	require.Len(t, plants, 3)
	assert.Equal(t, entity.ID(2), plants[0].ID)
	assert.Equal(t, entity.ID(5), plants[1].ID)
	assert.Equal(t, entity.ID(9), plants[2].ID)
}
