package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTerrainConfig(seed int64) TerrainConfig {
	cfg := DefaultTerrainConfig()
	cfg.Width = 48
	cfg.Height = 48
	cfg.Seed = seed
	return cfg
}

func TestGenerateTerrainDeterministic(t *testing.T) {
	t.Parallel()

	a, err := GenerateTerrain(testTerrainConfig(7))
	require.NoError(t, err)
	b, err := GenerateTerrain(testTerrainConfig(7))
	require.NoError(t, err)

	a.grid.Each(func(p Point, cell *TerrainCell) {
		other := b.At(p)
		assert.Equal(t, cell.Kind, other.Kind, "kind at %v", p)
		assert.Equal(t, cell.Elevation, other.Elevation, "elevation at %v", p)
	})
}

func TestGenerateTerrainSeedChangesMap(t *testing.T) {
	t.Parallel()

	a, err := GenerateTerrain(testTerrainConfig(1))
	require.NoError(t, err)
	b, err := GenerateTerrain(testTerrainConfig(2))
	require.NoError(t, err)

	differ := false
	a.grid.Each(func(p Point, cell *TerrainCell) {
		if cell.Elevation != b.At(p).Elevation {
			differ = true
		}
	})
	assert.True(t, differ)
}

func TestTerrainEdgeIsWater(t *testing.T) {
	t.Parallel()

	tr, err := GenerateTerrain(testTerrainConfig(3))
	require.NoError(t, err)

	// The radial falloff pushes the map border below sea level.
	for x := 0; x < tr.Width(); x++ {
		assert.Equal(t, TerrainWater, tr.At(Point{X: x, Y: 0}).Kind)
		assert.Equal(t, TerrainWater, tr.At(Point{X: x, Y: tr.Height() - 1}).Kind)
	}
}

func TestTerrainBuildable(t *testing.T) {
	t.Parallel()

	tr, err := GenerateTerrain(testTerrainConfig(3))
	require.NoError(t, err)

	counts := tr.KindCounts()
	assert.Positive(t, counts[TerrainFlat], "map should have buildable land")
	assert.Positive(t, counts[TerrainWater])

	tr.grid.Each(func(p Point, cell *TerrainCell) {
		assert.Equal(t, cell.Kind == TerrainFlat, tr.Buildable(p))
	})

	assert.False(t, tr.Buildable(Point{X: -1, Y: 0}))
	assert.False(t, tr.Buildable(Point{X: tr.Width(), Y: 0}))
}

func TestTerrainNearWaterFlags(t *testing.T) {
	t.Parallel()

	tr, err := GenerateTerrain(testTerrainConfig(3))
	require.NoError(t, err)

	tr.grid.Each(func(p Point, cell *TerrainCell) {
		if cell.Kind == TerrainWater {
			assert.False(t, cell.NearWater, "water cell flagged near-water at %v", p)
			return
		}
		expect := false
		for _, n := range p.Neighbors8() {
			if nc := tr.At(n); nc != nil && nc.Kind == TerrainWater {
				expect = true
			}
		}
		assert.Equal(t, expect, cell.NearWater, "near-water flag at %v", p)
	})
}
