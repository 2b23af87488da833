package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/gridtown/internal/config"
	"github.com/talgya/gridtown/internal/entropy"
	"github.com/talgya/gridtown/internal/infra"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Terrain.Width = 64
	cfg.Terrain.Height = 64
	return cfg
}

// newTestSim builds a simulation over uniform flat terrain with a
// fixed seed, so placement never depends on noise.
func newTestSim(t *testing.T, seed int64) *Simulation {
	t.Helper()
	terrain, err := world.FlatTerrain(64, 64)
	require.NoError(t, err)
	s, err := NewWithTerrain(testConfig(), terrain, entropy.NewSeeded(seed))
	require.NoError(t, err)
	return s
}

// buildDistrict lays out a serviced district: a road row, a windmill,
// a power line run, and a strip of zones next to the road, all powered.
func buildDistrict(t *testing.T, s *Simulation) (zones []world.Point) {
	t.Helper()
	const ox, oy = 10, 10

	for x := 0; x < 8; x++ {
		require.True(t, s.PlaceRoad(world.Point{X: ox + x, Y: oy}))
	}
	_, ok := s.PlacePowerPlant(infra.PlantWindmill, world.Point{X: ox, Y: oy + 1})
	require.True(t, ok)
	for x := 0; x < 8; x++ {
		require.True(t, s.PlacePowerLine(world.Point{X: ox + x, Y: oy + 2}))
	}

	cats := []zone.Category{zone.CategoryResidential, zone.CategoryCommercial, zone.CategoryIndustrial}
	for i := 0; i < 6; i++ {
		p := world.Point{X: ox + 1 + i, Y: oy + 1}
		_, ok := s.PlaceZone(p, cats[i%len(cats)], zone.DensityLow)
		require.True(t, ok)
		zones = append(zones, p)
	}
	return zones
}

func TestPlacementOnGeneratedTerrain(t *testing.T) {
	t.Parallel()

	// The radial falloff guarantees water on the map border.
	s, err := New(testConfig(), 1)
	require.NoError(t, err)
	water := world.Point{X: 0, Y: 0}
	require.False(t, s.terrain.Buildable(water))

	assert.False(t, s.PlaceRoad(water))
	assert.False(t, s.PlacePowerLine(water))
	_, ok := s.PlaceZone(water, zone.CategoryResidential, zone.DensityLow)
	assert.False(t, ok)

	before := s.reg.Count()
	_, ok = s.PlacePowerPlant(infra.PlantCoal, water)
	assert.False(t, ok)
	assert.Equal(t, before, s.reg.Count(), "failed plant placement leaves no entity behind")
}

func TestLayersExcludeEachOther(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)

	road := world.Point{X: 5, Y: 5}
	require.True(t, s.PlaceRoad(road))
	_, ok := s.PlaceZone(road, zone.CategoryResidential, zone.DensityLow)
	assert.False(t, ok, "zone on road")
	assert.False(t, s.PlacePowerLine(road), "line on road")
	assert.False(t, s.PlaceRoad(road), "double road")

	zoned := world.Point{X: 6, Y: 5}
	_, ok = s.PlaceZone(zoned, zone.CategoryCommercial, zone.DensityLow)
	require.True(t, ok)
	assert.False(t, s.PlaceRoad(zoned), "road on zone")
	assert.False(t, s.PlacePowerLine(zoned), "line on zone")

	t.Run("out of bounds rejected", func(t *testing.T) {
		assert.False(t, s.PlaceRoad(world.Point{X: -1, Y: -1}))
		assert.False(t, s.PlaceRoad(world.Point{X: 1000, Y: 0}))
	})
}

func TestZoneServiceFlags(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)

	zonePos := world.Point{X: 12, Y: 12}
	_, ok := s.PlaceZone(zonePos, zone.CategoryResidential, zone.DensityLow)
	require.True(t, ok)

	cell, found := s.GetZoneCell(zonePos)
	require.True(t, found)
	assert.False(t, cell.RoadAccess)
	assert.False(t, cell.Powered)

	// A road within the access radius flips the flag on.
	roadPos := world.Point{X: 12, Y: 9}
	require.True(t, s.PlaceRoad(roadPos))
	cell, _ = s.GetZoneCell(zonePos)
	assert.True(t, cell.RoadAccess)

	// A windmill within transmission range powers it.
	plantPos := world.Point{X: 10, Y: 12}
	id, ok := s.PlacePowerPlant(infra.PlantWindmill, plantPos)
	require.True(t, ok)
	cell, _ = s.GetZoneCell(zonePos)
	assert.True(t, cell.Powered)
	assert.True(t, s.HasPower(zonePos))

	// Removing them flips the flags back off.
	require.True(t, s.RemoveRoad(roadPos))
	require.True(t, s.RemovePowerPlant(id))
	cell, _ = s.GetZoneCell(zonePos)
	assert.False(t, cell.RoadAccess)
	assert.False(t, cell.Powered)
	assert.Zero(t, s.power.Capacity())
}

// A serviced district with rising demand develops buildings, and the
// zone/building linkage invariants hold after every single tick.
func TestCityGrowsAndInvariantsHold(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)
	buildDistrict(t, s)

	for i := 0; i < 3000; i++ {
		s.RunTicks(1)
		require.NoError(t, s.CheckInvariants(), "after tick %d", s.Tick())
	}

	assert.NotEmpty(t, s.Buildings(), "demand-driven development never happened")
	assert.Positive(t, s.Population()+s.Jobs())
	assert.NotEmpty(t, s.RecentEvents(50))
}

// Cutting power abandons the district after the grace period, and the
// cells are released for redevelopment.
func TestPowerLossLeadsToAbandonment(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)
	buildDistrict(t, s)
	s.RunTicks(3000)
	require.NotEmpty(t, s.Buildings())

	plants := s.power.Plants()
	require.Len(t, plants, 1)
	require.True(t, s.RemovePowerPlant(plants[0].ID))

	// Issues are reflected at the next infrastructure check.
	s.RunTicks(10)
	require.NotEmpty(t, s.BuildingsWithIssues())
	assert.Zero(t, s.Population()+s.Jobs(), "unserved buildings stop contributing")

	// Grace period (5 sim-seconds at 0.1s ticks) plus slack.
	s.RunTicks(100)

	assert.Empty(t, s.Buildings(), "all buildings abandoned")
	require.NoError(t, s.CheckInvariants())

	zoned, developed := s.zones.Counts()
	assert.Positive(t, zoned[zone.CategoryResidential], "zones survive abandonment")
	for cat, n := range developed {
		assert.Zero(t, n, "developed count for category %d", cat)
	}
}

func TestRemoveZoneDemolishesBuilding(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)
	zones := buildDistrict(t, s)
	s.RunTicks(3000)
	require.NotEmpty(t, s.Buildings())

	var target world.Point
	found := false
	for _, p := range zones {
		if cell, _ := s.GetZoneCell(p); cell.Developed {
			target, found = p, true
			break
		}
	}
	require.True(t, found)

	before := len(s.Buildings())
	require.True(t, s.RemoveZone(target))

	assert.Len(t, s.Buildings(), before-1)
	cell, _ := s.GetZoneCell(target)
	assert.False(t, cell.Zoned())
	require.NoError(t, s.CheckInvariants())
}

// Two simulations with the same seed and the same operations must
// stay bit-identical, valve floats included.
func TestDeterministicReplay(t *testing.T) {
	t.Parallel()

	run := func() State {
		s := newTestSim(t, 42)
		buildDistrict(t, s)
		s.RunTicks(2000)
		return s.Export()
	}

	assert.Equal(t, run(), run())
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)
	zones := buildDistrict(t, s)
	s.RunTicks(200)

	snap := s.Snapshot()
	assert.Equal(t, s.Tick(), snap.Tick)
	assert.Equal(t, 64, snap.Width)
	assert.Equal(t, 64, snap.Height)
	require.Len(t, snap.Cells, 64*64)

	cv := snap.At(zones[0].X, zones[0].Y)
	assert.Equal(t, zone.CategoryResidential, cv.Category)
	assert.True(t, cv.Powered)
	assert.Equal(t, 300, snap.Capacity)

	// The snapshot is a copy: mutating it must not touch the city.
	snap.Cells[0].Road = true
	assert.False(t, s.HasRoad(world.Point{X: 0, Y: 0}))
}

func TestExportRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)
	buildDistrict(t, s)
	s.RunTicks(3000)
	require.NotEmpty(t, s.Buildings())
	st := s.Export()

	restored := newTestSim(t, 1)
	require.NoError(t, restored.Restore(st))

	assert.Equal(t, st, restored.Export())
	assert.Equal(t, s.Tick(), restored.Tick())
	assert.Equal(t, s.Population(), restored.Population())
	assert.Equal(t, s.Jobs(), restored.Jobs())
	require.NoError(t, restored.CheckInvariants())

	// The restored city keeps simulating.
	restored.RunTicks(100)
	require.NoError(t, restored.CheckInvariants())
}

func TestRestoreRejectsDimensionMismatch(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)
	st := s.Export()
	st.Width = 32

	other := newTestSim(t, 1)
	assert.Error(t, other.Restore(st))
}

func TestTickCadences(t *testing.T) {
	t.Parallel()

	s := newTestSim(t, 1)
	assert.Equal(t, uint64(5), s.infraCheckEvery, "0.5s at 0.1s ticks")
	assert.Equal(t, uint64(10), s.developEvery, "1s at 0.1s ticks")
	assert.Equal(t, uint64(100), s.recalcEvery, "10s at 0.1s ticks")

	s.RunTicks(7)
	assert.Equal(t, uint64(7), s.Tick())
	assert.InDelta(t, 0.7, s.Now(), 1e-9)
}
