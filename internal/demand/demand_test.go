package demand

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/gridtown/internal/config"
	"github.com/talgya/gridtown/internal/zone"
)

func newEngine() *Engine {
	return NewEngine(config.Default().Demand)
}

func TestRecalcEmptyCity(t *testing.T) {
	t.Parallel()

	e := newEngine()
	e.Recalc(0, 0, 0)

	// Residential reads the bootstrap ratio, industry reads its floored
	// projection; both go positive so an empty city attracts its first
	// buildings.
	assert.Positive(t, e.Valve(zone.CategoryResidential))
	assert.Positive(t, e.Valve(zone.CategoryIndustrial))

	// Commercial has no internal market yet.
	assert.Negative(t, e.Valve(zone.CategoryCommercial))
}

func TestRecalcJobSurplusPullsResidents(t *testing.T) {
	t.Parallel()

	e := newEngine()
	// Small population, many jobs: employment ratio above 1 projects
	// net migration in.
	e.Recalc(80, 60, 60)

	assert.Positive(t, e.Valve(zone.CategoryResidential))
}

func TestRecalcJobStarvationDropsResidential(t *testing.T) {
	t.Parallel()

	e := newEngine()
	// Large population, no jobs: employment ratio zero projects
	// migration out.
	for i := 0; i < 5; i++ {
		e.Recalc(8000, 0, 0)
	}

	assert.Negative(t, e.Valve(zone.CategoryResidential))
}

func TestRecalcReferenceTrace(t *testing.T) {
	t.Parallel()

	// City history covering the model's regimes in order: empty city
	// (bootstrap ratio, floored industry projection), jobless residents
	// (out-migration, capped projection signals), first employment
	// (labor base from the previous cycle's population), balanced
	// growth, and a large city. The expected valves are the hand-worked
	// trajectory under config.Default(); any change to the feedback
	// formula shifts them.
	steps := []struct {
		population, commercialJobs, industrialJobs int

		wantRes, wantCom, wantInd float64
	}{
		{0, 0, 0, 168, -612, 588},
		{80, 0, 0, -432, -24, 1176},
		{80, 8, 16, 156, -348.8378378378, 814},
		{200, 40, 40, 744, -907.6283783784, 277},
		{800, 100, 100, 1332, -1458.8175675676, -260},
	}

	e := newEngine()
	for i, step := range steps {
		e.Recalc(step.population, step.commercialJobs, step.industrialJobs)

		assert.InDelta(t, step.wantRes, e.Valve(zone.CategoryResidential), 1e-6,
			"residential valve after cycle %d", i+1)
		assert.InDelta(t, step.wantCom, e.Valve(zone.CategoryCommercial), 1e-6,
			"commercial valve after cycle %d", i+1)
		assert.InDelta(t, step.wantInd, e.Valve(zone.CategoryIndustrial), 1e-6,
			"industrial valve after cycle %d", i+1)
	}

	// Final targets: residential 1332/2000 of full demand split by
	// weights, medium tier open at population 800, high still gated;
	// the negative commercial and industrial valves project zero.
	assert.InDelta(t, 33.3, e.Target(zone.CategoryResidential, zone.DensityLow), 1e-6)
	assert.InDelta(t, 19.98, e.Target(zone.CategoryResidential, zone.DensityMedium), 1e-6)
	assert.Zero(t, e.Target(zone.CategoryResidential, zone.DensityHigh))
	for _, cat := range []zone.Category{zone.CategoryCommercial, zone.CategoryIndustrial} {
		for d := zone.DensityLow; d <= zone.DensityHigh; d++ {
			assert.Zero(t, e.Target(cat, d))
		}
	}
}

func TestValvesStayClamped(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Demand
	e := NewEngine(cfg)

	// Hammer the engine with extreme, alternating inputs; the valves
	// must never leave their configured ranges.
	inputs := []struct{ pop, com, ind int }{
		{0, 0, 0},
		{1_000_000, 0, 0},
		{0, 1_000_000, 1_000_000},
		{1, 500_000, 0},
		{500_000, 1, 1},
	}
	for cycle := 0; cycle < 50; cycle++ {
		in := inputs[cycle%len(inputs)]
		e.Recalc(in.pop, in.com, in.ind)

		assert.LessOrEqual(t, math.Abs(e.Valve(zone.CategoryResidential)), cfg.ResidentialValveRange)
		assert.LessOrEqual(t, math.Abs(e.Valve(zone.CategoryCommercial)), cfg.CommercialValveRange)
		assert.LessOrEqual(t, math.Abs(e.Valve(zone.CategoryIndustrial)), cfg.IndustrialValveRange)

		for _, cat := range []zone.Category{zone.CategoryResidential, zone.CategoryCommercial, zone.CategoryIndustrial} {
			for d := zone.DensityLow; d <= zone.DensityHigh; d++ {
				assert.GreaterOrEqual(t, e.Target(cat, d), 0.0, "demand never negative")
				assert.LessOrEqual(t, e.Target(cat, d), cfg.DemandMax)
			}
		}
	}
}

func TestDensityGates(t *testing.T) {
	t.Parallel()

	e := newEngine()

	t.Run("small city caps at low density", func(t *testing.T) {
		e.Recalc(100, 40, 40)
		assert.Zero(t, e.Target(zone.CategoryResidential, zone.DensityMedium))
		assert.Zero(t, e.Target(zone.CategoryResidential, zone.DensityHigh))
		assert.Zero(t, e.Target(zone.CategoryIndustrial, zone.DensityHigh), "high-tech gated")
	})

	t.Run("medium tier opens past the gate", func(t *testing.T) {
		e.Recalc(600, 300, 300)
		if e.Valve(zone.CategoryResidential) > 0 {
			assert.Positive(t, e.Target(zone.CategoryResidential, zone.DensityMedium))
		}
		assert.Zero(t, e.Target(zone.CategoryResidential, zone.DensityHigh))
	})
}

func TestNegativeValveYieldsZeroDemand(t *testing.T) {
	t.Parallel()

	e := newEngine()
	e.Restore(State{ResidentialValve: -1500, LastPopulation: 10_000})

	for d := zone.DensityLow; d <= zone.DensityHigh; d++ {
		assert.Zero(t, e.Demand(zone.CategoryResidential, d))
	}
}

func TestSmoothConvergesWithoutOvershoot(t *testing.T) {
	t.Parallel()

	e := newEngine()
	e.Restore(State{ResidentialValve: 2000})
	target := e.Target(zone.CategoryResidential, zone.DensityLow)
	require.Positive(t, target)

	// Restore snaps visible to target; reset visible to zero to watch
	// the approach.
	e.visible = [3][3]float64{}

	prev := 0.0
	for i := 0; i < 200; i++ {
		e.Smooth(0.1)
		cur := e.Demand(zone.CategoryResidential, zone.DensityLow)
		assert.GreaterOrEqual(t, cur, prev, "approach is monotone")
		assert.LessOrEqual(t, cur, target, "never overshoots")
		prev = cur
	}
	assert.InDelta(t, target, prev, target*0.15, "mostly converged after 20 sim-seconds")
}

func TestSmoothFactorCapped(t *testing.T) {
	t.Parallel()

	e := newEngine()
	e.Restore(State{ResidentialValve: 2000})
	e.visible = [3][3]float64{}

	// A huge dt snaps straight to the target instead of overshooting.
	e.Smooth(1000)
	assert.InDelta(t, e.Target(zone.CategoryResidential, zone.DensityLow),
		e.Demand(zone.CategoryResidential, zone.DensityLow), 1e-9)
}

func TestGaugeNormalized(t *testing.T) {
	t.Parallel()

	e := newEngine()
	e.Restore(State{ResidentialValve: 1000, CommercialValve: -750, IndustrialValve: 1500})

	assert.InDelta(t, 0.5, e.Gauge(zone.CategoryResidential), 1e-9)
	assert.InDelta(t, -0.5, e.Gauge(zone.CategoryCommercial), 1e-9)
	assert.InDelta(t, 1.0, e.Gauge(zone.CategoryIndustrial), 1e-9)
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	e := newEngine()
	e.Recalc(4000, 900, 700)
	e.Recalc(4100, 950, 750)
	st := e.State()

	restored := newEngine()
	restored.Restore(st)

	assert.Equal(t, st, restored.State())
	for _, cat := range []zone.Category{zone.CategoryResidential, zone.CategoryCommercial, zone.CategoryIndustrial} {
		for d := zone.DensityLow; d <= zone.DensityHigh; d++ {
			assert.Equal(t, e.Target(cat, d), restored.Target(cat, d))
			assert.Equal(t, restored.Target(cat, d), restored.Demand(cat, d),
				"restore snaps visible demand to target")
		}
	}
}

func TestRestoreClampsCorruptValves(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Demand
	e := NewEngine(cfg)
	e.Restore(State{ResidentialValve: 99999, CommercialValve: -99999})

	assert.Equal(t, cfg.ResidentialValveRange, e.Valve(zone.CategoryResidential))
	assert.Equal(t, -cfg.CommercialValveRange, e.Valve(zone.CategoryCommercial))
}

func TestCategoryNoneReadsZero(t *testing.T) {
	t.Parallel()

	e := newEngine()
	e.Restore(State{ResidentialValve: 2000})

	assert.Zero(t, e.Demand(zone.CategoryNone, zone.DensityLow))
	assert.Zero(t, e.Target(zone.CategoryNone, zone.DensityLow))
	assert.Zero(t, e.Valve(zone.CategoryNone))
	assert.Zero(t, e.Gauge(zone.CategoryNone))
}
