// Package demand implements the economic feedback model driving city
// growth. Three persistent "valve" scalars accumulate feedback across
// recalculation cycles; the bucketed demand the rest of the simulation
// reads is a deterministic projection of the valves.
package demand

import (
	"github.com/talgya/gridtown/internal/config"
	"github.com/talgya/gridtown/internal/zone"
)

// Engine holds the valve state and the derived demand surfaces.
type Engine struct {
	cfg config.DemandConfig

	// Valves persist for the whole session; they are clamped to their
	// symmetric ranges and never reset except at initialization.
	resValve float64
	comValve float64
	indValve float64

	// Previous-cycle inputs for the labor base.
	prevNormPopulation float64

	// Population at last recalculation, for density gates.
	lastPopulation int

	// target is recomputed each recalculation; visible is smoothed
	// toward it every tick. Indexed [category-1][density].
	target  [3][3]float64
	visible [3][3]float64
}

// NewEngine creates a demand engine with all valves at zero.
func NewEngine(cfg config.DemandConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Recalc runs one valve update cycle from aggregate totals. Only
// contributing buildings may be counted by the caller; buildings with
// lost infrastructure are excluded upstream.
func (e *Engine) Recalc(population, commercialJobs, industrialJobs int) {
	cfg := e.cfg

	norm := float64(population) / cfg.PopulationDivisor
	totalJobs := float64(commercialJobs + industrialJobs)

	employment := 1.0
	if norm > 0 {
		employment = totalJobs / norm
	}
	migration := norm * (employment - 1)
	births := norm * cfg.BirthRate
	projectedPop := norm + migration + births

	laborBase := 1.0
	if totalJobs > 0 {
		laborBase = e.prevNormPopulation / totalJobs
	}
	laborBase = clamp(laborBase, 0, cfg.LaborBaseMax)

	internalMarket := (norm + totalJobs) / cfg.InternalMarketDivisor
	projectedCom := internalMarket * laborBase
	projectedInd := float64(industrialJobs) * laborBase
	if projectedInd < cfg.MinProjectedIndustry {
		projectedInd = cfg.MinProjectedIndustry
	}

	// A zero actual makes the projection itself the signal: an empty
	// city wants its first buildings regardless of ratios. Residential
	// needs a fixed bootstrap ratio instead, because its projection is
	// proportional to the (zero) population.
	resRatio := ratioOrSignal(projectedPop, norm, cfg.RatioCap)
	if norm == 0 {
		resRatio = cfg.BootstrapRatio
	}
	comRatio := ratioOrSignal(projectedCom, float64(commercialJobs), cfg.RatioCap)
	indRatio := ratioOrSignal(projectedInd, float64(industrialJobs), cfg.RatioCap)

	e.resValve = clamp(e.resValve+(resRatio-1)*cfg.ValveScale+cfg.TaxEffect,
		-cfg.ResidentialValveRange, cfg.ResidentialValveRange)
	e.comValve = clamp(e.comValve+(comRatio-1)*cfg.ValveScale+cfg.TaxEffect,
		-cfg.CommercialValveRange, cfg.CommercialValveRange)
	e.indValve = clamp(e.indValve+(indRatio-1)*cfg.ValveScale+cfg.TaxEffect,
		-cfg.IndustrialValveRange, cfg.IndustrialValveRange)

	e.prevNormPopulation = norm
	e.lastPopulation = population
	e.recalcTargets()
}

// recalcTargets projects the valves onto the bucketed target demand.
// Negative valves contribute zero demand; demand never goes negative
// even though valves can.
func (e *Engine) recalcTargets() {
	cfg := e.cfg

	categoryDemand := func(valve, valveRange float64) float64 {
		if valve <= 0 {
			return 0
		}
		return valve / valveRange * cfg.DemandMax
	}

	res := categoryDemand(e.resValve, cfg.ResidentialValveRange)
	com := categoryDemand(e.comValve, cfg.CommercialValveRange)
	ind := categoryDemand(e.indValve, cfg.IndustrialValveRange)

	split := func(total float64, weights [3]float64, gates [3]int) [3]float64 {
		var out [3]float64
		for i := range weights {
			if e.lastPopulation < gates[i] {
				continue // tier stays at zero until the city is large enough
			}
			out[i] = total * weights[i]
		}
		return out
	}

	e.target[zone.CategoryResidential-1] = split(res, cfg.ResidentialWeights,
		[3]int{0, cfg.MediumDensityGate, cfg.HighDensityGate})
	e.target[zone.CategoryCommercial-1] = split(com, cfg.CommercialWeights,
		[3]int{0, cfg.MediumDensityGate, cfg.HighDensityGate})
	e.target[zone.CategoryIndustrial-1] = split(ind, cfg.IndustrialWeights,
		[3]int{0, 0, cfg.HighTechGate})
}

// Smooth exponentially interpolates the visible demand toward the
// target: SmoothingRate of the remaining gap per simulated second.
func (e *Engine) Smooth(dtSeconds float64) {
	factor := e.cfg.SmoothingRate * dtSeconds
	if factor > 1 {
		factor = 1
	}
	for c := range e.visible {
		for d := range e.visible[c] {
			e.visible[c][d] += (e.target[c][d] - e.visible[c][d]) * factor
		}
	}
}

// Demand returns the current smoothed demand for a bucket.
func (e *Engine) Demand(cat zone.Category, dens zone.Density) float64 {
	if cat == zone.CategoryNone {
		return 0
	}
	return e.visible[cat-1][dens]
}

// Target returns the unsmoothed target demand for a bucket.
func (e *Engine) Target(cat zone.Category, dens zone.Density) float64 {
	if cat == zone.CategoryNone {
		return 0
	}
	return e.target[cat-1][dens]
}

// Valve returns the raw valve value for a category.
func (e *Engine) Valve(cat zone.Category) float64 {
	switch cat {
	case zone.CategoryResidential:
		return e.resValve
	case zone.CategoryCommercial:
		return e.comValve
	case zone.CategoryIndustrial:
		return e.indValve
	}
	return 0
}

// Gauge returns the normalized [-1, 1] signal for a category,
// independent of the bucketed demand. Intended for UI gauges.
func (e *Engine) Gauge(cat zone.Category) float64 {
	switch cat {
	case zone.CategoryResidential:
		return e.resValve / e.cfg.ResidentialValveRange
	case zone.CategoryCommercial:
		return e.comValve / e.cfg.CommercialValveRange
	case zone.CategoryIndustrial:
		return e.indValve / e.cfg.IndustrialValveRange
	}
	return 0
}

// State is the persistent portion of the engine, for snapshots.
type State struct {
	ResidentialValve   float64 `json:"residential_valve"`
	CommercialValve    float64 `json:"commercial_valve"`
	IndustrialValve    float64 `json:"industrial_valve"`
	PrevNormPopulation float64 `json:"prev_norm_population"`
	LastPopulation     int     `json:"last_population"`
}

// State captures the persistent engine state.
func (e *Engine) State() State {
	return State{
		ResidentialValve:   e.resValve,
		CommercialValve:    e.comValve,
		IndustrialValve:    e.indValve,
		PrevNormPopulation: e.prevNormPopulation,
		LastPopulation:     e.lastPopulation,
	}
}

// Restore reinstates persisted state, rebuilds the targets, and snaps
// the visible demand to them.
func (e *Engine) Restore(s State) {
	e.resValve = clamp(s.ResidentialValve, -e.cfg.ResidentialValveRange, e.cfg.ResidentialValveRange)
	e.comValve = clamp(s.CommercialValve, -e.cfg.CommercialValveRange, e.cfg.CommercialValveRange)
	e.indValve = clamp(s.IndustrialValve, -e.cfg.IndustrialValveRange, e.cfg.IndustrialValveRange)
	e.prevNormPopulation = s.PrevNormPopulation
	e.lastPopulation = s.LastPopulation
	e.recalcTargets()
	e.visible = e.target
}

func ratioOrSignal(projected, actual, limit float64) float64 {
	r := projected
	if actual > 0 {
		r = projected / actual
	}
	if r > limit {
		r = limit
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
