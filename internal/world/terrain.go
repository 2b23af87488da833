package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// TerrainKind classifies a cell for buildability checks.
type TerrainKind uint8

const (
	TerrainFlat  TerrainKind = iota // Buildable
	TerrainWater                    // Below sea level, never buildable
	TerrainSteep                    // Slope too severe for construction
)

// TerrainName returns a human-readable name for a terrain kind.
func TerrainName(k TerrainKind) string {
	switch k {
	case TerrainFlat:
		return "flat"
	case TerrainWater:
		return "water"
	case TerrainSteep:
		return "steep"
	}
	return "unknown"
}

// TerrainConfig holds terrain generation parameters.
type TerrainConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Seed       int64   `yaml:"seed"`
	SeaLevel   float64 `yaml:"sea_level"`   // Elevation threshold for water (0.0-1.0)
	SlopeLimit float64 `yaml:"slope_limit"` // Max elevation delta to a 4-neighbor before a cell is steep
}

// DefaultTerrainConfig returns a reasonable starting configuration.
func DefaultTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Width:      128,
		Height:     128,
		Seed:       1,
		SeaLevel:   0.22,
		SlopeLimit: 0.14,
	}
}

// TerrainCell is one cell of the terrain layer.
type TerrainCell struct {
	Kind      TerrainKind `json:"kind"`
	Elevation float64     `json:"elevation"`  // 0.0 (sea level) to 1.0 (peak)
	NearWater bool        `json:"near_water"` // Adjacent to a water cell (soft bonus for development)
}

// Terrain is the immutable per-cell buildability layer, generated once
// at map initialization and deterministic from the seed.
type Terrain struct {
	grid *Grid[TerrainCell]
	cfg  TerrainConfig
}

// GenerateTerrain builds a terrain layer from layered simplex noise.
func GenerateTerrain(cfg TerrainConfig) (*Terrain, error) {
	grid, err := NewGrid[TerrainCell](cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	noise := opensimplex.NewNormalized(cfg.Seed)

	cx := float64(cfg.Width) / 2
	cy := float64(cfg.Height) / 2
	halfSpan := math.Max(cx, cy)

	grid.Each(func(p Point, cell *TerrainCell) {
		x := float64(p.X)
		y := float64(p.Y)

		elev := octaveNoise(noise, x, y, 4, 0.03, 0.5)

		// Continental shaping: fade elevation toward the map edge so
		// the playable area is ringed by water.
		dist := math.Sqrt((x-cx)*(x-cx)+(y-cy)*(y-cy)) / halfSpan
		falloff := 1.0 - math.Pow(dist, 3.5)
		if falloff < 0 {
			falloff = 0
		}
		cell.Elevation = elev * falloff
	})

	// Derive kinds once elevations are final: water by threshold, steep
	// by local gradient against edge neighbors.
	grid.Each(func(p Point, cell *TerrainCell) {
		if cell.Elevation < cfg.SeaLevel {
			cell.Kind = TerrainWater
			return
		}
		for _, n := range p.Neighbors4() {
			nc := grid.TryAt(n)
			if nc == nil {
				continue
			}
			if math.Abs(cell.Elevation-nc.Elevation) > cfg.SlopeLimit {
				cell.Kind = TerrainSteep
				return
			}
		}
		cell.Kind = TerrainFlat
	})

	// Post-pass: flag land cells adjacent to water.
	grid.Each(func(p Point, cell *TerrainCell) {
		if cell.Kind == TerrainWater {
			return
		}
		for _, n := range p.Neighbors8() {
			nc := grid.TryAt(n)
			if nc != nil && nc.Kind == TerrainWater {
				cell.NearWater = true
				return
			}
		}
	})

	return &Terrain{grid: grid, cfg: cfg}, nil
}

// FlatTerrain returns a uniform buildable terrain with no water.
// Intended for tests and benchmarks that need full control over
// buildability.
func FlatTerrain(width, height int) (*Terrain, error) {
	cfg := DefaultTerrainConfig()
	cfg.Width = width
	cfg.Height = height
	cfg.Seed = 0

	grid, err := NewGrid[TerrainCell](width, height)
	if err != nil {
		return nil, err
	}
	grid.Each(func(_ Point, cell *TerrainCell) {
		cell.Kind = TerrainFlat
		cell.Elevation = 0.5
	})
	return &Terrain{grid: grid, cfg: cfg}, nil
}

// Width returns the terrain width in cells.
func (t *Terrain) Width() int { return t.grid.Width() }

// Height returns the terrain height in cells.
func (t *Terrain) Height() int { return t.grid.Height() }

// Seed returns the generation seed, needed to regenerate the same
// terrain on restore.
func (t *Terrain) Seed() int64 { return t.cfg.Seed }

// At returns the terrain cell at p, or nil when out of bounds.
func (t *Terrain) At(p Point) *TerrainCell {
	return t.grid.TryAt(p)
}

// Buildable reports whether construction is legal at p.
func (t *Terrain) Buildable(p Point) bool {
	c := t.grid.TryAt(p)
	return c != nil && c.Kind == TerrainFlat
}

// NearWater reports whether p is a land cell bordering water.
func (t *Terrain) NearWater(p Point) bool {
	c := t.grid.TryAt(p)
	return c != nil && c.NearWater
}

// KindCounts tallies cells by terrain kind.
func (t *Terrain) KindCounts() map[TerrainKind]int {
	counts := make(map[TerrainKind]int)
	t.grid.Each(func(_ Point, cell *TerrainCell) {
		counts[cell.Kind]++
	})
	return counts
}

// octaveNoise samples multi-octave simplex noise normalized to [0, 1].
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	freq := frequency

	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}

	return total / maxValue
}
