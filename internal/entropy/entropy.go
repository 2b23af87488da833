// Package entropy provides the random source for stochastic simulation
// events. The source is explicitly seeded and threaded through the
// systems that roll dice, so scenario runs are reproducible.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
)

// Source produces the random draws used by development and abandonment
// rolls. Implementations must be safe for single-threaded simulation
// use only.
type Source interface {
	// Float returns a uniform float64 in [0, 1).
	Float() float64
}

// Seeded is a deterministic Source backed by a seeded PCG generator.
type Seeded struct {
	rng *mathrand.Rand
}

// NewSeeded creates a deterministic source. A zero seed is replaced
// with a crypto-random one, for runs where reproducibility is not
// required.
func NewSeeded(seed int64) *Seeded {
	if seed == 0 {
		seed = cryptoSeed()
	}
	return &Seeded{rng: mathrand.New(mathrand.NewPCG(uint64(seed), uint64(seed)))}
}

// Float returns a uniform float64 in [0, 1).
func (s *Seeded) Float() float64 {
	return s.rng.Float64()
}

// Roll returns true with probability p.
func Roll(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float() < p
}

func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Should never happen; fall back to a fixed seed.
		return 1
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
