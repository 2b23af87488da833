// Package growth manages building development rolls and the
// functional-status lifecycle of existing buildings.
package growth

import (
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// Status is a building's position in the lifecycle state machine.
type Status uint8

const (
	StatusFunctional Status = iota
	StatusNonFunctional
	StatusAbandoned // Terminal; the building is removed on entry
)

// StatusName returns a human-readable name for a status.
func StatusName(s Status) string {
	switch s {
	case StatusFunctional:
		return "functional"
	case StatusNonFunctional:
		return "non_functional"
	case StatusAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Issues is the infrastructure-issue pair tracked per building.
type Issues struct {
	NoRoad  bool `json:"no_road"`
	NoPower bool `json:"no_power"`
}

// Any reports whether at least one issue is present.
func (i Issues) Any() bool {
	return i.NoRoad || i.NoPower
}

// Position is the entity component locating a building on the grid.
type Position struct {
	Pos world.Point `json:"pos"`
}

// Building is the entity component holding a developed lot's record.
// It is a value type copied in and out of the registry.
type Building struct {
	Pos        world.Point   `json:"pos"`
	Category   zone.Category `json:"category"`
	Density    zone.Density  `json:"density"`
	Population int           `json:"population"`
	Jobs       int           `json:"jobs"`
	Status     Status        `json:"status"`
	Issues     Issues        `json:"issues"`

	// LostAt is the simulation time (seconds) when infrastructure was
	// first detected missing; nil while the building is served.
	LostAt *float64 `json:"lost_at,omitempty"`

	// Contributing gates whether Population/Jobs count toward the
	// aggregates the demand engine reads.
	Contributing bool `json:"contributing"`
}
