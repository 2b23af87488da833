// Package event defines the closed set of simulation events and the
// subscriber bus that dispatches them. Payloads are concrete structs
// per kind; there are no loosely-typed maps on the wire.
package event

import (
	"github.com/talgya/gridtown/internal/entity"
	"github.com/talgya/gridtown/internal/world"
	"github.com/talgya/gridtown/internal/zone"
)

// Kind tags an event variant.
type Kind uint8

const (
	KindZonePlaced Kind = iota
	KindZoneRemoved
	KindRoadNetworkUpdated
	KindPowerGridUpdated
	KindBuildingDeveloped
	KindBuildingAbandoned
	KindDemandUpdated

	kindCount
)

// KindName returns a human-readable name for an event kind.
func KindName(k Kind) string {
	switch k {
	case KindZonePlaced:
		return "zone_placed"
	case KindZoneRemoved:
		return "zone_removed"
	case KindRoadNetworkUpdated:
		return "road_network_updated"
	case KindPowerGridUpdated:
		return "power_grid_updated"
	case KindBuildingDeveloped:
		return "building_developed"
	case KindBuildingAbandoned:
		return "building_abandoned"
	case KindDemandUpdated:
		return "demand_updated"
	}
	return "unknown"
}

// Event is implemented by every payload struct.
type Event interface {
	Kind() Kind
}

// ZonePlaced is emitted after a successful zone placement.
type ZonePlaced struct {
	Tick     uint64
	Pos      world.Point
	Category zone.Category
	Density  zone.Density
	Cost     int
}

// Kind implements Event.
func (ZonePlaced) Kind() Kind { return KindZonePlaced }

// ZoneRemoved is emitted after a zone assignment is cleared.
type ZoneRemoved struct {
	Tick uint64
	Pos  world.Point
}

// Kind implements Event.
func (ZoneRemoved) Kind() Kind { return KindZoneRemoved }

// RoadNetworkUpdated is emitted after any road placement or removal,
// once zone access flags have been refreshed.
type RoadNetworkUpdated struct {
	Tick  uint64
	Roads int // Total road cells
}

// Kind implements Event.
func (RoadNetworkUpdated) Kind() Kind { return KindRoadNetworkUpdated }

// PowerGridUpdated carries the freshly recomputed powered set.
type PowerGridUpdated struct {
	Tick     uint64
	Powered  map[world.Point]struct{}
	Capacity int
}

// Kind implements Event.
func (PowerGridUpdated) Kind() Kind { return KindPowerGridUpdated }

// BuildingDeveloped is emitted when a development roll succeeds.
type BuildingDeveloped struct {
	Tick       uint64
	Entity     entity.ID
	Pos        world.Point
	Category   zone.Category
	Density    zone.Density
	Population int
	Jobs       int
}

// Kind implements Event.
func (BuildingDeveloped) Kind() Kind { return KindBuildingDeveloped }

// BuildingAbandoned is emitted when a building's grace period expires
// and it is removed from the world.
type BuildingAbandoned struct {
	Tick     uint64
	Entity   entity.ID
	Pos      world.Point
	Category zone.Category
}

// Kind implements Event.
func (BuildingAbandoned) Kind() Kind { return KindBuildingAbandoned }

// DemandUpdated is emitted after each valve recalculation.
type DemandUpdated struct {
	Tick        uint64
	Residential float64 // Normalized [-1, 1] gauge values
	Commercial  float64
	Industrial  float64
}

// Kind implements Event.
func (DemandUpdated) Kind() Kind { return KindDemandUpdated }

// Handler receives dispatched events.
type Handler func(Event)

// Bus dispatches events synchronously to per-kind subscriber lists.
// It is owned by the simulation context and used only from the
// simulation goroutine.
type Bus struct {
	subscribers [kindCount][]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(k Kind, h Handler) {
	b.subscribers[k] = append(b.subscribers[k], h)
}

// Publish dispatches the event to every subscriber of its kind, in
// registration order.
func (b *Bus) Publish(e Event) {
	for _, h := range b.subscribers[e.Kind()] {
		h(e)
	}
}
