// Package entity provides the component registry backing all tracked
// simulation objects (buildings, power plants).
package entity

import (
	"fmt"
	"reflect"
	"slices"
)

// ID is a unique identifier for an entity. Zero is never a valid ID.
type ID uint64

// Registry stores entities and their typed component records.
// It is single-owner state of the simulation goroutine; no locking.
type Registry struct {
	nextID       ID
	entities     map[ID]map[reflect.Type]any
	byType       map[reflect.Type]map[ID]struct{}
	destroyQueue []ID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nextID:   1,
		entities: make(map[ID]map[reflect.Type]any),
		byType:   make(map[reflect.Type]map[ID]struct{}),
	}
}

// Create allocates a new entity with no components.
func (r *Registry) Create() ID {
	id := r.nextID
	r.nextID++
	r.entities[id] = make(map[reflect.Type]any)
	return id
}

// Exists reports whether the entity is currently alive.
func (r *Registry) Exists(id ID) bool {
	_, ok := r.entities[id]
	return ok
}

// Destroy queues an entity for removal. The entity stays visible to
// queries until Flush runs at end of tick, so systems iterating this
// tick never observe a partial deletion.
func (r *Registry) Destroy(id ID) {
	if !r.Exists(id) {
		return
	}
	r.destroyQueue = append(r.destroyQueue, id)
}

// Flush applies all queued destructions. Called once per tick after
// every system has run.
func (r *Registry) Flush() int {
	n := 0
	for _, id := range r.destroyQueue {
		components, ok := r.entities[id]
		if !ok {
			continue // already removed (queued twice)
		}
		for t := range components {
			delete(r.byType[t], id)
		}
		delete(r.entities, id)
		n++
	}
	r.destroyQueue = r.destroyQueue[:0]
	return n
}

// Add attaches a component record to an entity, replacing any existing
// record of the same type. Adding to a nonexistent entity is a
// collaborator bug and panics.
func (r *Registry) Add(id ID, component any) {
	components, ok := r.entities[id]
	if !ok {
		panic(fmt.Sprintf("entity: add component %T to nonexistent entity %d", component, id))
	}
	t := reflect.TypeOf(component)
	components[t] = component
	idx, ok := r.byType[t]
	if !ok {
		idx = make(map[ID]struct{})
		r.byType[t] = idx
	}
	idx[id] = struct{}{}
}

// Remove detaches a component record by type. No-op if absent.
func (r *Registry) Remove(id ID, componentType reflect.Type) {
	if components, ok := r.entities[id]; ok {
		delete(components, componentType)
		delete(r.byType[componentType], id)
	}
}

// Has reports whether the entity holds a component of the given type.
func (r *Registry) Has(id ID, componentType reflect.Type) bool {
	components, ok := r.entities[id]
	if !ok {
		return false
	}
	_, ok = components[componentType]
	return ok
}

// Query returns all entities holding every listed component type.
// It walks the smallest type index and membership-checks the rest,
// which keeps the scan cheap when indices are skewed in size.
func (r *Registry) Query(types ...reflect.Type) []ID {
	if len(types) == 0 {
		return nil
	}

	smallest := r.byType[types[0]]
	for _, t := range types[1:] {
		idx := r.byType[t]
		if len(idx) < len(smallest) {
			smallest = idx
		}
	}
	if len(smallest) == 0 {
		return nil
	}

	result := make([]ID, 0, len(smallest))
	for id := range smallest {
		hasAll := true
		for _, t := range types {
			if !r.Has(id, t) {
				hasAll = false
				break
			}
		}
		if hasAll {
			result = append(result, id)
		}
	}
	// Map iteration order is random; sorted output keeps stochastic
	// systems reproducible under a fixed seed.
	slices.Sort(result)
	return result
}

// Count returns the number of live entities, including those queued
// for destruction but not yet flushed.
func (r *Registry) Count() int {
	return len(r.entities)
}

// Get retrieves a component record by its Go type. The second return
// is false when the entity is missing or holds no such component.
func Get[T any](r *Registry, id ID) (T, bool) {
	var zero T
	components, ok := r.entities[id]
	if !ok {
		return zero, false
	}
	c, ok := components[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}
	return c.(T), true
}

// TypeOf returns the reflect.Type for a component type parameter,
// for use with Query and Has.
func TypeOf[T any]() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}
