package converter

import (
	"github.com/shopmonkeyus/eds-sensors/internal/model"
)

// Registry holds the entities of a single conversion session along with the
// relationships discovered while walking that still need to be applied.
// A registry is never shared between sessions.
type Registry struct {
	entities model.EntityMap
	order    []string
	pending  []model.PendingRelationship
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(model.EntityMap),
	}
}

// Register adds the entity under name unless one is already registered. Returns true if added.
func (r *Registry) Register(name string, def *model.EntityDefinition) bool {
	if _, ok := r.entities[name]; ok {
		return false
	}
	r.entities[name] = def
	r.order = append(r.order, name)
	return true
}

// Exists returns true if an entity is registered under name.
func (r *Registry) Exists(name string) bool {
	_, ok := r.entities[name]
	return ok
}

// Get returns the entity registered under name or nil if not found.
func (r *Registry) Get(name string) *model.EntityDefinition {
	return r.entities[name]
}

// AddPending records a relationship to build after the walk.
func (r *Registry) AddPending(rel model.PendingRelationship) {
	r.pending = append(r.pending, rel)
}

// Pending returns the recorded relationships in the order they were found.
func (r *Registry) Pending() []model.PendingRelationship {
	return r.pending
}

// Order returns the entity names in registration order.
func (r *Registry) Order() []string {
	return r.order
}

// Entities returns the registered entities.
func (r *Registry) Entities() model.EntityMap {
	return r.entities
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	return len(r.entities)
}
