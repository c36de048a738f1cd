package masking

import (
	"go.uber.org/zap"
)

// Registry holds the active recognizers in insertion order. Names are
// unique: adding a recognizer whose name is already present replaces the
// existing entry in place, so later layers can override built-ins without
// reordering earlier ones.
//
// A Registry is mutated only while the service is being built; afterwards
// it is read-only and safe for concurrent analysis calls.
type Registry struct {
	order  []string
	byName map[string]Recognizer
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byName: make(map[string]Recognizer),
		logger: logger,
	}
}

// Add registers a recognizer. A duplicate name replaces the previous
// instance in place.
func (r *Registry) Add(rec Recognizer) {
	name := rec.Name()
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, name)
	} else {
		r.logger.Debug("Replacing recognizer", zap.String("recognizer", name))
	}
	r.byName[name] = rec
}

// Remove deletes a recognizer by name and reports whether anything was
// removed. Removing an absent name is a no-op; callers log and move on,
// because the set of built-ins may change between releases.
func (r *Registry) Remove(name string) bool {
	if _, exists := r.byName[name]; !exists {
		return false
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the recognizer registered under name, if any.
func (r *Registry) Get(name string) (Recognizer, bool) {
	rec, ok := r.byName[name]
	return rec, ok
}

// List returns the recognizers in insertion order.
func (r *Registry) List() []Recognizer {
	out := make([]Recognizer, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered names in insertion order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered recognizers.
func (r *Registry) Len() int { return len(r.order) }
