// Package handlers is the registry of compiled Go operator handlers. Catalog
// declarations (from HCL or built directly) name a handler; this registry is
// where the named Go side lives. The split keeps the declarative surface and
// the executable surface independently testable.
package handlers

import (
	"fmt"
	"log/slog"

	"github.com/vk/rosettago/internal/catalog"
)

// Registry holds all registered operator handlers, keyed by handler name.
type Registry struct {
	all map[string]catalog.Handler
}

// New creates an empty handler registry.
func New() *Registry {
	return &Registry{all: make(map[string]catalog.Handler)}
}

// Register adds a named handler. Registering the same name twice is a
// programming error in a module, so it panics like the underlying intent: a
// broken build, not a runtime condition.
func (r *Registry) Register(name string, h catalog.Handler) {
	if _, exists := r.all[name]; exists {
		panic(fmt.Sprintf("operator handler %q already registered", name))
	}
	slog.Debug("Registering operator handler.", "name", name)
	r.all[name] = h
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (catalog.Handler, bool) {
	h, ok := r.all[name]
	return h, ok
}

// Names returns all registered handler names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.all))
	for name := range r.all {
		names = append(names, name)
	}
	return names
}

// Module is the interface operator module packages implement to plug their
// handlers into an application instance.
type Module interface {
	Register(r *Registry)
}
