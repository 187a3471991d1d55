package plugin

import (
	"fmt"
	"strings"
)

// Registry holds the static declarations of all extensions.
//
// The registry is populated once at startup and then sealed. Register is
// not safe for concurrent use; after Seal the registry is read-only and
// reads take no lock.
type Registry struct {
	extensions map[string]*Extension
	order      []string
	sealed     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extensions: make(map[string]*Extension),
		order:      make([]string, 0),
	}
}

// Register adds an extension declaration.
// Returns a *DuplicateNameError if the name is already registered.
func (r *Registry) Register(spec Spec) error {
	if r.sealed {
		return fmt.Errorf("register %q: %w", spec.Name, ErrSealed)
	}
	if strings.TrimSpace(spec.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidExtension)
	}
	if _, exists := r.extensions[spec.Name]; exists {
		return &DuplicateNameError{Name: spec.Name}
	}
	for _, t := range spec.Triggers {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidExtension, spec.Name, err)
		}
	}
	for _, dep := range spec.Dependencies {
		if dep == spec.Name {
			return &CyclicDependencyError{Cycle: []string{dep, dep}}
		}
	}

	r.extensions[spec.Name] = &Extension{
		spec:  spec,
		order: len(r.order),
		state: StateRegistered,
	}
	r.order = append(r.order, spec.Name)
	return nil
}

// Seal validates the dependency graph and freezes the registry.
// Every dependency must name a registered extension and the graph must be
// acyclic.
func (r *Registry) Seal() error {
	if r.sealed {
		return nil
	}
	for _, name := range r.order {
		for _, dep := range r.extensions[name].spec.Dependencies {
			if _, ok := r.extensions[dep]; !ok {
				return &NotFoundError{Name: dep, RequiredBy: name}
			}
		}
	}
	if err := NewResolver(r).ResolveAll(); err != nil {
		return err
	}
	r.sealed = true
	return nil
}

// Sealed returns true once Seal succeeded.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Get returns an extension by name.
func (r *Registry) Get(name string) (*Extension, error) {
	ext, ok := r.extensions[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return ext, nil
}

// Has returns true if name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.extensions[name]
	return ok
}

// All returns all extensions in registration order.
func (r *Registry) All() []*Extension {
	result := make([]*Extension, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.extensions[name])
	}
	return result
}

// Eager returns the extensions activated at startup, in registration order.
func (r *Registry) Eager() []*Extension {
	result := make([]*Extension, 0)
	for _, name := range r.order {
		if ext := r.extensions[name]; ext.spec.IsEager() {
			result = append(result, ext)
		}
	}
	return result
}

// Names returns all extension names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered extensions.
func (r *Registry) Len() int {
	return len(r.order)
}
