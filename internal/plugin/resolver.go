package plugin

// visit marks used by the depth-first traversal.
const (
	unvisited = iota
	visiting
	visited
)

// Resolver orders extensions so that dependencies come before dependents.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver over reg.
func NewResolver(reg *Registry) *Resolver {
	return &Resolver{registry: reg}
}

// Resolve returns the extensions to activate for target: its not-yet-Active
// transitive dependencies in depth-first declaration order, followed by
// target itself. Active extensions are pruned, so an Active target yields
// an empty order. Each name appears at most once.
func (r *Resolver) Resolve(target string) ([]string, error) {
	w := r.newWalk(true)
	if err := w.visit(target, ""); err != nil {
		return nil, err
	}
	return w.order, nil
}

// ResolveAll checks the whole graph, ignoring lifecycle state. It returns
// the first missing dependency or cycle found, visiting extensions in
// registration order.
func (r *Resolver) ResolveAll() error {
	w := r.newWalk(false)
	for _, name := range r.registry.order {
		if err := w.visit(name, ""); err != nil {
			return err
		}
	}
	return nil
}

// walk is the state of one traversal.
type walk struct {
	registry    *Registry
	pruneActive bool
	marks       map[string]int
	path        []string
	order       []string
}

func (r *Resolver) newWalk(pruneActive bool) *walk {
	return &walk{
		registry:    r.registry,
		pruneActive: pruneActive,
		marks:       make(map[string]int),
	}
}

func (w *walk) visit(name, requiredBy string) error {
	ext, ok := w.registry.extensions[name]
	if !ok {
		return &NotFoundError{Name: name, RequiredBy: requiredBy}
	}
	if w.pruneActive && ext.state == StateActive {
		return nil
	}

	switch w.marks[name] {
	case visited:
		return nil
	case visiting:
		return &CyclicDependencyError{Cycle: w.cycleTo(name)}
	}

	w.marks[name] = visiting
	w.path = append(w.path, name)

	for _, dep := range ext.spec.Dependencies {
		if err := w.visit(dep, name); err != nil {
			return err
		}
	}

	w.path = w.path[:len(w.path)-1]
	w.marks[name] = visited
	w.order = append(w.order, name)
	return nil
}

// cycleTo returns the current path from the first occurrence of name,
// closed with name again.
func (w *walk) cycleTo(name string) []string {
	for i, n := range w.path {
		if n == name {
			cycle := append([]string(nil), w.path[i:]...)
			return append(cycle, name)
		}
	}
	return []string{name, name}
}
