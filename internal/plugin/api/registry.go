package api

import (
	"fmt"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/lazyrc/internal/host"
	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
	"github.com/dshills/lazyrc/internal/trigger"
)

// Namespace is the global name and require() name of the API table.
const Namespace = "lazyrc"

// Version is reported as lazyrc.version.
const Version = "1.0.0"

// Module represents a group of API functions.
type Module interface {
	// Name returns the module name (e.g., "keymap", "lsp").
	Name() string

	// Register adds the module's functions to the namespace table.
	Register(L *lua.LState, ns *lua.LTable) error
}

// Emitter posts trigger messages for the activation loop.
type Emitter interface {
	Fire(t trigger.Trigger) error
	Bind(t trigger.Trigger, name string) error
}

// Context provides API modules with access to the editor.
type Context struct {
	// Host receives editor effects.
	Host host.Host

	// Emitter receives fire and bind requests. Nil disables on and fire.
	Emitter Emitter

	// State wraps Lua functions passed as actions.
	State *lualib.State

	// Leader expands <leader> in key notation.
	Leader string
}

// Registry manages API modules and their registration.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates a new API registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]Module),
	}
}

// Register adds a module to the registry.
func (r *Registry) Register(mod Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.Name()]; exists {
		return fmt.Errorf("module %q already registered", mod.Name())
	}

	r.modules[mod.Name()] = mod
	return nil
}

// Get returns a module by name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[name]
	return mod, ok
}

// List returns all registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install builds the namespace table from every module and makes it
// available as a global and through require.
func (r *Registry) Install(state *lualib.State) error {
	L := state.L
	ns := L.NewTable()

	for _, name := range r.List() {
		mod, _ := r.Get(name)
		if err := mod.Register(L, ns); err != nil {
			return fmt.Errorf("failed to register module %q: %w", name, err)
		}
	}

	L.SetField(ns, "version", lua.LString(Version))

	state.SetGlobal(Namespace, ns)
	state.Provide(Namespace, ns)
	return nil
}

// DefaultRegistry creates a registry with all standard modules registered.
func DefaultRegistry(ctx *Context) (*Registry, error) {
	r := NewRegistry()

	modules := []Module{
		NewConfigModule(ctx),
		NewKeymapModule(ctx),
		NewCommandModule(ctx),
		NewLSPModule(ctx),
		NewUIModule(ctx),
		NewEventModule(ctx),
	}

	for _, mod := range modules {
		if err := r.Register(mod); err != nil {
			return nil, fmt.Errorf("failed to register module %q: %w", mod.Name(), err)
		}
	}

	return r, nil
}

// Install creates the default registry for ctx and installs it into ctx.State.
func Install(ctx *Context) error {
	reg, err := DefaultRegistry(ctx)
	if err != nil {
		return err
	}
	return reg.Install(ctx.State)
}
