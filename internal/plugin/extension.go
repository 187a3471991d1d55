package plugin

import (
	"time"

	"github.com/dshills/lazyrc/internal/trigger"
)

// SetupFunc initializes an extension. It runs at most once per process.
type SetupFunc func() error

// Spec is the static declaration of an extension.
type Spec struct {
	// Name uniquely identifies the extension.
	Name string

	// Triggers lazily activate the extension. An empty list means the
	// extension is activated at startup unless Lazy is set.
	Triggers []trigger.Trigger

	// Dependencies must be Active before Setup runs, in this order.
	Dependencies []string

	// Setup is called once after the dependencies are active. Nil is a no-op.
	Setup SetupFunc

	// Lazy keeps a trigger-less extension out of startup; it is then
	// activated only as a dependency or explicitly.
	Lazy bool
}

// IsEager returns true if the extension activates at startup.
func (s Spec) IsEager() bool {
	return len(s.Triggers) == 0 && !s.Lazy
}

// Extension is a registered Spec plus its mutable lifecycle state.
// State is only changed by the Engine.
type Extension struct {
	spec  Spec
	order int

	state     State
	err       error
	activated time.Time
}

// Name returns the extension name.
func (e *Extension) Name() string {
	return e.spec.Name
}

// Spec returns the declaration. Slices are shared; callers must not modify them.
func (e *Extension) Spec() Spec {
	return e.spec
}

// Order returns the registration position, starting at zero.
func (e *Extension) Order() int {
	return e.order
}

// State returns the current lifecycle state.
func (e *Extension) State() State {
	return e.state
}

// Err returns the error that failed the extension, if any.
func (e *Extension) Err() error {
	return e.err
}

// ActivatedAt returns when the extension became Active.
func (e *Extension) ActivatedAt() time.Time {
	return e.activated
}

// transition moves the extension to next. Illegal transitions are
// programming errors in the engine.
func (e *Extension) transition(next State) {
	if !e.state.CanTransition(next) {
		panic("plugin: illegal transition " + e.state.String() + " -> " + next.String() + " for " + e.spec.Name)
	}
	e.state = next
}
