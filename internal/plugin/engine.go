package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/lazyrc/internal/trigger"
)

// Installer makes an extension's code available before its setup runs.
// It must be callable repeatedly; calls after a success are no-ops.
type Installer interface {
	EnsureInstalled(ctx context.Context, name string) error
}

// InstallerFunc adapts a function to the Installer interface.
type InstallerFunc func(ctx context.Context, name string) error

// EnsureInstalled calls f.
func (f InstallerFunc) EnsureInstalled(ctx context.Context, name string) error {
	return f(ctx, name)
}

// NopInstaller treats every extension as already installed.
var NopInstaller Installer = InstallerFunc(func(context.Context, string) error { return nil })

// EventHandler handles engine events.
// Handlers run synchronously on the activation path and must not block.
// Panics in handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents an engine event.
type ManagerEvent struct {
	Type      ManagerEventType
	Extension string
	Trigger   trigger.Trigger
	Err       error
	// Duration is the time since activation started, for Activated and Failed.
	Duration time.Duration
}

// ManagerEventType is the type of engine event.
type ManagerEventType int

const (
	// EventInstalling is emitted when an extension enters StateInstalling.
	EventInstalling ManagerEventType = iota
	// EventSettingUp is emitted when an extension enters StateSettingUp.
	EventSettingUp
	// EventActivated is emitted when an extension becomes Active.
	EventActivated
	// EventFailed is emitted when an extension becomes Failed.
	EventFailed
	// EventTriggerFired is emitted for every trigger passed to Fire.
	EventTriggerFired
	// EventTriggerBound is emitted when a binding is added at runtime.
	EventTriggerBound
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventInstalling:
		return "installing"
	case EventSettingUp:
		return "setting-up"
	case EventActivated:
		return "activated"
	case EventFailed:
		return "failed"
	case EventTriggerFired:
		return "trigger-fired"
	case EventTriggerBound:
		return "trigger-bound"
	default:
		return "unknown"
	}
}

// Engine activates extensions on demand.
//
// Engine is single-threaded: Activate, Fire, Startup and Bind must be
// called from one goroutine (the event loop), and each call runs to
// completion before the next. Only Subscribe is safe for concurrent use.
type Engine struct {
	registry  *Registry
	resolver  *Resolver
	index     *trigger.Index
	installer Installer
	logger    zerolog.Logger

	// stack holds the extensions currently activating, outermost first.
	stack   []string
	started bool

	handlersMu sync.RWMutex
	handlers   []EventHandler
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithInstaller sets the installer consulted before setup.
func WithInstaller(installer Installer) EngineOption {
	return func(e *Engine) {
		if installer != nil {
			e.installer = installer
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithIndex supplies the trigger index to populate.
func WithIndex(index *trigger.Index) EngineOption {
	return func(e *Engine) {
		if index != nil {
			e.index = index
		}
	}
}

// WithEventHandler subscribes a handler before any event is emitted.
func WithEventHandler(handler EventHandler) EngineOption {
	return func(e *Engine) {
		if handler != nil {
			e.handlers = append(e.handlers, handler)
		}
	}
}

// NewEngine creates an engine over a sealed registry and indexes every
// declared trigger.
func NewEngine(reg *Registry, opts ...EngineOption) (*Engine, error) {
	if !reg.Sealed() {
		return nil, ErrNotSealed
	}

	e := &Engine{
		registry:  reg,
		resolver:  NewResolver(reg),
		index:     trigger.NewIndex(),
		installer: NopInstaller,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, ext := range reg.All() {
		for _, t := range ext.spec.Triggers {
			if err := e.index.Add(t, ext.Name(), ext.order); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidExtension, ext.Name(), err)
			}
		}
	}

	return e, nil
}

// Registry returns the registry the engine activates from.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Index returns the trigger index.
func (e *Engine) Index() *trigger.Index {
	return e.index
}

// Resolver returns the dependency resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// State returns the lifecycle state of an extension.
func (e *Engine) State(name string) (State, error) {
	ext, err := e.registry.Get(name)
	if err != nil {
		return StateRegistered, err
	}
	return ext.state, nil
}

// Err returns the error that moved an extension to StateFailed, or nil.
func (e *Engine) Err(name string) error {
	ext, err := e.registry.Get(name)
	if err != nil {
		return err
	}
	return ext.err
}

// Startup activates every eager extension once, in registration order.
// Failures are isolated: each is logged and the remaining extensions still
// activate. The joined failures are returned.
func (e *Engine) Startup(ctx context.Context) error {
	if e.started {
		return ErrAlreadyStarted
	}
	e.started = true

	var errs []error
	for _, ext := range e.registry.Eager() {
		if err := e.Activate(ctx, ext.Name()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fire activates every extension bound to t, independently and in
// registration order. One failure never prevents its siblings from
// activating; all failures are joined.
func (e *Engine) Fire(ctx context.Context, t trigger.Trigger) error {
	names := e.index.Lookup(t)
	e.logger.Debug().Str("trigger", t.String()).Strs("extensions", names).Msg("trigger fired")
	e.emitEvent(ManagerEvent{Type: EventTriggerFired, Trigger: t})

	var errs []error
	for _, name := range names {
		if err := e.Activate(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Bind adds a trigger binding for an extension at runtime.
func (e *Engine) Bind(t trigger.Trigger, name string) error {
	ext, err := e.registry.Get(name)
	if err != nil {
		return err
	}
	if err := e.index.Add(t, name, ext.order); err != nil {
		return err
	}
	e.logger.Debug().Str("extension", name).Str("trigger", t.String()).Msg("trigger bound")
	e.emitEvent(ManagerEvent{Type: EventTriggerBound, Extension: name, Trigger: t})
	return nil
}

// Activate installs, resolves dependencies for, and sets up an extension.
//
// Activate is idempotent: an Active extension returns nil immediately.
// An extension that already failed returns a *FailedError without side
// effects. Install failures return *InstallError, setup failures or
// panics return *SetupError, and dependency failures fail this extension
// too, wrapping the dependency's error.
func (e *Engine) Activate(ctx context.Context, name string) error {
	ext, err := e.registry.Get(name)
	if err != nil {
		return err
	}

	switch ext.state {
	case StateActive:
		return nil
	case StateFailed:
		return &FailedError{Name: name, Cause: ext.err}
	case StateInstalling, StateSettingUp:
		return &CyclicDependencyError{Cycle: e.cycleTo(name)}
	}

	e.stack = append(e.stack, name)
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	start := time.Now()
	log := e.logger.With().Str("extension", name).Logger()

	ext.transition(StateInstalling)
	e.emitEvent(ManagerEvent{Type: EventInstalling, Extension: name})
	if err := e.installer.EnsureInstalled(ctx, name); err != nil {
		return e.fail(ext, &InstallError{Name: name, Err: err}, start)
	}

	order, err := e.resolver.Resolve(name)
	if err != nil {
		return e.fail(ext, err, start)
	}
	for _, dep := range order {
		if dep == name {
			continue
		}
		log.Debug().Str("dependency", dep).Msg("activating dependency")
		if err := e.Activate(ctx, dep); err != nil {
			return e.fail(ext, fmt.Errorf("dependency %q of %q: %w", dep, name, err), start)
		}
	}

	ext.transition(StateSettingUp)
	e.emitEvent(ManagerEvent{Type: EventSettingUp, Extension: name})
	if err := runSetup(ext.spec.Setup); err != nil {
		return e.fail(ext, &SetupError{Name: name, Err: err}, start)
	}

	ext.transition(StateActive)
	ext.activated = time.Now()
	duration := time.Since(start)
	log.Info().Dur("duration", duration).Msg("extension activated")
	e.emitEvent(ManagerEvent{Type: EventActivated, Extension: name, Duration: duration})
	return nil
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (e *Engine) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	e.handlersMu.Lock()
	e.handlers = append(e.handlers, handler)
	index := len(e.handlers) - 1
	e.handlersMu.Unlock()

	return func() {
		e.handlersMu.Lock()
		defer e.handlersMu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(e.handlers) {
			e.handlers[index] = nil
		}
	}
}

// fail records err on ext and moves it to StateFailed.
func (e *Engine) fail(ext *Extension, err error, start time.Time) error {
	ext.err = err
	ext.transition(StateFailed)
	duration := time.Since(start)
	e.logger.Error().Str("extension", ext.Name()).Dur("duration", duration).Err(err).Msg("extension failed")
	e.emitEvent(ManagerEvent{Type: EventFailed, Extension: ext.Name(), Err: err, Duration: duration})
	return err
}

// cycleTo returns the activation stack from name, closed with name.
func (e *Engine) cycleTo(name string) []string {
	for i, n := range e.stack {
		if n == name {
			return append(append([]string(nil), e.stack[i:]...), name)
		}
	}
	return []string{name, name}
}

// runSetup calls setup, converting a panic into an error.
func runSetup(setup SetupFunc) (err error) {
	if setup == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return setup()
}

// emitEvent sends an event to all handlers with panic recovery.
func (e *Engine) emitEvent(event ManagerEvent) {
	e.handlersMu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.handlersMu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				recover() // Ignore panics from handlers
			}()
			handler(event)
		}()
	}
}
