package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/lazyrc/internal/trigger"
)

// EventModule implements lazyrc.on and lazyrc.fire.
type EventModule struct {
	ctx *Context
}

// NewEventModule creates a new event module.
func NewEventModule(ctx *Context) *EventModule {
	return &EventModule{ctx: ctx}
}

// Name returns the module name.
func (m *EventModule) Name() string {
	return "event"
}

// Register registers the module into the namespace.
func (m *EventModule) Register(L *lua.LState, ns *lua.LTable) error {
	L.SetField(ns, "on", L.NewFunction(m.on))
	L.SetField(ns, "fire", L.NewFunction(m.fire))
	return nil
}

// on(trigger, extension) -> nil
// Binds a trigger ("cmd:Git", "ft:*.go", "key:n:<leader>g", "event:VimEnter")
// to an extension. The binding takes effect once the message is handled.
func (m *EventModule) on(L *lua.LState) int {
	t := m.checkTrigger(L, 1)
	name := L.CheckString(2)
	if name == "" {
		L.ArgError(2, "extension cannot be empty")
		return 0
	}

	if err := m.ctx.Emitter.Bind(t, name); err != nil {
		L.RaiseError("on: %v", err)
	}
	return 0
}

// fire(trigger) -> nil
// Fires a trigger after the current setup returns.
func (m *EventModule) fire(L *lua.LState) int {
	t := m.checkTrigger(L, 1)

	if err := m.ctx.Emitter.Fire(t); err != nil {
		L.RaiseError("fire: %v", err)
	}
	return 0
}

func (m *EventModule) checkTrigger(L *lua.LState, n int) trigger.Trigger {
	if m.ctx.Emitter == nil {
		L.RaiseError("triggers are not available")
	}
	t, err := trigger.Parse(L.CheckString(n), m.ctx.Leader)
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return t
}
