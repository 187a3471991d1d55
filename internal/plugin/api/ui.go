package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/lazyrc/internal/host"
)

// UIModule implements lazyrc.notify.
type UIModule struct {
	ctx *Context
}

// NewUIModule creates a new UI module.
func NewUIModule(ctx *Context) *UIModule {
	return &UIModule{ctx: ctx}
}

// Name returns the module name.
func (m *UIModule) Name() string {
	return "ui"
}

// Register registers the module into the namespace.
func (m *UIModule) Register(L *lua.LState, ns *lua.LTable) error {
	L.SetField(ns, "notify", L.NewFunction(m.notify))
	return nil
}

// notify(message, level?) -> nil
// level is one of "info", "warn", "error", "success"; unknown levels are info.
func (m *UIModule) notify(L *lua.LState) int {
	message := L.CheckString(1)
	level := host.ParseLevel(L.OptString(2, string(host.NotificationInfo)))

	if message == "" {
		L.ArgError(1, "message cannot be empty")
		return 0
	}

	if err := m.ctx.Host.Notify(message, level); err != nil {
		L.RaiseError("notify: %v", err)
	}
	return 0
}
