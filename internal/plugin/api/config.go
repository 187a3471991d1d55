package api

import (
	lua "github.com/yuin/gopher-lua"

	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
)

// ConfigModule implements lazyrc.opt.
type ConfigModule struct {
	ctx *Context
}

// NewConfigModule creates a new config module.
func NewConfigModule(ctx *Context) *ConfigModule {
	return &ConfigModule{ctx: ctx}
}

// Name returns the module name.
func (m *ConfigModule) Name() string {
	return "config"
}

// Register registers the module into the namespace.
func (m *ConfigModule) Register(L *lua.LState, ns *lua.LTable) error {
	L.SetField(ns, "opt", L.NewFunction(m.opt))
	return nil
}

// opt(name, value) -> nil
// Sets an editor option. Tables are passed to the host as lists or maps.
func (m *ConfigModule) opt(L *lua.LState) int {
	name := L.CheckString(1)
	value := L.CheckAny(2)

	if name == "" {
		L.ArgError(1, "option name cannot be empty")
		return 0
	}

	if err := m.ctx.Host.SetOption(name, lualib.ToGoValue(value)); err != nil {
		L.RaiseError("opt: %v", err)
	}
	return 0
}
