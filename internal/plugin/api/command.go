package api

import (
	lua "github.com/yuin/gopher-lua"
)

// CommandModule implements lazyrc.command.
type CommandModule struct {
	ctx *Context
}

// NewCommandModule creates a new command module.
func NewCommandModule(ctx *Context) *CommandModule {
	return &CommandModule{ctx: ctx}
}

// Name returns the module name.
func (m *CommandModule) Name() string {
	return "command"
}

// Register registers the module into the namespace.
func (m *CommandModule) Register(L *lua.LState, ns *lua.LTable) error {
	L.SetField(ns, "command", L.NewFunction(m.register))
	return nil
}

// command(name, action, opts?) -> nil
// Registers a command. opts can include: desc.
func (m *CommandModule) register(L *lua.LState) int {
	name := L.CheckString(1)
	if name == "" {
		L.ArgError(1, "command name cannot be empty")
		return 0
	}
	action := checkAction(L, m.ctx, 2)
	action.Desc = getTableString(L.OptTable(3, nil), "desc")

	if err := m.ctx.Host.RegisterCommand(name, action); err != nil {
		L.RaiseError("command: %v", err)
	}
	return 0
}
