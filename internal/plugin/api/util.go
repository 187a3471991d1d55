package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/lazyrc/internal/host"
)

// checkAction reads an action argument: a command name or a function.
func checkAction(L *lua.LState, ctx *Context, n int) host.Action {
	switch v := L.Get(n).(type) {
	case lua.LString:
		if v == "" {
			L.ArgError(n, "action cannot be empty")
		}
		return host.Action{Command: string(v)}
	case *lua.LFunction:
		if ctx.State == nil {
			L.ArgError(n, "function actions are not available")
		}
		return host.Action{Func: ctx.State.Func(v)}
	default:
		L.ArgError(n, "expected command name or function")
		return host.Action{}
	}
}

// getTableString reads an optional string field.
func getTableString(t *lua.LTable, key string) string {
	if t == nil {
		return ""
	}
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}
