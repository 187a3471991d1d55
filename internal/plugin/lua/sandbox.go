package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// unsafeGlobals load code from disk or strings and can bypass the sandbox.
var unsafeGlobals = []string{
	"dofile",     // Load and execute file
	"loadfile",   // Load file as function
	"load",       // Load string as function
	"loadstring", // Load string as function (deprecated but may exist)
	"module",
	"collectgarbage",
}

// builtinModules can be required by name; they are already open as globals.
var builtinModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// installSandbox removes unsafe globals and installs a require that only
// resolves builtin libraries and modules registered through Provide.
func installSandbox(L *lua.LState, modules map[string]lua.LValue) {
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		if builtinModules[name] {
			L.Push(L.GetGlobal(name))
			return 1
		}
		if mod, ok := modules[name]; ok {
			L.Push(mod)
			return 1
		}

		// Reject unknown modules - do not allow arbitrary file loading.
		L.RaiseError("module %q is not available", name)
		return 0
	}))
}
