// Package lua runs extension manifests and setup callbacks in a sandboxed
// gopher-lua state.
//
// A single State lives for the whole process. Manifests are evaluated in
// it once at load time; the functions they return (setup callbacks, key
// mapping actions) are kept and called later through Func, which turns a
// Lua function into a protected Go func() error:
//
//	state, _ := lua.NewState(lua.WithExecutionTimeout(2 * time.Second))
//	defer state.Close()
//	v, err := state.Eval(ctx, "init.lua")   // value returned by the chunk
//	setup := state.Func(fn)                 // func() error
//
// The sandbox opens only the base, table, string and math libraries,
// removes file loading (dofile, loadfile, load, loadstring) and replaces
// require with a lookup over modules registered through Provide.
//
// State is not safe for concurrent use by Lua code; the mutex only
// serializes Go callers.
package lua
