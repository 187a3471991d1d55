package lua

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func newState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	state, err := NewState(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = state.Close() })
	return state
}

func TestStateEvalString(t *testing.T) {
	state := newState(t)

	v, err := state.EvalString(context.Background(), `return 1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, glua.LNumber(2), v)

	v, err = state.EvalString(context.Background(), `x = 3`)
	require.NoError(t, err)
	assert.Equal(t, glua.LNil, v)
	assert.Equal(t, glua.LNumber(3), state.GetGlobal("x"))
}

func TestStateEvalFile(t *testing.T) {
	state := newState(t)
	path := filepath.Join(t.TempDir(), "init.lua")
	require.NoError(t, os.WriteFile(path, []byte(`return { name = "theme" }`), 0o644))

	v, err := state.Eval(context.Background(), path)
	require.NoError(t, err)
	tbl, ok := v.(*glua.LTable)
	require.True(t, ok)
	name, _ := GetTableString(tbl, "name")
	assert.Equal(t, "theme", name)

	_, err = state.Eval(context.Background(), filepath.Join(t.TempDir(), "missing.lua"))
	assert.Error(t, err)
}

func TestStateSyntaxAndRuntimeErrors(t *testing.T) {
	state := newState(t)
	_, err := state.EvalString(context.Background(), `invalid lua code !!!`)
	assert.Error(t, err)

	_, err = state.EvalString(context.Background(), `error("boom")`)
	assert.ErrorContains(t, err, "boom")

	// The state stays usable after an error.
	v, err := state.EvalString(context.Background(), `return "ok"`)
	require.NoError(t, err)
	assert.Equal(t, glua.LString("ok"), v)
}

func TestStateSandbox(t *testing.T) {
	state := newState(t)
	for _, global := range []string{"dofile", "loadfile", "load", "loadstring", "io", "os", "debug"} {
		assert.Equal(t, glua.LNil, state.GetGlobal(global), global)
	}

	_, err := state.EvalString(context.Background(), `require("os")`)
	assert.ErrorContains(t, err, "not available")

	v, err := state.EvalString(context.Background(), `return require("string").upper("x")`)
	require.NoError(t, err)
	assert.Equal(t, glua.LString("X"), v)
}

func TestStateProvide(t *testing.T) {
	state := newState(t)
	mod := state.L.NewTable()
	mod.RawSetString("version", glua.LString("1"))
	state.Provide("lazyrc", mod)

	v, err := state.EvalString(context.Background(), `return require("lazyrc").version`)
	require.NoError(t, err)
	assert.Equal(t, glua.LString("1"), v)
}

func TestStateTimeout(t *testing.T) {
	state := newState(t, WithExecutionTimeout(20*time.Millisecond))
	_, err := state.EvalString(context.Background(), `while true do end`)
	assert.ErrorIs(t, err, ErrExecutionTimeout)
}

func TestStateFunc(t *testing.T) {
	state := newState(t)
	v, err := state.EvalString(context.Background(), `
		calls = 0
		return {
			ok = function() calls = calls + 1 end,
			fails = function() error("setup broke") end,
			soft = function() return nil, "not configured" end,
			fine = function() return true end,
		}
	`)
	require.NoError(t, err)
	tbl := v.(*glua.LTable)

	get := func(name string) func() error {
		fn, ok := GetTableFunc(tbl, name)
		require.True(t, ok, name)
		return state.Func(fn)
	}

	require.NoError(t, get("ok")())
	require.NoError(t, get("ok")())
	assert.Equal(t, glua.LNumber(2), state.GetGlobal("calls"))
	assert.ErrorContains(t, get("fails")(), "setup broke")
	assert.EqualError(t, get("soft")(), "not configured")
	assert.NoError(t, get("fine")())
}

func TestStateCallNotFunction(t *testing.T) {
	state := newState(t)
	_, err := state.Call(context.Background(), glua.LString("x"))
	assert.ErrorIs(t, err, ErrNotFunction)
}

func TestStateClosed(t *testing.T) {
	state := newState(t)
	require.NoError(t, state.Close())
	require.NoError(t, state.Close())
	assert.True(t, state.IsClosed())

	_, err := state.EvalString(context.Background(), `return 1`)
	assert.ErrorIs(t, err, ErrStateClosed)
	assert.Equal(t, glua.LNil, state.GetGlobal("x"))
}
