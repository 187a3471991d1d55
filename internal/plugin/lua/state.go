package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds every chunk and callback execution.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps gopher-lua with sandboxing and bounded execution.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes Go
// callers; a Lua callback that calls back into the same State through Go
// would deadlock and must not be written.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	modules          map[string]lua.LValue

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the timeout for each execution. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.executionTimeout = d
		}
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
		modules:          make(map[string]lua.LValue),
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})
	state.L = L

	openSafeLibraries(L)
	installSandbox(L, state.modules)

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	// Open base library (print, type, pairs, ipairs, etc.)
	lua.OpenBase(L)

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Not opened: io, os, debug, package, channel, coroutine.
}

// Provide makes value available to Lua code through require(name).
func (s *State) Provide(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = value
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Eval loads and runs the file at path and returns the chunk's first
// return value (LNil if it returns nothing).
func (s *State) Eval(ctx context.Context, path string) (lua.LValue, error) {
	return s.eval(ctx, func() (*lua.LFunction, error) { return s.L.LoadFile(path) })
}

// EvalString runs code and returns the chunk's first return value.
func (s *State) EvalString(ctx context.Context, code string) (lua.LValue, error) {
	return s.eval(ctx, func() (*lua.LFunction, error) { return s.L.LoadString(code) })
}

func (s *State) eval(ctx context.Context, load func() (*lua.LFunction, error)) (lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil, ErrStateClosed
	}
	fn, err := load()
	if err != nil {
		return lua.LNil, err
	}
	results, err := s.call(ctx, fn, 1)
	if err != nil {
		return lua.LNil, err
	}
	return results[0], nil
}

// Call calls fn with args and returns all of its results.
func (s *State) Call(ctx context.Context, fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w (got %s)", ErrNotFunction, fn.Type())
	}
	return s.call(ctx, fn, lua.MultRet, args...)
}

// Func wraps a Lua function as a Go callback. A Lua error, a panic or a
// timeout is returned as an error; a falsy first return value followed by
// a message (the Lua "nil, err" convention) is returned as an error too.
func (s *State) Func(fn *lua.LFunction) func() error {
	return func() error {
		results, err := s.Call(context.Background(), fn)
		if err != nil {
			return err
		}
		if len(results) >= 2 && !lua.LVAsBool(results[0]) && results[1] != lua.LNil {
			return errors.New(results[1].String())
		}
		return nil
	}
}

// call runs fn with the state's timeout. s.mu must be held.
func (s *State) call(ctx context.Context, fn lua.LValue, nret int, args ...lua.LValue) (results []lua.LValue, err error) {
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	// Record stack top before pushing anything
	stackTop := s.L.GetTop()

	defer func() {
		if r := recover(); r != nil {
			s.L.SetTop(stackTop)
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}
	if err := s.L.PCall(len(args), nret, nil); err != nil {
		s.L.SetTop(stackTop)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
		}
		return nil, err
	}

	// Collect return values (only the new values added after the call)
	n := s.L.GetTop() - stackTop
	results = make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(n)
	return results, nil
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
