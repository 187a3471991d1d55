package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lazyrc/internal/trigger"
)

// setupLog records the order in which setups run.
type setupLog struct {
	calls []string
}

func (l *setupLog) setup(name string) SetupFunc {
	return func() error {
		l.calls = append(l.calls, name)
		return nil
	}
}

func (l *setupLog) count(name string) int {
	n := 0
	for _, c := range l.calls {
		if c == name {
			n++
		}
	}
	return n
}

func newEngine(t *testing.T, opts []EngineOption, specs ...Spec) *Engine {
	t.Helper()
	reg := registryOf(t, specs...)
	require.NoError(t, reg.Seal())
	e, err := NewEngine(reg, opts...)
	require.NoError(t, err)
	return e
}

func TestEngineLazyScenario(t *testing.T) {
	ctx := context.Background()
	log := &setupLog{}
	e := newEngine(t, nil,
		Spec{Name: "theme", Setup: log.setup("theme")},
		Spec{Name: "finder", Triggers: []trigger.Trigger{trigger.Command("find")}, Setup: log.setup("finder")},
		Spec{Name: "lsp", Triggers: []trigger.Trigger{trigger.FileType("*.go")}, Dependencies: []string{"finder"}, Setup: log.setup("lsp")},
	)

	require.NoError(t, e.Startup(ctx))
	assert.Equal(t, []string{"theme"}, log.calls)

	require.NoError(t, e.Fire(ctx, trigger.FileType("*.go")))
	require.NoError(t, e.Fire(ctx, trigger.FileType("*.go")))
	assert.Equal(t, []string{"theme", "finder", "lsp"}, log.calls)

	for _, name := range []string{"theme", "finder", "lsp"} {
		state, err := e.State(name)
		require.NoError(t, err)
		assert.Equal(t, StateActive, state, name)
	}

	// finder is already active; its own trigger is a no-op now.
	require.NoError(t, e.Fire(ctx, trigger.Command("find")))
	assert.Equal(t, 1, log.count("finder"))
}

func TestEngineFileTypePathActivates(t *testing.T) {
	log := &setupLog{}
	e := newEngine(t, nil,
		Spec{Name: "lsp", Triggers: []trigger.Trigger{trigger.FileType("*.go")}, Setup: log.setup("lsp")},
	)

	require.NoError(t, e.Fire(context.Background(), trigger.FileType("cmd/lazyrc/main.go")))
	assert.Equal(t, []string{"lsp"}, log.calls)
}

func TestEngineActivateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	log := &setupLog{}
	e := newEngine(t, nil,
		Spec{Name: "base", Lazy: true, Setup: log.setup("base")},
		Spec{Name: "top", Lazy: true, Dependencies: []string{"base"}, Setup: log.setup("top")},
	)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Activate(ctx, "top"))
		require.NoError(t, e.Activate(ctx, "base"))
	}
	assert.Equal(t, []string{"base", "top"}, log.calls)
}

func TestEngineDependenciesBeforeTargetWithoutDuplicates(t *testing.T) {
	log := &setupLog{}
	e := newEngine(t, nil,
		Spec{Name: "plenary", Lazy: true, Setup: log.setup("plenary")},
		Spec{Name: "devicons", Lazy: true, Setup: log.setup("devicons")},
		Spec{Name: "telescope", Lazy: true, Dependencies: []string{"plenary", "devicons"}, Setup: log.setup("telescope")},
		Spec{Name: "lsp", Triggers: []trigger.Trigger{trigger.Command("Lsp")}, Dependencies: []string{"telescope", "plenary"}, Setup: log.setup("lsp")},
	)

	require.NoError(t, e.Fire(context.Background(), trigger.Command("Lsp")))
	assert.Equal(t, []string{"plenary", "devicons", "telescope", "lsp"}, log.calls)
}

func TestEngineSharedTriggerRegistrationOrder(t *testing.T) {
	log := &setupLog{}
	e := newEngine(t, nil,
		Spec{Name: "fugitive", Triggers: []trigger.Trigger{trigger.Command("Git")}, Setup: log.setup("fugitive")},
		Spec{Name: "other", Triggers: []trigger.Trigger{trigger.Command("x")}, Setup: log.setup("other")},
		Spec{Name: "gitsigns", Triggers: []trigger.Trigger{trigger.Command("Git")}, Setup: log.setup("gitsigns")},
	)

	require.NoError(t, e.Fire(context.Background(), trigger.Command("Git")))
	assert.Equal(t, []string{"fugitive", "gitsigns"}, log.calls)
}

func TestEngineFailureIsolation(t *testing.T) {
	ctx := context.Background()
	log := &setupLog{}
	boom := errors.New("boom")
	e := newEngine(t, nil,
		Spec{Name: "broken", Triggers: []trigger.Trigger{trigger.Command("Go")}, Setup: func() error { return boom }},
		Spec{Name: "healthy", Triggers: []trigger.Trigger{trigger.Command("Go")}, Setup: log.setup("healthy")},
	)

	err := e.Fire(ctx, trigger.Command("Go"))
	require.Error(t, err)
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "broken", setupErr.Name)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"healthy"}, log.calls)

	state, _ := e.State("broken")
	assert.Equal(t, StateFailed, state)
	state, _ = e.State("healthy")
	assert.Equal(t, StateActive, state)

	// Failed is terminal; the setup is never retried.
	err = e.Activate(ctx, "broken")
	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "broken", failed.Name)
	assert.ErrorIs(t, err, ErrFailed)
	assert.ErrorIs(t, err, boom)
}

func TestEngineStartupIsolatesFailures(t *testing.T) {
	log := &setupLog{}
	e := newEngine(t, nil,
		Spec{Name: "a", Setup: func() error { return errors.New("a failed") }},
		Spec{Name: "b", Setup: log.setup("b")},
	)

	err := e.Startup(context.Background())
	assert.ErrorIs(t, err, ErrSetup)
	assert.Equal(t, []string{"b"}, log.calls)
}

func TestEngineStartupTwice(t *testing.T) {
	e := newEngine(t, nil, Spec{Name: "theme"})
	require.NoError(t, e.Startup(context.Background()))
	assert.ErrorIs(t, e.Startup(context.Background()), ErrAlreadyStarted)
}

func TestEngineSetupPanic(t *testing.T) {
	e := newEngine(t, nil, Spec{Name: "bad", Lazy: true, Setup: func() error { panic("kaboom") }})

	err := e.Activate(context.Background(), "bad")
	var setupErr *SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Contains(t, err.Error(), "kaboom")

	state, _ := e.State("bad")
	assert.Equal(t, StateFailed, state)
	assert.ErrorAs(t, e.Err("bad"), &setupErr)
	assert.ErrorIs(t, e.Err("missing"), ErrNotFound)
}

func TestEngineInstallFailure(t *testing.T) {
	log := &setupLog{}
	offline := errors.New("offline")
	installer := InstallerFunc(func(_ context.Context, name string) error {
		if name == "remote" {
			return offline
		}
		return nil
	})
	e := newEngine(t, []EngineOption{WithInstaller(installer)},
		Spec{Name: "remote", Lazy: true, Setup: log.setup("remote")},
		Spec{Name: "local", Lazy: true, Setup: log.setup("local")},
	)

	err := e.Activate(context.Background(), "remote")
	var installErr *InstallError
	require.ErrorAs(t, err, &installErr)
	assert.Equal(t, "remote", installErr.Name)
	assert.ErrorIs(t, err, offline)
	assert.Empty(t, log.calls)

	require.NoError(t, e.Activate(context.Background(), "local"))
	assert.Equal(t, []string{"local"}, log.calls)
}

func TestEngineInstallerCalledBeforeSetup(t *testing.T) {
	var calls []string
	installer := InstallerFunc(func(_ context.Context, name string) error {
		calls = append(calls, "install:"+name)
		return nil
	})
	e := newEngine(t, []EngineOption{WithInstaller(installer)},
		Spec{Name: "dep", Lazy: true, Setup: func() error { calls = append(calls, "setup:dep"); return nil }},
		Spec{Name: "top", Lazy: true, Dependencies: []string{"dep"}, Setup: func() error { calls = append(calls, "setup:top"); return nil }},
	)

	require.NoError(t, e.Activate(context.Background(), "top"))
	assert.Equal(t, []string{"install:top", "install:dep", "setup:dep", "setup:top"}, calls)
}

func TestEngineDependencyFailureFailsDependent(t *testing.T) {
	ctx := context.Background()
	log := &setupLog{}
	cause := errors.New("no binary")
	e := newEngine(t, nil,
		Spec{Name: "dep", Lazy: true, Setup: func() error { return cause }},
		Spec{Name: "top", Triggers: []trigger.Trigger{trigger.Command("Top")}, Dependencies: []string{"dep"}, Setup: log.setup("top")},
	)

	err := e.Fire(ctx, trigger.Command("Top"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSetup)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), `dependency "dep" of "top"`)
	assert.Empty(t, log.calls)

	for _, name := range []string{"dep", "top"} {
		state, _ := e.State(name)
		assert.Equal(t, StateFailed, state, name)
	}
}

func TestEngineRuntimeCycleRunsNoSetup(t *testing.T) {
	log := &setupLog{}
	reg := registryOf(t,
		Spec{Name: "a", Lazy: true, Dependencies: []string{"b"}, Setup: log.setup("a")},
		Spec{Name: "b", Lazy: true, Dependencies: []string{"a"}, Setup: log.setup("b")},
	)
	// Bypass Seal so the cycle reaches the engine.
	reg.sealed = true
	e, err := NewEngine(reg)
	require.NoError(t, err)

	err = e.Activate(context.Background(), "a")
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"a", "b", "a"}, cyc.Cycle)
	assert.Empty(t, log.calls)
}

func TestNewEngineRequiresSealedRegistry(t *testing.T) {
	_, err := NewEngine(NewRegistry())
	assert.ErrorIs(t, err, ErrNotSealed)
}

func TestEngineActivateUnknown(t *testing.T) {
	e := newEngine(t, nil)
	assert.ErrorIs(t, e.Activate(context.Background(), "ghost"), ErrNotFound)
}

func TestEngineFireUnboundTrigger(t *testing.T) {
	e := newEngine(t, nil, Spec{Name: "x", Lazy: true})
	assert.NoError(t, e.Fire(context.Background(), trigger.Command("nothing")))
	state, _ := e.State("x")
	assert.Equal(t, StateRegistered, state)
}

func TestEngineBind(t *testing.T) {
	ctx := context.Background()
	log := &setupLog{}
	var events []ManagerEvent
	e := newEngine(t, []EngineOption{WithEventHandler(func(ev ManagerEvent) { events = append(events, ev) })},
		Spec{Name: "late", Lazy: true, Setup: log.setup("late")},
	)

	key, err := trigger.KeySequence("n", "<leader>l", " ")
	require.NoError(t, err)
	require.NoError(t, e.Bind(key, "late"))
	assert.ErrorIs(t, e.Bind(key, "ghost"), ErrNotFound)

	require.NoError(t, e.Fire(ctx, key))
	assert.Equal(t, []string{"late"}, log.calls)
	assert.Equal(t, EventTriggerBound, events[0].Type)
	assert.Equal(t, "late", events[0].Extension)
}

func TestEngineEvents(t *testing.T) {
	var types []ManagerEventType
	e := newEngine(t, nil,
		Spec{Name: "ok", Triggers: []trigger.Trigger{trigger.Command("ok")}},
		Spec{Name: "bad", Triggers: []trigger.Trigger{trigger.Command("bad")}, Setup: func() error { return errors.New("x") }},
	)
	unsubscribe := e.Subscribe(func(ev ManagerEvent) { types = append(types, ev.Type) })
	e.Subscribe(func(ManagerEvent) { panic("handler panics are recovered") })

	require.NoError(t, e.Fire(context.Background(), trigger.Command("ok")))
	assert.Equal(t, []ManagerEventType{EventTriggerFired, EventInstalling, EventSettingUp, EventActivated}, types)

	types = nil
	require.Error(t, e.Fire(context.Background(), trigger.Command("bad")))
	assert.Equal(t, []ManagerEventType{EventTriggerFired, EventInstalling, EventSettingUp, EventFailed}, types)

	unsubscribe()
	types = nil
	require.NoError(t, e.Activate(context.Background(), "ok"))
	require.NoError(t, e.Fire(context.Background(), trigger.Command("ok")))
	assert.Empty(t, types)
}

func TestEngineActivatedAt(t *testing.T) {
	e := newEngine(t, nil, Spec{Name: "theme"})
	ext, _ := e.Registry().Get("theme")
	assert.True(t, ext.ActivatedAt().IsZero())

	require.NoError(t, e.Startup(context.Background()))
	assert.False(t, ext.ActivatedAt().IsZero())
}
