package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lazyrc/internal/trigger"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Spec{Name: "theme"}))
	require.NoError(t, reg.Register(Spec{Name: "finder", Triggers: []trigger.Trigger{trigger.Command("find")}}))

	ext, err := reg.Get("finder")
	require.NoError(t, err)
	assert.Equal(t, "finder", ext.Name())
	assert.Equal(t, 1, ext.Order())
	assert.Equal(t, StateRegistered, ext.State())
	assert.True(t, reg.Has("theme"))
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []string{"theme", "finder"}, reg.Names())
}

func TestRegistryDuplicateName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Spec{Name: "finder"}))

	err := reg.Register(Spec{Name: "finder"})
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "finder", dup.Name)
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestRegistryGetNotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("missing")

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.Name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistryRejectsInvalidSpecs(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.Register(Spec{Name: " "}), ErrInvalidExtension)
	assert.ErrorIs(t, reg.Register(Spec{Name: "x", Triggers: []trigger.Trigger{trigger.Command("")}}), ErrInvalidExtension)
	assert.ErrorIs(t, reg.Register(Spec{Name: "self", Dependencies: []string{"self"}}), ErrCyclicDependency)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistrySealValidatesDependencies(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Spec{Name: "lsp", Dependencies: []string{"finder"}}))

	err := reg.Seal()
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "finder", nf.Name)
	assert.Equal(t, "lsp", nf.RequiredBy)
	assert.False(t, reg.Sealed())
}

func TestRegistrySealDetectsCycles(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Spec{Name: "a", Dependencies: []string{"b"}}))
	require.NoError(t, reg.Register(Spec{Name: "b", Dependencies: []string{"c"}}))
	require.NoError(t, reg.Register(Spec{Name: "c", Dependencies: []string{"a"}}))

	err := reg.Seal()
	var cyc *CyclicDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(t, []string{"a", "b", "c", "a"}, cyc.Cycle)
	assert.Contains(t, err.Error(), "a -> b -> c -> a")
}

func TestRegistryRegisterAfterSeal(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Seal())
	assert.True(t, reg.Sealed())
	assert.ErrorIs(t, reg.Register(Spec{Name: "late"}), ErrSealed)
	// Sealing twice is harmless.
	assert.NoError(t, reg.Seal())
}

func TestRegistryEager(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Spec{Name: "theme"}))
	require.NoError(t, reg.Register(Spec{Name: "finder", Triggers: []trigger.Trigger{trigger.Command("find")}}))
	require.NoError(t, reg.Register(Spec{Name: "plenary", Lazy: true}))
	require.NoError(t, reg.Register(Spec{Name: "statusline"}))

	var names []string
	for _, ext := range reg.Eager() {
		names = append(names, ext.Name())
	}
	assert.Equal(t, []string{"theme", "statusline"}, names)
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateRegistered, StateInstalling, true},
		{StateInstalling, StateSettingUp, true},
		{StateSettingUp, StateActive, true},
		{StateInstalling, StateFailed, true},
		{StateSettingUp, StateFailed, true},
		{StateRegistered, StateActive, false},
		{StateRegistered, StateFailed, false},
		{StateActive, StateInstalling, false},
		{StateFailed, StateInstalling, false},
		{StateFailed, StateRegistered, false},
		{StateActive, StateRegistered, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIllegalTransitionPanics(t *testing.T) {
	ext := &Extension{spec: Spec{Name: "x"}, state: StateActive}
	assert.Panics(t, func() { ext.transition(StateInstalling) })
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("network down")
	err := &InstallError{Name: "x", Err: cause}
	assert.ErrorIs(t, err, ErrInstall)
	assert.ErrorIs(t, err, cause)

	failed := &FailedError{Name: "x", Cause: err}
	assert.ErrorIs(t, failed, ErrFailed)
	assert.ErrorIs(t, failed, ErrInstall)
	assert.ErrorIs(t, failed, cause)
}
