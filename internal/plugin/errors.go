package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// Extension system errors. Each typed error below matches one of these
// sentinels with errors.Is.
var (
	// ErrDuplicateName is returned when an extension name is registered twice.
	ErrDuplicateName = errors.New("extension already registered")

	// ErrNotFound is returned when an extension cannot be located.
	ErrNotFound = errors.New("extension not found")

	// ErrCyclicDependency is returned when extensions have circular dependencies.
	ErrCyclicDependency = errors.New("cyclic extension dependency detected")

	// ErrInstall is returned when an extension's code could not be installed.
	ErrInstall = errors.New("extension install failed")

	// ErrSetup is returned when an extension's setup callback failed.
	ErrSetup = errors.New("extension setup failed")

	// ErrFailed is returned when activating an extension that already failed.
	ErrFailed = errors.New("extension previously failed")

	// ErrInvalidExtension is returned when an extension declaration is unusable.
	ErrInvalidExtension = errors.New("invalid extension")

	// ErrSealed is returned when registering after the registry was sealed.
	ErrSealed = errors.New("registry is sealed")

	// ErrNotSealed is returned when activating before the registry was sealed.
	ErrNotSealed = errors.New("registry is not sealed")

	// ErrAlreadyStarted is returned when Startup runs twice.
	ErrAlreadyStarted = errors.New("engine already started")
)

// DuplicateNameError reports a second registration of Name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("extension %q: %v", e.Name, ErrDuplicateName)
}

// Is reports whether target is ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// NotFoundError reports a missing extension. RequiredBy is set when the
// name came from another extension's dependency list.
type NotFoundError struct {
	Name       string
	RequiredBy string
}

func (e *NotFoundError) Error() string {
	if e.RequiredBy != "" {
		return fmt.Sprintf("extension %q (required by %q): %v", e.Name, e.RequiredBy, ErrNotFound)
	}
	return fmt.Sprintf("extension %q: %v", e.Name, ErrNotFound)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CyclicDependencyError names the extensions forming a cycle. The first
// and last elements of Cycle are the same extension.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicDependency, strings.Join(e.Cycle, " -> "))
}

// Is reports whether target is ErrCyclicDependency.
func (e *CyclicDependencyError) Is(target error) bool {
	return target == ErrCyclicDependency
}

// InstallError wraps an installer failure for one extension.
type InstallError struct {
	Name string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %q: %v", e.Name, e.Err)
}

// Is reports whether target is ErrInstall.
func (e *InstallError) Is(target error) bool {
	return target == ErrInstall
}

// Unwrap returns the installer error.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// SetupError wraps a failure raised by an extension's setup callback.
type SetupError struct {
	Name string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %q: %v", e.Name, e.Err)
}

// Is reports whether target is ErrSetup.
func (e *SetupError) Is(target error) bool {
	return target == ErrSetup
}

// Unwrap returns the setup error.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// FailedError is returned when activation is requested for an extension
// that is already Failed. Cause is the error that failed it.
type FailedError struct {
	Name  string
	Cause error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("extension %q: %v: %v", e.Name, ErrFailed, e.Cause)
}

// Is reports whether target is ErrFailed.
func (e *FailedError) Is(target error) bool {
	return target == ErrFailed
}

// Unwrap returns the original failure.
func (e *FailedError) Unwrap() error {
	return e.Cause
}
