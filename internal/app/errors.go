// Package app wires settings, the manifest, the installer and the
// activation engine into one runnable lazyrc instance.
package app

import (
	"errors"
)

// ErrNoInstaller is returned by Install when installs are disabled.
var ErrNoInstaller = errors.New("installer disabled")

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
