// Package host defines what an extension's setup can do to the editor.
//
// Setup callbacks never touch editor internals directly. They go through
// a Host: set options, map keys, register commands, start language
// servers and show notifications. Recorder is the in-process Host used by
// the lazyrc binary and by tests.
package host

import (
	"errors"
	"fmt"
)

// Host errors.
var (
	// ErrInvalidArgument is returned for empty names, keys or servers.
	ErrInvalidArgument = errors.New("invalid host argument")

	// ErrCommandNotFound is returned when executing an unregistered command.
	ErrCommandNotFound = errors.New("command not found")

	// ErrCommandExists is returned when registering a command name twice.
	ErrCommandExists = errors.New("command already registered")
)

// NotificationLevel is the severity of a notification.
type NotificationLevel string

// Notification levels.
const (
	NotificationInfo    NotificationLevel = "info"
	NotificationWarning NotificationLevel = "warn"
	NotificationError   NotificationLevel = "error"
	NotificationSuccess NotificationLevel = "success"
)

// ParseLevel returns the level named s. Unknown names map to NotificationInfo.
func ParseLevel(s string) NotificationLevel {
	switch NotificationLevel(s) {
	case NotificationWarning, "warning":
		return NotificationWarning
	case NotificationError:
		return NotificationError
	case NotificationSuccess:
		return NotificationSuccess
	default:
		return NotificationInfo
	}
}

// Action is what a key mapping or command runs. Exactly one of Command and
// Func is set.
type Action struct {
	// Command names another registered command.
	Command string

	// Func is a callback, typically a wrapped Lua function.
	Func func() error

	// Desc is a human-readable description.
	Desc string
}

// Validate checks that exactly one target is set.
func (a Action) Validate() error {
	if (a.Command == "") == (a.Func == nil) {
		return fmt.Errorf("%w: action needs exactly one of command or func", ErrInvalidArgument)
	}
	return nil
}

// String describes the action.
func (a Action) String() string {
	if a.Command != "" {
		return ":" + a.Command
	}
	if a.Desc != "" {
		return "<func " + a.Desc + ">"
	}
	return "<func>"
}

// Host is the editor surface available to setup callbacks.
type Host interface {
	// SetOption sets an editor option.
	SetOption(name string, value any) error

	// Map binds keys in mode to an action. Keys are in canonical notation.
	Map(mode, keys string, action Action) error

	// RegisterCommand registers a named command.
	RegisterCommand(name string, action Action) error

	// StartLanguageServer starts server for the given filetypes.
	StartLanguageServer(server string, filetypes []string) error

	// Notify shows a message to the user.
	Notify(message string, level NotificationLevel) error
}

// Executor is implemented by hosts that can run registered commands and
// key mappings.
type Executor interface {
	ExecuteCommand(name string) error
	ExecuteMapping(mode, keys string) error
}
