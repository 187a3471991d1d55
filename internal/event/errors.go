package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the message queue.
var (
	// ErrQueueClosed is returned when posting to a closed queue.
	ErrQueueClosed = errors.New("event queue is closed")

	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("event queue is full")

	// ErrInvalidMessage is returned when a message is malformed or missing required fields.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)

// HandlerError wraps an error from a handler with the message that caused it.
type HandlerError struct {
	// MessageID is the ID of the message being handled.
	MessageID string

	// Kind is the kind of the message being handled.
	Kind Kind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handle %s message %s: %v", e.Kind, e.MessageID, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic value raised by a handler.
type PanicError struct {
	// MessageID is the ID of the message being handled.
	MessageID string

	// Value is the value passed to panic().
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic for message %s: %v", e.MessageID, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
