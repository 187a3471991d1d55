package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/lazyrc/internal/trigger"
)

// Kind identifies what a message asks the engine to do.
type Kind int

const (
	// KindFire asks the engine to fire a trigger.
	KindFire Kind = iota
	// KindBind asks the engine to bind a trigger to an extension.
	KindBind
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFire:
		return "fire"
	case KindBind:
		return "bind"
	default:
		return "unknown"
	}
}

// Message is one request for the activation loop.
// Messages are immutable once created.
type Message struct {
	// ID is a unique identifier for this message.
	ID string

	// Kind is what the message asks for.
	Kind Kind

	// Trigger is fired or bound.
	Trigger trigger.Trigger

	// Extension is the bind target. Empty for KindFire.
	Extension string

	// Source identifies who posted the message (e.g. "cli", "watch", "lua:finder").
	Source string

	// Timestamp is when the message was created.
	Timestamp time.Time
}

// NewFire creates a message that fires t.
func NewFire(t trigger.Trigger, source string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      KindFire,
		Trigger:   t,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// NewBind creates a message that binds t to the extension name.
func NewBind(t trigger.Trigger, name, source string) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      KindBind,
		Trigger:   t,
		Extension: name,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// Validate checks that the message can be handled.
func (m Message) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if err := m.Trigger.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch m.Kind {
	case KindFire:
		return nil
	case KindBind:
		if m.Extension == "" {
			return fmt.Errorf("%w: bind without extension", ErrInvalidMessage)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidMessage, int(m.Kind))
	}
}
