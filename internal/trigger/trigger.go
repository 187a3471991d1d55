// Package trigger describes the conditions that lazily activate extensions
// and indexes them for lookup when the host reports that one has fired.
package trigger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/lazyrc/internal/input/key"
)

// Kind identifies the class of an activation condition.
type Kind int

// Trigger kinds.
const (
	// KindCommand fires when a user command is invoked.
	KindCommand Kind = iota
	// KindKeySequence fires when a key sequence is typed in a mode.
	KindKeySequence
	// KindFileType fires when a buffer of a filetype (or matching path) opens.
	KindFileType
	// KindLifecycleEvent fires on editor lifecycle events (VimEnter, BufReadPre...).
	KindLifecycleEvent
)

// String returns the short prefix used in the text form.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "cmd"
	case KindKeySequence:
		return "key"
	case KindFileType:
		return "ft"
	case KindLifecycleEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Errors returned by Parse.
var (
	ErrInvalidTrigger = errors.New("invalid trigger")
	ErrUnknownKind    = errors.New("unknown trigger kind")
)

// Trigger is an activation condition. Two triggers are equal when all
// fields are equal, so Trigger values can be compared with ==.
type Trigger struct {
	Kind Kind
	// Mode is set for KindKeySequence only.
	Mode string
	// Value is the command name, normalized keys, filetype pattern or event name.
	Value string
}

// Command returns a trigger for a user command.
func Command(name string) Trigger {
	return Trigger{Kind: KindCommand, Value: name}
}

// FileType returns a trigger for a filetype name or path glob.
func FileType(pattern string) Trigger {
	return Trigger{Kind: KindFileType, Value: pattern}
}

// LifecycleEvent returns a trigger for a named lifecycle event.
func LifecycleEvent(name string) Trigger {
	return Trigger{Kind: KindLifecycleEvent, Value: name}
}

// KeySequence returns a trigger for keys typed in mode. Mode and keys are
// normalized so that equivalent spellings compare equal.
func KeySequence(mode, keys, leader string) (Trigger, error) {
	m, err := key.ParseMode(mode)
	if err != nil {
		return Trigger{}, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}
	k, err := key.Normalize(keys, leader)
	if err != nil {
		return Trigger{}, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}
	return Trigger{Kind: KindKeySequence, Mode: m, Value: k}, nil
}

// String renders the text form accepted by Parse.
func (t Trigger) String() string {
	if t.Kind == KindKeySequence {
		return t.Kind.String() + ":" + t.Mode + ":" + t.Value
	}
	return t.Kind.String() + ":" + t.Value
}

// Validate reports whether the trigger has a usable value.
func (t Trigger) Validate() error {
	if strings.TrimSpace(t.Value) == "" {
		return fmt.Errorf("%w: %s trigger has no value", ErrInvalidTrigger, t.Kind)
	}
	if t.Kind < KindCommand || t.Kind > KindLifecycleEvent {
		return fmt.Errorf("%w: %d", ErrUnknownKind, t.Kind)
	}
	return nil
}

// Parse parses the text form of a trigger:
//
//	cmd:Telescope
//	key:n:<leader>ff    (mode may be omitted: key:<leader>ff)
//	ft:*.go
//	event:BufReadPre
//
// A space may separate the kind from the value instead of a colon.
func Parse(text, leader string) (Trigger, error) {
	text = strings.TrimSpace(text)
	kind, rest, ok := cutKind(text)
	if !ok {
		return Trigger{}, fmt.Errorf("%w: %q", ErrInvalidTrigger, text)
	}

	var t Trigger
	switch strings.ToLower(kind) {
	case "cmd", "command":
		t = Command(rest)
	case "ft", "filetype":
		t = FileType(rest)
	case "event", "ev":
		t = LifecycleEvent(rest)
	case "key", "keys":
		mode, keys := "", rest
		if m, k, found := strings.Cut(rest, ":"); found && m != "" && !strings.ContainsAny(m, "<> ") {
			if _, err := key.ParseMode(m); err == nil {
				mode, keys = m, k
			}
		} else if m, k, found := strings.Cut(rest, " "); found && m != "" {
			if _, err := key.ParseMode(m); err == nil {
				mode, keys = m, k
			}
		}
		var err error
		if t, err = KeySequence(mode, keys, leader); err != nil {
			return Trigger{}, err
		}
	default:
		return Trigger{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	if err := t.Validate(); err != nil {
		return Trigger{}, err
	}
	return t, nil
}

// cutKind splits "kind:value" or "kind value".
func cutKind(text string) (kind, rest string, ok bool) {
	i := strings.IndexAny(text, ": ")
	if i <= 0 || i == len(text)-1 {
		return "", "", false
	}
	return text[:i], strings.TrimSpace(text[i+1:]), true
}
