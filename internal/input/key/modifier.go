package key

import "strings"

// Modifier represents keyboard modifier keys.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModShift indicates the Shift key.
	ModShift Modifier = 1 << iota

	// ModCtrl indicates the Control key.
	ModCtrl

	// ModAlt indicates the Alt key. Vim treats Alt and Meta as one modifier.
	ModAlt

	// ModSuper indicates the Cmd/Super key (Vim's D- prefix).
	ModSuper
)

// Has returns true if m contains the specified modifier.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// With returns a new Modifier with the specified modifier added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// Without returns a new Modifier with the specified modifier removed.
func (m Modifier) Without(mod Modifier) Modifier {
	return m &^ mod
}

// VimPrefix returns the Vim notation prefix, e.g. "C-M-".
// The order is fixed so equal modifier sets render identically.
func (m Modifier) VimPrefix() string {
	var sb strings.Builder
	if m.Has(ModCtrl) {
		sb.WriteString("C-")
	}
	if m.Has(ModAlt) {
		sb.WriteString("M-")
	}
	if m.Has(ModShift) {
		sb.WriteString("S-")
	}
	if m.Has(ModSuper) {
		sb.WriteString("D-")
	}
	return sb.String()
}

// vimModifier maps a single Vim modifier letter to a Modifier.
func vimModifier(letter string) Modifier {
	switch strings.ToLower(letter) {
	case "c":
		return ModCtrl
	case "a", "m":
		return ModAlt
	case "s":
		return ModShift
	case "d":
		return ModSuper
	default:
		return ModNone
	}
}

// ModifierFromName parses a modifier name as written in "Ctrl+S" notation.
func ModifierFromName(name string) Modifier {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ctrl", "control", "c":
		return ModCtrl
	case "alt", "option", "opt", "meta", "m", "a":
		return ModAlt
	case "shift", "s":
		return ModShift
	case "cmd", "command", "super", "win", "d":
		return ModSuper
	default:
		return ModNone
	}
}
