package key

import (
	"fmt"
	"strings"
)

// ModeNormal is the mode assumed when a keymap names none.
const ModeNormal = "n"

// modeNames maps mode names and abbreviations to Vim's single-letter mode.
var modeNames = map[string]string{
	"":                 ModeNormal,
	"n":                "n",
	"normal":           "n",
	"i":                "i",
	"insert":           "i",
	"v":                "v",
	"visual":           "v",
	"x":                "x",
	"visual-block":     "x",
	"s":                "s",
	"select":           "s",
	"o":                "o",
	"operator":         "o",
	"operator-pending": "o",
	"c":                "c",
	"command":          "c",
	"cmdline":          "c",
	"t":                "t",
	"terminal":         "t",
}

// ParseMode returns the single-letter mode for a mode name.
func ParseMode(name string) (string, error) {
	mode, ok := modeNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidSpec, name)
	}
	return mode, nil
}
