package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse errors
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// DefaultLeader is the leader key used when none is configured.
const DefaultLeader = `\`

// namedKeys maps lower-cased key names to their canonical Vim spelling.
var namedKeys = map[string]string{
	"cr":        "CR",
	"enter":     "CR",
	"return":    "CR",
	"esc":       "Esc",
	"escape":    "Esc",
	"space":     "Space",
	"tab":       "Tab",
	"bs":        "BS",
	"backspace": "BS",
	"del":       "Del",
	"delete":    "Del",
	"insert":    "Insert",
	"ins":       "Insert",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"home":      "Home",
	"end":       "End",
	"pageup":    "PageUp",
	"pagedown":  "PageDown",
	"lt":        "lt",
	"bar":       "Bar",
	"bslash":    "Bslash",
	"nop":       "Nop",
	"nul":       "Nul",
}

func init() {
	for i := 1; i <= 12; i++ {
		name := fmt.Sprintf("F%d", i)
		namedKeys[strings.ToLower(name)] = name
	}
}

// Normalize parses a key specification and returns its canonical form.
// The leader argument replaces "<leader>"; an empty leader means DefaultLeader.
//
// Examples:
//
//	Normalize("<c-P>", "")        == "<C-p>"
//	Normalize("Ctrl+P", "")       == "<C-p>"
//	Normalize("<leader>ff", " ")  == "<Space>ff"
func Normalize(spec, leader string) (string, error) {
	tokens, err := Tokens(spec, leader)
	if err != nil {
		return "", err
	}
	return strings.Join(tokens, ""), nil
}

// Tokens parses a key specification into canonical per-keystroke tokens.
func Tokens(spec, leader string) ([]string, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, ErrEmptySpec
	}
	if isModifierStyle(spec) {
		return parseModifierStyle(spec)
	}
	return parseVimNotation(spec, leader, 0)
}

// isModifierStyle reports whether spec looks like "Ctrl+S" notation.
func isModifierStyle(spec string) bool {
	if strings.Contains(spec, "<") {
		return false
	}
	for _, part := range strings.Fields(spec) {
		idx := strings.Index(part, "+")
		if idx <= 0 {
			continue
		}
		if ModifierFromName(part[:idx]) != ModNone && len(part[:idx]) > 1 {
			return true
		}
	}
	return false
}

// parseModifierStyle parses "Ctrl+S" style notation. Whitespace separates keystrokes.
func parseModifierStyle(spec string) ([]string, error) {
	var tokens []string
	for _, part := range strings.Fields(spec) {
		pieces := strings.Split(part, "+")
		// "Ctrl++" names the plus key itself.
		if strings.HasSuffix(part, "++") {
			pieces = append(strings.Split(strings.TrimSuffix(part, "++"), "+"), "+")
		}

		var mods Modifier
		for _, p := range pieces[:len(pieces)-1] {
			mod := ModifierFromName(p)
			if mod == ModNone {
				return nil, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
			}
			mods = mods.With(mod)
		}

		tok, err := canonicalToken(strings.TrimSpace(pieces[len(pieces)-1]), mods)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// parseVimNotation walks a Vim-style lhs. depth guards leader expansion.
func parseVimNotation(spec, leader string, depth int) ([]string, error) {
	if depth > 1 {
		return nil, fmt.Errorf("%w: leader refers to itself", ErrInvalidSpec)
	}

	var tokens []string
	for i := 0; i < len(spec); {
		r, size := utf8.DecodeRuneInString(spec[i:])

		if r == '<' {
			end := strings.IndexByte(spec[i:], '>')
			inner := ""
			if end > 1 {
				inner = spec[i+1 : i+end]
			}
			// A lone "<" or "<" followed by text with spaces is a literal key.
			if end < 0 || inner == "" || strings.ContainsAny(inner, " \t<") {
				tokens = append(tokens, "<lt>")
				i += size
				continue
			}

			if strings.EqualFold(inner, "leader") {
				if leader == "" {
					leader = DefaultLeader
				}
				expanded, err := parseVimNotation(leader, leader, depth+1)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, expanded...)
			} else {
				tok, err := parseBracketed(inner)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, tok)
			}
			i += end + 1
			continue
		}

		if r == ' ' {
			tokens = append(tokens, "<Space>")
		} else {
			tokens = append(tokens, string(r))
		}
		i += size
	}

	if len(tokens) == 0 {
		return nil, ErrEmptySpec
	}
	return tokens, nil
}

// parseBracketed parses the inside of "<...>", e.g. "C-s", "S-Tab", "CR".
func parseBracketed(inner string) (string, error) {
	keyPart := inner
	var mods Modifier

	// Modifiers are single letters followed by '-'. "C--" is Ctrl+minus.
	for len(keyPart) > 2 && keyPart[1] == '-' {
		mod := vimModifier(keyPart[:1])
		if mod == ModNone {
			return "", fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, keyPart[:1])
		}
		mods = mods.With(mod)
		keyPart = keyPart[2:]
	}

	return canonicalToken(keyPart, mods)
}

// canonicalToken renders a key with modifiers in canonical Vim notation.
func canonicalToken(keyPart string, mods Modifier) (string, error) {
	if keyPart == "" {
		return "", ErrInvalidSpec
	}

	if utf8.RuneCountInString(keyPart) == 1 {
		r, _ := utf8.DecodeRuneInString(keyPart)
		if r == ' ' {
			return wrap(mods, "Space"), nil
		}
		if unicode.IsLetter(r) {
			switch {
			case mods.Has(ModCtrl) || mods.Has(ModAlt) || mods.Has(ModSuper):
				// Vim does not distinguish <C-P> from <C-p>.
				if mods.Has(ModShift) {
					r = unicode.ToUpper(r)
				} else {
					r = unicode.ToLower(r)
				}
				mods = mods.Without(ModShift)
			case mods.Has(ModShift):
				return string(unicode.ToUpper(r)), nil
			}
		}
		if mods == ModNone {
			if r == '<' {
				return "<lt>", nil
			}
			return string(r), nil
		}
		return wrap(mods, string(r)), nil
	}

	name, ok := namedKeys[strings.ToLower(keyPart)]
	if !ok {
		return "", fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, keyPart)
	}
	return wrap(mods, name), nil
}

func wrap(mods Modifier, name string) string {
	return "<" + mods.VimPrefix() + name + ">"
}
