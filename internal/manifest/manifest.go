// Package manifest loads extension declarations from a user's
// configuration file.
//
// Two formats are supported, chosen by file extension:
//
//   - .lua: a chunk returning a list of extension tables in the style of
//     lazy.nvim, with setup functions written in Lua
//   - .yaml / .yml: a declarative list whose setup is a sequence of host
//     actions
//
// Loading never activates anything. It produces Decls, which are
// registered into a plugin.Registry and handed to install.Manager as
// sources.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dshills/lazyrc/internal/host"
	"github.com/dshills/lazyrc/internal/install"
	"github.com/dshills/lazyrc/internal/plugin"
	"github.com/dshills/lazyrc/internal/plugin/api"
	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
	"github.com/dshills/lazyrc/internal/trigger"
)

// Manifest errors.
var (
	// ErrUnsupportedFormat is returned for file extensions other than .lua, .yaml and .yml.
	ErrUnsupportedFormat = errors.New("manifest: unsupported format")

	// ErrInvalidManifest is returned when a declaration cannot be understood.
	ErrInvalidManifest = errors.New("manifest: invalid declaration")
)

// Decl is one extension declaration.
type Decl struct {
	Name         string
	Source       install.Source
	Triggers     []trigger.Trigger
	Dependencies []string
	Lazy         bool
	Setup        plugin.SetupFunc

	// implicit is set for extensions only named as dependencies.
	implicit bool
}

// Spec converts the declaration for plugin.Registry.
func (d Decl) Spec() plugin.Spec {
	return plugin.Spec{
		Name:         d.Name,
		Triggers:     append([]trigger.Trigger(nil), d.Triggers...),
		Dependencies: append([]string(nil), d.Dependencies...),
		Setup:        d.Setup,
		Lazy:         d.Lazy,
	}
}

// Manifest is the result of loading one configuration file.
type Manifest struct {
	// Path is the file the manifest was loaded from.
	Path string

	// Decls are the enabled declarations in registration order.
	Decls []Decl

	// Disabled are the names of declarations with enabled = false.
	Disabled []string
}

// Specs returns the registry specs in registration order.
func (m *Manifest) Specs() []plugin.Spec {
	specs := make([]plugin.Spec, 0, len(m.Decls))
	for _, d := range m.Decls {
		specs = append(specs, d.Spec())
	}
	return specs
}

// Sources returns the install sources of every declaration.
func (m *Manifest) Sources() []install.Source {
	sources := make([]install.Source, 0, len(m.Decls))
	for _, d := range m.Decls {
		src := d.Source
		src.Name = d.Name
		sources = append(sources, src)
	}
	return sources
}

// Register adds every declaration to reg, in order.
func (m *Manifest) Register(reg *plugin.Registry) error {
	for _, spec := range m.Specs() {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

// Loader loads manifests.
type Loader struct {
	// State evaluates Lua manifests. Required for .lua files; the lazyrc
	// API must already be installed in it.
	State *lualib.State

	// Host and Emitter run YAML setup actions.
	Host    host.Host
	Emitter api.Emitter

	// Leader expands <leader> in key triggers.
	Leader string

	// Disabled names extensions to drop as if they had enabled = false.
	Disabled []string

	Logger zerolog.Logger
}

// Load reads the manifest at path.
func (l *Loader) Load(ctx context.Context, path string) (*Manifest, error) {
	var (
		decls []entry
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		decls, err = l.loadLua(ctx, path)
	case ".yaml", ".yml":
		decls, err = l.loadYAML(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	m := &Manifest{Path: path}
	m.Decls, m.Disabled = l.resolve(decls)

	l.Logger.Info().
		Str("path", path).
		Int("extensions", len(m.Decls)).
		Int("disabled", len(m.Disabled)).
		Msg("manifest loaded")
	return m, nil
}

// entry is a declaration while loading: enabled is tracked so disabled
// extensions can be dropped from dependency lists.
type entry struct {
	Decl
	enabled bool
}

// resolve merges implicit dependency declarations into explicit ones,
// drops disabled extensions and removes references to them.
func (l *Loader) resolve(entries []entry) ([]Decl, []string) {
	pos := make(map[string]int, len(entries))
	var merged []entry
	for _, e := range entries {
		i, seen := pos[e.Name]
		switch {
		case !seen:
			pos[e.Name] = len(merged)
			merged = append(merged, e)
		case merged[i].implicit && !e.implicit:
			// An explicit declaration replaces the placeholder in place.
			merged[i] = e
		case e.implicit:
			// Already declared.
		default:
			// Two explicit declarations; the registry reports the duplicate.
			merged = append(merged, e)
		}
	}

	disabled := make(map[string]bool)
	for _, name := range l.Disabled {
		disabled[name] = true
	}
	var disabledNames []string
	for i, e := range merged {
		if disabled[e.Name] {
			merged[i].enabled = false
			e.enabled = false
		}
		if !e.enabled {
			disabled[e.Name] = true
			disabledNames = append(disabledNames, e.Name)
		}
	}

	decls := make([]Decl, 0, len(merged))
	for _, e := range merged {
		if !e.enabled {
			continue
		}
		deps := e.Dependencies[:0:0]
		for _, dep := range e.Dependencies {
			if disabled[dep] {
				l.Logger.Warn().Str("extension", e.Name).Str("dependency", dep).Msg("dependency disabled; ignoring it")
				continue
			}
			deps = append(deps, dep)
		}
		e.Dependencies = deps
		decls = append(decls, e.Decl)
	}
	return decls, disabledNames
}

// namePattern matches extension names: repository-style names such as
// "telescope.nvim" or "nvim-lspconfig".
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._-]*$`)

func validateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

// applyRef fills the name and source from an "owner/repo" reference or a
// URL. A reference without a slash is a plain name.
func (e *entry) applyRef(ref string) {
	if !strings.Contains(ref, "/") {
		e.Name = ref
		return
	}
	url := install.ShortURL(ref)
	if strings.HasPrefix(url, "/") || strings.HasPrefix(url, ".") || strings.HasPrefix(url, "~") {
		e.Source.Dir = expandHome(url)
		e.Name = filepath.Base(e.Source.Dir)
		return
	}
	e.Source.URL = url
	e.Name = install.NameFromURL(ref)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
