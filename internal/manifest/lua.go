package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/lazyrc/internal/install"
	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
	"github.com/dshills/lazyrc/internal/trigger"
)

// loadLua evaluates a Lua manifest. The chunk returns a list whose
// elements are "owner/repo" strings or extension tables:
//
//	return {
//	  { "nvim-lua/plenary.nvim", lazy = true },
//	  {
//	    "nvim-telescope/telescope.nvim",
//	    cmd = "Telescope",
//	    keys = { "<leader>ff", { "<leader>fg", mode = { "n", "v" } } },
//	    dependencies = { "nvim-lua/plenary.nvim" },
//	    config = function() lazyrc.command("Find", "Telescope") end,
//	  },
//	}
func (l *Loader) loadLua(ctx context.Context, path string) ([]entry, error) {
	if l.State == nil {
		return nil, fmt.Errorf("%w: %s: no Lua state", ErrInvalidManifest, path)
	}

	v, err := l.State.Eval(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	list, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s must return a list of extensions, got %s", ErrInvalidManifest, path, v.Type())
	}

	var entries []entry
	n := list.Len()
	for i := 1; i <= n; i++ {
		decoded, err := l.luaEntry(list.RawGetInt(i), false)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %v", ErrInvalidManifest, path, i, err)
		}
		entries = append(entries, decoded...)
	}
	return entries, nil
}

// luaEntry decodes one declaration. Inline dependency declarations are
// returned before the declaration that needs them; the declaration itself
// is always last.
func (l *Loader) luaEntry(v lua.LValue, implicit bool) ([]entry, error) {
	e := entry{enabled: true}
	e.implicit = implicit
	e.Lazy = implicit

	switch val := v.(type) {
	case lua.LString:
		e.applyRef(string(val))
		if err := validateName(e.Name); err != nil {
			return nil, err
		}
		return []entry{e}, nil
	case *lua.LTable:
		return l.luaTable(val, e)
	default:
		return nil, fmt.Errorf("expected string or table, got %s", v.Type())
	}
}

func (l *Loader) luaTable(t *lua.LTable, e entry) ([]entry, error) {
	if ref, ok := t.RawGetInt(1).(lua.LString); ok {
		e.applyRef(string(ref))
	}
	if url, ok := lualib.GetTableString(t, "url"); ok {
		e.Source.URL = install.ShortURL(url)
		if e.Name == "" {
			e.Name = install.NameFromURL(url)
		}
	}
	if dir, ok := lualib.GetTableString(t, "dir"); ok {
		e.Source.Dir = expandHome(dir)
		if e.Name == "" {
			e.Name = filepath.Base(e.Source.Dir)
		}
	}
	if name, ok := lualib.GetTableString(t, "name"); ok {
		e.Name = name
	}
	if err := validateName(e.Name); err != nil {
		return nil, err
	}
	e.Source.Branch, _ = lualib.GetTableString(t, "branch")
	e.Source.Commit, _ = lualib.GetTableString(t, "commit")

	if lazy, ok := lualib.GetTableBool(t, "lazy"); ok {
		e.Lazy = lazy
	}
	if enabled, ok := lualib.GetTableBool(t, "enabled"); ok {
		e.enabled = enabled
	}

	triggers, err := l.luaTriggers(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	e.Triggers = triggers

	switch cfg := t.RawGetString("config").(type) {
	case *lua.LNilType:
	case *lua.LFunction:
		e.Setup = l.State.Func(cfg)
	default:
		return nil, fmt.Errorf("%s: config must be a function, got %s", e.Name, cfg.Type())
	}

	var result []entry
	deps, err := l.luaDependencies(t.RawGetString("dependencies"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	for _, dep := range deps {
		result = append(result, dep.decls...)
		e.Dependencies = append(e.Dependencies, dep.name)
	}
	return append(result, e), nil
}

// luaTriggers reads the cmd, ft, event and keys fields.
func (l *Loader) luaTriggers(t *lua.LTable) ([]trigger.Trigger, error) {
	var triggers []trigger.Trigger

	fields := []struct {
		field string
		build func(string) trigger.Trigger
	}{
		{"cmd", trigger.Command},
		{"ft", trigger.FileType},
		{"event", trigger.LifecycleEvent},
	}
	for _, f := range fields {
		values, err := lualib.StringList(t.RawGetString(f.field))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.field, err)
		}
		for _, value := range values {
			triggers = append(triggers, f.build(value))
		}
	}

	keys, err := l.luaKeys(t.RawGetString("keys"))
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	return append(triggers, keys...), nil
}

// luaKeys reads a keys field: a key string, or a list of key strings and
// { lhs, mode = ... } tables. Keys without a mode are normal-mode keys.
func (l *Loader) luaKeys(v lua.LValue) ([]trigger.Trigger, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return l.keyTriggers(string(val), nil)
	case *lua.LTable:
		var triggers []trigger.Trigger
		n := val.Len()
		for i := 1; i <= n; i++ {
			var (
				keys  []trigger.Trigger
				err   error
				elem = val.RawGetInt(i)
			)
			switch item := elem.(type) {
			case lua.LString:
				keys, err = l.keyTriggers(string(item), nil)
			case *lua.LTable:
				lhs, ok := item.RawGetInt(1).(lua.LString)
				if !ok {
					return nil, fmt.Errorf("element %d: missing key sequence", i)
				}
				modes, merr := lualib.StringList(item.RawGetString("mode"))
				if merr != nil {
					return nil, fmt.Errorf("element %d: mode: %w", i, merr)
				}
				keys, err = l.keyTriggers(string(lhs), modes)
			default:
				return nil, fmt.Errorf("element %d: expected string or table, got %s", i, elem.Type())
			}
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			triggers = append(triggers, keys...)
		}
		return triggers, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %s", v.Type())
	}
}

func (l *Loader) keyTriggers(keys string, modes []string) ([]trigger.Trigger, error) {
	if len(modes) == 0 {
		modes = []string{"n"}
	}
	triggers := make([]trigger.Trigger, 0, len(modes))
	for _, mode := range modes {
		t, err := trigger.KeySequence(mode, keys, l.Leader)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, t)
	}
	return triggers, nil
}

// luaDependency is one element of a dependencies field.
type luaDependency struct {
	name  string
	decls []entry
}

// luaDependencies reads a dependencies field. A bare name refers to an
// extension declared elsewhere; an "owner/repo" string or a table also
// declares the dependency, lazily unless it says otherwise.
func (l *Loader) luaDependencies(v lua.LValue) ([]luaDependency, error) {
	var items []lua.LValue
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		items = []lua.LValue{val}
	case *lua.LTable:
		n := val.Len()
		for i := 1; i <= n; i++ {
			items = append(items, val.RawGetInt(i))
		}
	default:
		return nil, fmt.Errorf("dependencies: expected string or list, got %s", v.Type())
	}

	deps := make([]luaDependency, 0, len(items))
	for i, item := range items {
		if s, ok := item.(lua.LString); ok && !strings.Contains(string(s), "/") {
			if err := validateName(string(s)); err != nil {
				return nil, fmt.Errorf("dependencies: element %d: %w", i+1, err)
			}
			deps = append(deps, luaDependency{name: string(s)})
			continue
		}
		decls, err := l.luaEntry(item, true)
		if err != nil {
			return nil, fmt.Errorf("dependencies: element %d: %w", i+1, err)
		}
		deps = append(deps, luaDependency{name: decls[len(decls)-1].Name, decls: decls})
	}
	return deps, nil
}
