package api

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/lazyrc/internal/input/key"
	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
)

// KeymapModule implements lazyrc.keymap.
type KeymapModule struct {
	ctx *Context
}

// NewKeymapModule creates a new keymap module.
func NewKeymapModule(ctx *Context) *KeymapModule {
	return &KeymapModule{ctx: ctx}
}

// Name returns the module name.
func (m *KeymapModule) Name() string {
	return "keymap"
}

// Register registers the module into the namespace.
func (m *KeymapModule) Register(L *lua.LState, ns *lua.LTable) error {
	L.SetField(ns, "keymap", L.NewFunction(m.set))
	return nil
}

// keymap(mode, keys, action, opts?) -> nil
// mode is a mode name or a list of them. action is a command name or a
// function. opts can include: desc.
func (m *KeymapModule) set(L *lua.LState) int {
	modes, err := lualib.StringList(L.CheckAny(1))
	if err != nil || len(modes) == 0 {
		L.ArgError(1, "expected mode or list of modes")
		return 0
	}
	keys := L.CheckString(2)
	if keys == "" {
		L.ArgError(2, "keys cannot be empty")
		return 0
	}
	action := checkAction(L, m.ctx, 3)
	action.Desc = getTableString(L.OptTable(4, nil), "desc")

	normalized, err := key.Normalize(keys, m.ctx.Leader)
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}

	for _, name := range modes {
		mode, err := key.ParseMode(name)
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		if err := m.ctx.Host.Map(mode, normalized, action); err != nil {
			L.RaiseError("keymap: %v", err)
			return 0
		}
	}
	return 0
}
