package api

import (
	lua "github.com/yuin/gopher-lua"

	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
)

// LSPModule implements lazyrc.lsp.
type LSPModule struct {
	ctx *Context
}

// NewLSPModule creates a new LSP module.
func NewLSPModule(ctx *Context) *LSPModule {
	return &LSPModule{ctx: ctx}
}

// Name returns the module name.
func (m *LSPModule) Name() string {
	return "lsp"
}

// Register registers the module into the namespace.
func (m *LSPModule) Register(L *lua.LState, ns *lua.LTable) error {
	L.SetField(ns, "lsp", L.NewFunction(m.start))
	return nil
}

// lsp(server, filetypes?) -> nil
// filetypes is a filetype, a list of them, or a table with a filetypes field.
func (m *LSPModule) start(L *lua.LState) int {
	server := L.CheckString(1)
	if server == "" {
		L.ArgError(1, "server cannot be empty")
		return 0
	}

	arg := L.Get(2)
	if tbl, ok := arg.(*lua.LTable); ok {
		if fts := tbl.RawGetString("filetypes"); fts != lua.LNil {
			arg = fts
		}
	}
	filetypes, err := lualib.StringList(arg)
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}

	if err := m.ctx.Host.StartLanguageServer(server, filetypes); err != nil {
		L.RaiseError("lsp: %v", err)
	}
	return 0
}
