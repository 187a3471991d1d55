// Package api provides the Lua API exposed to lazyrc manifests and setup
// callbacks.
//
// Manifests and setup functions reach the editor through the "lazyrc"
// namespace, available both as a global and through require("lazyrc"):
//
//	lazyrc.opt(name, value)                  -- set an editor option
//	lazyrc.keymap(mode, keys, action, opts?) -- map keys to a command or function
//	lazyrc.command(name, action, opts?)      -- register a command
//	lazyrc.lsp(server, filetypes)            -- start a language server
//	lazyrc.notify(message, level?)           -- show a notification
//	lazyrc.on(trigger, extension)            -- bind a trigger at runtime
//	lazyrc.fire(trigger)                     -- fire a trigger
//
// # Architecture
//
// Each function group is a Module:
//
//	type Module interface {
//	    Name() string
//	    Register(L *lua.LState, ns *lua.LTable) error
//	}
//
// Modules are collected in a Registry, which builds the namespace table
// and installs it into a lua.State. Modules reach the editor through the
// Context: a host.Host for editor effects and an Emitter for trigger
// messages. on and fire never call the activation engine directly; they
// post messages that the event loop handles after the current setup
// returns.
package api
