// Package plugin provides the lazy extension activation engine for lazyrc.
//
// Extensions are declared once at startup, each with a name, a set of
// activation triggers, an ordered list of dependencies and a setup
// callback. Nothing runs until an extension is needed:
//
//	reg := plugin.NewRegistry()
//	reg.Register(plugin.Spec{Name: "theme", Setup: applyTheme})
//	reg.Register(plugin.Spec{Name: "finder", Triggers: []trigger.Trigger{trigger.Command("find")}, Setup: setupFinder})
//	reg.Register(plugin.Spec{Name: "lsp", Triggers: []trigger.Trigger{trigger.FileType("*.go")}, Dependencies: []string{"finder"}})
//	if err := reg.Seal(); err != nil {
//	    log.Fatal(err) // duplicate names, missing dependencies, cycles
//	}
//
//	engine, _ := plugin.NewEngine(reg, plugin.WithInstaller(installer))
//	engine.Startup(ctx)                            // runs theme only
//	engine.Fire(ctx, trigger.FileType("main.go"))  // finder, then lsp
//
// # Extension Lifecycle
//
// Extensions go through these states:
//
//	StateRegistered -> StateInstalling -> StateSettingUp -> StateActive
//	StateInstalling -> StateFailed   (install or dependency failure)
//	StateSettingUp  -> StateFailed   (setup returned an error or panicked)
//
// Active and Failed are terminal for the life of the process. A failed
// extension is never retried; activating it again returns a *FailedError.
//
// # Architecture
//
//   - Registry: static declarations, sealed before the first activation
//   - Resolver: depth-first dependency ordering with cycle detection
//   - Engine: trigger dispatch and the activation state machine
//   - Installer: capability consulted before setup (see package install)
//
// The trigger index lives in package trigger; the single-threaded message
// loop that feeds the engine lives in package event.
package plugin
