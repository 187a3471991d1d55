package app

import (
	"time"

	"github.com/dshills/lazyrc/internal/plugin"
)

// ExtensionStatus describes one registered extension.
type ExtensionStatus struct {
	Name         string
	State        plugin.State
	Triggers     []string
	Dependencies []string
	Installed    bool
	Error        error
	ActivatedAt  time.Time
}

// Status returns every extension in registration order, including
// triggers bound at runtime.
func (app *Application) Status() []ExtensionStatus {
	exts := app.registry.All()
	result := make([]ExtensionStatus, 0, len(exts))
	for _, ext := range exts {
		var triggers []string
		for _, t := range app.engine.Index().Triggers(ext.Name()) {
			triggers = append(triggers, t.String())
		}
		installed := true
		if app.installer != nil {
			installed = app.installer.Installed(ext.Name())
		}
		result = append(result, ExtensionStatus{
			Name:         ext.Name(),
			State:        ext.State(),
			Triggers:     triggers,
			Dependencies: ext.Spec().Dependencies,
			Installed:    installed,
			Error:        ext.Err(),
			ActivatedAt:  ext.ActivatedAt(),
		})
	}
	return result
}
