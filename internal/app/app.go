package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/lazyrc/internal/config"
	"github.com/dshills/lazyrc/internal/config/watcher"
	"github.com/dshills/lazyrc/internal/event"
	"github.com/dshills/lazyrc/internal/host"
	"github.com/dshills/lazyrc/internal/install"
	"github.com/dshills/lazyrc/internal/manifest"
	"github.com/dshills/lazyrc/internal/plugin"
	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
	"github.com/dshills/lazyrc/internal/trigger"
)

// ConfigChanged is the lifecycle event fired when a watched file changes.
const ConfigChanged = "ConfigChanged"

// Application is one lazyrc instance: a sealed registry, its installer and
// the activation engine fed by a single message queue.
//
// Application methods other than Shutdown must be called from one
// goroutine. The file watcher only posts to the queue.
type Application struct {
	config  *config.Config
	logger  zerolog.Logger
	logFile *os.File

	host     *host.Recorder
	queue    *event.Queue
	lua      *lualib.State
	manifest *manifest.Manifest
	registry *plugin.Registry

	// installer is nil when installs are disabled.
	installer *install.Manager
	engine    *plugin.Engine
	metrics   *Metrics
	watcher   *watcher.Watcher

	started      bool
	shutdownOnce sync.Once

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the settings file. Empty reads the default location
	// if it exists.
	ConfigPath string

	// ManifestPath overrides manifest.path from the settings.
	ManifestPath string

	// LogLevel overrides logging.level from the settings.
	LogLevel string

	// LogOutput overrides logging.file and stderr.
	LogOutput io.Writer

	// Runner runs git for the installer. Nil uses the system git.
	Runner install.Runner

	// NoInstall treats every extension as installed.
	NoInstall bool

	// NoWatch disables change detection regardless of manifest.watch.
	NoWatch bool

	// Host receives setup effects. Nil creates a new Recorder.
	Host *host.Recorder
}

// New loads settings and the manifest and builds a ready-to-start
// application. Registration errors such as duplicate names, missing
// dependencies and cycles are returned here.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}
	if err := newBootstrapper(app, opts).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Startup installs missing extensions when install.missing is set, then
// activates every eager extension and processes the messages their setup
// posted. Activation failures are logged and returned joined; they never
// stop other extensions from activating.
func (app *Application) Startup(ctx context.Context) error {
	if app.started {
		return plugin.ErrAlreadyStarted
	}
	app.started = true
	start := time.Now()

	if app.installer != nil && app.config.Install.Missing {
		if missing := app.installer.Missing(); len(missing) > 0 {
			app.logger.Info().Strs("extensions", missing).Msg("installing missing extensions")
			if err := app.installer.Prefetch(ctx, missing); err != nil {
				app.logger.Warn().Err(err).Msg("prefetch failed")
			}
		}
	}

	errs := []error{app.engine.Startup(ctx)}
	errs = append(errs, app.queue.Drain(ctx, app.handle))
	err := errors.Join(errs...)

	app.logger.Info().
		Dur("duration", time.Since(start)).
		Int("extensions", len(app.registry.Names())).
		Bool("ok", err == nil).
		Msg("startup complete")
	return err
}

// Fire posts a trigger and processes the queue until it is empty.
func (app *Application) Fire(ctx context.Context, t trigger.Trigger) error {
	if err := app.queue.Post(event.NewFire(t, "api")); err != nil {
		return err
	}
	return app.queue.Drain(ctx, app.handle)
}

// FireText parses text as a trigger and fires it.
func (app *Application) FireText(ctx context.Context, text string) error {
	t, err := trigger.Parse(text, app.config.Manifest.Leader)
	if err != nil {
		return err
	}
	return app.Fire(ctx, t)
}

// Plan returns the activation order for name without activating anything.
// Active extensions are left out.
func (app *Application) Plan(name string) ([]string, error) {
	return app.engine.Resolver().Resolve(name)
}

// Install installs the named extensions, or every missing one when names is
// empty, without activating them.
func (app *Application) Install(ctx context.Context, names ...string) error {
	if app.installer == nil {
		return ErrNoInstaller
	}
	if len(names) == 0 {
		names = app.installer.Missing()
	}
	for _, name := range names {
		if !app.registry.Has(name) {
			return &plugin.NotFoundError{Name: name}
		}
	}
	return app.installer.Prefetch(ctx, names)
}

// handle is the queue handler. It is the only caller of the engine's
// Fire and Bind.
func (app *Application) handle(ctx context.Context, msg event.Message) error {
	switch msg.Kind {
	case event.KindFire:
		err := app.engine.Fire(ctx, msg.Trigger)
		if execErr := app.execute(msg.Trigger); execErr != nil {
			err = errors.Join(err, execErr)
		}
		return err
	case event.KindBind:
		return app.engine.Bind(msg.Trigger, msg.Extension)
	default:
		return fmt.Errorf("%w: unknown kind %d", event.ErrInvalidMessage, int(msg.Kind))
	}
}

// execute runs the command or key mapping a trigger names once the
// extensions it activated have registered them.
func (app *Application) execute(t trigger.Trigger) error {
	switch t.Kind {
	case trigger.KindCommand:
		if app.host.HasCommand(t.Value) {
			return app.host.ExecuteCommand(t.Value)
		}
	case trigger.KindKeySequence:
		if _, ok := app.host.Mapping(t.Mode, t.Value); ok {
			return app.host.ExecuteMapping(t.Mode, t.Value)
		}
	}
	return nil
}

// onFileChange posts a ConfigChanged event. The registry is sealed, so
// changed declarations only take effect after a restart.
func (app *Application) onFileChange(ev watcher.Event) {
	app.logger.Warn().
		Str("path", ev.Path).
		Str("op", ev.Op.String()).
		Msg("configuration changed; restart to apply")
	if err := app.queue.Post(event.NewFire(trigger.LifecycleEvent(ConfigChanged), "watch")); err != nil {
		app.logger.Debug().Err(err).Msg("change event dropped")
	}
}

// Shutdown stops the watcher and the metrics server and releases the Lua
// state. It is safe to call more than once.
func (app *Application) Shutdown() {
	app.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b := &bootstrapper{app: app, initOrder: allComponents}
		b.cleanup(ctx)
	})
}

// Config returns the resolved settings.
func (app *Application) Config() *config.Config {
	return app.config
}

// Logger returns the application logger.
func (app *Application) Logger() zerolog.Logger {
	return app.logger
}

// Host returns the recorder receiving setup effects.
func (app *Application) Host() *host.Recorder {
	return app.host
}

// Queue returns the message queue.
func (app *Application) Queue() *event.Queue {
	return app.queue
}

// Manifest returns the loaded manifest.
func (app *Application) Manifest() *manifest.Manifest {
	return app.manifest
}

// Registry returns the sealed registry.
func (app *Application) Registry() *plugin.Registry {
	return app.registry
}

// Engine returns the activation engine.
func (app *Application) Engine() *plugin.Engine {
	return app.engine
}

// Installer returns the installer, or nil when installs are disabled.
func (app *Application) Installer() *install.Manager {
	return app.installer
}

// Metrics returns the metrics collectors.
func (app *Application) Metrics() *Metrics {
	return app.metrics
}

// ServeMetrics serves /metrics on metrics.address. It returns the bound
// address, or "" when no address is configured.
func (app *Application) ServeMetrics() (string, error) {
	addr := app.config.Metrics.Address
	if addr == "" {
		return "", nil
	}
	bound, err := app.metrics.Serve(addr, WithComponent(app.logger, "metrics"))
	if err != nil {
		return "", fmt.Errorf("serve metrics on %s: %w", addr, err)
	}
	return bound, nil
}
