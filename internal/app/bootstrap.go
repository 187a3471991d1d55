package app

import (
	"context"

	"github.com/dshills/lazyrc/internal/config"
	"github.com/dshills/lazyrc/internal/config/watcher"
	"github.com/dshills/lazyrc/internal/event"
	"github.com/dshills/lazyrc/internal/host"
	"github.com/dshills/lazyrc/internal/install"
	"github.com/dshills/lazyrc/internal/manifest"
	"github.com/dshills/lazyrc/internal/plugin"
	"github.com/dshills/lazyrc/internal/plugin/api"
	lualib "github.com/dshills/lazyrc/internal/plugin/lua"
)

// allComponents lists every component in initialization order.
var allComponents = []string{
	"config", "logger", "host", "queue", "lua", "manifest",
	"registry", "installer", "metrics", "engine", "watcher",
}

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application, opts Options) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      opts,
		initOrder: make([]string, 0, len(allComponents)),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []func() error{
		b.initConfig,
		b.initLogger,
		b.initHost,
		b.initQueue,
		b.initLua,
		b.initManifest,
		b.initRegistry,
		b.initInstaller,
		b.initMetrics,
		b.initEngine,
		b.initWatcher,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup(context.Background())
			return err
		}
	}
	b.app.logger.Debug().Strs("components", b.initOrder).Msg("bootstrap complete")
	return nil
}

func (b *bootstrapper) initConfig() error {
	cfg, err := config.Load(b.opts.ConfigPath)
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	if b.opts.ManifestPath != "" {
		cfg.Manifest.Path = b.opts.ManifestPath
	}
	if b.opts.LogLevel != "" {
		cfg.Logging.Level = b.opts.LogLevel
	}
	b.app.config = cfg
	b.initOrder = append(b.initOrder, "config")
	return nil
}

func (b *bootstrapper) initLogger() error {
	cfg := b.app.config.Logging
	out := b.opts.LogOutput
	if out == nil && cfg.File != "" {
		f, err := openLogFile(cfg.File)
		if err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		b.app.logFile = f
		out = f
	}
	b.app.logger = NewLogger(LoggerConfig{
		Level:  ParseLogLevel(cfg.Level),
		Format: cfg.Format,
		Output: out,
	})
	b.initOrder = append(b.initOrder, "logger")

	if path := b.app.config.Path; path != "" {
		b.app.logger.Debug().Str("path", path).Msg("settings loaded")
	}
	return nil
}

func (b *bootstrapper) initHost() error {
	b.app.host = b.opts.Host
	if b.app.host == nil {
		b.app.host = host.NewRecorder(WithComponent(b.app.logger, "host"))
	}
	b.initOrder = append(b.initOrder, "host")
	return nil
}

func (b *bootstrapper) initQueue() error {
	b.app.queue = event.NewQueue(
		event.WithCapacity(b.app.config.Events.QueueCapacity),
		event.WithSource("lua"),
		event.WithLogger(WithComponent(b.app.logger, "queue")),
	)
	b.initOrder = append(b.initOrder, "queue")
	return nil
}

func (b *bootstrapper) initLua() error {
	state, err := lualib.NewState(lualib.WithExecutionTimeout(b.app.config.Lua.Timeout.Std()))
	if err != nil {
		return &InitError{Component: "lua", Err: err}
	}
	b.app.lua = state
	b.initOrder = append(b.initOrder, "lua")

	err = api.Install(&api.Context{
		Host:    b.app.host,
		Emitter: b.app.queue,
		State:   state,
		Leader:  b.app.config.Manifest.Leader,
	})
	if err != nil {
		return &InitError{Component: "lua", Err: err}
	}
	return nil
}

func (b *bootstrapper) initManifest() error {
	loader := &manifest.Loader{
		State:    b.app.lua,
		Host:     b.app.host,
		Emitter:  b.app.queue,
		Leader:   b.app.config.Manifest.Leader,
		Disabled: b.app.config.Manifest.Disabled,
		Logger:   WithComponent(b.app.logger, "manifest"),
	}
	m, err := loader.Load(context.Background(), b.app.config.Manifest.Path)
	if err != nil {
		return &InitError{Component: "manifest", Err: err}
	}
	b.app.manifest = m
	b.initOrder = append(b.initOrder, "manifest")

	b.app.logger.Info().
		Str("path", m.Path).
		Int("extensions", len(m.Decls)).
		Strs("disabled", m.Disabled).
		Msg("manifest loaded")
	return nil
}

func (b *bootstrapper) initRegistry() error {
	reg := plugin.NewRegistry()
	if err := b.app.manifest.Register(reg); err != nil {
		return &InitError{Component: "registry", Err: err}
	}
	if err := reg.Seal(); err != nil {
		return &InitError{Component: "registry", Err: err}
	}
	b.app.registry = reg
	b.initOrder = append(b.initOrder, "registry")
	return nil
}

func (b *bootstrapper) initInstaller() error {
	if b.opts.NoInstall {
		return nil
	}
	cfg := b.app.config.Install

	lock, err := install.LoadLockfile(cfg.Lockfile)
	if err != nil {
		return &InitError{Component: "installer", Err: err}
	}
	mgr, err := install.NewManager(cfg.Root, b.app.manifest.Sources(),
		install.WithRunner(b.opts.Runner),
		install.WithLockfile(lock),
		install.WithLogger(WithComponent(b.app.logger, "install")),
		install.WithRetry(cfg.RetryInitial.Std(), cfg.RetryMax.Std()),
		install.WithConcurrency(cfg.Concurrency),
	)
	if err != nil {
		return &InitError{Component: "installer", Err: err}
	}
	b.app.installer = mgr
	b.initOrder = append(b.initOrder, "installer")
	return nil
}

func (b *bootstrapper) initMetrics() error {
	b.app.metrics = NewMetrics()
	b.initOrder = append(b.initOrder, "metrics")
	return nil
}

func (b *bootstrapper) initEngine() error {
	opts := []plugin.EngineOption{
		plugin.WithLogger(WithComponent(b.app.logger, "engine")),
		plugin.WithEventHandler(b.app.metrics.Observe),
	}
	if b.app.installer != nil {
		opts = append(opts, plugin.WithInstaller(b.app.installer))
	}
	engine, err := plugin.NewEngine(b.app.registry, opts...)
	if err != nil {
		return &InitError{Component: "engine", Err: err}
	}
	b.app.engine = engine
	b.initOrder = append(b.initOrder, "engine")
	return nil
}

func (b *bootstrapper) initWatcher() error {
	if !b.app.config.Manifest.Watch || b.opts.NoWatch {
		return nil
	}

	w, err := watcher.New(watcher.WithLogger(WithComponent(b.app.logger, "watcher")))
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}
	b.app.watcher = w
	b.initOrder = append(b.initOrder, "watcher")

	paths := []string{b.app.manifest.Path}
	if b.app.config.Path != "" {
		paths = append(paths, b.app.config.Path)
	}
	for _, path := range paths {
		if err := w.Watch(path); err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}
	w.OnChange(b.app.onFileChange)
	w.Start()
	return nil
}

// cleanup releases initialized components in reverse order.
func (b *bootstrapper) cleanup(ctx context.Context) {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(ctx, b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(ctx context.Context, component string) {
	switch component {
	case "watcher":
		if b.app.watcher != nil {
			if err := b.app.watcher.Stop(); err != nil {
				b.app.logger.Debug().Err(err).Msg("stop watcher")
			}
			b.app.watcher = nil
		}
	case "metrics":
		if b.app.metrics != nil {
			if err := b.app.metrics.Close(ctx); err != nil {
				b.app.logger.Debug().Err(err).Msg("stop metrics server")
			}
		}
	case "lua":
		if b.app.lua != nil {
			_ = b.app.lua.Close()
		}
	case "queue":
		if b.app.queue != nil {
			b.app.queue.Close()
		}
	case "logger":
		if b.app.logFile != nil {
			_ = b.app.logFile.Close()
			b.app.logFile = nil
		}
	}
}
