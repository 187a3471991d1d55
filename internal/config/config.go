package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/lazyrc/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "LAZYRC_"

// Config holds every lazyrc setting.
type Config struct {
	Manifest ManifestConfig `toml:"manifest"`
	Install  InstallConfig  `toml:"install"`
	Lua      LuaConfig      `toml:"lua"`
	Events   EventsConfig   `toml:"events"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`

	// Path is the settings file that was read. Empty when none existed.
	Path string `toml:"-"`
}

// ManifestConfig locates the extension manifest.
type ManifestConfig struct {
	// Path is the .lua, .yaml or .yml manifest.
	Path string `toml:"path"`

	// Leader replaces <leader> in key notation.
	Leader string `toml:"leader"`

	// Watch reports manifest and settings changes while running.
	Watch bool `toml:"watch"`

	// Disabled names extensions to skip without editing the manifest.
	Disabled []string `toml:"disabled"`
}

// InstallConfig configures the installer.
type InstallConfig struct {
	// Root is the directory extensions are cloned into.
	Root string `toml:"root"`

	// Lockfile records installed revisions.
	Lockfile string `toml:"lockfile"`

	// Missing installs every missing extension at startup instead of on
	// first activation.
	Missing bool `toml:"missing"`

	// Concurrency bounds parallel clones.
	Concurrency int `toml:"concurrency"`

	// RetryInitial is the first retry delay; zero disables retries.
	RetryInitial Duration `toml:"retry_initial"`

	// RetryMax bounds the total time spent retrying one clone.
	RetryMax Duration `toml:"retry_max"`
}

// LuaConfig configures the Lua runtime.
type LuaConfig struct {
	// Timeout bounds manifest evaluation and each Lua setup call.
	Timeout Duration `toml:"timeout"`
}

// EventsConfig configures the trigger queue.
type EventsConfig struct {
	// QueueCapacity is the maximum number of pending triggers; zero is unbounded.
	QueueCapacity int `toml:"queue_capacity"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, error or disabled.
	Level string `toml:"level"`

	// Format is console or json.
	Format string `toml:"format"`

	// File receives log output instead of stderr when set.
	File string `toml:"file"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Address serves /metrics when set, e.g. "127.0.0.1:9464".
	Address string `toml:"address"`
}

// Duration is a time.Duration written as a string ("500ms", "5s").
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultConfigDir returns ~/.config/lazyrc, honoring XDG_CONFIG_HOME.
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lazyrc")
	}
	return ".lazyrc"
}

// DefaultDataDir returns ~/.local/share/lazyrc, honoring XDG_DATA_HOME.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lazyrc")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "lazyrc")
	}
	return filepath.Join(".lazyrc", "data")
}

// DefaultPath returns the default settings file.
func DefaultPath() string {
	return filepath.Join(DefaultConfigDir(), "lazyrc.toml")
}

// Default returns the built-in settings.
func Default() *Config {
	configDir := DefaultConfigDir()
	return &Config{
		Manifest: ManifestConfig{
			Path:   filepath.Join(configDir, "init.lua"),
			Leader: " ",
		},
		Install: InstallConfig{
			Root:         filepath.Join(DefaultDataDir(), "extensions"),
			Lockfile:     filepath.Join(configDir, "lazy-lock.json"),
			Missing:      true,
			Concurrency:  4,
			RetryInitial: Duration(500 * time.Millisecond),
			RetryMax:     Duration(30 * time.Second),
		},
		Lua: LuaConfig{
			Timeout: Duration(5 * time.Second),
		},
		Events: EventsConfig{
			QueueCapacity: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load resolves settings from defaults, the TOML file at path and the
// environment. An empty path reads DefaultPath if it exists; a non-empty
// path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	path = expandHome(path)

	defaults, err := toMap(Default())
	if err != nil {
		return nil, err
	}

	file, err := loader.NewTOMLLoader(path).LoadWithIncludes(path, loader.DefaultIncludeDepth)
	if err != nil {
		return nil, err
	}
	if file == nil && explicit {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	env, err := loader.NewEnvLoader(EnvPrefix).Load()
	if err != nil {
		return nil, err
	}

	merged := loader.DeepMerge(loader.DeepMerge(defaults, file), env)
	cfg, err := fromMap(merged)
	if err != nil {
		return nil, err
	}
	if file != nil {
		cfg.Path = path
	}

	cfg.ExpandPaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ExpandPaths replaces a leading ~ in every path setting.
func (c *Config) ExpandPaths() {
	c.Manifest.Path = expandHome(c.Manifest.Path)
	c.Install.Root = expandHome(c.Install.Root)
	c.Install.Lockfile = expandHome(c.Install.Lockfile)
	c.Logging.File = expandHome(c.Logging.File)
}

// Validate checks every setting and returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(path, message string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: message, Value: value})
	}

	switch strings.ToLower(filepath.Ext(c.Manifest.Path)) {
	case ".lua", ".yaml", ".yml":
	default:
		invalid("manifest.path", "must be a .lua, .yaml or .yml file", c.Manifest.Path)
	}
	if c.Install.Root == "" {
		invalid("install.root", "is required", c.Install.Root)
	}
	if c.Install.Concurrency < 1 {
		invalid("install.concurrency", "must be at least 1", c.Install.Concurrency)
	}
	if c.Install.RetryInitial < 0 {
		invalid("install.retry_initial", "must not be negative", c.Install.RetryInitial.Std())
	}
	if c.Install.RetryMax < 0 {
		invalid("install.retry_max", "must not be negative", c.Install.RetryMax.Std())
	}
	if c.Lua.Timeout < 0 {
		invalid("lua.timeout", "must not be negative", c.Lua.Timeout.Std())
	}
	if c.Events.QueueCapacity < 0 {
		invalid("events.queue_capacity", "must not be negative", c.Events.QueueCapacity)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		invalid("logging.level", "unknown level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		invalid("logging.format", "must be console or json", c.Logging.Format)
	}

	return errors.Join(errs...)
}

// toMap converts cfg to the generic form the loaders produce.
func toMap(cfg *Config) (map[string]any, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	return m, nil
}

// fromMap decodes merged settings into a Config.
func fromMap(m map[string]any) (*Config, error) {
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &ValidationError{Path: "settings", Message: err.Error()}
	}
	return cfg, nil
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
