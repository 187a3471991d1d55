package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lazyrc/internal/config/loader"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	for _, env := range os.Environ() {
		if name, _, ok := strings.Cut(env, "="); ok && strings.HasPrefix(name, EnvPrefix) {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, cfg.Path)
	assert.Equal(t, filepath.Join(home, ".config", "lazyrc", "init.lua"), cfg.Manifest.Path)
	assert.Equal(t, " ", cfg.Manifest.Leader)
	assert.Equal(t, filepath.Join(home, ".local", "share", "lazyrc", "extensions"), cfg.Install.Root)
	assert.Equal(t, filepath.Join(home, ".config", "lazyrc", "lazy-lock.json"), cfg.Install.Lockfile)
	assert.True(t, cfg.Install.Missing)
	assert.Equal(t, 4, cfg.Install.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.Install.RetryInitial.Std())
	assert.Equal(t, 30*time.Second, cfg.Install.RetryMax.Std())
	assert.Equal(t, 5*time.Second, cfg.Lua.Timeout.Std())
	assert.Equal(t, 1024, cfg.Events.QueueCapacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.Metrics.Address)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "lazyrc.toml")
	writeFile(t, path, `
[manifest]
path = "~/dots/lazyrc.yaml"
leader = ","
watch = true
disabled = ["copilot.lua"]

[install]
concurrency = 8
retry_initial = "1s"

[logging]
level = "debug"
format = "json"
`)
	t.Setenv("LAZYRC_LOG_LEVEL", "warn")
	t.Setenv("LAZYRC_LUA_TIMEOUT", "250ms")
	t.Setenv("LAZYRC_INSTALL_MISSING", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, filepath.Join(home, "dots", "lazyrc.yaml"), cfg.Manifest.Path)
	assert.Equal(t, ",", cfg.Manifest.Leader)
	assert.True(t, cfg.Manifest.Watch)
	assert.Equal(t, []string{"copilot.lua"}, cfg.Manifest.Disabled)
	assert.Equal(t, 8, cfg.Install.Concurrency)
	assert.Equal(t, time.Second, cfg.Install.RetryInitial.Std())
	assert.Equal(t, 30*time.Second, cfg.Install.RetryMax.Std(), "unset keys keep defaults")
	assert.False(t, cfg.Install.Missing)
	assert.Equal(t, 250*time.Millisecond, cfg.Lua.Timeout.Std())
	assert.Equal(t, "warn", cfg.Logging.Level, "environment overrides the file")
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadIncludes(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "cfg", "lazyrc.toml")
	writeFile(t, path, `"@include" = "machine.toml"`)
	writeFile(t, filepath.Join(home, "cfg", "machine.toml"), "[metrics]\naddress = \"127.0.0.1:9464\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Address)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	home := isolate(t)
	_, err := Load(filepath.Join(home, "nope.toml"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadParseError(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "lazyrc.toml")
	writeFile(t, path, "[install\n")

	_, err := Load(path)
	var perr *loader.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestLoadTypeMismatch(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "lazyrc.toml")
	writeFile(t, path, "[lua]\ntimeout = \"soon\"\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Manifest.Path = "init.vim"
	cfg.Install.Concurrency = 0
	cfg.Install.RetryMax = Duration(-time.Second)
	cfg.Events.QueueCapacity = -1
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	for _, path := range []string{
		"manifest.path", "install.concurrency", "install.retry_max",
		"events.queue_capacity", "logging.level", "logging.format",
	} {
		assert.Contains(t, err.Error(), path)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("later")))
}
