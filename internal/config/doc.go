// Package config provides lazyrc's settings.
//
// Settings are resolved in layers, higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment (LAZYRC_*)  │  ← Highest priority
//	├─────────────────────────────┤
//	│  2. Settings file           │  ← ~/.config/lazyrc/lazyrc.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Command line flags are applied by the caller after Load.
//
// # Sub-packages
//
//   - loader: TOML and environment variable loading into maps
//   - watcher: fsnotify-based change notification for the settings file and manifest
//
// # Configuration File
//
//	# ~/.config/lazyrc/lazyrc.toml
//	"@include" = "machine.toml"
//
//	[manifest]
//	path = "~/.config/lazyrc/init.lua"
//	leader = " "
//	watch = true
//	disabled = ["copilot.lua"]
//
//	[install]
//	root = "~/.local/share/lazyrc/extensions"
//	lockfile = "~/.config/lazyrc/lazy-lock.json"
//	missing = true
//	concurrency = 4
//	retry_initial = "500ms"
//	retry_max = "30s"
//
//	[lua]
//	timeout = "5s"
//
//	[events]
//	queue_capacity = 1024
//
//	[logging]
//	level = "info"
//	format = "console"
//
//	[metrics]
//	address = "127.0.0.1:9464"
//
// # Error Handling
//
//   - *loader.ParseError: the settings file is not valid TOML
//   - *ValidationError: a setting has an unusable value (wraps ErrValidationFailed)
package config
