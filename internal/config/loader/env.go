package loader

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// EnvLoader reads settings from prefixed environment variables.
//
// Aliased names map to an explicit settings path. Any other prefixed
// variable maps by splitting at the first underscore after the prefix:
// LAZYRC_INSTALL_RETRY_MAX sets install.retry_max.
type EnvLoader struct {
	prefix  string
	aliases map[string]string
}

// NewEnvLoader creates a loader for prefix ("LAZYRC_") with the built-in
// short names.
func NewEnvLoader(prefix string) *EnvLoader {
	return NewEnvLoaderWithMapping(prefix, map[string]string{
		prefix + "MANIFEST":     "manifest.path",
		prefix + "LEADER":       "manifest.leader",
		prefix + "DISABLED":     "manifest.disabled",
		prefix + "LOG_LEVEL":    "logging.level",
		prefix + "LOG_FORMAT":   "logging.format",
		prefix + "INSTALL_ROOT": "install.root",
		prefix + "LOCKFILE":     "install.lockfile",
		prefix + "METRICS_ADDR": "metrics.address",
	})
}

// NewEnvLoaderWithMapping creates a loader with custom aliases from
// variable name to settings path.
func NewEnvLoaderWithMapping(prefix string, aliases map[string]string) *EnvLoader {
	return &EnvLoader{prefix: prefix, aliases: aliases}
}

// Load returns every prefixed variable as a nested map. Empty values are
// kept.
func (l *EnvLoader) Load() (map[string]any, error) {
	vars := map[string]string{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(name, l.prefix) {
			vars[name] = value
		}
	}
	for name := range l.aliases {
		if value, ok := os.LookupEnv(name); ok {
			vars[name] = value
		}
	}

	// Sorted so aliases and derived paths for the same key resolve the same
	// way on every run.
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	settings := map[string]any{}
	for _, name := range names {
		setByPath(settings, l.envToPath(name), l.parseValue(vars[name]))
	}
	return settings, nil
}

// envToPath returns the settings path a variable sets.
func (l *EnvLoader) envToPath(name string) string {
	if path, ok := l.aliases[name]; ok {
		return path
	}
	key := strings.ToLower(strings.TrimPrefix(name, l.prefix))
	if section, setting, ok := strings.Cut(key, "_"); ok {
		return section + "." + setting
	}
	return key
}

// parseValue converts a variable to the type its text looks like: bool
// words, integers, decimals and JSON lists or objects. Everything else,
// durations included, stays a string.
func (l *EnvLoader) parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		if gjson.Valid(s) {
			return gjson.Parse(s).Value()
		}
	}
	return s
}

// setByPath sets a dot-separated path, creating intermediate maps.
func setByPath(data map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, ok := data[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			data[key] = next
		}
		data = next
	}
	data[keys[len(keys)-1]] = value
}
