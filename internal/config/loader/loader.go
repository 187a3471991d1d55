// Package loader reads lazyrc settings into generic maps.
//
// Settings come from a TOML file (with @include support) and from
// LAZYRC_* environment variables. Maps from each source are combined with
// DeepMerge and decoded into config.Config by the caller.
package loader

import "os"

// Source produces one settings layer as a nested map. A source that does
// not exist returns nil, nil.
type Source interface {
	Load() (map[string]any, error)
}

// FileSystem reads settings files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS reads from the local disk.
type OSFS struct{}

// ReadFile implements FileSystem.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

var (
	_ Source = (*TOMLLoader)(nil)
	_ Source = (*EnvLoader)(nil)
)

// DeepMerge returns the union of base and over. Nested maps are merged
// key by key; any other value in over replaces the one in base. Neither
// argument is modified.
func DeepMerge(base, over map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range over {
		overMap, ok := v.(map[string]any)
		baseMap, baseOK := merged[k].(map[string]any)
		if ok && baseOK {
			merged[k] = DeepMerge(baseMap, overMap)
			continue
		}
		merged[k] = v
	}
	return merged
}
