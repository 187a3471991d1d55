package loader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/lazyrc.toml", `
[manifest]
path = "~/.config/lazyrc/init.lua"
leader = ","

[install]
concurrency = 8
missing = false
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/lazyrc.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if val, ok := getByPath(config, "manifest.leader"); !ok || val != "," {
		t.Errorf("manifest.leader = %v, want ','", val)
	}
	if val, ok := getByPath(config, "install.concurrency"); !ok || val != int64(8) {
		t.Errorf("install.concurrency = %v (%T), want 8", val, val)
	}
	if val, ok := getByPath(config, "install.missing"); !ok || val != false {
		t.Errorf("install.missing = %v, want false", val)
	}
}

func TestTOMLLoader_MissingFile(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/nope.toml").Load()
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if config != nil {
		t.Errorf("config = %v, want nil", config)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[manifest\npath = 1\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Path != "/bad.toml" {
		t.Errorf("Path = %q", perr.Path)
	}
	if perr.Line == 0 {
		t.Error("Line should be set from the decode error")
	}
}

func TestTOMLLoader_Includes(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/cfg/lazyrc.toml", `
"@include" = "base.toml"

[logging]
level = "debug"
`)
	memfs.AddFile("/cfg/base.toml", `
[logging]
level = "info"
format = "json"
`)

	config, err := NewTOMLLoaderWithFS(memfs, "").LoadWithIncludes("/cfg/lazyrc.toml", DefaultIncludeDepth)
	if err != nil {
		t.Fatalf("LoadWithIncludes failed: %v", err)
	}
	if _, ok := config["@include"]; ok {
		t.Error("@include should be removed")
	}
	if val, _ := getByPath(config, "logging.level"); val != "debug" {
		t.Errorf("logging.level = %v, want main file value", val)
	}
	if val, _ := getByPath(config, "logging.format"); val != "json" {
		t.Errorf("logging.format = %v, want included value", val)
	}
}

func TestTOMLLoader_IncludeCycle(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/a.toml", `"@include" = "b.toml"`)
	memfs.AddFile("/b.toml", `"@include" = "a.toml"`)

	_, err := NewTOMLLoaderWithFS(memfs, "").LoadWithIncludes("/a.toml", DefaultIncludeDepth)
	if !errors.Is(err, ErrIncludeCycle) {
		t.Fatalf("err = %v, want ErrIncludeCycle", err)
	}
	if !strings.Contains(err.Error(), "/a.toml -> /b.toml -> /a.toml") {
		t.Errorf("err = %v, want the include chain", err)
	}
}

func TestTOMLLoader_IncludeDepth(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/1.toml", `"@include" = "2.toml"`)
	memfs.AddFile("/2.toml", `"@include" = ["3.toml"]`)
	memfs.AddFile("/3.toml", `x = 1`)

	if _, err := NewTOMLLoaderWithFS(memfs, "").LoadWithIncludes("/1.toml", 3); err != nil {
		t.Fatalf("depth 3 should suffice: %v", err)
	}
	_, err := NewTOMLLoaderWithFS(memfs, "").LoadWithIncludes("/1.toml", 2)
	if !errors.Is(err, ErrIncludeDepthExceeded) {
		t.Errorf("err = %v, want ErrIncludeDepthExceeded", err)
	}
}

func TestTOMLLoader_IncludeErrors(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/missing.toml", `"@include" = "gone.toml"`)
	memfs.AddFile("/badtype.toml", `"@include" = 42`)

	_, err := NewTOMLLoaderWithFS(memfs, "").LoadWithIncludes("/missing.toml", DefaultIncludeDepth)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing include: err = %v, want fs.ErrNotExist", err)
	}

	_, err = NewTOMLLoaderWithFS(memfs, "").LoadWithIncludes("/badtype.toml", DefaultIncludeDepth)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("bad include type: err = %v, want *ParseError", err)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"install": map[string]any{"root": "/a", "concurrency": int64(4)},
		"lua":     map[string]any{"timeout": "5s"},
	}
	src := map[string]any{
		"install": map[string]any{"root": "/b"},
		"logging": map[string]any{"level": "warn"},
	}

	merged := DeepMerge(dst, src)

	if val, _ := getByPath(merged, "install.root"); val != "/b" {
		t.Errorf("install.root = %v, want /b", val)
	}
	if val, _ := getByPath(merged, "install.concurrency"); val != int64(4) {
		t.Errorf("install.concurrency = %v, want 4", val)
	}
	if val, _ := getByPath(merged, "lua.timeout"); val != "5s" {
		t.Errorf("lua.timeout = %v", val)
	}
	if val, _ := getByPath(merged, "logging.level"); val != "warn" {
		t.Errorf("logging.level = %v", val)
	}
	if val, _ := getByPath(dst, "install.root"); val != "/a" {
		t.Errorf("DeepMerge modified its base: install.root = %v", val)
	}
	if got := DeepMerge(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("DeepMerge(nil, nil) = %v, want empty map", got)
	}
}

// getByPath reads a dot-separated path from nested maps.
func getByPath(data map[string]any, path string) (any, bool) {
	current := data
	parts := strings.Split(path, ".")
	for i, part := range parts {
		val, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return val, true
		}
		next, ok := val.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}
