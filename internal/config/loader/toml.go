package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// IncludeKey lists files merged beneath the file that names them.
const IncludeKey = "@include"

// DefaultIncludeDepth bounds nested @include directives.
const DefaultIncludeDepth = 8

// Include errors.
var (
	ErrIncludeDepthExceeded = errors.New("include depth exceeded")
	ErrIncludeCycle         = errors.New("include cycle")
)

// TOMLLoader loads a TOML settings file.
type TOMLLoader struct {
	fs   FileSystem
	path string
}

// NewTOMLLoader creates a loader for path on the local disk.
func NewTOMLLoader(path string) *TOMLLoader {
	return NewTOMLLoaderWithFS(OSFS{}, path)
}

// NewTOMLLoaderWithFS creates a loader reading through fsys.
func NewTOMLLoaderWithFS(fsys FileSystem, path string) *TOMLLoader {
	return &TOMLLoader{fs: fsys, path: path}
}

// Load reads the loader's file without following includes.
func (l *TOMLLoader) Load() (map[string]any, error) {
	return l.read(l.path)
}

// LoadWithIncludes reads path and every file it includes, at most maxDepth
// levels deep. Included files are merged first so the including file
// wins. A missing top-level file returns nil, nil; a missing include is an
// error.
func (l *TOMLLoader) LoadWithIncludes(path string, maxDepth int) (map[string]any, error) {
	return l.loadChain(path, maxDepth, nil)
}

func (l *TOMLLoader) loadChain(path string, depth int, chain []string) (map[string]any, error) {
	clean := filepath.Clean(path)
	if slices.Contains(chain, clean) {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, strings.Join(append(chain, clean), " -> "))
	}
	if depth <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncludeDepthExceeded, clean)
	}

	settings, err := l.read(clean)
	if err != nil || settings == nil {
		return settings, err
	}

	includes, err := includeList(settings[IncludeKey])
	if err != nil {
		return nil, &ParseError{Path: clean, Message: err.Error(), Err: err}
	}
	delete(settings, IncludeKey)

	chain = append(chain, clean)
	base := map[string]any{}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(clean), inc)
		}
		included, err := l.loadChain(inc, depth-1, chain)
		if err != nil {
			return nil, fmt.Errorf("include %s: %w", inc, err)
		}
		if included == nil {
			return nil, fmt.Errorf("include %s: %w", inc, fs.ErrNotExist)
		}
		base = DeepMerge(base, included)
	}
	return DeepMerge(base, settings), nil
}

// read parses one file. A missing file returns nil, nil.
func (l *TOMLLoader) read(path string) (map[string]any, error) {
	data, err := l.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}

	settings := map[string]any{}
	if err := toml.Unmarshal(data, &settings); err != nil {
		perr := &ParseError{Path: path, Message: err.Error(), Err: err}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			perr.Line, perr.Column = decodeErr.Position()
		}
		return nil, perr
	}
	return settings, nil
}

// includeList accepts a single path or a list of paths.
func includeList(v any) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings, got %T", IncludeKey, item)
			}
			paths = append(paths, s)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("%s must be a string or a list of strings, got %T", IncludeKey, v)
	}
}

// ParseError is a settings file that is not valid TOML.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
