package trigger

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of fired filetype values whose lookup
// results are memoized.
const DefaultCacheSize = 256

// globMeta are the characters that make a filetype pattern a glob.
const globMeta = "*?[{"

// entry binds one trigger to one extension.
type entry struct {
	trigger Trigger
	name    string
	order   int
	glob    glob.Glob
}

// Index maps triggers to the extensions they activate.
//
// Lookup results are ordered by the registration order passed to Add,
// never by insertion order, so a binding added later for an early
// extension still sorts first.
//
// Index is not safe for concurrent use; it is owned by the activation loop.
type Index struct {
	exact     map[Trigger][]entry
	fileTypes []entry
	byName    map[string][]Trigger
	cache     *lru.Cache[string, []string]
	size      int
}

// Option configures an Index.
type Option func(*Index)

// WithCacheSize sets the filetype lookup cache size. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(ix *Index) {
		ix.size = n
	}
}

// NewIndex creates an empty index.
func NewIndex(opts ...Option) *Index {
	ix := &Index{
		exact:  make(map[Trigger][]entry),
		byName: make(map[string][]Trigger),
		size:   DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.size > 0 {
		// lru.New only fails for non-positive sizes.
		ix.cache, _ = lru.New[string, []string](ix.size)
	}
	return ix
}

// Add binds t to the extension name. order is the extension's registration
// position and decides lookup order among extensions sharing a trigger.
// Adding the same binding twice is a no-op.
func (ix *Index) Add(t Trigger, name string, order int) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: empty extension name", ErrInvalidTrigger)
	}

	for _, existing := range ix.byName[name] {
		if existing == t {
			return nil
		}
	}

	e := entry{trigger: t, name: name, order: order}
	if t.Kind == KindFileType {
		if strings.ContainsAny(t.Value, globMeta) {
			g, err := glob.Compile(filepath.ToSlash(t.Value), '/')
			if err != nil {
				return fmt.Errorf("%w: filetype pattern %q: %v", ErrInvalidTrigger, t.Value, err)
			}
			e.glob = g
		}
		ix.fileTypes = append(ix.fileTypes, e)
		if ix.cache != nil {
			ix.cache.Purge()
		}
	} else {
		ix.exact[t] = append(ix.exact[t], e)
	}

	ix.byName[name] = append(ix.byName[name], t)
	return nil
}

// Lookup returns the extensions activated by fired, deduplicated and in
// registration order.
func (ix *Index) Lookup(fired Trigger) []string {
	if fired.Kind != KindFileType {
		return names(ix.exact[fired])
	}

	if ix.cache != nil {
		if cached, ok := ix.cache.Get(fired.Value); ok {
			return append([]string(nil), cached...)
		}
	}

	var matched []entry
	for _, e := range ix.fileTypes {
		if matchFileType(e, fired.Value) {
			matched = append(matched, e)
		}
	}
	result := names(matched)

	if ix.cache != nil {
		ix.cache.Add(fired.Value, append([]string(nil), result...))
	}
	return result
}

// Triggers returns the triggers bound to name, in the order they were added.
func (ix *Index) Triggers(name string) []Trigger {
	return append([]Trigger(nil), ix.byName[name]...)
}

// Len returns the number of bindings.
func (ix *Index) Len() int {
	n := 0
	for _, ts := range ix.byName {
		n += len(ts)
	}
	return n
}

// matchFileType reports whether a filetype binding matches a fired value.
// The fired value is either a filetype name ("go", "typescript.tsx") or a
// path ("cmd/main.go").
func matchFileType(e entry, value string) bool {
	pattern := e.trigger.Value
	if pattern == value {
		return true
	}
	// A fired value that is itself a pattern only matches identical patterns.
	if strings.ContainsAny(value, globMeta) {
		return false
	}

	slashed := filepath.ToSlash(value)
	if e.glob != nil {
		return e.glob.Match(slashed) || e.glob.Match(path.Base(slashed))
	}

	// Compound filetypes ("typescript.tsx") and bare file names ("main.go")
	// match on any dotted segment.
	if strings.Contains(slashed, "/") {
		slashed = path.Base(slashed)
	}
	for _, seg := range strings.Split(slashed, ".") {
		if seg == pattern {
			return true
		}
	}
	return false
}

// names sorts entries by registration order and returns unique names.
func names(entries []entry) []string {
	if len(entries) == 0 {
		return nil
	}
	sorted := append([]entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].order < sorted[j].order
	})

	seen := make(map[string]bool, len(sorted))
	result := make([]string, 0, len(sorted))
	for _, e := range sorted {
		if seen[e.name] {
			continue
		}
		seen[e.name] = true
		result = append(result, e.name)
	}
	return result
}
