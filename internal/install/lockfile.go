package install

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// LockFileName is the default lockfile name.
const LockFileName = "lazy-lock.json"

// LockEntry is the recorded state of one checkout.
type LockEntry struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit"`
}

// Lockfile is a JSON object mapping extension names to LockEntry.
// It is safe for concurrent use.
type Lockfile struct {
	path string

	mu    sync.Mutex
	data  []byte
	dirty bool
}

// LoadLockfile reads path. A missing file yields an empty lockfile.
func LoadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		data = []byte("{}")
	case err != nil:
		return nil, fmt.Errorf("read lockfile: %w", err)
	case !gjson.ValidBytes(data):
		return nil, fmt.Errorf("read lockfile %s: invalid JSON", path)
	}
	return &Lockfile{path: path, data: data}, nil
}

// Path returns the file the lockfile is saved to.
func (l *Lockfile) Path() string {
	return l.path
}

// Get returns the entry for name.
func (l *Lockfile) Get(name string) (LockEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res := gjson.GetBytes(l.data, gjson.Escape(name))
	if !res.Exists() {
		return LockEntry{}, false
	}
	return LockEntry{
		Branch: res.Get("branch").String(),
		Commit: res.Get("commit").String(),
	}, true
}

// Set records the entry for name.
func (l *Lockfile) Set(name string, entry LockEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := sjson.SetBytes(l.data, gjson.Escape(name), entry)
	if err != nil {
		return fmt.Errorf("update lockfile entry %s: %w", name, err)
	}
	l.data = data
	l.dirty = true
	return nil
}

// Delete removes the entry for name.
func (l *Lockfile) Delete(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := sjson.DeleteBytes(l.data, gjson.Escape(name))
	if err != nil {
		return fmt.Errorf("delete lockfile entry %s: %w", name, err)
	}
	l.data = data
	l.dirty = true
	return nil
}

// Names returns the locked extension names, sorted.
func (l *Lockfile) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var names []string
	gjson.ParseBytes(l.data).ForEach(func(key, _ gjson.Result) bool {
		names = append(names, key.String())
		return true
	})
	sort.Strings(names)
	return names
}

// Bytes returns the pretty-printed lockfile with sorted keys.
func (l *Lockfile) Bytes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return pretty.PrettyOptions(l.data, &pretty.Options{Width: 80, Indent: "  ", SortKeys: true})
}

// Save writes the lockfile if it changed since it was loaded or saved.
// The write goes through a temporary file and a rename.
func (l *Lockfile) Save() error {
	l.mu.Lock()
	dirty := l.dirty
	l.mu.Unlock()
	if !dirty || l.path == "" {
		return nil
	}

	out := l.Bytes()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("save lockfile: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".lazy-lock-*.json")
	if err != nil {
		return fmt.Errorf("save lockfile: %w", err)
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save lockfile: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save lockfile: %w", err)
	}

	l.mu.Lock()
	l.dirty = false
	l.mu.Unlock()
	return nil
}
