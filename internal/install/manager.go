package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
)

// Install errors.
var (
	// ErrLocalMissing is returned when a local extension directory does not exist.
	ErrLocalMissing = errors.New("local extension directory not found")

	// ErrDuplicateSource is returned when two sources share a name.
	ErrDuplicateSource = errors.New("duplicate source")
)

// Defaults for retries and prefetching.
const (
	DefaultRetryInitial    = 500 * time.Millisecond
	DefaultRetryMaxElapsed = 30 * time.Second
	DefaultConcurrency     = 4
)

// Manager installs extensions on demand.
// It is safe for concurrent use.
type Manager struct {
	root        string
	runner      Runner
	lock        *Lockfile
	logger      zerolog.Logger
	retryInit   time.Duration
	retryMax    time.Duration
	concurrency int

	sources map[string]Source

	mu        sync.Mutex
	installed map[string]bool
	// nameLocks serializes installs of the same extension.
	nameLocks map[string]*sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithRunner sets the command runner.
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithLockfile sets the lockfile consulted for pins and updated after clones.
func WithLockfile(l *Lockfile) Option {
	return func(m *Manager) {
		m.lock = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRetry sets the initial backoff interval and the total time spent
// retrying one clone. A zero maxElapsed disables retries.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(m *Manager) {
		if initial > 0 {
			m.retryInit = initial
		}
		if maxElapsed >= 0 {
			m.retryMax = maxElapsed
		}
	}
}

// WithConcurrency sets the number of concurrent installs during Prefetch.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// NewManager creates a manager that clones into root.
func NewManager(root string, sources []Source, opts ...Option) (*Manager, error) {
	m := &Manager{
		root:        root,
		runner:      ExecRunner{},
		logger:      zerolog.Nop(),
		retryInit:   DefaultRetryInitial,
		retryMax:    DefaultRetryMaxElapsed,
		concurrency: DefaultConcurrency,
		sources:     make(map[string]Source, len(sources)),
		installed:   make(map[string]bool),
		nameLocks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, src := range sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source without name: %+v", src)
		}
		if _, exists := m.sources[src.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, src.Name)
		}
		m.sources[src.Name] = src
	}
	return m, nil
}

// Source returns the source registered for name.
func (m *Manager) Source(name string) (Source, bool) {
	src, ok := m.sources[name]
	return src, ok
}

// Path returns the directory holding name's code, or "" for extensions
// without a source.
func (m *Manager) Path(name string) string {
	src, ok := m.sources[name]
	if !ok || src.IsZero() {
		return ""
	}
	if src.Dir != "" {
		return src.Dir
	}
	return filepath.Join(m.root, name)
}

// Installed reports whether name's code is present: memoized by a
// successful EnsureInstalled or found on disk.
func (m *Manager) Installed(name string) bool {
	m.mu.Lock()
	done := m.installed[name]
	m.mu.Unlock()
	if done {
		return true
	}

	src, ok := m.sources[name]
	if !ok || src.IsZero() {
		return true
	}
	if src.IsLocal() {
		return dirExists(src.Dir)
	}
	return dirExists(filepath.Join(m.Path(name), ".git"))
}

// Missing returns the names whose code is not on disk, sorted.
func (m *Manager) Missing() []string {
	var names []string
	for name := range m.sources {
		if !m.Installed(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// EnsureInstalled makes name's code available. Calls after a success are
// no-ops. Concurrent calls for the same name wait for each other.
func (m *Manager) EnsureInstalled(ctx context.Context, name string) error {
	nl := m.nameLock(name)
	nl.Lock()
	defer nl.Unlock()

	m.mu.Lock()
	done := m.installed[name]
	m.mu.Unlock()
	if done {
		return nil
	}

	if err := m.install(ctx, name); err != nil {
		return err
	}

	m.mu.Lock()
	m.installed[name] = true
	m.mu.Unlock()
	return nil
}

func (m *Manager) install(ctx context.Context, name string) error {
	src, ok := m.sources[name]
	if !ok || src.IsZero() {
		return nil
	}
	if src.IsLocal() {
		if !dirExists(src.Dir) {
			return fmt.Errorf("%w: %s", ErrLocalMissing, src.Dir)
		}
		return nil
	}

	dir := m.Path(name)
	log := m.logger.With().Str("extension", name).Str("dir", dir).Logger()
	if dirExists(filepath.Join(dir, ".git")) {
		log.Debug().Msg("already cloned")
		return nil
	}

	start := time.Now()
	if err := m.clone(ctx, src, dir, log); err != nil {
		return err
	}

	commit := src.Commit
	if commit == "" && m.lock != nil {
		if entry, ok := m.lock.Get(name); ok {
			commit = entry.Commit
		}
	}
	if commit != "" {
		if _, err := m.runner.Run(ctx, dir, "git", "checkout", "--quiet", commit); err != nil {
			// An unpinned clone would be taken as installed next time.
			_ = os.RemoveAll(dir)
			return fmt.Errorf("checkout %s: %w", commit, err)
		}
	}

	head, err := m.runner.Run(ctx, dir, "git", "rev-parse", "HEAD")
	if err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("read HEAD: %w", err)
	}
	branch := src.Branch
	if branch == "" {
		if out, err := m.runner.Run(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
			branch = strings.TrimSpace(string(out))
		}
	}

	if m.lock != nil {
		if err := m.lock.Set(name, LockEntry{Branch: branch, Commit: strings.TrimSpace(string(head))}); err != nil {
			return err
		}
		if err := m.lock.Save(); err != nil {
			log.Warn().Err(err).Msg("lockfile not saved")
		}
	}

	log.Info().Dur("duration", time.Since(start)).Str("commit", strings.TrimSpace(string(head))).Msg("extension installed")
	return nil
}

// clone runs git clone with exponential backoff. A partial checkout is
// removed before each attempt.
func (m *Manager) clone(ctx context.Context, src Source, dir string, log zerolog.Logger) error {
	args := []string{"clone", "--quiet", "--filter=blob:none"}
	if src.Branch != "" {
		args = append(args, "--branch", src.Branch)
	}
	args = append(args, src.URL, dir)

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("create install root: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		if err := os.RemoveAll(dir); err != nil {
			return backoff.Permanent(fmt.Errorf("remove partial clone: %w", err))
		}
		_, err := m.runner.Run(ctx, "", "git", args...)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if m.retryMax > 0 {
		b = backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(m.retryInit),
			backoff.WithMaxElapsedTime(m.retryMax),
		)
	}
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("clone failed, retrying")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("clone %s after %d attempt(s): %w", src.URL, attempt, err)
	}
	return nil
}

// Prefetch installs names concurrently and returns the joined failures.
// Successful installs are memoized for the activation engine.
func (m *Manager) Prefetch(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	pool, err := ants.NewPool(m.concurrency)
	if err != nil {
		return fmt.Errorf("create install pool: %w", err)
	}
	defer pool.Release()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, name := range names {
		name := name
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if err := m.EnsureInstalled(ctx, name); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", name, submitErr))
			mu.Unlock()
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (m *Manager) nameLock(name string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	nl, ok := m.nameLocks[name]
	if !ok {
		nl = &sync.Mutex{}
		m.nameLocks[name] = nl
	}
	return nl
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
