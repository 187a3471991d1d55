package host

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Mapping is one recorded key mapping.
type Mapping struct {
	Mode   string
	Keys   string
	Action Action
}

// LanguageServer is one started language server.
type LanguageServer struct {
	Name      string
	FileTypes []string
}

// Notification is one recorded notification.
type Notification struct {
	Message string
	Level   NotificationLevel
}

// maxCommandDepth bounds command-to-command indirection.
const maxCommandDepth = 8

// Recorder is a Host that keeps everything in memory and logs each call.
// It is safe for concurrent use.
type Recorder struct {
	logger zerolog.Logger

	mu            sync.RWMutex
	options       map[string]any
	mappings      map[string]Mapping
	commands      map[string]Action
	servers       map[string]LanguageServer
	notifications []Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder(logger zerolog.Logger) *Recorder {
	return &Recorder{
		logger:   logger,
		options:  make(map[string]any),
		mappings: make(map[string]Mapping),
		commands: make(map[string]Action),
		servers:  make(map[string]LanguageServer),
	}
}

// SetOption implements Host.
func (r *Recorder) SetOption(name string, value any) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty option name", ErrInvalidArgument)
	}
	r.mu.Lock()
	r.options[name] = value
	r.mu.Unlock()

	r.logger.Debug().Str("option", name).Interface("value", value).Msg("option set")
	return nil
}

// Map implements Host. Mapping the same keys again replaces the action.
func (r *Recorder) Map(mode, keys string, action Action) error {
	if keys == "" {
		return fmt.Errorf("%w: empty keys", ErrInvalidArgument)
	}
	if err := action.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.mappings[mappingKey(mode, keys)] = Mapping{Mode: mode, Keys: keys, Action: action}
	r.mu.Unlock()

	r.logger.Debug().Str("mode", mode).Str("keys", keys).Str("action", action.String()).Msg("key mapped")
	return nil
}

// RegisterCommand implements Host.
func (r *Recorder) RegisterCommand(name string, action Action) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty command name", ErrInvalidArgument)
	}
	if err := action.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("%w: %s", ErrCommandExists, name)
	}
	r.commands[name] = action

	r.logger.Debug().Str("command", name).Msg("command registered")
	return nil
}

// StartLanguageServer implements Host. Starting a running server again
// adds filetypes.
func (r *Recorder) StartLanguageServer(server string, filetypes []string) error {
	if strings.TrimSpace(server) == "" {
		return fmt.Errorf("%w: empty server name", ErrInvalidArgument)
	}

	r.mu.Lock()
	ls := r.servers[server]
	ls.Name = server
	for _, ft := range filetypes {
		if !contains(ls.FileTypes, ft) {
			ls.FileTypes = append(ls.FileTypes, ft)
		}
	}
	r.servers[server] = ls
	r.mu.Unlock()

	r.logger.Info().Str("server", server).Strs("filetypes", filetypes).Msg("language server started")
	return nil
}

// Notify implements Host.
func (r *Recorder) Notify(message string, level NotificationLevel) error {
	r.mu.Lock()
	r.notifications = append(r.notifications, Notification{Message: message, Level: level})
	r.mu.Unlock()

	var ev *zerolog.Event
	switch level {
	case NotificationError:
		ev = r.logger.Error()
	case NotificationWarning:
		ev = r.logger.Warn()
	default:
		ev = r.logger.Info()
	}
	ev.Str("level", string(level)).Msg(message)
	return nil
}

// ExecuteCommand implements Executor.
func (r *Recorder) ExecuteCommand(name string) error {
	return r.executeCommand(name, 0)
}

func (r *Recorder) executeCommand(name string, depth int) error {
	if depth > maxCommandDepth {
		return fmt.Errorf("command %s: too many levels of indirection", name)
	}
	r.mu.RLock()
	action, ok := r.commands[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	return r.run(action, depth)
}

// ExecuteMapping implements Executor.
func (r *Recorder) ExecuteMapping(mode, keys string) error {
	r.mu.RLock()
	m, ok := r.mappings[mappingKey(mode, keys)]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: no mapping for %s in mode %s", ErrCommandNotFound, keys, mode)
	}
	return r.run(m.Action, 0)
}

// run executes an action outside the lock, so callbacks may call back
// into the recorder.
func (r *Recorder) run(action Action, depth int) error {
	if action.Func != nil {
		return action.Func()
	}
	return r.executeCommand(action.Command, depth+1)
}

// Option returns an option value.
func (r *Recorder) Option(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.options[name]
	return v, ok
}

// Options returns a copy of all options.
func (r *Recorder) Options() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]any, len(r.options))
	for k, v := range r.options {
		result[k] = v
	}
	return result
}

// Mapping returns the mapping for keys in mode.
func (r *Recorder) Mapping(mode, keys string) (Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[mappingKey(mode, keys)]
	return m, ok
}

// Mappings returns all mappings sorted by mode and keys.
func (r *Recorder) Mappings() []Mapping {
	r.mu.RLock()
	result := make([]Mapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		result = append(result, m)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Mode != result[j].Mode {
			return result[i].Mode < result[j].Mode
		}
		return result[i].Keys < result[j].Keys
	})
	return result
}

// HasCommand returns true if name is registered.
func (r *Recorder) HasCommand(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[name]
	return ok
}

// Commands returns the registered command names, sorted.
func (r *Recorder) Commands() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// LanguageServers returns the started servers sorted by name.
func (r *Recorder) LanguageServers() []LanguageServer {
	r.mu.RLock()
	result := make([]LanguageServer, 0, len(r.servers))
	for _, ls := range r.servers {
		ls.FileTypes = append([]string(nil), ls.FileTypes...)
		result = append(result, ls)
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Notifications returns the notifications in the order they were sent.
func (r *Recorder) Notifications() []Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Notification(nil), r.notifications...)
}

func mappingKey(mode, keys string) string {
	return mode + "\x00" + keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
