package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/lazyrc/internal/host"
	"github.com/dshills/lazyrc/internal/input/key"
	"github.com/dshills/lazyrc/internal/install"
	"github.com/dshills/lazyrc/internal/plugin/api"
	"github.com/dshills/lazyrc/internal/trigger"
)

// yamlFile is the document layout of a YAML manifest.
type yamlFile struct {
	Extensions []yamlExtension `yaml:"extensions"`
}

type yamlExtension struct {
	Name         string       `yaml:"name"`
	Source       yamlSource   `yaml:"source"`
	Triggers     []string     `yaml:"triggers"`
	Dependencies []string     `yaml:"dependencies"`
	Lazy         bool         `yaml:"lazy"`
	Enabled      *bool        `yaml:"enabled"`
	Setup        []yamlAction `yaml:"setup"`
}

// yamlSource accepts either an "owner/repo" string or a mapping.
type yamlSource struct {
	install.Source
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *yamlSource) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var ref string
		if err := value.Decode(&ref); err != nil {
			return err
		}
		var e entry
		e.applyRef(ref)
		s.Source = e.Source
		s.Name = e.Name
		return nil
	}
	if err := value.Decode(&s.Source); err != nil {
		return err
	}
	s.URL = install.ShortURL(s.URL)
	s.Dir = expandHome(s.Dir)
	return nil
}

// yamlAction is one setup step. Exactly one field is set.
type yamlAction struct {
	Option *struct {
		Name  string `yaml:"name"`
		Value any    `yaml:"value"`
	} `yaml:"option"`
	Keymap *struct {
		Mode    string `yaml:"mode"`
		Keys    string `yaml:"keys"`
		Command string `yaml:"command"`
		Desc    string `yaml:"desc"`
	} `yaml:"keymap"`
	Command *struct {
		Name    string `yaml:"name"`
		Command string `yaml:"command"`
		Desc    string `yaml:"desc"`
	} `yaml:"command"`
	LSP *struct {
		Server    string   `yaml:"server"`
		Filetypes []string `yaml:"filetypes"`
	} `yaml:"lsp"`
	Notify *struct {
		Message string `yaml:"message"`
		Level   string `yaml:"level"`
	} `yaml:"notify"`
	Bind *struct {
		Trigger   string `yaml:"trigger"`
		Extension string `yaml:"extension"`
	} `yaml:"bind"`
	Fire string `yaml:"fire"`
}

// loadYAML reads a declarative manifest:
//
//	extensions:
//	  - name: finder
//	    source: nvim-telescope/telescope.nvim
//	    triggers: ["cmd:Telescope", "key:n:<leader>ff"]
//	    dependencies: [plenary]
//	    setup:
//	      - command: {name: Find, command: Telescope}
func (l *Loader) loadYAML(path string) ([]entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}

	entries := make([]entry, 0, len(doc.Extensions))
	for i, ext := range doc.Extensions {
		e, err := l.yamlEntry(ext)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: extension %d: %v", ErrInvalidManifest, path, i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (l *Loader) yamlEntry(ext yamlExtension) (entry, error) {
	e := entry{enabled: ext.Enabled == nil || *ext.Enabled}
	e.Name = ext.Name
	if e.Name == "" {
		e.Name = ext.Source.Name
	}
	if err := validateName(e.Name); err != nil {
		return e, err
	}
	e.Source = ext.Source.Source
	e.Source.Name = ""
	e.Lazy = ext.Lazy
	e.Dependencies = ext.Dependencies

	for _, text := range ext.Triggers {
		t, err := trigger.Parse(text, l.Leader)
		if err != nil {
			return e, fmt.Errorf("%s: %w", e.Name, err)
		}
		e.Triggers = append(e.Triggers, t)
	}

	steps := make([]func() error, 0, len(ext.Setup))
	for i, action := range ext.Setup {
		step, err := l.yamlStep(action)
		if err != nil {
			return e, fmt.Errorf("%s: setup step %d: %w", e.Name, i+1, err)
		}
		steps = append(steps, step)
	}
	if len(steps) > 0 {
		e.Setup = func() error {
			for i, step := range steps {
				if err := step(); err != nil {
					return fmt.Errorf("setup step %d: %w", i+1, err)
				}
			}
			return nil
		}
	}
	return e, nil
}

// yamlStep compiles one setup action. Arguments are validated now; the
// host is only called when setup runs.
func (l *Loader) yamlStep(a yamlAction) (func() error, error) {
	var (
		steps []func() error
		set   []string
	)
	add := func(name string, step func() error) {
		set = append(set, name)
		steps = append(steps, step)
	}

	if a.Option != nil {
		opt := *a.Option
		if opt.Name == "" {
			return nil, errors.New("option: name is required")
		}
		add("option", func() error { return l.Host.SetOption(opt.Name, opt.Value) })
	}
	if a.Keymap != nil {
		km := *a.Keymap
		if km.Mode == "" {
			km.Mode = "n"
		}
		mode, err := key.ParseMode(km.Mode)
		if err != nil {
			return nil, fmt.Errorf("keymap: %w", err)
		}
		keys, err := key.Normalize(km.Keys, l.Leader)
		if err != nil {
			return nil, fmt.Errorf("keymap: %w", err)
		}
		action := host.Action{Command: km.Command, Desc: km.Desc}
		if err := action.Validate(); err != nil {
			return nil, fmt.Errorf("keymap: %w", err)
		}
		add("keymap", func() error { return l.Host.Map(mode, keys, action) })
	}
	if a.Command != nil {
		cmd := *a.Command
		if cmd.Name == "" {
			return nil, errors.New("command: name is required")
		}
		action := host.Action{Command: cmd.Command, Desc: cmd.Desc}
		if err := action.Validate(); err != nil {
			return nil, fmt.Errorf("command: %w", err)
		}
		add("command", func() error { return l.Host.RegisterCommand(cmd.Name, action) })
	}
	if a.LSP != nil {
		lsp := *a.LSP
		if lsp.Server == "" {
			return nil, errors.New("lsp: server is required")
		}
		add("lsp", func() error { return l.Host.StartLanguageServer(lsp.Server, lsp.Filetypes) })
	}
	if a.Notify != nil {
		n := *a.Notify
		level := host.ParseLevel(n.Level)
		add("notify", func() error { return l.Host.Notify(n.Message, level) })
	}
	if a.Bind != nil {
		t, err := trigger.Parse(a.Bind.Trigger, l.Leader)
		if err != nil {
			return nil, fmt.Errorf("bind: %w", err)
		}
		name := a.Bind.Extension
		if name == "" {
			return nil, errors.New("bind: extension is required")
		}
		add("bind", func() error { return l.emitter().Bind(t, name) })
	}
	if a.Fire != "" {
		t, err := trigger.Parse(a.Fire, l.Leader)
		if err != nil {
			return nil, fmt.Errorf("fire: %w", err)
		}
		add("fire", func() error { return l.emitter().Fire(t) })
	}

	switch len(steps) {
	case 0:
		return nil, errors.New("empty action")
	case 1:
		return steps[0], nil
	default:
		return nil, fmt.Errorf("one action per step, got %s", strings.Join(set, ", "))
	}
}

// errNoEmitter is returned by bind and fire steps when triggers are unavailable.
var errNoEmitter = errors.New("triggers are not available")

type nopEmitter struct{}

func (nopEmitter) Fire(trigger.Trigger) error         { return errNoEmitter }
func (nopEmitter) Bind(trigger.Trigger, string) error { return errNoEmitter }

func (l *Loader) emitter() api.Emitter {
	if l.Emitter == nil {
		return nopEmitter{}
	}
	return l.Emitter
}
