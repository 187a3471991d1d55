package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `
extensions:
  - name: theme
    setup:
      - option: {name: colorscheme, value: mine}
  - name: finder
    triggers: ["cmd:find"]
  - name: lsp
    triggers: ["ft:*.go"]
    dependencies: [finder]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("LAZYRC_LOG_LEVEL", "error")

	path := filepath.Join(home, "lazyrc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--manifest", path}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lazyrc dev")
}

func TestPlan(t *testing.T) {
	out, err := execute(t, "plan", "lsp")
	require.NoError(t, err)
	assert.Equal(t, "1. finder\n2. lsp\n", out)
}

func TestPlanUnknown(t *testing.T) {
	_, err := execute(t, "plan", "nope")
	assert.Error(t, err)
}

func TestFire(t *testing.T) {
	out, err := execute(t, "fire", "ft:main.go")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `lsp\s+active`, out)
	assert.Regexp(t, `finder\s+active`, out)
}

func TestFireRejectsBadTrigger(t *testing.T) {
	_, err := execute(t, "fire", "bogus:x")
	assert.Error(t, err)
}

func TestRunReadsStdin(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
	t.Setenv("LAZYRC_LOG_LEVEL", "error")
	path := filepath.Join(home, "lazyrc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	root := newRootCmd()
	root.SetIn(bytes.NewBufferString("cmd:find\n"))
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--manifest", path, "run"})
	assert.NoError(t, root.ExecuteContext(context.Background()))
}
