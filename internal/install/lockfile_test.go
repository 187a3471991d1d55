package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockfileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", LockFileName)
	lock, err := LoadLockfile(path)
	require.NoError(t, err)
	assert.Empty(t, lock.Names())

	require.NoError(t, lock.Set("telescope.nvim", LockEntry{Branch: "master", Commit: "abc"}))
	require.NoError(t, lock.Set("gitsigns", LockEntry{Commit: "def"}))
	require.NoError(t, lock.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{
  "gitsigns": {
    "commit": "def"
  },
  "telescope.nvim": {
    "branch": "master",
    "commit": "abc"
  }
}
`, string(data))

	reloaded, err := LoadLockfile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"gitsigns", "telescope.nvim"}, reloaded.Names())
	entry, ok := reloaded.Get("telescope.nvim")
	require.True(t, ok)
	assert.Equal(t, LockEntry{Branch: "master", Commit: "abc"}, entry)

	require.NoError(t, reloaded.Delete("gitsigns"))
	_, ok = reloaded.Get("gitsigns")
	assert.False(t, ok)
}

func TestLockfileSaveOnlyWhenDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)
	lock, err := LoadLockfile(path)
	require.NoError(t, err)
	require.NoError(t, lock.Save())
	assert.NoFileExists(t, path)
}

func TestLockfileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := LoadLockfile(path)
	assert.ErrorContains(t, err, "invalid JSON")
}
