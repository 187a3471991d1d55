package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexExactLookup(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(Command("find"), "finder", 1))
	require.NoError(t, ix.Add(LifecycleEvent("VimEnter"), "dashboard", 2))
	require.NoError(t, ix.Add(mustKey(t, "n", "<leader>ff"), "finder", 1))

	assert.Equal(t, []string{"finder"}, ix.Lookup(Command("find")))
	assert.Empty(t, ix.Lookup(Command("Find")))
	assert.Equal(t, []string{"dashboard"}, ix.Lookup(LifecycleEvent("VimEnter")))
	assert.Equal(t, []string{"finder"}, ix.Lookup(mustKey(t, "normal", "<Space>ff")))
	assert.Empty(t, ix.Lookup(mustKey(t, "i", "<leader>ff")))
}

func TestIndexSharedTriggerUsesRegistrationOrder(t *testing.T) {
	ix := NewIndex()
	// Insert the later-registered extension first.
	require.NoError(t, ix.Add(Command("Git"), "b", 5))
	require.NoError(t, ix.Add(Command("Git"), "a", 2))
	require.NoError(t, ix.Add(Command("Git"), "c", 9))

	assert.Equal(t, []string{"a", "b", "c"}, ix.Lookup(Command("Git")))
}

func TestIndexDuplicateBindingIsNoop(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(Command("x"), "a", 0))
	require.NoError(t, ix.Add(Command("x"), "a", 0))

	assert.Equal(t, []string{"a"}, ix.Lookup(Command("x")))
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, []Trigger{Command("x")}, ix.Triggers("a"))
}

func TestIndexFileTypeMatching(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(FileType("*.go"), "lsp", 0))
	require.NoError(t, ix.Add(FileType("go"), "gotools", 1))
	require.NoError(t, ix.Add(FileType("typescript"), "ts", 2))
	require.NoError(t, ix.Add(FileType("**/testdata/*.json"), "fixtures", 3))
	require.NoError(t, ix.Add(FileType("*.{md,markdown}"), "markdown", 4))

	tests := []struct {
		fired string
		want  []string
	}{
		{"*.go", []string{"lsp"}},
		{"main.go", []string{"lsp", "gotools"}},
		{"cmd/lazyrc/main.go", []string{"lsp", "gotools"}},
		{"go", []string{"gotools"}},
		// Bare filetypes match any dotted segment of the base name.
		{"go.mod", []string{"gotools"}},
		{"go.sum", []string{"gotools"}},
		{"go.work", []string{"gotools"}},
		{"typescript.tsx", []string{"ts"}},
		{"typescriptreact", nil},
		{"internal/testdata/a.json", []string{"fixtures"}},
		{"a.json", nil},
		{"README.md", []string{"markdown"}},
		{"notes.markdown", []string{"markdown"}},
	}
	for _, tt := range tests {
		t.Run(tt.fired, func(t *testing.T) {
			got := ix.Lookup(FileType(tt.fired))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexFileTypeCacheInvalidatedOnAdd(t *testing.T) {
	ix := NewIndex(WithCacheSize(4))
	require.NoError(t, ix.Add(FileType("*.go"), "lsp", 1))
	assert.Equal(t, []string{"lsp"}, ix.Lookup(FileType("main.go")))

	require.NoError(t, ix.Add(FileType("go"), "early", 0))
	assert.Equal(t, []string{"early", "lsp"}, ix.Lookup(FileType("main.go")))
}

func TestIndexCachedResultIsCopied(t *testing.T) {
	ix := NewIndex()
	require.NoError(t, ix.Add(FileType("*.go"), "lsp", 0))

	first := ix.Lookup(FileType("main.go"))
	first[0] = "mutated"
	assert.Equal(t, []string{"lsp"}, ix.Lookup(FileType("main.go")))
}

func TestIndexWithoutCache(t *testing.T) {
	ix := NewIndex(WithCacheSize(0))
	require.NoError(t, ix.Add(FileType("*.go"), "lsp", 0))
	assert.Equal(t, []string{"lsp"}, ix.Lookup(FileType("x.go")))
}

func TestIndexAddRejectsInvalid(t *testing.T) {
	ix := NewIndex()
	assert.ErrorIs(t, ix.Add(Command(""), "a", 0), ErrInvalidTrigger)
	assert.ErrorIs(t, ix.Add(Command("x"), "", 0), ErrInvalidTrigger)
	assert.ErrorIs(t, ix.Add(FileType("[unclosed"), "a", 0), ErrInvalidTrigger)
}
