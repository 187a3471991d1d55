package install

import (
	"fmt"
	"path"
	"strings"
)

// Source says where an extension's code comes from.
type Source struct {
	// Name is the extension name; it is also the clone directory name.
	Name string `yaml:"-" json:"name"`

	// URL is a git remote. Empty for local or built-in extensions.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// Dir is the checkout directory. Defaults to <root>/<Name> for URL sources.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`

	// Branch is cloned instead of the remote's default branch.
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`

	// Commit pins the checkout. Overrides the lockfile.
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`
}

// IsZero returns true when there is nothing to install.
func (s Source) IsZero() bool {
	return s.URL == "" && s.Dir == ""
}

// IsLocal returns true for directory-only sources.
func (s Source) IsLocal() bool {
	return s.URL == "" && s.Dir != ""
}

// ShortURL expands "owner/repo" to a GitHub URL. Anything that already
// looks like a URL or path is returned unchanged.
func ShortURL(ref string) string {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "git@") ||
		strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, ".") || strings.HasPrefix(ref, "~") {
		return ref
	}
	if strings.Count(ref, "/") == 1 {
		return fmt.Sprintf("https://github.com/%s.git", ref)
	}
	return ref
}

// NameFromURL returns the repository name of a git URL or "owner/repo"
// reference: "nvim-telescope/telescope.nvim" gives "telescope.nvim".
func NameFromURL(ref string) string {
	ref = strings.TrimSuffix(strings.TrimRight(ref, "/"), ".git")
	if i := strings.LastIndex(ref, ":"); i >= 0 && !strings.Contains(ref, "://") {
		ref = ref[i+1:]
	}
	return path.Base(ref)
}
