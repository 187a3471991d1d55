// Package key normalizes key notation used by keymap triggers.
//
// Key specifications can be written in multiple formats:
//
//   - Vim-style: "<leader>ff", "<C-p>", "<c-P>", "gd", "<S-Tab>", "<CR>"
//   - With modifiers: "Ctrl+P", "Ctrl+Shift+Tab", "Alt+x Ctrl+s"
//
// Every format collapses to one canonical Vim-style string so that a
// keymap declared as "<c-p>" and a key press reported as "Ctrl+P"
// compare equal. "<leader>" expands to the configured leader key.
package key
