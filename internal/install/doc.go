// Package install makes extension code available on disk before setup.
//
// Manager implements the activation engine's Installer. Each extension
// may have a Source:
//
//   - no source: nothing to install, the extension is built in
//   - Dir only: a local extension; the directory must exist
//   - URL: cloned with git into <root>/<name> (or Dir), pinned to Commit
//     when one is set or recorded in the lockfile
//
// Successful installs are memoized, so EnsureInstalled is cheap to call
// on every activation. Clone failures are retried with exponential
// backoff inside a single call; once EnsureInstalled returns an error the
// engine marks the extension Failed and never asks again.
//
// The lockfile (lazy-lock.json) records the branch and commit of every
// cloned extension, so the same configuration installs the same code on
// another machine.
package install
