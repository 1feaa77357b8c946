// Package repocache manages the process-wide cache directory for cloned
// repositories. The directory is created lazily, at most once per
// process, and must be removed on every exit path; the CLI wires
// Cleanup into both normal termination and the interrupt handler.
package repocache

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/hashing"
	"github.com/arthur-debert/refold/pkg/logging"
)

var (
	mu       sync.Mutex
	cacheDir string
)

// Dir returns the cache directory, creating it on first use.
func Dir() (string, error) {
	mu.Lock()
	defer mu.Unlock()
	if cacheDir != "" {
		return cacheDir, nil
	}
	dir, err := os.MkdirTemp("", "refold-cache-")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrFileAccess, "could not create cache directory")
	}
	logger := logging.GetLogger("repocache")
	logger.Debug().Str("dir", dir).Msg("Created clone cache")
	cacheDir = dir
	return cacheDir, nil
}

// RepoDir returns a stable per-repository subdirectory of the cache, so
// one repository is cloned at most once per process.
func RepoDir(repo string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, hashing.Compute([]byte(repo))[:16]), nil
}

// Cleanup removes the cache directory if it was ever created. It is safe
// to call multiple times and from the interrupt handler.
func Cleanup() error {
	mu.Lock()
	defer mu.Unlock()
	if cacheDir == "" {
		return nil
	}
	dir := cacheDir
	cacheDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "could not clean up cache directory")
	}
	return nil
}
