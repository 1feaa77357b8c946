// Package memfolder materializes the resolved file list in memory and
// writes it to disk atomically from the caller's point of view: the
// whole folder is assembled before anything touches the target.
package memfolder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filippo.io/age"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/hashing"
	"github.com/arthur-debert/refold/pkg/logging"
	"github.com/arthur-debert/refold/pkg/manifest"
)

// MemFolder maps slash-separated relative paths to file contents.
type MemFolder map[string][]byte

// Build resolves the manifest's active files and assembles their
// contents. When referenceRoot is non-empty, a hash-pinned file without
// edits whose reference copy already matches the pin is taken from the
// reference instead of fetching; everything else goes through the
// source chain.
func Build(m *manifest.Manifest, requested []string, referenceRoot string, loader *manifest.Loader, identities []age.Identity) (MemFolder, error) {
	logger := logging.GetLogger("memfolder")

	files, err := m.GetActive(requested, loader)
	if err != nil {
		return nil, err
	}
	active, err := m.ActiveTags(requested)
	if err != nil {
		return nil, err
	}

	folder := make(MemFolder, len(files))
	for _, f := range files {
		if err := CheckSubpath(f.Path); err != nil {
			return nil, err
		}
		if referenceRoot != "" && f.Hash != "" && len(f.Edits) == 0 {
			reference, readErr := os.ReadFile(filepath.Join(referenceRoot, filepath.FromSlash(f.Path)))
			if readErr == nil && hashing.Matches(reference, f.Hash) {
				logger.Debug().Str("path", f.Path).Msg("Reusing reference file")
				folder[f.Path] = reference
				continue
			}
		}
		data, err := f.Build(active, identities)
		if err != nil {
			return nil, err
		}
		folder[f.Path] = data
	}
	return folder, nil
}

// CheckSubpath rejects target paths that could escape the output
// folder. Every consumer of resolved paths that touches the filesystem
// must pass them through here first.
func CheckSubpath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") {
		return errors.Newf(errors.ErrUnsafePath, "unsafe target path %q", p)
	}
	for _, component := range strings.Split(p, "/") {
		if component == ".." {
			return errors.Newf(errors.ErrUnsafePath,
				"target path %q may not contain '..'", p)
		}
	}
	return nil
}

// Paths returns the folder's paths, sorted.
func (f MemFolder) Paths() []string {
	paths := make([]string, 0, len(f))
	for p := range f {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// TrackedSubpaths returns the sorted first-level entries the folder
// would create under its target.
func (f MemFolder) TrackedSubpaths() []string {
	seen := make(map[string]bool)
	for p := range f {
		first, _, _ := strings.Cut(p, "/")
		seen[first] = true
	}
	tracked := make([]string, 0, len(seen))
	for p := range seen {
		tracked = append(tracked, p)
	}
	sort.Strings(tracked)
	return tracked
}

// Write replaces target with the folder's contents. An existing target
// directory is removed wholesale first; a non-directory in the way is
// an error.
func (f MemFolder) Write(target string) error {
	info, err := os.Stat(target)
	if err == nil && !info.IsDir() {
		return errors.Newf(errors.ErrFileWrite,
			"target %s exists and is not a directory", target)
	}
	if err == nil {
		if err := os.RemoveAll(target); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite,
				"could not remove previous output at %s", target)
		}
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite,
			"could not create output folder %s", target)
	}
	return f.writeFiles(target)
}

// WriteSkipFirstLevel replaces only the first-level entries the folder
// tracks, leaving unrelated siblings in target alone.
func (f MemFolder) WriteSkipFirstLevel(target string) error {
	if err := os.MkdirAll(target, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite,
			"could not create output folder %s", target)
	}
	for _, entry := range f.TrackedSubpaths() {
		if err := os.RemoveAll(filepath.Join(target, entry)); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite,
				"could not replace %s in %s", entry, target)
		}
	}
	return f.writeFiles(target)
}

func (f MemFolder) writeFiles(target string) error {
	for _, p := range f.Paths() {
		full := filepath.Join(target, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite,
				"could not create folder for %s", p)
		}
		if err := os.WriteFile(full, f[p], 0644); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite,
				"could not write %s", p)
		}
	}
	return nil
}
