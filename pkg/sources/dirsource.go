package sources

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/logging"
	"github.com/arthur-debert/refold/pkg/tags"
	"github.com/arthur-debert/refold/pkg/variables"
)

// DirSource lists the files of a directory-like origin and can produce
// a single-file source for any listed subpath.
type DirSource interface {
	// List returns the relative subpaths of all files, forward-slashed.
	List() ([]string, error)
	// FileSource returns the source fetching one listed subpath.
	FileSource(subpath string) Source
	// String renders the source for warnings and logs.
	String() string
	// RequiredVariables lists {{name}} placeholders in the source fields.
	RequiredVariables() []string
	// WithVariables returns a copy with all placeholders substituted.
	WithVariables(vars map[string]string) (DirSource, error)
}

// LocalDir scans a local directory recursively.
type LocalDir struct {
	Path string
}

func (d LocalDir) List() ([]string, error) {
	if !filepath.IsAbs(d.Path) {
		return nil, errors.Newf(errors.ErrFetch,
			"directory source path %q must be absolute", d.Path)
	}
	var files []string
	err := filepath.WalkDir(d.Path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !entry.Type().IsRegular() {
			return errors.Newf(errors.ErrFetch,
				"only regular files are supported, found %s", path)
		}
		rel, err := filepath.Rel(d.Path, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not list directory %s", d.Path)
	}
	return files, nil
}

func (d LocalDir) FileSource(subpath string) Source {
	return Local{Path: filepath.Join(d.Path, filepath.FromSlash(subpath))}
}

func (d LocalDir) String() string { return d.Path }

func (d LocalDir) RequiredVariables() []string { return variables.Names(d.Path) }

func (d LocalDir) WithVariables(vars map[string]string) (DirSource, error) {
	path, err := variables.Expand(d.Path, vars)
	if err != nil {
		return nil, err
	}
	return LocalDir{Path: path}, nil
}

// GitDir lists a directory of a repository tree at a given revision.
type GitDir struct {
	Repo string
	ID   string
	Path string
}

func (d GitDir) List() ([]string, error) {
	if !IsURLOrSSH(d.Repo) && !filepath.IsAbs(d.Repo) {
		return nil, errors.Newf(errors.ErrFetch,
			"path to repository must be absolute: %s", d.Repo)
	}
	return listRepoFiles(d.Repo, d.ID, d.Path)
}

func (d GitDir) FileSource(subpath string) Source {
	prefix := repoPath(d.Path)
	if prefix != "" {
		prefix += "/"
	}
	return Git{Repo: d.Repo, ID: d.ID, Path: prefix + subpath}
}

func (d GitDir) String() string { return fmt.Sprintf("%s#%s:%s", d.Repo, d.ID, d.Path) }

func (d GitDir) RequiredVariables() []string {
	return tags.Union(variables.Names(d.Repo), variables.Names(d.ID), variables.Names(d.Path))
}

func (d GitDir) WithVariables(vars map[string]string) (DirSource, error) {
	repo, err := variables.Expand(d.Repo, vars)
	if err != nil {
		return nil, err
	}
	id, err := variables.Expand(d.ID, vars)
	if err != nil {
		return nil, err
	}
	path, err := variables.Expand(d.Path, vars)
	if err != nil {
		return nil, err
	}
	return GitDir{Repo: repo, ID: id, Path: path}, nil
}

// ListFirstValid tries directory sources in declared order, returning
// the first one that lists successfully together with its listing.
// Failing sources are warned about and skipped.
func ListFirstValid(list []DirSource) (DirSource, []string, error) {
	logger := logging.GetLogger("sources")
	for _, s := range list {
		listing, err := s.List()
		if err != nil {
			logger.Warn().Str("source", s.String()).Err(err).Msg("Invalid directory source")
			continue
		}
		return s, listing, nil
	}
	return nil, nil, errors.New(errors.ErrSourceExhausted, "no valid source for directory")
}

// WithDirVariables substitutes placeholders across a fallback chain of
// directory sources.
func WithDirVariables(list []DirSource, vars map[string]string) ([]DirSource, error) {
	if list == nil {
		return nil, nil
	}
	expanded := make([]DirSource, 0, len(list))
	for _, s := range list {
		e, err := s.WithVariables(vars)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, e)
	}
	return expanded, nil
}

// RequiredDirVariables collects the placeholders of a directory source
// fallback chain.
func RequiredDirVariables(list []DirSource) []string {
	var all [][]string
	for _, s := range list {
		all = append(all, s.RequiredVariables())
	}
	return tags.Union(all...)
}
