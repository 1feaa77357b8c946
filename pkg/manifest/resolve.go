package manifest

import (
	"path"
	"strings"

	"github.com/arthur-debert/refold/pkg/edits"
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/sources"
	"github.com/arthur-debert/refold/pkg/tags"
)

// GetActive computes the flattened list of file declarations active for
// the requested tags: the manifest's own files, the expansion of every
// active directory scan and the files pulled in by every inclusion,
// deduplicated under the collision rule. An untagged declaration is
// silently shadowed by an active tagged one for the same path; any
// other duplicate path is an error.
func (m *Manifest) GetActive(requested []string, loader *Loader) ([]FileDecl, error) {
	if !m.variablesSet {
		return nil, errors.New(errors.ErrInternal,
			"variables must be resolved before the file list can be computed")
	}
	active, err := m.ActiveTags(requested)
	if err != nil {
		return nil, err
	}
	universe, err := m.TagUniverse(loader)
	if err != nil {
		return nil, err
	}
	bare := make([]string, 0, len(requested))
	for _, tag := range requested {
		bare = append(bare, strings.TrimPrefix(tag, tags.NegationPrefix))
	}
	if err := tags.CheckDeclared(bare, universe); err != nil {
		return nil, err
	}

	pool := append([]FileDecl{}, m.Files...)
	for _, dir := range m.Directories {
		expanded, err := dir.GetActive(active)
		if err != nil {
			return nil, err
		}
		pool = append(pool, expanded...)
	}
	for _, inc := range m.Inclusions {
		expanded, err := inc.GetFiles(loader)
		if err != nil {
			return nil, err
		}
		pool = append(pool, expanded...)
	}

	return dedupe(pool, active)
}

// dedupe applies the collision rule over the merged candidate pool.
func dedupe(pool []FileDecl, active []string) ([]FileDecl, error) {
	taggedActive := make(map[string]bool)
	for _, f := range pool {
		if len(f.Tags) > 0 && tags.IsActive(f.Tags, active) {
			taggedActive[f.Path] = true
		}
	}

	var result []FileDecl
	seen := make(map[string]bool)
	for _, f := range pool {
		if !tags.IsActive(f.Tags, active) {
			continue
		}
		if len(f.Tags) == 0 && taggedActive[f.Path] {
			continue
		}
		if seen[f.Path] {
			return nil, errors.Newf(errors.ErrPathCollision,
				"two active files declare the same path %s", f.Path)
		}
		seen[f.Path] = true
		result = append(result, f)
	}
	return result, nil
}

// IsActive reports whether the declaration participates for the active
// tag set. An untagged declaration is always active.
func (f FileDecl) IsActive(active []string) bool {
	return tags.IsActive(f.Tags, active)
}

// GetActive expands the directory scan into per-file declarations when
// the directory's tag gate is active.
func (d Directory) GetActive(active []string) ([]FileDecl, error) {
	if !tags.IsActive(d.Tags, active) {
		return nil, nil
	}
	return d.expand()
}

func (d Directory) expand() ([]FileDecl, error) {
	src, listing, err := sources.ListFirstValid(d.Sources)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrSourceExhausted,
			"no valid source for directory %s", d.Path)
	}
	if d.Count != nil && *d.Count != len(listing) {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"expected %d files for directory %s, found %d", *d.Count, d.Path, len(listing))
	}
	var files []FileDecl
	for _, subpath := range listing {
		if d.IgnoreHidden && hasHiddenComponent(subpath) {
			continue
		}
		files = append(files, FileDecl{
			Path:    path.Join(d.Path, subpath),
			Tags:    d.Tags,
			Sources: []sources.Source{src.FileSource(subpath)},
		})
	}
	if len(files) == 0 {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"no files found for directory %s", d.Path)
	}
	return files, nil
}

func hasHiddenComponent(subpath string) bool {
	for _, component := range strings.Split(subpath, "/") {
		if strings.HasPrefix(component, ".") {
			return true
		}
	}
	return false
}

// GetFiles loads the included manifest, resolves its active files for
// the inclusion's with_tags and re-homes them under the inclusion's
// subfolder and tag gate. Edit activation is baked at inclusion time:
// each included edit is evaluated against the inclusion's tags once and
// survivors carry those tags in the parent.
func (i Inclusion) GetFiles(loader *Loader) ([]FileDecl, error) {
	child, err := loader.Load(i.Config, false, i.Hash)
	if err != nil {
		return nil, err
	}
	childFiles, err := child.GetActive(i.WithTags, loader)
	if err != nil {
		return nil, err
	}
	var files []FileDecl
	for _, f := range childFiles {
		files = append(files, FileDecl{
			Path:       normalizePath(path.Join(i.Subfolder, f.Path)),
			Tags:       i.Tags,
			Hash:       f.Hash,
			Decryption: f.Decryption,
			Sources:    f.Sources,
			Edits:      edits.IncludeEdits(f.Edits, i.Tags),
		})
	}
	if len(files) == 0 {
		return nil, errors.Newf(errors.ErrEmptyInclusion,
			"including zero files from another manifest is not allowed (%s)", i.Config)
	}
	return files, nil
}
