// Package manifest implements the resolution engine: parsing manifests,
// resolving their variables, expanding directory scans and recursive
// inclusions, and computing the flattened, deduplicated list of active
// file declarations.
package manifest

import (
	"path"
	"strings"

	"filippo.io/age"

	"github.com/arthur-debert/refold/pkg/decrypt"
	"github.com/arthur-debert/refold/pkg/edits"
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/sources"
	"github.com/arthur-debert/refold/pkg/tags"
)

// Manifest is one parsed manifest document. It is immutable: variable
// resolution produces a new Manifest instead of mutating in place, and
// the file list can only be queried on a resolved copy.
type Manifest struct {
	DefaultTags []string
	Variables   map[string]string
	Files       []FileDecl
	Directories []Directory
	Inclusions  []Inclusion

	// variablesSet guards the derived file list: querying before
	// variable resolution is a programming-contract violation.
	variablesSet bool
}

// FileDecl declares one target file backed by a fallback chain of
// sources, optionally tag-gated, hash-pinned, edited and decrypted.
type FileDecl struct {
	Path       string
	Tags       []string
	Hash       string
	Decryption decrypt.Method
	Sources    []sources.Source
	Edits      []edits.Edit
}

// Directory declares a scanned directory whose files are pulled in under
// a target path prefix.
type Directory struct {
	Path         string
	Count        *int
	Tags         []string
	Sources      []sources.DirSource
	IgnoreHidden bool
}

// Inclusion pulls the active files of another manifest in under a target
// subfolder.
type Inclusion struct {
	Config    string
	Tags      []string
	WithTags  []string
	Subfolder string
	Hash      string
}

// ActiveTags computes the active tag set for a request against this
// manifest's default tags.
func (m *Manifest) ActiveTags(requested []string) ([]string, error) {
	return tags.ActiveSet(m.DefaultTags, requested)
}

// localTagUniverse is the union of tags declared directly in this
// manifest: on files, their edits, directories and inclusions.
func (m *Manifest) localTagUniverse() []string {
	var lists [][]string
	lists = append(lists, m.DefaultTags)
	for _, f := range m.Files {
		lists = append(lists, f.Tags)
		for _, e := range f.Edits {
			lists = append(lists, e.Tags())
		}
	}
	for _, d := range m.Directories {
		lists = append(lists, d.Tags)
	}
	for _, inc := range m.Inclusions {
		lists = append(lists, inc.Tags)
		// with_tags are requests against the child and may be negated
		bare := make([]string, 0, len(inc.WithTags))
		for _, tag := range inc.WithTags {
			bare = append(bare, strings.TrimPrefix(tag, tags.NegationPrefix))
		}
		lists = append(lists, bare)
	}
	return tags.Union(lists...)
}

// TagUniverse is the declared tag universe of this manifest and,
// recursively, of every included manifest. Callers must have passed the
// inclusion recursion check first.
func (m *Manifest) TagUniverse(loader *Loader) ([]string, error) {
	if !m.variablesSet {
		return nil, errors.New(errors.ErrInternal,
			"variables must be resolved before the tag universe can be computed")
	}
	universe := [][]string{m.localTagUniverse()}
	for _, inc := range m.Inclusions {
		child, err := loader.Load(inc.Config, false, inc.Hash)
		if err != nil {
			return nil, err
		}
		childUniverse, err := child.TagUniverse(loader)
		if err != nil {
			return nil, err
		}
		universe = append(universe, childUniverse)
	}
	return tags.Union(universe...), nil
}

// Build fetches the file's content from the first valid source and runs
// the edit pipeline against the active tag set.
func (f FileDecl) Build(active []string, identities []age.Identity) ([]byte, error) {
	data, err := sources.FetchFirstValid(f.Sources, f.Hash, decrypt.Transform(f.Decryption, identities))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrSourceExhausted,
			"no valid source for %s", f.Path)
	}
	return edits.Apply(f.Edits, active, data)
}

// normalizePath brings a declared target path into canonical relative
// forward-slash form.
func normalizePath(p string) string {
	cleaned := path.Clean(p)
	for len(cleaned) > 0 && cleaned[0] == '/' {
		cleaned = cleaned[1:]
	}
	return cleaned
}
