package manifest

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/refold/pkg/edits"
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/hashing"
	"github.com/arthur-debert/refold/pkg/sources"
	"github.com/arthur-debert/refold/pkg/variables"
)

// Loader loads manifests from local files or git repositories, caching
// them by reference so that an inclusion tree touching the same manifest
// twice fetches and resolves it once.
type Loader struct {
	cache map[string]*loadedManifest
}

type loadedManifest struct {
	manifest *Manifest
	rawHash  string
}

func NewLoader() *Loader {
	return &Loader{cache: make(map[string]*loadedManifest)}
}

// Load fetches, pin-checks, parses and variable-resolves the manifest
// behind ref. Relative local references are only accepted when
// allowLocal is set; inclusions always load with allowLocal false, so a
// manifest tree stays addressable from anywhere once its refs are
// absolute or repo-based. A non-empty pin is verified against the raw
// manifest bytes before parsing.
func (l *Loader) Load(ref string, allowLocal bool, pin string) (*Manifest, error) {
	if entry, ok := l.cache[ref]; ok {
		if pin != "" && !strings.EqualFold(entry.rawHash, pin) {
			return nil, errors.Newf(errors.ErrHashMismatch,
				"hash of loaded manifest %s did not match", ref)
		}
		return entry.manifest, nil
	}

	src, err := sources.ParseGeneralPath(ref)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad,
			"could not parse manifest reference %s", ref)
	}
	if local, ok := src.(sources.Local); ok {
		if !filepath.IsAbs(local.Path) && !allowLocal {
			return nil, errors.Newf(errors.ErrManifestLoad,
				"relative manifest reference %s is only allowed on the command line", ref)
		}
		abs, absErr := filepath.Abs(local.Path)
		if absErr != nil {
			return nil, errors.Wrapf(absErr, errors.ErrManifestLoad,
				"could not make manifest path %s absolute", local.Path)
		}
		src = sources.Local{Path: abs}
	}

	data, err := src.Fetch()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad,
			"could not load manifest %s", ref)
	}
	if pin != "" && !hashing.Matches(data, pin) {
		return nil, errors.Newf(errors.ErrHashMismatch,
			"hash of loaded manifest %s did not match", ref)
	}

	parsed, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrManifestLoad,
			"could not parse manifest %s", ref)
	}
	resolved, err := parsed.resolveVariables(src)
	if err != nil {
		return nil, err
	}

	l.cache[ref] = &loadedManifest{manifest: resolved, rawHash: hashing.Compute(data)}
	return resolved, nil
}

// resolveVariables merges the provenance variables derived from where
// the manifest was loaded from with the manifest's own declarations,
// resolves inter-variable references to a fixed point and substitutes
// placeholders across every entity. The result is the only Manifest
// form whose file list may be queried.
func (m *Manifest) resolveVariables(origin sources.Source) (*Manifest, error) {
	vars := make(map[string]string, len(m.Variables)+4)
	for name, value := range m.Variables {
		vars[name] = value
	}
	if err := provenance(origin, vars); err != nil {
		return nil, err
	}
	resolved, err := variables.Resolve(vars)
	if err != nil {
		return nil, err
	}

	out := &Manifest{
		DefaultTags:  m.DefaultTags,
		Variables:    resolved,
		variablesSet: true,
	}
	for _, f := range m.Files {
		expanded, err := f.withVariables(resolved)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, expanded)
	}
	for _, d := range m.Directories {
		expanded, err := d.withVariables(resolved)
		if err != nil {
			return nil, err
		}
		out.Directories = append(out.Directories, expanded)
	}
	for _, inc := range m.Inclusions {
		expanded, err := inc.withVariables(resolved)
		if err != nil {
			return nil, err
		}
		out.Inclusions = append(out.Inclusions, expanded)
	}
	return out, nil
}

// provenance injects the SELF_ variables describing the manifest's own
// location, so its entries can reference sibling files no matter where
// the manifest was loaded from.
func provenance(origin sources.Source, vars map[string]string) error {
	switch s := origin.(type) {
	case sources.Git:
		vars["SELF_ID"] = s.ID
		vars["SELF_REPO"] = s.Repo
		vars["SELF_NAME"] = path.Base(s.Path)
		repoLocator := s.Repo
		if !sources.IsURLOrSSH(s.Repo) {
			abs, err := filepath.Abs(s.Repo)
			if err != nil {
				return errors.Wrapf(err, errors.ErrManifestLoad,
					"could not make repository path %s absolute", s.Repo)
			}
			repoLocator = abs
		}
		vars["SELF_ROOT"] = repoLocator + "#" + s.ID + ":"
	case sources.Local:
		abs, err := filepath.Abs(s.Path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrManifestLoad,
				"could not make manifest path %s absolute", s.Path)
		}
		vars["SELF_PARENT"] = filepath.Dir(abs)
		vars["SELF_ROOT"] = filepath.Dir(abs)
		vars["SELF_NAME"] = filepath.Base(abs)
	}
	return nil
}

func (f FileDecl) withVariables(vars map[string]string) (FileDecl, error) {
	expandedPath, err := variables.Expand(f.Path, vars)
	if err != nil {
		return FileDecl{}, err
	}
	srcs, err := sources.WithVariables(f.Sources, vars)
	if err != nil {
		return FileDecl{}, err
	}
	pipeline, err := edits.WithVariables(f.Edits, vars)
	if err != nil {
		return FileDecl{}, err
	}
	return FileDecl{
		Path:       normalizePath(expandedPath),
		Tags:       f.Tags,
		Hash:       f.Hash,
		Decryption: f.Decryption,
		Sources:    srcs,
		Edits:      pipeline,
	}, nil
}

func (d Directory) withVariables(vars map[string]string) (Directory, error) {
	expandedPath, err := variables.Expand(d.Path, vars)
	if err != nil {
		return Directory{}, err
	}
	srcs, err := sources.WithDirVariables(d.Sources, vars)
	if err != nil {
		return Directory{}, err
	}
	return Directory{
		Path:         normalizePath(expandedPath),
		Count:        d.Count,
		Tags:         d.Tags,
		Sources:      srcs,
		IgnoreHidden: d.IgnoreHidden,
	}, nil
}

func (i Inclusion) withVariables(vars map[string]string) (Inclusion, error) {
	config, err := variables.Expand(i.Config, vars)
	if err != nil {
		return Inclusion{}, err
	}
	subfolder, err := variables.Expand(i.Subfolder, vars)
	if err != nil {
		return Inclusion{}, err
	}
	return Inclusion{
		Config:    config,
		Tags:      i.Tags,
		WithTags:  i.WithTags,
		Subfolder: subfolder,
		Hash:      i.Hash,
	}, nil
}
