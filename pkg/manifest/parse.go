package manifest

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/refold/pkg/decrypt"
	"github.com/arthur-debert/refold/pkg/edits"
	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/sources"
	"github.com/arthur-debert/refold/pkg/tags"
	"github.com/arthur-debert/refold/pkg/variables"
)

// The TOML document structure. Specs are decoded strictly (unknown
// fields are errors) and then converted into the typed entities.
type manifestDoc struct {
	DefaultTags []string          `toml:"default_tags"`
	Variables   map[string]string `toml:"variables"`
	Files       []fileSpec        `toml:"file"`
	Directories []dirSpec         `toml:"directory"`
	Inclusions  []inclusionSpec   `toml:"include"`
}

type fileSpec struct {
	Path       string       `toml:"path"`
	Tags       []string     `toml:"tags"`
	Hash       string       `toml:"hash"`
	Decryption string       `toml:"decryption"`
	Source     string       `toml:"source"`
	Sources    []sourceSpec `toml:"sources"`
	Edits      []editSpec   `toml:"edit"`
}

type sourceSpec struct {
	Type            string `toml:"type"`
	Path            string `toml:"path"`
	URL             string `toml:"url"`
	Repo            string `toml:"repo"`
	ID              string `toml:"id"`
	User            string `toml:"user"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Content         string `toml:"content"`
	IgnoreVariables bool   `toml:"ignore_variables"`
	Archive         string `toml:"archive"`
}

type editSpec struct {
	Type     string   `toml:"type"`
	From     string   `toml:"from"`
	To       string   `toml:"to"`
	Required bool     `toml:"required"`
	Content  string   `toml:"content"`
	Position string   `toml:"position"`
	Start    int      `toml:"start"`
	End      int      `toml:"end"`
	Tags     []string `toml:"tags"`
}

type dirSpec struct {
	Path         string          `toml:"path"`
	Count        *int            `toml:"count"`
	Tags         []string        `toml:"tags"`
	IgnoreHidden bool            `toml:"ignore_hidden"`
	Source       string          `toml:"source"`
	Sources      []dirSourceSpec `toml:"sources"`
}

type dirSourceSpec struct {
	Type string `toml:"type"`
	Path string `toml:"path"`
	Repo string `toml:"repo"`
	ID   string `toml:"id"`
}

type inclusionSpec struct {
	Config   string   `toml:"config"`
	Tags     []string `toml:"tags"`
	WithTags []string `toml:"with_tags"`
	Path     string   `toml:"path"`
	Hash     string   `toml:"hash"`
}

// Parse decodes a manifest document. The result still carries raw
// {{variable}} placeholders; it must go through variable resolution
// before its file list can be queried.
func Parse(data []byte) (*Manifest, error) {
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var doc manifestDoc
	if err := decoder.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestParse, "malformed manifest")
	}

	for name := range doc.Variables {
		if err := variables.CheckName(name); err != nil {
			return nil, err
		}
	}

	m := &Manifest{
		DefaultTags: doc.DefaultTags,
		Variables:   doc.Variables,
	}

	for _, spec := range doc.Files {
		file, err := spec.convert()
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, file)
	}
	for _, spec := range doc.Directories {
		dir, err := spec.convert()
		if err != nil {
			return nil, err
		}
		m.Directories = append(m.Directories, dir)
	}
	for _, spec := range doc.Inclusions {
		inc, err := spec.convert()
		if err != nil {
			return nil, err
		}
		m.Inclusions = append(m.Inclusions, inc)
	}

	if err := m.checkTagNames(); err != nil {
		return nil, err
	}
	return m, nil
}

func (s fileSpec) convert() (FileDecl, error) {
	if s.Path == "" {
		return FileDecl{}, errors.New(errors.ErrManifestParse, "file entry without a path")
	}
	method, err := decrypt.ParseMethod(s.Decryption)
	if err != nil {
		return FileDecl{}, err
	}
	srcs, err := convertSources(s.Source, s.Sources)
	if err != nil {
		return FileDecl{}, errors.Wrapf(err, errors.ErrManifestParse,
			"invalid sources for file %s", s.Path)
	}
	if len(srcs) == 0 {
		return FileDecl{}, errors.Newf(errors.ErrManifestParse,
			"file %s has no sources", s.Path)
	}
	var pipeline []edits.Edit
	for _, editSpec := range s.Edits {
		edit, err := editSpec.convert()
		if err != nil {
			return FileDecl{}, errors.Wrapf(err, errors.ErrManifestParse,
				"invalid edit for file %s", s.Path)
		}
		pipeline = append(pipeline, edit)
	}
	return FileDecl{
		Path:       normalizePath(filepath.ToSlash(s.Path)),
		Tags:       s.Tags,
		Hash:       s.Hash,
		Decryption: method,
		Sources:    srcs,
		Edits:      pipeline,
	}, nil
}

func convertSources(shorthand string, specs []sourceSpec) ([]sources.Source, error) {
	var srcs []sources.Source
	if shorthand != "" {
		src, err := sources.ParseGeneralPath(shorthand)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	for _, spec := range specs {
		src, err := spec.convert()
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

func (s sourceSpec) convert() (sources.Source, error) {
	switch s.Type {
	case "file":
		if s.Path == "" {
			return nil, errors.New(errors.ErrManifestParse, "file source needs a path")
		}
		return sources.Local{Path: s.Path}, nil
	case "http":
		if s.URL == "" {
			return nil, errors.New(errors.ErrManifestParse, "http source needs a url")
		}
		return sources.Download{URL: s.URL}, nil
	case "git":
		if s.Repo == "" || s.ID == "" || s.Path == "" {
			return nil, errors.New(errors.ErrManifestParse, "git source needs repo, id and path")
		}
		return sources.Git{Repo: s.Repo, ID: s.ID, Path: s.Path}, nil
	case "sftp":
		if s.User == "" || s.Host == "" || s.Path == "" {
			return nil, errors.New(errors.ErrManifestParse, "sftp source needs user, host and path")
		}
		return sources.SFTP{User: s.User, Host: s.Host, Path: s.Path, Port: s.Port}, nil
	case "text":
		return sources.Text{Content: s.Content, IgnoreVariables: s.IgnoreVariables}, nil
	case "archive":
		if s.Archive == "" || s.Path == "" {
			return nil, errors.New(errors.ErrManifestParse, "archive source needs archive and path")
		}
		return sources.Archive{Archive: s.Archive, Path: s.Path}, nil
	case "borg":
		if s.Archive == "" || s.ID == "" || s.Path == "" {
			return nil, errors.New(errors.ErrManifestParse, "borg source needs archive, id and path")
		}
		return sources.Borg{Archive: s.Archive, ID: s.ID, Path: s.Path}, nil
	default:
		return nil, errors.Newf(errors.ErrManifestParse, "unknown source type %q", s.Type)
	}
}

func (s editSpec) convert() (edits.Edit, error) {
	switch s.Type {
	case "replace":
		if s.From == "" {
			return nil, errors.New(errors.ErrManifestParse, "replace edit needs a from string")
		}
		return edits.Replace{From: s.From, To: s.To, Required: s.Required, TagSet: s.Tags}, nil
	case "insert":
		mode, line, err := parsePosition(s.Position)
		if err != nil {
			return nil, err
		}
		return edits.Insert{Content: s.Content, Mode: mode, Line: line, TagSet: s.Tags}, nil
	case "delete":
		return edits.Delete{Start: s.Start, End: s.End, TagSet: s.Tags}, nil
	default:
		return nil, errors.Newf(errors.ErrManifestParse, "unknown edit type %q", s.Type)
	}
}

func parsePosition(position string) (edits.InsertMode, int, error) {
	switch position {
	case "", "append":
		return edits.Append, 0, nil
	case "prepend":
		return edits.Prepend, 0, nil
	default:
		line, err := strconv.Atoi(position)
		if err != nil || line < 1 {
			return 0, 0, errors.Newf(errors.ErrManifestParse,
				"insert position must be \"append\", \"prepend\" or a line number, got %q", position)
		}
		return edits.AtLine, line, nil
	}
}

func (s dirSpec) convert() (Directory, error) {
	if s.Path == "" {
		return Directory{}, errors.New(errors.ErrManifestParse, "directory entry without a path")
	}
	var srcs []sources.DirSource
	if s.Source != "" {
		src, err := sources.ParseGeneralDirPath(s.Source)
		if err != nil {
			return Directory{}, err
		}
		srcs = append(srcs, src)
	}
	for _, spec := range s.Sources {
		src, err := spec.convert()
		if err != nil {
			return Directory{}, errors.Wrapf(err, errors.ErrManifestParse,
				"invalid sources for directory %s", s.Path)
		}
		srcs = append(srcs, src)
	}
	if len(srcs) == 0 {
		return Directory{}, errors.Newf(errors.ErrManifestParse,
			"directory %s has no sources", s.Path)
	}
	return Directory{
		Path:         normalizePath(filepath.ToSlash(s.Path)),
		Count:        s.Count,
		Tags:         s.Tags,
		Sources:      srcs,
		IgnoreHidden: s.IgnoreHidden,
	}, nil
}

func (s dirSourceSpec) convert() (sources.DirSource, error) {
	switch s.Type {
	case "local":
		if s.Path == "" {
			return nil, errors.New(errors.ErrManifestParse, "local directory source needs a path")
		}
		return sources.LocalDir{Path: s.Path}, nil
	case "git":
		if s.Repo == "" || s.ID == "" {
			return nil, errors.New(errors.ErrManifestParse, "git directory source needs repo and id")
		}
		return sources.GitDir{Repo: s.Repo, ID: s.ID, Path: s.Path}, nil
	default:
		return nil, errors.Newf(errors.ErrManifestParse, "unknown directory source type %q", s.Type)
	}
}

func (s inclusionSpec) convert() (Inclusion, error) {
	if s.Config == "" {
		return Inclusion{}, errors.New(errors.ErrManifestParse, "include entry without a config reference")
	}
	return Inclusion{
		Config:    s.Config,
		Tags:      s.Tags,
		WithTags:  s.WithTags,
		Subfolder: strings.Trim(filepath.ToSlash(s.Path), "/"),
		Hash:      s.Hash,
	}, nil
}

// checkTagNames validates every tag declared anywhere in the manifest.
func (m *Manifest) checkTagNames() error {
	for _, tag := range m.localTagUniverse() {
		if err := tags.CheckName(tag); err != nil {
			return err
		}
	}
	return nil
}
