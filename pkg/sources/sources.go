// Package sources implements the content-acquisition collaborators of
// the resolution engine: the closed set of file sources, directory
// sources, locator parsing, and ordered fallback fetching.
//
// The source kinds are a deliberate, exhaustive set. Adding a kind means
// touching every switch that dispatches on it, which is the point.
package sources

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/tags"
	"github.com/arthur-debert/refold/pkg/variables"
)

// Source is one way of producing the bytes of a single file. All
// implementations are immutable value types; WithVariables returns a
// rewritten copy.
type Source interface {
	// Fetch produces the file content.
	Fetch() ([]byte, error)
	// String renders the source for warnings and logs.
	String() string
	// RequiredVariables lists {{name}} placeholders in the source fields.
	RequiredVariables() []string
	// WithVariables returns a copy with all placeholders substituted.
	WithVariables(vars map[string]string) (Source, error)
}

// Local reads a file from the local filesystem. The path must be
// absolute: manifests may be loaded from anywhere, so a relative path
// would silently depend on the caller's working directory.
type Local struct {
	Path string
}

func (l Local) Fetch() ([]byte, error) {
	if !filepath.IsAbs(l.Path) {
		return nil, errors.Newf(errors.ErrFetch,
			"local source path %q must be absolute", l.Path)
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not read local file %s", l.Path)
	}
	return data, nil
}

func (l Local) String() string { return l.Path }

func (l Local) RequiredVariables() []string { return variables.Names(l.Path) }

func (l Local) WithVariables(vars map[string]string) (Source, error) {
	path, err := variables.Expand(l.Path, vars)
	if err != nil {
		return nil, err
	}
	return Local{Path: path}, nil
}

// Download fetches a URL over HTTP(S).
type Download struct {
	URL string
}

func (d Download) Fetch() ([]byte, error) {
	resp, err := http.Get(d.URL)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not download %s", d.URL)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf(errors.ErrFetch,
			"download of %s failed with status %s", d.URL, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not read response from %s", d.URL)
	}
	return data, nil
}

func (d Download) String() string { return d.URL }

func (d Download) RequiredVariables() []string { return variables.Names(d.URL) }

func (d Download) WithVariables(vars map[string]string) (Source, error) {
	url, err := variables.Expand(d.URL, vars)
	if err != nil {
		return nil, err
	}
	return Download{URL: url}, nil
}

// Text is inline content declared directly in the manifest. With
// IgnoreVariables set, {{...}} sequences in the content are kept
// verbatim instead of being treated as placeholders.
type Text struct {
	Content         string
	IgnoreVariables bool
}

func (t Text) Fetch() ([]byte, error) { return []byte(t.Content), nil }

func (t Text) String() string { return "inline text" }

func (t Text) RequiredVariables() []string {
	if t.IgnoreVariables {
		return nil
	}
	return variables.Names(t.Content)
}

func (t Text) WithVariables(vars map[string]string) (Source, error) {
	if t.IgnoreVariables {
		return t, nil
	}
	content, err := variables.Expand(t.Content, vars)
	if err != nil {
		return nil, err
	}
	return Text{Content: content}, nil
}

// Git extracts one blob from a repository at a given revision.
type Git struct {
	Repo string
	ID   string
	Path string
}

func (g Git) String() string { return fmt.Sprintf("%s#%s:%s", g.Repo, g.ID, g.Path) }

func (g Git) RequiredVariables() []string {
	return tags.Union(variables.Names(g.Repo), variables.Names(g.ID), variables.Names(g.Path))
}

func (g Git) WithVariables(vars map[string]string) (Source, error) {
	repo, err := variables.Expand(g.Repo, vars)
	if err != nil {
		return nil, err
	}
	id, err := variables.Expand(g.ID, vars)
	if err != nil {
		return nil, err
	}
	path, err := variables.Expand(g.Path, vars)
	if err != nil {
		return nil, err
	}
	return Git{Repo: repo, ID: id, Path: path}, nil
}

// SFTP reads a file from a remote host over SFTP, authenticating via
// the local ssh-agent.
type SFTP struct {
	User string
	Host string
	Path string
	Port int
}

func (s SFTP) String() string {
	return fmt.Sprintf("sftp://%s@%s:%d/%s", s.User, s.Host, s.port(), s.Path)
}

func (s SFTP) port() int {
	if s.Port == 0 {
		return 22
	}
	return s.Port
}

func (s SFTP) RequiredVariables() []string {
	return tags.Union(variables.Names(s.User), variables.Names(s.Host), variables.Names(s.Path))
}

func (s SFTP) WithVariables(vars map[string]string) (Source, error) {
	user, err := variables.Expand(s.User, vars)
	if err != nil {
		return nil, err
	}
	host, err := variables.Expand(s.Host, vars)
	if err != nil {
		return nil, err
	}
	path, err := variables.Expand(s.Path, vars)
	if err != nil {
		return nil, err
	}
	return SFTP{User: user, Host: host, Path: path, Port: s.Port}, nil
}

// Archive extracts one file from a local zip, tar or tar.xz archive.
type Archive struct {
	Archive string
	Path    string
}

func (a Archive) String() string { return fmt.Sprintf("%s:%s", a.Archive, a.Path) }

func (a Archive) RequiredVariables() []string {
	return tags.Union(variables.Names(a.Archive), variables.Names(a.Path))
}

func (a Archive) WithVariables(vars map[string]string) (Source, error) {
	archive, err := variables.Expand(a.Archive, vars)
	if err != nil {
		return nil, err
	}
	path, err := variables.Expand(a.Path, vars)
	if err != nil {
		return nil, err
	}
	return Archive{Archive: archive, Path: path}, nil
}

// Borg extracts one file from a snapshot of a borg backup repository by
// shelling out to the borg binary.
type Borg struct {
	Archive string
	ID      string
	Path    string
}

func (b Borg) String() string { return fmt.Sprintf("%s::%s:%s", b.Archive, b.ID, b.Path) }

func (b Borg) RequiredVariables() []string {
	return tags.Union(variables.Names(b.Archive), variables.Names(b.ID), variables.Names(b.Path))
}

func (b Borg) WithVariables(vars map[string]string) (Source, error) {
	archive, err := variables.Expand(b.Archive, vars)
	if err != nil {
		return nil, err
	}
	id, err := variables.Expand(b.ID, vars)
	if err != nil {
		return nil, err
	}
	path, err := variables.Expand(b.Path, vars)
	if err != nil {
		return nil, err
	}
	return Borg{Archive: archive, ID: id, Path: path}, nil
}

// WithVariables substitutes placeholders across a fallback chain.
func WithVariables(list []Source, vars map[string]string) ([]Source, error) {
	if list == nil {
		return nil, nil
	}
	expanded := make([]Source, 0, len(list))
	for _, s := range list {
		e, err := s.WithVariables(vars)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, e)
	}
	return expanded, nil
}

// RequiredVariables collects the placeholders of a fallback chain.
func RequiredVariables(list []Source) []string {
	var all [][]string
	for _, s := range list {
		all = append(all, s.RequiredVariables())
	}
	return tags.Union(all...)
}
