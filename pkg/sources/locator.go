package sources

import (
	"regexp"
	"strings"

	"github.com/arthur-debert/refold/pkg/errors"
)

// A general path denotes either a local filesystem path or a
// repo#id:subpath locator. Both manifest references and shorthand
// source strings use this syntax.
//
// The strict grammar anchors on an id that looks like a hex revision, so
// a '#' inside the repository locator cannot be mistaken for the
// separator. The simple grammar splits on the first '#' and the first
// ':' after it, which also accepts branch and tag names as ids.
var hexIDRefRe = regexp.MustCompile(`^(.+)#([0-9a-fA-F]{6,64}):(.*)$`)

// IsURLOrSSH reports whether a repository locator is remote.
func IsURLOrSSH(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "ssh://") ||
		strings.HasPrefix(s, "git@")
}

// IsRepoRef reports whether a general path is a repo#id:subpath locator
// rather than a local path.
func IsRepoRef(s string) bool {
	_, _, _, ok := SplitRepoRef(s)
	return ok
}

// SplitRepoRef splits a repo#id:subpath locator into its components.
func SplitRepoRef(s string) (repo, id, subpath string, ok bool) {
	if match := hexIDRefRe.FindStringSubmatch(s); match != nil {
		return match[1], match[2], match[3], true
	}
	hash := strings.Index(s, "#")
	if hash < 1 {
		return "", "", "", false
	}
	rest := s[hash+1:]
	colon := strings.Index(rest, ":")
	if colon < 1 {
		return "", "", "", false
	}
	return s[:hash], rest[:colon], rest[colon+1:], true
}

// ParseGeneralPath turns a general path string into a file source:
// either a git blob reference or a local file.
func ParseGeneralPath(s string) (Source, error) {
	if s == "" {
		return nil, errors.New(errors.ErrInvalidInput, "empty source reference")
	}
	if repo, id, subpath, ok := SplitRepoRef(s); ok {
		return Git{Repo: repo, ID: id, Path: subpath}, nil
	}
	return Local{Path: s}, nil
}

// ParseGeneralDirPath turns a general path string into a directory
// source.
func ParseGeneralDirPath(s string) (DirSource, error) {
	if s == "" {
		return nil, errors.New(errors.ErrInvalidInput, "empty directory source reference")
	}
	if repo, id, subpath, ok := SplitRepoRef(s); ok {
		return GitDir{Repo: repo, ID: id, Path: subpath}, nil
	}
	return LocalDir{Path: s}, nil
}
