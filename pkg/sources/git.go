package sources

import (
	"path"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/arthur-debert/refold/pkg/errors"
	"github.com/arthur-debert/refold/pkg/logging"
	"github.com/arthur-debert/refold/pkg/repocache"
)

func (g Git) Fetch() ([]byte, error) {
	tree, err := treeAt(g.Repo, g.ID)
	if err != nil {
		return nil, err
	}
	file, err := tree.File(repoPath(g.Path))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"%s does not exist in %s at %s", g.Path, g.Repo, g.ID)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"could not read %s from %s", g.Path, g.Repo)
	}
	return []byte(contents), nil
}

// openRepo opens a local repository or clones a remote one into the
// process-wide cache. Remote repositories are cloned at most once per
// process.
func openRepo(repo string) (*git.Repository, error) {
	if !IsURLOrSSH(repo) {
		if !filepath.IsAbs(repo) {
			return nil, errors.Newf(errors.ErrFetch,
				"path to repository must be absolute: %s", repo)
		}
		r, err := git.PlainOpen(repo)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFetch, "could not open repository %s", repo)
		}
		return r, nil
	}

	cloneDir, err := repocache.RepoDir(repo)
	if err != nil {
		return nil, err
	}
	if r, openErr := git.PlainOpen(cloneDir); openErr == nil {
		return r, nil
	}
	logger := logging.GetLogger("sources")
	logger.Info().Str("repo", repo).Msg("Cloning repository")
	r, err := git.PlainClone(cloneDir, false, &git.CloneOptions{URL: repo})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not clone repository %s", repo)
	}
	return r, nil
}

// treeAt resolves a revision (commit hash, tag or branch) to its tree.
func treeAt(repo, id string) (*object.Tree, error) {
	r, err := openRepo(repo)
	if err != nil {
		return nil, err
	}
	hash, err := r.ResolveRevision(plumbing.Revision(id))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"could not resolve revision %s in %s", id, repo)
	}
	commit, err := r.CommitObject(*hash)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"revision %s in %s is not a commit", id, repo)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"could not read tree of %s in %s", id, repo)
	}
	return tree, nil
}

// listRepoFiles returns the paths of all blobs under folder, relative to
// folder, using forward slashes.
func listRepoFiles(repo, id, folder string) ([]string, error) {
	tree, err := treeAt(repo, id)
	if err != nil {
		return nil, err
	}
	prefix := repoPath(folder)
	if prefix != "" {
		prefix += "/"
	}
	var files []string
	err = tree.Files().ForEach(func(f *object.File) error {
		if prefix == "" {
			files = append(files, f.Name)
			return nil
		}
		if strings.HasPrefix(f.Name, prefix) {
			files = append(files, strings.TrimPrefix(f.Name, prefix))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"could not list files of %s at %s", repo, id)
	}
	return files, nil
}

// repoPath normalizes a manifest path into the forward-slash, relative
// form used by git trees.
func repoPath(p string) string {
	cleaned := strings.Trim(path.Clean(filepath.ToSlash(p)), "/")
	if cleaned == "." {
		return ""
	}
	return cleaned
}
