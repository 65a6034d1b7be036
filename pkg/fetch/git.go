package fetch

import (
	"context"
	"path/filepath"

	"github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/gitcli"
	"github.com/matzehuels/gitdeps/pkg/repo"
	"github.com/matzehuels/gitdeps/pkg/version"
)

// GitBackend clones with git and exports the tree with git archive.
type GitBackend struct {
	Git *gitcli.Runner
}

// Archive implements [Backend]. Known branches and tags are cloned shallowly;
// anything else (a commit hash) needs the full history. Clone and fetch
// failures carry [errors.ErrCodeClone], show-ref and archive failures
// [errors.ErrCodeArchive].
func (b *GitBackend) Archive(ctx context.Context, r repo.Repository, treeish string, refs []string, dir string) (string, error) {
	clone := filepath.Join(dir, "repo")

	var branch string
	if version.IsRef(treeish, refs) {
		branch = treeish
	}
	if err := b.Git.Clone(ctx, r.URL, clone, branch); err != nil {
		return "", errors.Wrap(errors.ErrCodeClone, err, "clone %s", r.URL)
	}

	local, err := b.Git.ShowRef(ctx, clone)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeArchive, err, "list refs of clone of %s", r.URL)
	}
	if !version.IsRef(treeish, local) {
		if err := b.Git.FetchTags(ctx, clone); err != nil {
			return "", errors.Wrap(errors.ErrCodeClone, err, "fetch tags of %s", r.URL)
		}
	}

	out := filepath.Join(dir, "repo.tar")
	if err := b.Git.Archive(ctx, clone, treeish, out); err != nil {
		return "", errors.Wrap(errors.ErrCodeArchive, err, "archive %s#%s", r.URL, treeish)
	}
	return out, nil
}
