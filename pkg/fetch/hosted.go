package fetch

import (
	"context"

	"github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/integrations/github"
	"github.com/matzehuels/gitdeps/pkg/repo"
)

// HostedBackend downloads tarballs from the GitHub API.
type HostedBackend struct {
	Client *github.Client
}

// Archive implements [Backend]. Every failure carries [errors.ErrCodeDownload].
func (b *HostedBackend) Archive(ctx context.Context, r repo.Repository, treeish string, _ []string, dir string) (string, error) {
	path, err := b.Client.Tarball(ctx, r.Owner, r.Name, treeish, dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDownload, err, "download %s#%s", r.ShortName(), treeish)
	}
	return path, nil
}
