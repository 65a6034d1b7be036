// Package refs lists the refs (branches and tags) of remote repositories.
//
// Two [Lister] implementations exist, one per backend: [HostedLister] asks the
// hosting provider's REST API, [GitLister] runs git ls-remote. [Backends]
// picks between them using the repository's [repo.Kind].
//
// A [Resolver] sits in front of a Lister for the duration of one install run.
// It guarantees that each repository URL is queried at most once: concurrent
// callers share the in-flight query and later callers get the memoized
// result, including a memoized failure.
package refs

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/gitcli"
	"github.com/matzehuels/gitdeps/pkg/integrations/github"
	"github.com/matzehuels/gitdeps/pkg/observability"
	"github.com/matzehuels/gitdeps/pkg/repo"
)

// Lister lists the refs of one repository.
type Lister interface {
	ListRefs(ctx context.Context, r repo.Repository) ([]string, error)
}

// HostedLister lists refs through the GitHub API.
type HostedLister struct {
	Client *github.Client
}

// ListRefs implements [Lister].
func (l *HostedLister) ListRefs(ctx context.Context, r repo.Repository) ([]string, error) {
	return l.Client.Refs(ctx, r.Owner, r.Name)
}

// GitLister lists refs with git ls-remote.
type GitLister struct {
	Git *gitcli.Runner
}

// ListRefs implements [Lister].
func (l *GitLister) ListRefs(ctx context.Context, r repo.Repository) ([]string, error) {
	return l.Git.LsRemote(ctx, r.URL)
}

// Backends dispatches to a Lister by repository kind.
type Backends struct {
	Hosted Lister
	Git    Lister
}

// ListRefs implements [Lister].
func (b Backends) ListRefs(ctx context.Context, r repo.Repository) ([]string, error) {
	switch r.Kind {
	case repo.HostedAPI:
		return b.Hosted.ListRefs(ctx, r)
	case repo.GenericGit:
		return b.Git.ListRefs(ctx, r)
	default:
		return nil, fmt.Errorf("no ref lister for backend %s", r.Kind)
	}
}

type entry struct {
	refs []string
	err  error
}

// Resolver memoizes ref sets per repository URL. The zero value is not
// usable; create one with [NewResolver]. Safe for concurrent use.
type Resolver struct {
	lister Lister
	logger *log.Logger

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]entry
}

// NewResolver creates a Resolver backed by lister. A nil logger uses
// log.Default().
func NewResolver(lister Lister, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{lister: lister, logger: logger, cache: make(map[string]entry)}
}

// Refs returns the ref set of r, querying the remote only on the first call
// for r.URL. Failures carry [errors.ErrCodeRemoteQuery].
func (res *Resolver) Refs(ctx context.Context, r repo.Repository) ([]string, error) {
	if e, ok := res.lookup(r.URL); ok {
		return slices.Clone(e.refs), e.err
	}

	v, _, _ := res.group.Do(r.URL, func() (any, error) {
		if e, ok := res.lookup(r.URL); ok {
			return e, nil
		}
		e := res.query(ctx, r)
		res.mu.Lock()
		res.cache[r.URL] = e
		res.mu.Unlock()
		return e, nil
	})
	e := v.(entry)
	return slices.Clone(e.refs), e.err
}

func (res *Resolver) lookup(url string) (entry, bool) {
	res.mu.Lock()
	defer res.mu.Unlock()
	e, ok := res.cache[url]
	return e, ok
}

func (res *Resolver) query(ctx context.Context, r repo.Repository) entry {
	start := time.Now()
	refs, err := res.lister.ListRefs(ctx, r)
	observability.Pipeline().OnRefsComplete(ctx, r.URL, len(refs), time.Since(start), err)
	if err != nil {
		return entry{err: errors.Wrap(errors.ErrCodeRemoteQuery, err, "list refs of %s", r.URL)}
	}
	res.logger.Debug("listed refs", "repo", r.URL, "backend", r.Kind, "refs", len(refs), "duration", time.Since(start))
	return entry{refs: refs}
}
