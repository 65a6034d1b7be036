package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/fetch"
	"github.com/matzehuels/gitdeps/pkg/metadata"
	"github.com/matzehuels/gitdeps/pkg/observability"
	"github.com/matzehuels/gitdeps/pkg/repo"
	"github.com/matzehuels/gitdeps/pkg/unpack"
	"github.com/matzehuels/gitdeps/pkg/version"
)

// Fetcher retrieves dependency archives. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, r repo.Repository, specifier string) (*fetch.Result, error)
	// Evict forgets a cached archive that turned out to be unusable.
	Evict(ctx context.Context, r repo.Repository, treeish string) error
}

// Runner installs dependencies.
type Runner struct {
	Refs        RefSource
	Fetcher     Fetcher
	Logger      *log.Logger
	Force       bool // Reinstall even when up to date
	Concurrency int  // Warm-up bound, DefaultConcurrency when zero
}

// NewRunner creates a runner. Refs should be the same source the fetcher
// resolves through, so warm-up results are reused.
func NewRunner(refs RefSource, f Fetcher, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Refs: refs, Fetcher: f, Logger: logger}
}

// job tracks one dependency through the stages.
type job struct {
	dep       repo.Dependency
	stage     Stage
	installed *metadata.Installed
	fetched   *fetch.Result
}

// Run installs deps in order and returns one Result per processed
// dependency. On error the results of the dependencies completed before the
// failing one are returned with it.
func (r *Runner) Run(ctx context.Context, deps []repo.Dependency) ([]Result, error) {
	if err := checkDestinations(deps); err != nil {
		return nil, err
	}

	jobs := make([]*job, len(deps))
	for i, d := range deps {
		jobs[i] = &job{dep: d, installed: r.loadInstalled(d)}
	}

	r.warmUp(ctx, jobs)

	results := make([]Result, 0, len(jobs))
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.install(ctx, j)
		observability.Pipeline().OnInstallComplete(ctx, j.dep.Name, res.Treeish, res.Skipped, err)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// checkDestinations rejects manifests that install two dependencies into
// the same directory.
func checkDestinations(deps []repo.Dependency) error {
	seen := make(map[string]repo.Dependency, len(deps))
	for _, d := range deps {
		dest := filepath.Clean(d.Dest)
		if prev, ok := seen[dest]; ok {
			return errors.New(errors.ErrCodeInvalidManifest,
				"%s and %s both install into %s", prev.Repo.URL, d.Repo.URL, dest)
		}
		seen[dest] = d
	}
	return nil
}

// loadInstalled reads the metadata of d's destination. Unreadable metadata
// is reported and treated as absent.
func (r *Runner) loadInstalled(d repo.Dependency) *metadata.Installed {
	m, err := metadata.Load(d.Dest)
	if err != nil {
		r.Logger.Warn("ignoring installed metadata", "dest", d.Dest, "error", err)
		return nil
	}
	return m
}

// needsRefs reports whether j will query the remote ref set.
func (r *Runner) needsRefs(j *job) bool {
	return r.Force || !current(j) || version.IsRange(j.dep.Specifier)
}

// current reports whether j's metadata records the same repository and, for
// exact specifiers, the same treeish the manifest asks for.
func current(j *job) bool {
	if j.installed == nil || j.installed.Repository != j.dep.Repo.URL {
		return false
	}
	return version.IsRange(j.dep.Specifier) || j.installed.Treeish == j.dep.Specifier
}

// warmUp resolves the ref sets of every job that will need them,
// concurrently. Failures are memoized by the ref source and surface when the
// owning dependency is processed, preserving manifest order.
func (r *Runner) warmUp(ctx context.Context, jobs []*job) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	var n int
	for _, j := range jobs {
		if !r.needsRefs(j) {
			continue
		}
		n++
		g.Go(func() error {
			if _, err := r.Refs.Refs(gctx, j.dep.Repo); err != nil {
				r.Logger.Debug("ref warm-up failed", "repo", j.dep.Repo.URL, "error", err)
				return nil
			}
			j.stage = StageRefsResolved
			return nil
		})
	}
	_ = g.Wait()
	if n > 0 {
		r.Logger.Debug("resolved refs", "repos", n, "duration", time.Since(start))
	}
}

func (r *Runner) install(ctx context.Context, j *job) (Result, error) {
	res := newResult(j.dep)
	logger := r.Logger.With("dep", j.dep.Name)

	stale, err := r.checkStaleness(ctx, j)
	if err != nil {
		return res, err
	}
	if !stale {
		j.advance(r.Logger, StageSkipped)
		res.Treeish = j.installed.Treeish
		res.Skipped = true
		logger.Info("up to date", "treeish", res.Treeish)
		return res, nil
	}

	if err := r.fetch(ctx, j); err != nil {
		return res, err
	}
	defer func() {
		if err := j.fetched.Cleanup(); err != nil {
			logger.Warn("remove temp files", "error", err)
		}
	}()
	res.Treeish = j.fetched.Treeish
	res.Cached = j.fetched.Cached

	if err := r.unpack(j); err != nil {
		if j.fetched.Cached {
			if evictErr := r.Fetcher.Evict(ctx, j.dep.Repo, j.fetched.Treeish); evictErr != nil {
				logger.Warn("evict cached archive", "error", evictErr)
			} else {
				logger.Warn("evicted unusable cached archive", "treeish", j.fetched.Treeish)
			}
		}
		return res, err
	}
	logger.Debug("unpacked", "dest", j.dep.Dest)

	if err := metadata.Save(j.dep.Dest, j.dep.Repo.URL, j.fetched.Treeish); err != nil {
		return res, err
	}
	j.advance(r.Logger, StageMetadataSaved)
	return res, nil
}

// checkStaleness decides whether j must be (re)installed.
func (r *Runner) checkStaleness(ctx context.Context, j *job) (bool, error) {
	defer j.advance(r.Logger, StageStalenessChecked)

	switch {
	case r.Force, !current(j):
		return true, nil
	default:
		return NeedsUpdate(ctx, r.Refs, j.installed.Treeish, j.dep.Specifier, j.dep.Repo)
	}
}

func (r *Runner) fetch(ctx context.Context, j *job) error {
	res, err := r.Fetcher.Fetch(ctx, j.dep.Repo, j.dep.Specifier)
	if err != nil {
		return err
	}
	j.fetched = res
	j.advance(r.Logger, StageFetched)
	return nil
}

// unpack replaces the destination's contents with the fetched archive.
func (r *Runner) unpack(j *job) error {
	if err := os.RemoveAll(j.dep.Dest); err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "clear %s", j.dep.Dest)
	}
	if err := unpack.Unpack(j.fetched.ArchivePath, j.dep.Dest); err != nil {
		return err
	}
	j.advance(r.Logger, StageUnpacked)
	return nil
}

func (j *job) advance(logger *log.Logger, s Stage) {
	logger.Debug("stage", "dep", j.dep.Name, "from", j.stage, "to", s)
	j.stage = s
}
