package fetch

import (
	"context"
	"os"
	"regexp"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gitdeps/pkg/cache"
	"github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/observability"
	"github.com/matzehuels/gitdeps/pkg/repo"
	"github.com/matzehuels/gitdeps/pkg/version"
)

var commitPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// RefSource provides the ref set of a repository. *refs.Resolver implements it.
type RefSource interface {
	Refs(ctx context.Context, r repo.Repository) ([]string, error)
}

// Backend writes an archive of r at treeish into dir and returns its path.
// refs is the remote ref set, used to pick a cheaper retrieval strategy.
type Backend interface {
	Archive(ctx context.Context, r repo.Repository, treeish string, refs []string, dir string) (string, error)
}

// Result is a fetched archive.
type Result struct {
	ArchivePath string // Tarball (possibly gzipped) to unpack
	Treeish     string // Concrete treeish; the winning tag for version ranges
	Cached      bool   // True when ArchivePath was served from the archive cache

	tmpDir string
}

// Cleanup removes the temporary files backing the result. Cached archives
// are left in place.
func (r *Result) Cleanup() error {
	if r == nil || r.tmpDir == "" {
		return nil
	}
	return os.RemoveAll(r.tmpDir)
}

// Options configures a [Fetcher].
type Options struct {
	Refs   RefSource
	Hosted Backend     // Serves repo.HostedAPI repositories
	Git    Backend     // Serves repo.GenericGit repositories
	Cache  cache.Cache // nil disables archive caching
	TmpDir string      // Parent of per-fetch temp dirs, os.TempDir() when empty
	RunID  string      // Included in temp dir names
	Logger *log.Logger
}

// Fetcher retrieves dependency archives.
type Fetcher struct {
	refs   RefSource
	hosted Backend
	git    Backend
	cache  cache.Cache
	tmpDir string
	prefix string
	logger *log.Logger
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	c := opts.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	prefix := "gitdeps-"
	if opts.RunID != "" {
		prefix += opts.RunID + "-"
	}
	return &Fetcher{
		refs:   opts.Refs,
		hosted: opts.Hosted,
		git:    opts.Git,
		cache:  c,
		tmpDir: opts.TmpDir,
		prefix: prefix,
		logger: logger,
	}
}

// Resolve maps specifier to a concrete treeish using r's ref set. Version
// ranges resolve to the highest matching tag or fail with
// *errors.NoMatchingVersionError; other specifiers pass through unchanged.
// The ref set is returned alongside for backend selection.
func (f *Fetcher) Resolve(ctx context.Context, r repo.Repository, specifier string) (string, []string, error) {
	refs, err := f.refs.Refs(ctx, r)
	if err != nil {
		return "", nil, err
	}
	if !version.IsRange(specifier) {
		return specifier, refs, nil
	}
	m, ok := version.Match(specifier, refs)
	if !ok {
		return "", refs, &errors.NoMatchingVersionError{Repository: r.URL, Range: specifier, Refs: refs}
	}
	return m.Tag, refs, nil
}

// Fetch retrieves an archive of r at the treeish specifier resolves to.
func (f *Fetcher) Fetch(ctx context.Context, r repo.Repository, specifier string) (*Result, error) {
	treeish, refs, err := f.Resolve(ctx, r, specifier)
	if err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnFetchStart(ctx, r.URL, treeish)

	key := cache.ArchiveKey(r.URL, treeish)
	cacheable := Immutable(treeish, refs)
	if cacheable {
		path, hit, err := f.cache.Get(ctx, key)
		switch {
		case err != nil:
			f.logger.Warn("archive cache lookup failed", "repo", r.URL, "treeish", treeish, "error", err)
		case hit:
			f.logger.Debug("archive cache hit", "repo", r.URL, "treeish", treeish)
			observability.Cache().OnCacheHit(ctx, cacheKeyType)
			hooks.OnFetchComplete(ctx, r.URL, treeish, true, 0, nil)
			return &Result{ArchivePath: path, Treeish: treeish, Cached: true}, nil
		default:
			observability.Cache().OnCacheMiss(ctx, cacheKeyType)
		}
	}

	backend, err := f.backend(r)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(f.tmpDir, f.prefix)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create temp dir")
	}

	desc := "git clone " + r.URL + "#" + treeish
	if r.Kind == repo.HostedAPI {
		desc = "GET archive " + r.ShortName() + "#" + treeish
	}
	f.logger.Debug(desc, "dir", dir)

	start := time.Now()
	path, err := backend.Archive(ctx, r, treeish, refs, dir)
	elapsed := time.Since(start)
	hooks.OnFetchComplete(ctx, r.URL, treeish, false, elapsed, err)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	f.logger.Info(desc, "duration", elapsed.Round(time.Millisecond))

	if cacheable {
		f.store(ctx, key, path, r.URL, treeish)
	}
	return &Result{ArchivePath: path, Treeish: treeish, tmpDir: dir}, nil
}

// Evict drops the cached archive of r at treeish, if any. The pipeline
// calls it when a cached archive cannot be unpacked.
func (f *Fetcher) Evict(ctx context.Context, r repo.Repository, treeish string) error {
	return f.cache.Delete(ctx, cache.ArchiveKey(r.URL, treeish))
}

// cacheKeyType labels archive cache events.
const cacheKeyType = "archive"

func (f *Fetcher) store(ctx context.Context, key, path, url, treeish string) {
	stored, err := f.cache.Put(ctx, key, path)
	if err != nil {
		f.logger.Warn("archive cache store failed", "repo", url, "treeish", treeish, "error", err)
		return
	}
	if stored == path {
		return
	}
	var size int64
	if fi, err := os.Stat(stored); err == nil {
		size = fi.Size()
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, size)
}

func (f *Fetcher) backend(r repo.Repository) (Backend, error) {
	var b Backend
	switch r.Kind {
	case repo.HostedAPI:
		b = f.hosted
	case repo.GenericGit:
		b = f.git
	}
	if b == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no fetch backend for %s repository %s", r.Kind, r.URL)
	}
	return b, nil
}

// Immutable reports whether the archive of treeish can be reused across
// runs: treeish is a known tag, or looks like a commit hash and is not a
// known branch.
func Immutable(treeish string, refs []string) bool {
	if version.IsBranch(treeish, refs) {
		return false
	}
	return version.IsTag(treeish, refs) || commitPattern.MatchString(treeish)
}
