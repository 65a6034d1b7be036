// Package pipeline installs a list of dependencies into their destination
// directories.
//
// Every dependency moves through the same typed stages:
//
//	Pending → RefsResolved → StalenessChecked → Skipped
//	                                          → Fetched → Unpacked → MetadataSaved
//
// Ref sets are warmed up concurrently first, since listing refs is the only
// network step that does not depend on earlier dependencies. Everything
// after that runs strictly one dependency at a time, in manifest order. The
// first error stops the run; dependencies completed before it stay
// installed.
//
// # Staleness
//
// [NeedsUpdate] only ever revalidates version ranges: an exact specifier
// (branch, tag or commit) is never compared against the remote, so a moved
// branch is not picked up without Force. Before asking it, the runner
// reinstalls outright when the installed metadata no longer describes what
// the manifest asks for: a different repository URL, or an exact specifier
// that differs from the installed treeish (the manifest was edited). Only
// when the metadata is current does a false NeedsUpdate skip the dependency.
//
// # Usage
//
//	resolver := refs.NewResolver(listers, logger)
//	fetcher := fetch.New(fetch.Options{Refs: resolver, ...})
//	runner := pipeline.NewRunner(resolver, fetcher, logger)
//	results, err := runner.Run(ctx, deps)
package pipeline

import (
	"github.com/matzehuels/gitdeps/pkg/repo"
)

// DefaultConcurrency bounds concurrent ref queries during warm-up.
const DefaultConcurrency = 4

// Stage is the progress of one dependency through the pipeline.
type Stage int

const (
	StagePending Stage = iota
	StageRefsResolved
	StageStalenessChecked
	StageSkipped
	StageFetched
	StageUnpacked
	StageMetadataSaved
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageRefsResolved:
		return "refs-resolved"
	case StageStalenessChecked:
		return "staleness-checked"
	case StageSkipped:
		return "skipped"
	case StageFetched:
		return "fetched"
	case StageUnpacked:
		return "unpacked"
	case StageMetadataSaved:
		return "metadata-saved"
	default:
		return "unknown"
	}
}

// Done reports whether s is a final stage.
func (s Stage) Done() bool {
	return s == StageSkipped || s == StageMetadataSaved
}

// Result describes one processed dependency.
type Result struct {
	Name       string
	Repository string
	Treeish    string // Installed treeish; the winning tag for version ranges
	Dest       string
	Skipped    bool // Already up to date, nothing was fetched
	Cached     bool // Archive came from the archive cache
}

func newResult(d repo.Dependency) Result {
	return Result{Name: d.Name, Repository: d.Repo.URL, Dest: d.Dest}
}
