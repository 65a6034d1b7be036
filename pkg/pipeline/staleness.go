package pipeline

import (
	"context"

	"github.com/matzehuels/gitdeps/pkg/repo"
	"github.com/matzehuels/gitdeps/pkg/version"
)

// RefSource provides the ref set of a repository. *refs.Resolver implements it.
type RefSource interface {
	Refs(ctx context.Context, r repo.Repository) ([]string, error)
}

// NeedsUpdate reports whether the tree installed at installed must be
// replaced to satisfy specifier.
//
// Only version ranges are re-evaluated: the highest matching tag is compared
// with installed. Any other specifier (branch, tag, commit) is considered
// current, so branch moves are not detected. A range that matches no tag
// needs an update, leaving the fetch stage to report the failure.
func NeedsUpdate(ctx context.Context, refs RefSource, installed, specifier string, r repo.Repository) (bool, error) {
	if !version.IsRange(specifier) {
		return false, nil
	}
	set, err := refs.Refs(ctx, r)
	if err != nil {
		return false, err
	}
	m, ok := version.Match(specifier, set)
	if !ok {
		return true, nil
	}
	return m.Tag != installed, nil
}
