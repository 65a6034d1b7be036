// Package version maps semantic version ranges onto git tags.
//
// A specifier in a manifest is either a version range ("^1.2.0", "~2.1",
// ">=1.0.0 <2.0.0", "1.x") or an exact treeish (branch, tag, commit hash).
// [IsRange] tells them apart; [Match] picks the highest tag satisfying a
// range from a repository's ref set.
//
// Only tags whose name contains a three-component numeric version take part
// in matching. The version is read from the tag name itself, so "v1.2.3",
// "1.2.3" and "release-1.2.3" all count as 1.2.3.
package version

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	tagPrefix    = "refs/tags/"
	peeledSuffix = "^{}"
)

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// VersionMatch is the tag chosen for a version range.
type VersionMatch struct {
	Tag     string          // Tag name without the refs/tags/ prefix
	Version *semver.Version // Three-component version parsed from Tag
}

// IsRange reports whether spec is a semantic version range. The empty
// specifier counts as a range matching any version.
func IsRange(spec string) bool {
	_, err := constraint(spec)
	return err == nil
}

// constraint parses spec, treating the empty specifier as "*".
func constraint(spec string) (*semver.Constraints, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "*"
	}
	return semver.NewConstraint(spec)
}

// Match returns the highest-versioned tag in refs that satisfies rng.
// ok is false when rng is not a valid range, refs holds no versioned tags, or
// no tag satisfies the range. Tags with equal versions resolve to the one
// that appears first in refs.
func Match(rng string, refs []string) (m VersionMatch, ok bool) {
	c, err := constraint(rng)
	if err != nil {
		return VersionMatch{}, false
	}

	for _, cand := range Candidates(refs) {
		if c.Check(cand.Version) {
			return cand, true
		}
	}
	return VersionMatch{}, false
}

// Candidates extracts every versioned tag from refs, sorted by version
// descending. The sort is stable so equal versions keep their ref-set order.
// Peeled entries ("refs/tags/v1.0.0^{}") collapse into their tag.
func Candidates(refs []string) []VersionMatch {
	var out []VersionMatch
	seen := make(map[string]bool)
	for _, ref := range refs {
		tag, ok := strings.CutPrefix(ref, tagPrefix)
		if !ok {
			continue
		}
		tag = strings.TrimSuffix(tag, peeledSuffix)
		if tag == "" || seen[tag] {
			continue
		}
		v := parseTagVersion(tag)
		if v == nil {
			continue
		}
		seen[tag] = true
		out = append(out, VersionMatch{Tag: tag, Version: v})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Version.GreaterThan(out[j].Version)
	})
	return out
}

// parseTagVersion returns the first major.minor.patch found in tag.
func parseTagVersion(tag string) *semver.Version {
	m := versionPattern.FindString(tag)
	if m == "" {
		return nil
	}
	v, err := semver.NewVersion(m)
	if err != nil {
		return nil
	}
	return v
}

// IsRef reports whether treeish names a branch or tag in refs, i.e. whether
// refs contains refs/heads/<treeish> or refs/tags/<treeish>.
func IsRef(treeish string, refs []string) bool {
	return IsBranch(treeish, refs) || IsTag(treeish, refs)
}

// IsBranch reports whether refs contains refs/heads/<treeish>.
func IsBranch(treeish string, refs []string) bool {
	return slices.Contains(refs, "refs/heads/"+treeish)
}

// IsTag reports whether refs contains refs/tags/<treeish>.
func IsTag(treeish string, refs []string) bool {
	return slices.Contains(refs, tagPrefix+treeish)
}
