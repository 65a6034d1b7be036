// Package repo models the repositories and dependency entries gitdeps
// installs.
//
// A manifest names a repository either by full remote URL or by the GitHub
// shorthand "owner/repo". [Parse] expands the shorthand to
// git://github.com/owner/repo.git and decides, once, which retrieval backend
// serves the repository ([HostedAPI] or [GenericGit]). The decision travels
// with the [Repository] value through the rest of the pipeline.
package repo

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matzehuels/gitdeps/pkg/errors"
)

// Kind selects the retrieval backend for a repository.
type Kind int

const (
	// GenericGit repositories are accessed with the git command line.
	GenericGit Kind = iota
	// HostedAPI repositories are accessed through the hosting provider's REST API.
	HostedAPI
)

// String returns the backend name used in logs.
func (k Kind) String() string {
	switch k {
	case HostedAPI:
		return "hosted"
	case GenericGit:
		return "git"
	default:
		return "unknown"
	}
}

// DefaultHostedHosts are the hosts served by the hosted API backend when the
// configuration does not say otherwise.
var DefaultHostedHosts = []string{"github.com"}

var shorthandPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Repository is a canonical remote repository.
type Repository struct {
	URL   string // Canonical remote URL, used as cache and metadata key
	Kind  Kind   // Backend selected for this repository
	Host  string // Lower-cased host name, empty for local paths
	Owner string // Owner on the hosting provider (HostedAPI only)
	Name  string // Last path segment without ".git"
}

// ShortName returns "owner/name" for hosted repositories and the URL otherwise.
func (r Repository) ShortName() string {
	if r.Kind == HostedAPI {
		return r.Owner + "/" + r.Name
	}
	return r.URL
}

// String returns the canonical URL.
func (r Repository) String() string { return r.URL }

// Parse canonicalizes raw and selects its backend. Hosts in hosted (compared
// case-insensitively) use the hosted API backend; nil means [DefaultHostedHosts].
func Parse(raw string, hosted []string) (Repository, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Repository{}, errors.New(errors.ErrCodeInvalidInput, "empty repository")
	}
	if hosted == nil {
		hosted = DefaultHostedHosts
	}

	if shorthandPattern.MatchString(s) && !strings.HasPrefix(s, ".") {
		s = "git://github.com/" + strings.TrimSuffix(s, ".git") + ".git"
	}
	s = strings.TrimRight(s, "/")

	host, path, err := splitRemote(s)
	if err != nil {
		return Repository{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse repository %q", raw)
	}

	r := Repository{URL: s, Host: host, Name: lastSegment(path)}
	if r.Name == "" || r.Name == "." || r.Name == ".." {
		return Repository{}, errors.New(errors.ErrCodeInvalidInput, "cannot derive a name from repository %q", raw)
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if isHosted(host, hosted) && len(segments) == 2 && segments[0] != "" {
		r.Kind = HostedAPI
		r.Owner = segments[0]
	}
	return r, nil
}

// splitRemote extracts host and path from URL, scp-like and local forms.
func splitRemote(s string) (host, path string, err error) {
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil {
			return "", "", err
		}
		return strings.ToLower(u.Hostname()), u.Path, nil
	}
	// scp-like syntax: [user@]host:path
	if i := strings.Index(s, ":"); i > 0 && !strings.Contains(s[:i], "/") {
		h := s[:i]
		if at := strings.LastIndex(h, "@"); at >= 0 {
			h = h[at+1:]
		}
		return strings.ToLower(h), s[i+1:], nil
	}
	return "", filepath.ToSlash(s), nil
}

func lastSegment(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexAny(path, "/:"); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(path), ".git")
}

func isHosted(host string, hosted []string) bool {
	host = strings.TrimPrefix(host, "www.")
	for _, h := range hosted {
		if strings.EqualFold(host, h) {
			return true
		}
	}
	return false
}

// Dependency is one manifest entry, ready for the install pipeline.
type Dependency struct {
	Repo      Repository
	Specifier string // Version range or exact treeish as written in the manifest
	Name      string // Directory name under the components directory
	Dest      string // Absolute destination directory
}

// NewDependency builds the dependency for a manifest entry. Destinations are
// placed under componentsDir, named after the repository.
func NewDependency(rawRepo, specifier, componentsDir string, hosted []string) (Dependency, error) {
	r, err := Parse(rawRepo, hosted)
	if err != nil {
		return Dependency{}, err
	}
	return Dependency{
		Repo:      r,
		Specifier: strings.TrimSpace(specifier),
		Name:      r.Name,
		Dest:      filepath.Join(componentsDir, r.Name),
	}, nil
}

// String formats the dependency as "url#specifier".
func (d Dependency) String() string {
	return fmt.Sprintf("%s#%s", d.Repo.URL, d.Specifier)
}
