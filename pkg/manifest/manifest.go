// Package manifest reads the list of git dependencies a project declares.
//
// Three manifest formats are supported, each mapping a repository (URL or
// "owner/repo" shorthand) to a specifier:
//
//	package.json   {"gitCloneDependencies": {"acme/widgets": "^1.2.0"}}
//	gitdeps.toml   [dependencies]
//	               "acme/widgets" = "^1.2.0"
//	gitdeps.yaml   dependencies:
//	                 acme/widgets: ^1.2.0
//
// Entry order is preserved exactly as written, since dependencies are
// installed and reported in manifest order.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/gitdeps/pkg/errors"
	"github.com/matzehuels/gitdeps/pkg/repo"
)

// Entry is one declared dependency.
type Entry struct {
	Repository string // URL or owner/repo shorthand, as written
	Specifier  string // Version range or treeish, as written
}

// Parser reads the entries of one manifest format.
type Parser interface {
	// Type returns the manifest type identifier.
	Type() string
	// Supports reports whether this parser handles the given filename.
	Supports(filename string) bool
	// Parse extracts the entries from the manifest contents, in order.
	Parse(data []byte) ([]Entry, error)
}

// Parsers lists the supported formats in lookup priority order.
var Parsers = []Parser{&TOML{}, &YAML{}, &PackageJSON{}}

// Manifest is a parsed manifest file.
type Manifest struct {
	Path    string // Absolute path of the manifest file
	Type    string // Parser type that produced it
	Entries []Entry
}

// Dir returns the project directory, the directory holding the manifest.
func (m *Manifest) Dir() string { return filepath.Dir(m.Path) }

// Dependencies builds the install list. A relative componentsDir is taken
// relative to the project directory.
func (m *Manifest) Dependencies(componentsDir string, hosted []string) ([]repo.Dependency, error) {
	if !filepath.IsAbs(componentsDir) {
		componentsDir = filepath.Join(m.Dir(), componentsDir)
	}
	deps := make([]repo.Dependency, 0, len(m.Entries))
	for _, e := range m.Entries {
		d, err := repo.NewDependency(e.Repository, e.Specifier, componentsDir, hosted)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "%s: entry %q", filepath.Base(m.Path), e.Repository)
		}
		deps = append(deps, d)
	}
	return deps, nil
}

// Detect finds a parser that supports the given file path.
func Detect(path string, parsers ...Parser) (Parser, error) {
	if len(parsers) == 0 {
		parsers = Parsers
	}
	name := filepath.Base(path)
	for _, p := range parsers {
		if p.Supports(name) {
			return p, nil
		}
	}
	return nil, errors.New(errors.ErrCodeInvalidManifest, "unsupported manifest: %s", name)
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve %s", path)
	}
	p, err := Detect(abs)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read manifest")
	}
	entries, err := p.Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", abs)
	}
	return &Manifest{Path: abs, Type: p.Type(), Entries: entries}, nil
}

// Find searches dir and its parents for a manifest and returns its path.
// Within one directory gitdeps.toml wins over gitdeps.yaml, which wins over
// package.json.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve %s", dir)
	}
	for d := dir; ; {
		for _, name := range candidates {
			path := filepath.Join(d, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return "", errors.New(errors.ErrCodeInvalidManifest, "no manifest (%s) found in %s or any parent directory",
		strings.Join(candidates, ", "), dir)
}

var candidates = []string{"gitdeps.toml", "gitdeps.yaml", "gitdeps.yml", "package.json"}
