package manifest

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOML reads the [dependencies] table of a gitdeps.toml file.
type TOML struct{}

func (p *TOML) Type() string              { return "gitdeps.toml" }
func (p *TOML) Supports(name string) bool { return strings.EqualFold(name, "gitdeps.toml") }

func (p *TOML) Parse(data []byte) ([]Entry, error) {
	var file struct {
		Dependencies map[string]any `toml:"dependencies"`
	}
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, err
	}

	// MetaData.Keys reports keys in the order they appear in the document.
	entries := []Entry{}
	for _, key := range md.Keys() {
		if len(key) != 2 || key[0] != "dependencies" {
			continue
		}
		spec, ok := file.Dependencies[key[1]].(string)
		if !ok {
			return nil, fmt.Errorf("dependencies: %q: specifier must be a string", key[1])
		}
		entries = append(entries, Entry{Repository: key[1], Specifier: spec})
	}
	return entries, nil
}
