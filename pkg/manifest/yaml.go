package manifest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAML reads the dependencies mapping of a gitdeps.yaml file.
type YAML struct{}

func (p *YAML) Type() string { return "gitdeps.yaml" }

func (p *YAML) Supports(name string) bool {
	return strings.EqualFold(name, "gitdeps.yaml") || strings.EqualFold(name, "gitdeps.yml")
}

// Parse decodes into a yaml.Node tree, whose mapping content keeps the
// written key order.
func (p *YAML) Parse(data []byte) ([]Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return []Entry{}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}

	entries := []Entry{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != "dependencies" {
			continue
		}
		deps := root.Content[i+1]
		if deps.Tag == "!!null" {
			return entries, nil
		}
		if deps.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: dependencies must be a mapping", deps.Line)
		}
		for j := 0; j+1 < len(deps.Content); j += 2 {
			k, v := deps.Content[j], deps.Content[j+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: %q: specifier must be a string", v.Line, k.Value)
			}
			spec := v.Value
			if v.Tag == "!!null" {
				spec = ""
			}
			entries = append(entries, Entry{Repository: k.Value, Specifier: spec})
		}
	}
	return entries, nil
}
