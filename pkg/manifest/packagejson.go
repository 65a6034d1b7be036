package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// DependenciesKey is the package.json key holding git dependencies.
const DependenciesKey = "gitCloneDependencies"

// PackageJSON reads the gitCloneDependencies object of a package.json file.
// A package.json without that key declares no dependencies.
type PackageJSON struct{}

func (p *PackageJSON) Type() string              { return "package.json" }
func (p *PackageJSON) Supports(name string) bool { return strings.EqualFold(name, "package.json") }

// Parse walks the JSON tokens so the entries keep their written order.
func (p *PackageJSON) Parse(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var entries []Entry
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != DependenciesKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		if entries, err = readDependencies(dec); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func readDependencies(dec *json.Decoder) ([]Entry, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%s: %w", DependenciesKey, err)
	}
	entries := []Entry{}
	for dec.More() {
		repo, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var spec string
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("%s: %q: specifier must be a string", DependenciesKey, repo)
		}
		entries = append(entries, Entry{Repository: repo, Specifier: spec})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return entries, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("unexpected end of input, want %q", want)
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("unexpected token %v, want %q", tok, want)
	}
	return nil
}
