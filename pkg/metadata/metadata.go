// Package metadata records what was installed into a destination directory.
//
// Each destination carries a small JSON file, [FileName], naming the
// repository URL and the concrete treeish that was unpacked there. The
// install pipeline compares it with the manifest to decide whether a
// dependency is stale.
package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/gitdeps/pkg/errors"
)

// FileName is the metadata file written inside every destination.
const FileName = ".gitdeps.json"

// Installed describes the tree currently present in a destination.
type Installed struct {
	Repository  string    `json:"repository"`
	Treeish     string    `json:"treeish"`
	InstalledAt time.Time `json:"installedAt"`
}

// Path returns the metadata file path for dest.
func Path(dest string) string {
	return filepath.Join(dest, FileName)
}

// Load reads the metadata of dest. It returns (nil, nil) when dest has no
// metadata file and an [errors.ErrCodeInvalidMetadata] error when the file
// cannot be parsed.
func Load(dest string) (*Installed, error) {
	data, err := os.ReadFile(Path(dest))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "read %s", Path(dest))
	}

	var m Installed
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidMetadata, err, "parse %s", Path(dest))
	}
	if m.Repository == "" || m.Treeish == "" {
		return nil, errors.New(errors.ErrCodeInvalidMetadata, "%s lacks repository or treeish", Path(dest))
	}
	return &m, nil
}

// Save records that repository at treeish was installed into dest now.
func Save(dest, repository, treeish string) error {
	return Write(dest, Installed{
		Repository:  repository,
		Treeish:     treeish,
		InstalledAt: time.Now().UTC().Truncate(time.Second),
	})
}

// Write stores m as the metadata of dest. The file is written to a temporary
// name and renamed, so a crash never leaves a truncated file behind.
func Write(dest string, m Installed) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode metadata")
	}

	tmp, err := os.CreateTemp(dest, FileName+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write metadata")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write metadata")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write metadata")
	}
	if err := os.Rename(tmp.Name(), Path(dest)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write metadata")
	}
	return nil
}
