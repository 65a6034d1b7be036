// Package unpack extracts dependency archives into their destination
// directory.
//
// Archives are tar files, optionally gzip-compressed (detected from the
// content, not the file name). Hosted tarballs wrap the tree in a single
// "<owner>-<repo>-<sha>/" directory; [Flatten] removes such a wrapper so the
// destination holds the repository's files directly.
package unpack

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/gitdeps/pkg/errors"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Unpack extracts the archive at path into dest and flattens a single
// wrapper directory. Failures carry [errors.ErrCodeExtraction]; partial
// output is left in place.
func Unpack(path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "open archive")
	}
	defer f.Close()

	if err := Extract(f, dest); err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "extract %s", filepath.Base(path))
	}
	if err := Flatten(dest); err != nil {
		return errors.Wrap(errors.ErrCodeExtraction, err, "flatten %s", dest)
	}
	return nil
}

// Extract writes the entries of a tar or tar.gz stream into dest, creating
// dest if needed. Directories, regular files, symlinks and hard links are
// supported; pax global headers are skipped. Entries (and link targets)
// resolving outside dest are rejected, as are entries below a symlink the
// archive created earlier.
func Extract(r io.Reader, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, _ := br.Peek(len(gzipMagic)); string(magic) == string(gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	tr := tar.NewReader(src)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}

		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}
		target, err := within(root, hdr.Name)
		if err != nil {
			return err
		}
		if err := noSymlinkParents(root, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("symlink %s: absolute target %s", hdr.Name, hdr.Linkname)
			}
			if _, err := within(root, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
				return fmt.Errorf("symlink %s: %w", hdr.Name, err)
			}
			if err := replace(target); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			old, err := within(root, hdr.Linkname)
			if err != nil {
				return fmt.Errorf("link %s: %w", hdr.Name, err)
			}
			if err := noSymlinkParents(root, old); err != nil {
				return fmt.Errorf("link %s: %w", hdr.Name, err)
			}
			if err := replace(target); err != nil {
				return err
			}
			if err := os.Link(old, target); err != nil {
				return err
			}
		}
	}
}

// within joins name onto root and fails when the result leaves root.
func within(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes destination", name)
	}
	return target, nil
}

// noSymlinkParents fails when a directory between root and target is a
// symlink already on disk. Writing through such a link could leave root even
// though every path in the archive looks contained.
func noSymlinkParents(root, target string) error {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil || rel == "." {
		return err
	}
	dir := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		dir = filepath.Join(dir, part)
		fi, err := os.Lstat(dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			rel, _ := filepath.Rel(root, target)
			return fmt.Errorf("entry %q is below symlink %q", filepath.ToSlash(rel), filepath.Base(dir))
		}
	}
	return nil
}

func replace(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeFile(path string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	if err := replace(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Flatten moves the children of dest's only entry up one level when that
// entry is a directory, then removes it. Any other layout is left untouched.
func Flatten(dest string) error {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return err
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	// Move the wrapper aside first so a child sharing its name can take its place.
	staging, err := os.MkdirTemp(dest, ".flatten-")
	if err != nil {
		return err
	}
	wrapper := filepath.Join(staging, "tree")
	if err := os.Rename(filepath.Join(dest, entries[0].Name()), wrapper); err != nil {
		return err
	}

	children, err := os.ReadDir(wrapper)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := os.Rename(filepath.Join(wrapper, c.Name()), filepath.Join(dest, c.Name())); err != nil {
			return err
		}
	}
	return os.RemoveAll(staging)
}
