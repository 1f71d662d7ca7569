// Package outfile writes generated files below a root directory. A file is
// only replaced when its content changes, so make does not see a fresh
// timestamp on an identical Makefile.in.
package outfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/opencontainers/go-digest"
)

// PathNotFoundError is returned when operating on a nonexistent path.
type PathNotFoundError struct {
	Path string
}

func (err PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", err.Path)
}

// Dir is a directory tree that generated files are written into. Paths
// given to its methods are slash separated and relative to the root.
type Dir struct {
	root string
}

// New constructs a Dir rooted at root.
func New(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the root directory.
func (d *Dir) Root() string {
	return d.root
}

// FullPath returns the operating system path of subPath.
func (d *Dir) FullPath(subPath string) string {
	return filepath.Join(d.root, filepath.FromSlash(subPath))
}

// GetContent retrieves the content stored at path as a []byte.
func (d *Dir) GetContent(path string) ([]byte, error) {
	contents, err := os.ReadFile(d.FullPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, PathNotFoundError{Path: path}
	}
	return contents, err
}

// Exists reports whether something, possibly a dangling symlink, is at
// path.
func (d *Dir) Exists(path string) bool {
	_, err := os.Lstat(d.FullPath(path))
	return err == nil
}

// Digest returns the canonical digest of the file at path.
func (d *Dir) Digest(path string) (digest.Digest, error) {
	f, err := os.Open(d.FullPath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return "", PathNotFoundError{Path: path}
	}
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.Canonical.FromReader(f)
}

// PutContent stores contents at path with permissions perm. The file is
// left untouched when its digest already matches contents; changed reports
// whether anything was written. The new content is written to a temporary
// file in the same directory and renamed into place.
func (d *Dir) PutContent(path string, contents []byte, perm fs.FileMode) (changed bool, err error) {
	want := digest.FromBytes(contents)
	if have, err := d.Digest(path); err == nil && have == want {
		return false, nil
	}

	fullPath := d.FullPath(path)
	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(parentDir, "."+filepath.Base(fullPath)+".tmp*")
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, bytes.NewReader(contents)); err != nil {
		tmp.Close()
		return false, err
	}
	if err = tmp.Close(); err != nil {
		return false, err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return false, err
	}
	// A symlink at path is replaced, not written through.
	if err = os.Rename(tmp.Name(), fullPath); err != nil {
		return false, err
	}
	return true, nil
}

// Symlink makes path a symbolic link to target, replacing whatever was
// there.
func (d *Dir) Symlink(target, path string) error {
	fullPath := d.FullPath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Symlink(target, fullPath)
}
