// Package fs defines the filesystem abstraction the patcher works against.
// Production code uses an OS filesystem rooted at the installation directory;
// tests use an in-memory filesystem with identical semantics.
package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
)

// Filesystem is the set of operations the sync engine needs from local storage.
// Paths are interpreted relative to the filesystem root.
type Filesystem interface {
	Exists(path string) (bool, error)
	MkdirAll(path string, perm os.FileMode) error
	Open(name string) (File, error)
	ReadDir(dirname string) ([]os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	// Remove deletes a file or an empty directory. A missing name yields an
	// error matching io/fs.ErrNotExist.
	Remove(name string) error
	// Rename moves oldpath to newpath, replacing newpath if it exists.
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
	// TempFile creates a new uniquely named file in dir. The returned name
	// is relative to the filesystem root.
	TempFile(dir, prefix string) (File, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
}

// GetAbs returns the absolute form of path.
func GetAbs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Abs(path)
}

// Exists reports whether path exists on the OS filesystem.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, iofs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// IsDir reports whether path is an existing directory on the OS filesystem.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
