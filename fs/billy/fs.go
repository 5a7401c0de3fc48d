// Package billy implements the patcher filesystem on top of go-billy.
// NewOSFS roots an OS filesystem at the install dir; NewInMemoryFS backs tests.
package billy

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	parentfs "github.com/printbeast/rngp-patcher/fs"
)

// FS adapts a go-billy filesystem to fs.Filesystem. Errors keep their cause,
// so errors.Is(err, fs.ErrNotExist) holds for missing paths.
type FS struct {
	fs billy.Filesystem

	// osRoot is the absolute directory an OS filesystem is rooted at, empty
	// for in-memory filesystems.
	osRoot string
}

var _ parentfs.Filesystem = (*FS)(nil)

// NewOSFS returns a filesystem rooted at dir. Paths escaping dir are rejected.
func NewOSFS(dir string) *FS {
	return &FS{fs: osfs.New(dir), osRoot: dir}
}

// NewInMemoryFS returns an empty in-memory filesystem.
func NewInMemoryFS() *FS {
	return &FS{fs: memfs.New()}
}

// Exists reports whether path exists.
func (b *FS) Exists(path string) (bool, error) {
	_, err := b.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, wrap("stat", path, err)
	}
}

func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	return wrap("mkdir", path, b.fs.MkdirAll(path, perm))
}

//nolint:ireturn // callers only need the fs.File contract.
func (b *FS) Open(name string) (parentfs.File, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, wrap("open", name, err)
	}
	return &File{file: f, fs: b}, nil
}

func (b *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	list, err := b.fs.ReadDir(dirname)
	return list, wrap("readdir", dirname, err)
}

func (b *FS) ReadFile(path string) ([]byte, error) {
	data, err := util.ReadFile(b.fs, path)
	return data, wrap("read", path, err)
}

func (b *FS) Remove(name string) error {
	return wrap("remove", name, b.fs.Remove(name))
}

// Rename replaces newpath atomically on the OS filesystem.
func (b *FS) Rename(oldpath, newpath string) error {
	if err := b.fs.Rename(oldpath, newpath); err != nil {
		return fmt.Errorf("billy: rename %q -> %q: %w", oldpath, newpath, err)
	}
	return nil
}

func (b *FS) Stat(name string) (os.FileInfo, error) {
	info, err := b.fs.Stat(name)
	return info, wrap("stat", name, err)
}

//nolint:ireturn // callers only need the fs.File contract.
func (b *FS) TempFile(dir, prefix string) (parentfs.File, error) {
	f, err := b.fs.TempFile(dir, prefix)
	if err != nil {
		return nil, wrap("tempfile", dir, err)
	}
	return &File{file: f, fs: b}, nil
}

func (b *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return wrap("write", filename, util.WriteFile(b.fs, filename, data, perm))
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("billy: %s %q: %w", op, path, err)
}
