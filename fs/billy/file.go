package billy

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
)

// syncFile flushes an OS file. Tests replace it to observe flushes.
var syncFile = func(f *os.File) error {
	return f.Sync()
}

// File wraps a go-billy file opened through fs.
type File struct {
	file billy.File
	fs   *FS
}

func (f *File) Close() error {
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("billy: close %q: %w", f.file.Name(), err)
	}
	return nil
}

// Name returns the path relative to the filesystem root.
func (f *File) Name() string {
	return f.file.Name()
}

// Read passes io.EOF through unwrapped.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("billy: read %q: %w", f.file.Name(), err)
	}
	return n, err
}

// Stat goes through the filesystem; billy files carry no Stat of their own.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.fs.Stat(f.file.Name())
}

// Sync flushes written data to disk. The chroot wrapper of an OS filesystem
// hides the descriptor, so the file is reopened by its absolute path and
// flushed there. In-memory files have nothing to flush.
func (f *File) Sync() error {
	if s, ok := f.file.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("billy: sync %q: %w", f.file.Name(), err)
		}
		return nil
	}
	if f.fs.osRoot == "" {
		return nil
	}

	abs := filepath.Join(f.fs.osRoot, filepath.FromSlash(f.file.Name()))
	fh, err := os.OpenFile(abs, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("billy: sync %q: %w", f.file.Name(), err)
	}
	if err := syncFile(fh); err != nil {
		_ = fh.Close()
		return fmt.Errorf("billy: sync %q: %w", f.file.Name(), err)
	}
	return fh.Close()
}

func (f *File) Write(p []byte) (int, error) {
	n, err := f.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("billy: write %q: %w", f.file.Name(), err)
	}
	return n, nil
}
