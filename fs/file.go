package fs

import "io/fs"

// File is an open file inside the install dir. Downloads are streamed into a
// File from Filesystem.TempFile and read back through Filesystem.Open.
type File interface {
	Close() error
	Name() string
	Read(p []byte) (n int, err error)
	Stat() (fs.FileInfo, error)
	// Sync flushes written data to stable storage. It is a no-op for
	// in-memory files.
	Sync() error
	Write(p []byte) (n int, err error)
}
