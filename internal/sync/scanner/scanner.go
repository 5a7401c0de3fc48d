// Package scanner inspects the local installation.
// It reports what exists at manifest paths and at deprecated paths.
package scanner

import (
	"errors"
	"fmt"
	iofs "io/fs"

	"github.com/printbeast/rngp-patcher/fs"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// Scanner inspects files on a Filesystem rooted at the install dir.
type Scanner struct {
	filesystem fs.Filesystem
}

// NewScanner creates a scanner over the provided filesystem.
func NewScanner(filesystem fs.Filesystem) *Scanner {
	return &Scanner{filesystem: filesystem}
}

// Probe stats a single manifest path. It never fails: problems are reported
// through LocalFile.Err so the caller can still plan an action.
func (s *Scanner) Probe(p string) *patchtypes.LocalFile {
	local := &patchtypes.LocalFile{Path: p}

	info, err := s.filesystem.Stat(p)
	switch {
	case err == nil:
		local.Exists = true
		local.IsDir = info.IsDir()
		local.Size = info.Size()
		local.ModTime = info.ModTime()
	case errors.Is(err, iofs.ErrNotExist):
		// nothing there
	default:
		local.Err = fmt.Errorf("stat %q: %w", p, err)
	}

	return local
}
