// Package comparator decides whether a local file satisfies a manifest entry.
//
// The default strategy hashes the local file with the algorithm implied by
// the expected digest. Sizes are never used as a shortcut: a file is only
// considered current when its content digest matches.
package comparator

import (
	"fmt"

	"github.com/printbeast/rngp-patcher/digest"
	"github.com/printbeast/rngp-patcher/fs"
	"github.com/printbeast/rngp-patcher/manifest"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

// Verdict is the result of a comparison.
type Verdict struct {
	// Changed is true when the file must be fetched
	Changed bool

	// Reason is one of the patchtypes Reason constants
	Reason string

	// Err explains an "unreadable" verdict
	Err error
}

// Comparator defines the interface for comparing a local file against its
// manifest entry.
type Comparator interface {
	// Compare reports whether local differs from want
	Compare(local *patchtypes.LocalFile, want manifest.FileDescriptor) Verdict
}

// DigestComparator compares content digests through a Hasher.
type DigestComparator struct {
	filesystem fs.Filesystem
	hasher     *digest.Hasher
}

// NewDigestComparator creates a comparator hashing files on filesystem.
func NewDigestComparator(filesystem fs.Filesystem, hasher *digest.Hasher) *DigestComparator {
	if hasher == nil {
		hasher = digest.NewHasher(nil)
	}
	return &DigestComparator{
		filesystem: filesystem,
		hasher:     hasher,
	}
}

// Compare implements the Comparator interface for DigestComparator.
func (c *DigestComparator) Compare(local *patchtypes.LocalFile, want manifest.FileDescriptor) Verdict {
	switch {
	case local.Err != nil:
		return Verdict{Changed: true, Reason: patchtypes.ReasonUnreadable, Err: local.Err}
	case !local.Exists:
		return Verdict{Changed: true, Reason: patchtypes.ReasonMissing}
	case local.IsDir:
		return Verdict{
			Changed: true,
			Reason:  patchtypes.ReasonUnreadable,
			Err:     fmt.Errorf("%q is a directory", local.Path),
		}
	case !want.HasMetadata:
		return Verdict{Changed: true, Reason: patchtypes.ReasonUnverifiable}
	}

	got, err := c.hasher.File(c.filesystem, local.Path, want.Algorithm())
	if err != nil {
		return Verdict{Changed: true, Reason: patchtypes.ReasonUnreadable, Err: err}
	}

	// Removed between the stat and the hash.
	if !got.IsPresent() {
		return Verdict{Changed: true, Reason: patchtypes.ReasonMissing}
	}

	if !got.Matches(want.Digest) {
		return Verdict{Changed: true, Reason: patchtypes.ReasonModified}
	}

	return Verdict{Changed: false, Reason: patchtypes.ReasonUnchanged}
}

// ForceComparator reports every file as changed, used to repair an install
// whose digests are trusted no longer.
type ForceComparator struct{}

// NewForceComparator creates a new force comparator.
func NewForceComparator() *ForceComparator {
	return &ForceComparator{}
}

// Compare implements the Comparator interface for ForceComparator.
func (c *ForceComparator) Compare(local *patchtypes.LocalFile, want manifest.FileDescriptor) Verdict {
	if !local.Exists {
		return Verdict{Changed: true, Reason: patchtypes.ReasonMissing}
	}
	return Verdict{Changed: true, Reason: patchtypes.ReasonForced}
}
