package manifest

import (
	"strings"
	"time"

	"github.com/printbeast/rngp-patcher/digest"
)

// FileDescriptor describes one file of a patch. It is immutable once parsed.
type FileDescriptor struct {
	// Path is the slash-separated path relative to the install root.
	Path string

	// Size is the expected size in bytes. Only meaningful with HasMetadata.
	Size uint64

	// Digest is the expected lowercase hex digest. Only meaningful with HasMetadata.
	Digest string

	// Locator is an object key or a full http(s) URL.
	Locator string

	// Description is free text from the manifest.
	Description string

	// HasMetadata reports whether Size and Digest were present.
	HasMetadata bool
}

// Algorithm returns the digest algorithm matching Digest.
func (d FileDescriptor) Algorithm() digest.Algorithm {
	if !d.HasMetadata {
		return digest.MD5
	}
	return digest.AlgorithmFor(d.Digest)
}

// IsURL reports whether the locator is a direct http(s) URL rather than an
// object key.
func (d FileDescriptor) IsURL() bool {
	return IsURL(d.Locator)
}

// IsURL reports whether locator is an http or https URL.
func IsURL(locator string) bool {
	l := strings.ToLower(locator)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Manifest is one consistent snapshot of a patch.
type Manifest struct {
	Version     string
	GeneratedAt time.Time
	Description string
	Files       []FileDescriptor
	Notes       []string

	index   map[string]int
	rawSize int
}

// RawSize returns the size of the document the manifest was parsed from.
func (m *Manifest) RawSize() int {
	return m.rawSize
}

// Len returns the number of files.
func (m *Manifest) Len() int {
	return len(m.Files)
}

// TotalSize sums the sizes of all files that carry metadata.
func (m *Manifest) TotalSize() uint64 {
	var total uint64
	for _, f := range m.Files {
		if f.HasMetadata {
			total += f.Size
		}
	}
	return total
}

// Lookup finds the descriptor for a path.
func (m *Manifest) Lookup(path string) (FileDescriptor, bool) {
	if m.index == nil {
		m.buildIndex()
	}
	i, ok := m.index[path]
	if !ok {
		return FileDescriptor{}, false
	}
	return m.Files[i], true
}

func (m *Manifest) buildIndex() {
	m.index = make(map[string]int, len(m.Files))
	for i, f := range m.Files {
		m.index[f.Path] = i
	}
}
