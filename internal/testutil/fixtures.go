package testutil

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/printbeast/rngp-patcher/fs"
)

// MD5Hex returns the lowercase hex MD5 of data.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// WriteTree writes files (path -> content) into fsys.
func WriteTree(t *testing.T, fsys fs.Filesystem, files map[string]string) {
	t.Helper()
	for p, content := range files {
		require.NoError(t, fsys.WriteFile(p, []byte(content), 0o644), "write %s", p)
	}
}

// ReadString reads a file from fsys as a string.
func ReadString(t *testing.T, fsys fs.Filesystem, p string) string {
	t.Helper()
	data, err := fsys.ReadFile(p)
	require.NoError(t, err, "read %s", p)
	return string(data)
}

// ManifestFile is one entry written by ManifestBuilder.
type ManifestFile struct {
	Path        string  `json:"path"`
	URL         string  `json:"url,omitempty"`
	Size        *uint64 `json:"size,omitempty"`
	MD5         *string `json:"md5,omitempty"`
	Description string  `json:"description,omitempty"`
}

// ManifestBuilder builds manifest documents for tests.
type ManifestBuilder struct {
	Version     string         `json:"version"`
	PatchDate   string         `json:"patch_date,omitempty"`
	Description string         `json:"description,omitempty"`
	Files       []ManifestFile `json:"files"`
	Notes       []string       `json:"notes,omitempty"`
}

// NewManifestBuilder starts a manifest with the given version.
func NewManifestBuilder(version string) *ManifestBuilder {
	return &ManifestBuilder{Version: version, Files: []ManifestFile{}}
}

// WithFile adds an entry whose size and digest describe content.
func (b *ManifestBuilder) WithFile(path, content string) *ManifestBuilder {
	size := uint64(len(content))
	sum := MD5Hex([]byte(content))
	b.Files = append(b.Files, ManifestFile{Path: path, Size: &size, MD5: &sum})
	return b
}

// WithDigest adds an entry with an explicit digest.
func (b *ManifestBuilder) WithDigest(path string, size uint64, sum string) *ManifestBuilder {
	b.Files = append(b.Files, ManifestFile{Path: path, Size: &size, MD5: &sum})
	return b
}

// WithURLFile adds an entry fetched from a direct URL.
func (b *ManifestBuilder) WithURLFile(path, url, content string) *ManifestBuilder {
	b.WithFile(path, content)
	b.Files[len(b.Files)-1].URL = url
	return b
}

// WithBareFile adds an entry without size and digest.
func (b *ManifestBuilder) WithBareFile(path string) *ManifestBuilder {
	b.Files = append(b.Files, ManifestFile{Path: path})
	return b
}

// Build encodes the manifest.
func (b *ManifestBuilder) Build(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	return data
}
