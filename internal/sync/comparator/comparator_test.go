package comparator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printbeast/rngp-patcher/digest"
	"github.com/printbeast/rngp-patcher/fs/billy"
	"github.com/printbeast/rngp-patcher/internal/sync/scanner"
	"github.com/printbeast/rngp-patcher/manifest"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

const helloMD5 = "5d41402abc4b2a76b9719d911017c592"

func descriptor(path, sum string) manifest.FileDescriptor {
	return manifest.FileDescriptor{
		Path:        path,
		Size:        5,
		Digest:      sum,
		Locator:     path,
		HasMetadata: sum != "",
	}
}

func TestDigestComparator(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("a.txt", []byte("hello"), 0o644))
	require.NoError(t, fsys.MkdirAll("dir.txt", 0o755))

	sc := scanner.NewScanner(fsys)
	comp := NewDigestComparator(fsys, digest.NewHasher(nil))

	tests := []struct {
		name    string
		path    string
		digest  string
		changed bool
		reason  string
		wantErr bool
	}{
		{name: "matching digest", path: "a.txt", digest: helloMD5, reason: patchtypes.ReasonUnchanged},
		{name: "uppercase digest", path: "a.txt", digest: strings.ToUpper(helloMD5), reason: patchtypes.ReasonUnchanged},
		{name: "different digest", path: "a.txt", digest: strings.Repeat("0", 32), changed: true, reason: patchtypes.ReasonModified},
		{name: "missing file", path: "b.txt", digest: helloMD5, changed: true, reason: patchtypes.ReasonMissing},
		{name: "no metadata", path: "a.txt", digest: "", changed: true, reason: patchtypes.ReasonUnverifiable},
		{name: "directory", path: "dir.txt", digest: helloMD5, changed: true, reason: patchtypes.ReasonUnreadable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := comp.Compare(sc.Probe(tt.path), descriptor(tt.path, tt.digest))
			assert.Equal(t, tt.changed, v.Changed)
			assert.Equal(t, tt.reason, v.Reason)
			if tt.wantErr {
				assert.Error(t, v.Err)
			} else {
				assert.NoError(t, v.Err)
			}
		})
	}
}

func TestDigestComparator_SHA256(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("a.txt", []byte("hello"), 0o644))

	sum, err := digest.Bytes([]byte("hello"), digest.SHA256)
	require.NoError(t, err)

	v := NewDigestComparator(fsys, nil).Compare(scanner.NewScanner(fsys).Probe("a.txt"), descriptor("a.txt", sum))
	assert.False(t, v.Changed)
}

func TestDigestComparator_ProbeError(t *testing.T) {
	comp := NewDigestComparator(billy.NewInMemoryFS(), nil)
	local := &patchtypes.LocalFile{Path: "a.txt", Err: assert.AnError}

	v := comp.Compare(local, descriptor("a.txt", helloMD5))
	assert.True(t, v.Changed)
	assert.Equal(t, patchtypes.ReasonUnreadable, v.Reason)
	assert.ErrorIs(t, v.Err, assert.AnError)
}

func TestForceComparator(t *testing.T) {
	comp := NewForceComparator()

	v := comp.Compare(&patchtypes.LocalFile{Path: "a.txt", Exists: true}, descriptor("a.txt", helloMD5))
	assert.True(t, v.Changed)
	assert.Equal(t, patchtypes.ReasonForced, v.Reason)

	v = comp.Compare(&patchtypes.LocalFile{Path: "a.txt"}, descriptor("a.txt", helloMD5))
	assert.Equal(t, patchtypes.ReasonMissing, v.Reason)
}
