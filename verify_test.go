package patcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/fs/billy"
	"github.com/printbeast/rngp-patcher/internal/testutil"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

func TestVerifyConnection(t *testing.T) {
	tests := []struct {
		name     string
		manifest *testutil.ManifestBuilder
		setup    func(tr *testutil.FakeTransport)
		wantErr  error
		validate func(t *testing.T, tr *testutil.FakeTransport, report *patchtypes.ConnectionReport)
	}{
		{
			name:     "digest matches",
			manifest: testutil.NewManifestBuilder("1.0").WithFile("a.txt", "hello").WithFile("b.txt", "skip"),
			setup: func(tr *testutil.FakeTransport) {
				tr.Put("a.txt", []byte("hello"))
			},
			validate: func(t *testing.T, tr *testutil.FakeTransport, r *patchtypes.ConnectionReport) {
				assert.Equal(t, "a.txt", r.FirstFile)
				assert.Equal(t, int64(5), r.FirstFileBytes)
				assert.True(t, r.DigestChecked)
				assert.True(t, r.DigestMatched)
				assert.Equal(t, 0, tr.Calls("b.txt"))
			},
		},
		{
			name:     "digest mismatch",
			manifest: testutil.NewManifestBuilder("1.0").WithFile("a.txt", "hello"),
			setup: func(tr *testutil.FakeTransport) {
				tr.Put("a.txt", []byte("HELLO"))
			},
			wantErr: perrors.ErrDigestMismatch,
			validate: func(t *testing.T, _ *testutil.FakeTransport, r *patchtypes.ConnectionReport) {
				assert.True(t, r.DigestChecked)
				assert.False(t, r.DigestMatched)
			},
		},
		{
			name:     "empty manifest",
			manifest: testutil.NewManifestBuilder("1.0"),
			validate: func(t *testing.T, tr *testutil.FakeTransport, r *patchtypes.ConnectionReport) {
				assert.Empty(t, r.FirstFile)
				assert.False(t, r.DigestChecked)
				assert.Equal(t, 1, tr.TotalCalls())
			},
		},
		{
			name:     "file without metadata",
			manifest: testutil.NewManifestBuilder("1.0").WithBareFile("notes.txt"),
			setup: func(tr *testutil.FakeTransport) {
				tr.Put("notes.txt", []byte("anything"))
			},
			validate: func(t *testing.T, _ *testutil.FakeTransport, r *patchtypes.ConnectionReport) {
				assert.Equal(t, int64(8), r.FirstFileBytes)
				assert.False(t, r.DigestChecked)
			},
		},
		{
			name:     "download failure",
			manifest: testutil.NewManifestBuilder("1.0").WithFile("a.txt", "hello"),
			setup: func(tr *testutil.FakeTransport) {
				tr.Fail("a.txt", errors.New("connection reset"))
			},
			wantErr: perrors.ErrDownloadFailed,
			validate: func(t *testing.T, _ *testutil.FakeTransport, r *patchtypes.ConnectionReport) {
				assert.Equal(t, "a.txt", r.FirstFile)
				assert.False(t, r.DigestChecked)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := billy.NewInMemoryFS()
			tr := testutil.NewFakeTransport().Put("manifest.json", tt.manifest.Build(t))
			if tt.setup != nil {
				tt.setup(tr)
			}

			client, err := New(WithFilesystem(fsys), WithTransport(tr), WithManifestLocation("manifest.json"))
			require.NoError(t, err)

			report, err := client.VerifyConnection(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NotNil(t, report)
			assert.Positive(t, report.ManifestBytes)

			entries, err := fsys.ReadDir("/")
			require.NoError(t, err)
			assert.Empty(t, entries, "verify must not write to the install dir")

			tt.validate(t, tr, report)
		})
	}
}

func TestVerifyConnection_ManifestUnreachable(t *testing.T) {
	tr := testutil.NewFakeTransport()
	client, err := New(WithFilesystem(billy.NewInMemoryFS()), WithTransport(tr), WithManifestLocation("manifest.json"))
	require.NoError(t, err)

	report, err := client.VerifyConnection(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, perrors.ErrManifestUnreachable)
}
