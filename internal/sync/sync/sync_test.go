package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/fs/billy"
	"github.com/printbeast/rngp-patcher/internal/sync/comparator"
	"github.com/printbeast/rngp-patcher/internal/sync/executor"
	"github.com/printbeast/rngp-patcher/internal/sync/planner"
	"github.com/printbeast/rngp-patcher/internal/sync/scanner"
	"github.com/printbeast/rngp-patcher/internal/testutil"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

func newManager(fsys *billy.FS, tr *testutil.FakeTransport, deprecated ...string) *Manager {
	pl := planner.NewPlanner(scanner.NewScanner(fsys), comparator.NewDigestComparator(fsys, nil), deprecated, nil)
	ex := executor.NewExecutor(executor.Config{Filesystem: fsys, Transport: tr})
	return NewManager(tr, pl, ex, nil)
}

func TestManager_SyncFetchesMissingFile(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport().
		Put("manifest.json", testutil.NewManifestBuilder("1.0").WithFile("a.txt", "hello").Build(t)).
		Put("a.txt", []byte("hello"))

	summary, err := newManager(fsys, tr).Sync(context.Background(), &Config{ManifestLocation: "manifest.json"})
	require.NoError(t, err)

	assert.Equal(t, "1.0", summary.Manifest.Version)
	assert.Equal(t, 1, summary.Plan.Stats.Fetches)
	assert.Equal(t, patchtypes.StatusCompleted, summary.Outcome.Status)
	assert.Equal(t, 1, summary.Outcome.FilesFetched)
	assert.Empty(t, summary.Outcome.FilesWarned)
	assert.Equal(t, "hello", testutil.ReadString(t, fsys, "a.txt"))
}

func TestManager_SyncRemovesDeprecatedFile(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"arena.eqg": "legacy"})
	tr := testutil.NewFakeTransport().
		Put("manifest.json", testutil.NewManifestBuilder("1.0").Build(t))

	summary, err := newManager(fsys, tr, "arena.eqg").Sync(context.Background(), &Config{ManifestLocation: "manifest.json"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Outcome.FilesDeleted)
	exists, err := fsys.Exists("arena.eqg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_SyncIsIdempotent(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport().
		Put("manifest.json", testutil.NewManifestBuilder("1.0").WithFile("a.txt", "hello").Build(t)).
		Put("a.txt", []byte("hello"))

	m := newManager(fsys, tr)
	_, err := m.Sync(context.Background(), &Config{ManifestLocation: "manifest.json"})
	require.NoError(t, err)

	summary, err := m.Sync(context.Background(), &Config{ManifestLocation: "manifest.json"})
	require.NoError(t, err)

	assert.True(t, summary.Plan.IsEmpty())
	assert.Equal(t, 0, summary.Outcome.FilesFetched)
	assert.Equal(t, 1, tr.Calls("a.txt"))
}

func TestManager_InvalidManifestAbortsBeforeMutation(t *testing.T) {
	tests := []struct {
		name     string
		manifest []byte
		kind     error
	}{
		{name: "files not an array", manifest: []byte(`{"version":"1","files":{}}`), kind: perrors.ErrManifestInvalid},
		{name: "files missing", manifest: []byte(`{"version":"1"}`), kind: perrors.ErrManifestInvalid},
		{name: "not json", manifest: []byte(`<html>`), kind: perrors.ErrManifestInvalid},
		{name: "unreachable", kind: perrors.ErrManifestUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := billy.NewInMemoryFS()
			testutil.WriteTree(t, fsys, map[string]string{"arena.eqg": "legacy"})

			tr := testutil.NewFakeTransport()
			if tt.manifest != nil {
				tr.Put("manifest.json", tt.manifest)
			}

			summary, err := newManager(fsys, tr, "arena.eqg").Sync(context.Background(), &Config{ManifestLocation: "manifest.json"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.True(t, perrors.IsManifestError(err))

			require.NotNil(t, summary)
			assert.Nil(t, summary.Plan)
			assert.Equal(t, patchtypes.StatusAborted, summary.Outcome.Status)

			// Deprecated file survives: nothing was applied.
			assert.Equal(t, "legacy", testutil.ReadString(t, fsys, "arena.eqg"))
		})
	}
}

func TestManager_CheckDoesNotMutate(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"arena.eqg": "legacy"})
	tr := testutil.NewFakeTransport().
		Put("manifest.json", testutil.NewManifestBuilder("1.0").WithFile("a.txt", "hello").Build(t)).
		Put("a.txt", []byte("hello"))

	summary, err := newManager(fsys, tr, "arena.eqg").Check(context.Background(), &Config{ManifestLocation: "manifest.json"})
	require.NoError(t, err)

	assert.Nil(t, summary.Outcome)
	assert.Equal(t, 1, summary.Plan.Stats.Fetches)
	assert.Equal(t, 1, summary.Plan.Stats.Deletes)
	assert.Equal(t, 0, tr.Calls("a.txt"))
	assert.Equal(t, "legacy", testutil.ReadString(t, fsys, "arena.eqg"))
}

func TestManager_ProgressCallback(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"b.txt": "same", "old.eqg": "x"})
	tr := testutil.NewFakeTransport().
		Put("manifest.json", testutil.NewManifestBuilder("1.0").
			WithFile("a.txt", "hello").
			WithFile("b.txt", "same").
			Build(t)).
		Put("a.txt", []byte("hello"))

	rec := &testutil.ProgressRecorder{}
	_, err := newManager(fsys, tr, "old.eqg").Sync(context.Background(), &Config{
		ManifestLocation: "manifest.json",
		Progress:         rec.Func(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"old.eqg", "a.txt"}, rec.Paths())
	assert.Equal(t, 2, rec.Last().Total)
}
