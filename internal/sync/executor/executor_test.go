package executor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printbeast/rngp-patcher/digest"
	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/fs/billy"
	"github.com/printbeast/rngp-patcher/internal/testutil"
	"github.com/printbeast/rngp-patcher/manifest"
	"github.com/printbeast/rngp-patcher/patchtypes"
)

func fetchAction(path, content string) patchtypes.Action {
	return patchtypes.Action{
		Type: patchtypes.ActionFetch,
		Path: path,
		File: manifest.FileDescriptor{
			Path:        path,
			Size:        uint64(len(content)),
			Digest:      testutil.MD5Hex([]byte(content)),
			Locator:     path,
			HasMetadata: true,
		},
		Reason: patchtypes.ReasonMissing,
	}
}

func deleteAction(path string) patchtypes.Action {
	return patchtypes.Action{Type: patchtypes.ActionDelete, Path: path, Reason: patchtypes.ReasonDeprecated}
}

func newPlan(actions ...patchtypes.Action) *patchtypes.Plan {
	return &patchtypes.Plan{Actions: actions}
}

// streamTransport returns the same body for every locator.
type streamTransport struct {
	body io.ReadCloser
}

func (s *streamTransport) Fetch(context.Context, string) (io.ReadCloser, error) {
	return s.body, nil
}

func TestApply_FetchMissingFile(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport().Put("a.txt", []byte("hello"))
	rec := &testutil.ProgressRecorder{}

	ex := NewExecutor(Config{Filesystem: fsys, Transport: tr})
	outcome, err := ex.Apply(context.Background(), newPlan(fetchAction("a.txt", "hello")), rec.Func())
	require.NoError(t, err)

	assert.Equal(t, patchtypes.StatusCompleted, outcome.Status)
	assert.Equal(t, 1, outcome.FilesFetched)
	assert.Empty(t, outcome.FilesWarned)
	assert.Empty(t, outcome.FilesFailed)
	assert.Equal(t, int64(5), outcome.BytesFetched)
	assert.True(t, outcome.OK())
	assert.Equal(t, "hello", testutil.ReadString(t, fsys, "a.txt"))

	require.Len(t, rec.Events, 1)
	assert.Equal(t, patchtypes.Progress{
		Index: 1, Total: 1, Path: "a.txt", Status: patchtypes.StatusFetched, Bytes: 5,
	}, rec.Events[0])
}

func TestApply_CreatesParentDirectories(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport().Put("maps/zone/a.eqg", []byte("zone"))

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(context.Background(), newPlan(fetchAction("maps/zone/a.eqg", "zone")), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.FilesFetched)
	assert.Equal(t, "zone", testutil.ReadString(t, fsys, "maps/zone/a.eqg"))
}

func TestApply_ReplacesExistingFile(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"a.txt": "old content"})
	tr := testutil.NewFakeTransport().Put("a.txt", []byte("hello"))

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(context.Background(), newPlan(fetchAction("a.txt", "hello")), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.FilesFetched)
	assert.Equal(t, "hello", testutil.ReadString(t, fsys, "a.txt"))

	entries, err := fsys.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestApply_DigestMismatchKeepsFileAndWarns(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport().Put("a.txt", []byte("tampered"))
	rec := &testutil.ProgressRecorder{}

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(context.Background(), newPlan(fetchAction("a.txt", "hello")), rec.Func())
	require.NoError(t, err)

	assert.Equal(t, patchtypes.StatusCompleted, outcome.Status)
	assert.Equal(t, 0, outcome.FilesFetched)
	assert.Equal(t, []string{"a.txt"}, outcome.FilesWarned)
	assert.False(t, outcome.OK())
	assert.Equal(t, "tampered", testutil.ReadString(t, fsys, "a.txt"))

	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, string(perrors.CodeDigestMismatch), outcome.Errors[0].Code)
	assert.True(t, outcome.Errors[0].Warning)
	assert.ErrorIs(t, outcome.Errors[0].Err, perrors.ErrDigestMismatch)

	assert.Equal(t, patchtypes.StatusWarned, rec.Last().Status)
	assert.Equal(t, 1, tr.Calls("a.txt"))
}

func TestApply_VerifyRetries(t *testing.T) {
	t.Run("recovers on retry", func(t *testing.T) {
		fsys := billy.NewInMemoryFS()
		tr := testutil.NewFakeTransport().Put("a.txt", []byte("hello"))
		tr.Responses["a.txt"] = [][]byte{[]byte("corrupt")}

		outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr, VerifyRetries: 2}).
			Apply(context.Background(), newPlan(fetchAction("a.txt", "hello")), nil)
		require.NoError(t, err)

		assert.Equal(t, 1, outcome.FilesFetched)
		assert.Empty(t, outcome.FilesWarned)
		assert.Equal(t, 2, tr.Calls("a.txt"))
		assert.Equal(t, "hello", testutil.ReadString(t, fsys, "a.txt"))
	})

	t.Run("gives up after retries", func(t *testing.T) {
		fsys := billy.NewInMemoryFS()
		tr := testutil.NewFakeTransport().Put("a.txt", []byte("corrupt"))

		outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr, VerifyRetries: 2}).
			Apply(context.Background(), newPlan(fetchAction("a.txt", "hello")), nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"a.txt"}, outcome.FilesWarned)
		assert.Equal(t, 3, tr.Calls("a.txt"))
	})
}

func TestApply_UnverifiableFile(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport().Put("a.txt", []byte("anything"))

	action := patchtypes.Action{
		Type:   patchtypes.ActionFetch,
		Path:   "a.txt",
		File:   manifest.FileDescriptor{Path: "a.txt", Locator: "a.txt"},
		Reason: patchtypes.ReasonUnverifiable,
	}

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(context.Background(), newPlan(action), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.FilesFetched)
	assert.Empty(t, outcome.FilesWarned)
	assert.Equal(t, "anything", testutil.ReadString(t, fsys, "a.txt"))
}

func TestApply_DownloadFailureContinues(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"a.txt": "original"})

	tr := testutil.NewFakeTransport().Put("b.txt", []byte("world"))
	tr.Fail("a.txt", perrors.NewPathError("fetch", "a.txt", perrors.ErrAccessDenied, nil))

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(context.Background(), newPlan(
			fetchAction("a.txt", "hello"),
			fetchAction("b.txt", "world"),
			fetchAction("c.txt", "missing upstream"),
		), nil)
	require.NoError(t, err)

	assert.Equal(t, patchtypes.StatusCompleted, outcome.Status)
	assert.Equal(t, 1, outcome.FilesFetched)
	assert.Equal(t, []string{"a.txt", "c.txt"}, outcome.FilesFailed)

	// The existing file is untouched by the failed fetch.
	assert.Equal(t, "original", testutil.ReadString(t, fsys, "a.txt"))

	exists, err := fsys.Exists("c.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	require.Len(t, outcome.Errors, 2)
	assert.ErrorIs(t, outcome.Errors[0].Err, perrors.ErrDownloadFailed)
	assert.ErrorIs(t, outcome.Errors[0].Err, perrors.ErrAccessDenied)
	assert.ErrorIs(t, outcome.Errors[1].Err, perrors.ErrObjectNotFound)
	assert.False(t, outcome.Errors[0].Warning)
}

func TestApply_InterruptedStreamLeavesNoPartialFile(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"a.txt": "original"})

	tr := &streamTransport{body: &testutil.FailingReader{Data: []byte("hel"), Err: errors.New("connection reset")}}

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(context.Background(), newPlan(fetchAction("a.txt", "hello")), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, outcome.FilesFailed)
	assert.Equal(t, "original", testutil.ReadString(t, fsys, "a.txt"))

	entries, err := fsys.ReadDir("/")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestApply_DeletesRunFirst(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"arena.eqg": "old"})

	tr := testutil.NewFakeTransport().Put("arena.eqg", []byte("new"))
	rec := &testutil.ProgressRecorder{}

	// Plan order puts the fetch first; execution must not.
	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(context.Background(), newPlan(
			fetchAction("arena.eqg", "new"),
			deleteAction("arena.eqg"),
		), rec.Func())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.FilesDeleted)
	assert.Equal(t, 1, outcome.FilesFetched)
	assert.Equal(t, "new", testutil.ReadString(t, fsys, "arena.eqg"))

	require.Len(t, rec.Events, 2)
	assert.Equal(t, patchtypes.StatusDeleted, rec.Events[0].Status)
	assert.Equal(t, patchtypes.StatusFetched, rec.Events[1].Status)
}

func TestApply_DeleteMissingCountsAsSuccess(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"arena.eqg": "old"})

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: testutil.NewFakeTransport()}).
		Apply(context.Background(), newPlan(deleteAction("arena.eqg"), deleteAction("gone.eqg")), nil)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.FilesDeleted)
	assert.True(t, outcome.OK())

	exists, err := fsys.Exists("arena.eqg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestApply_DeleteFailureIsWarning(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"dir.eqg/inner": "x", "b.eqg": "y"})

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: testutil.NewFakeTransport()}).
		Apply(context.Background(), newPlan(deleteAction("dir.eqg"), deleteAction("b.eqg")), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.FilesDeleted)
	assert.Equal(t, []string{"dir.eqg"}, outcome.FilesWarned)
	require.Len(t, outcome.Errors, 1)
	assert.ErrorIs(t, outcome.Errors[0].Err, perrors.ErrDeleteFailed)
	assert.Equal(t, string(perrors.CodeDeleteFailed), outcome.Errors[0].Code)
}

func TestApply_ProgressIsMonotonic(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport()

	var actions []patchtypes.Action
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		content := strings.Repeat(name, 10)
		tr.Put(name+".txt", []byte(content))
		actions = append(actions, fetchAction(name+".txt", content))
	}
	testutil.WriteTree(t, fsys, map[string]string{"old.eqg": "x"})
	actions = append(actions, deleteAction("old.eqg"), patchtypes.Action{Type: patchtypes.ActionNoOp, Path: "k.txt"})

	rec := &testutil.ProgressRecorder{}
	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr, Concurrency: 4}).
		Apply(context.Background(), newPlan(actions...), rec.Func())
	require.NoError(t, err)

	assert.Equal(t, 10, outcome.FilesFetched)
	assert.Equal(t, 1, outcome.FilesDeleted)
	assert.Equal(t, int64(100), outcome.BytesFetched)

	require.Len(t, rec.Events, 11)
	var lastBytes int64
	for i, ev := range rec.Events {
		assert.Equal(t, i+1, ev.Index)
		assert.Equal(t, 11, ev.Total)
		assert.GreaterOrEqual(t, ev.Bytes, lastBytes)
		lastBytes = ev.Bytes
	}
	assert.Equal(t, 1.0, rec.Last().Fraction())
}

func TestApply_ConcurrencyIsBounded(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport()

	var inFlight, peak atomic.Int32
	tr.BeforeFetch = func(ctx context.Context, locator string) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}

	var actions []patchtypes.Action
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		tr.Put(name, []byte(name))
		actions = append(actions, fetchAction(name, name))
	}

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr, Concurrency: 2}).
		Apply(context.Background(), newPlan(actions...), nil)
	require.NoError(t, err)

	assert.Equal(t, 8, outcome.FilesFetched)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestApply_Cancelled(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	tr := testutil.NewFakeTransport().Put("a.txt", []byte("a")).Put("b.txt", []byte("b"))

	ctx, cancel := context.WithCancel(context.Background())
	tr.BeforeFetch = func(_ context.Context, locator string) error {
		if locator == "a.txt" {
			cancel()
		}
		return nil
	}

	outcome, err := NewExecutor(Config{Filesystem: fsys, Transport: tr}).
		Apply(ctx, newPlan(fetchAction("a.txt", "a"), fetchAction("b.txt", "b")), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, outcome)
	assert.Equal(t, patchtypes.StatusCancelled, outcome.Status)
	assert.Equal(t, 0, outcome.FilesFetched)
	assert.Equal(t, 0, tr.Calls("b.txt"))

	for _, p := range []string{"a.txt", "b.txt"} {
		exists, err := fsys.Exists(p)
		require.NoError(t, err)
		assert.False(t, exists, p)
	}
}

func TestApply_InvalidPlan(t *testing.T) {
	ex := NewExecutor(Config{Filesystem: billy.NewInMemoryFS(), Transport: testutil.NewFakeTransport()})

	_, err := ex.Apply(context.Background(), newPlan(fetchAction("a", "a"), fetchAction("a", "a")), nil)
	assert.True(t, perrors.IsInvalidInput(err))
}

func TestApply_ForgetsCachedDigest(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	testutil.WriteTree(t, fsys, map[string]string{"a.txt": "old"})

	cache, err := digest.NewCache(16)
	require.NoError(t, err)
	hasher := digest.NewHasher(cache)

	_, err = hasher.File(fsys, "a.txt", digest.MD5)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	tr := testutil.NewFakeTransport().Put("a.txt", []byte("hello"))
	_, err = NewExecutor(Config{Filesystem: fsys, Transport: tr, Hasher: hasher}).
		Apply(context.Background(), newPlan(fetchAction("a.txt", "hello")), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, cache.Len())
	got, err := hasher.File(fsys, "a.txt", digest.MD5)
	require.NoError(t, err)
	assert.True(t, got.Matches(testutil.MD5Hex([]byte("hello"))))
}

func TestNewExecutor_ClampsConcurrency(t *testing.T) {
	assert.Equal(t, DefaultConcurrency, NewExecutor(Config{}).Concurrency())
	assert.Equal(t, MaxConcurrency, NewExecutor(Config{Concurrency: 100}).Concurrency())
	assert.Equal(t, 3, NewExecutor(Config{Concurrency: 3}).Concurrency())
}
