package testutil

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/printbeast/rngp-patcher/errors"
	"github.com/printbeast/rngp-patcher/manifest"
)

func TestFakeTransport(t *testing.T) {
	ft := NewFakeTransport().Put("a.txt", []byte("hello"))
	ft.Responses["b.txt"] = [][]byte{[]byte("first")}
	ft.Put("b.txt", []byte("second"))

	body, err := ft.Fetch(context.Background(), "a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	for _, want := range []string{"first", "second"} {
		body, err := ft.Fetch(context.Background(), "b.txt")
		require.NoError(t, err)
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}

	_, err = ft.Fetch(context.Background(), "missing")
	assert.True(t, perrors.IsObjectNotFound(err))

	assert.Equal(t, 1, ft.Calls("a.txt"))
	assert.Equal(t, 4, ft.TotalCalls())
}

func TestManifestBuilder(t *testing.T) {
	raw := NewManifestBuilder("1.0").
		WithFile("a.txt", "hello").
		WithBareFile("b.txt").
		Build(t)

	m, err := manifest.Parse(raw)
	require.NoError(t, err)
	require.Len(t, m.Files, 2)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", m.Files[0].Digest)
	assert.Equal(t, uint64(5), m.Files[0].Size)
	assert.False(t, m.Files[1].HasMetadata)
}
