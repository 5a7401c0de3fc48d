package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printbeast/rngp-patcher/fs/billy"
)

func TestScanner_Probe(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("maps/a.txt", []byte("hello"), 0o644))
	require.NoError(t, fsys.MkdirAll("emptydir", 0o755))

	s := NewScanner(fsys)

	t.Run("existing file", func(t *testing.T) {
		local := s.Probe("maps/a.txt")
		assert.True(t, local.Exists)
		assert.False(t, local.IsDir)
		assert.Equal(t, int64(5), local.Size)
		assert.NoError(t, local.Err)
	})

	t.Run("missing file", func(t *testing.T) {
		local := s.Probe("maps/b.txt")
		assert.False(t, local.Exists)
		assert.NoError(t, local.Err)
	})

	t.Run("directory", func(t *testing.T) {
		local := s.Probe("emptydir")
		assert.True(t, local.Exists)
		assert.True(t, local.IsDir)
	})
}
