package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/types"
)

func TestSQLiteVectorMirrorPutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	mirror, err := OpenSQLiteVectorMirror(path)
	require.NoError(t, err)
	defer mirror.Close()

	v := types.OpaqueVector{Dims: []float32{0.1, -0.2, 0.3}}
	require.NoError(t, mirror.Put("Rex", v))

	got, ok, err := mirror.Get("Rex")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDeltaSlice(t, v.Dims, got.Dims, 1e-6)
}

func TestSQLiteVectorMirrorMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	mirror, err := OpenSQLiteVectorMirror(path)
	require.NoError(t, err)
	defer mirror.Close()

	_, ok, err := mirror.Get("Unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteVectorMirrorPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	m1, err := OpenSQLiteVectorMirror(path)
	require.NoError(t, err)
	require.NoError(t, m1.Put("Rex", types.OpaqueVector{Dims: []float32{1, 2, 3}}))
	require.NoError(t, m1.Close())

	m2, err := OpenSQLiteVectorMirror(path)
	require.NoError(t, err)
	defer m2.Close()
	got, ok, err := m2.Get("Rex")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got.Dims)
}
