package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "exact", cfg.Engine.HDCStrategy)
	assert.False(t, cfg.Engine.CanonicalizationEnabled)
	assert.Equal(t, 1024, cfg.Vector.Geometry)
	assert.Equal(t, 4, cfg.Query.MaxHoles)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KE_ENGINE_HDC_STRATEGY", "approximate")
	t.Setenv("KE_VECTOR_GEOMETRY", "2048")
	t.Setenv("KE_QUERY_MAX_HOLES", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "approximate", cfg.Engine.HDCStrategy)
	assert.Equal(t, 2048, cfg.Vector.Geometry)
	assert.Equal(t, 6, cfg.Query.MaxHoles)
}

func TestValidateRejectsBadGeometry(t *testing.T) {
	cfg := Default()
	cfg.Vector.Geometry = 777
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadStrategy(t *testing.T) {
	cfg := Default()
	cfg.Engine.HDCStrategy = "fuzzy"
	assert.Error(t, cfg.Validate())
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.json")

	cfg := Default()
	cfg.Vector.Geometry = 4096
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, loaded.Vector.Geometry)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
