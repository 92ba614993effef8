package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsNil(t *testing.T) {
	t.Setenv(PathEnv, filepath.Join(t.TempDir(), "config.json"))

	runtime, err := Load()
	require.NoError(t, err)
	assert.Nil(t, runtime)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	t.Setenv(PathEnv, path)

	saved := &Runtime{Backend: "postgres", DatabaseURL: "postgres://localhost/chacrab?sslmode=require"}
	require.NoError(t, Save(saved))

	loaded, err := Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(PathEnv, path)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}
