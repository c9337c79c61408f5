package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "8000", cfg.Port)
	require.Equal(t, "documents", cfg.IndexName)
	require.Equal(t, 384, cfg.EmbeddingDim)
	require.Equal(t, 500, cfg.ChunkSize)
	require.Equal(t, 100, cfg.ChunkOverlap)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "port: \"9000\"\nchunkSize: 800\nindexName: notes\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CHUNK_SIZE", "1000")
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Port)
	require.Equal(t, "notes", cfg.IndexName)
	// Environment beats the file.
	require.Equal(t, 1000, cfg.ChunkSize)
	require.Equal(t, "test-key", cfg.GeminiAPIKey)
}

func TestLoadRejectsOverlapLargerThanChunk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunkSize: 100\nchunkOverlap: 150\n"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "chunkOverlap")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not: valid"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}
