package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "capturd.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 50, cfg.Ingest.MaxChunkSizeMB)
	assert.True(t, cfg.Recordings.Retention.Enabled)
	assert.Equal(t, 168, cfg.Recordings.Retention.MaxAgeHours)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadAppliesDerivedDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "capturd.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)

	require.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "recordings"), cfg.Recordings.Dir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "capturd.log"), cfg.Logging.File)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capturd.json")
	content := `{
		"server": {"host": "127.0.0.1", "port": 8080},
		"ingest": {"max_chunk_size_mb": 10},
		"logging": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Ingest.MaxChunkSizeMB)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Values absent from the file keep their defaults.
	assert.Equal(t, 600, cfg.Ingest.RateLimitPerMinute)
	assert.True(t, cfg.Recordings.Watcher.Enabled)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capturd.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "capturd.json")
	loader := NewLoader(path)

	cfg := DefaultConfig()
	cfg.Server.Port = 9999
	cfg.Logging.Level = "warn"
	require.NoError(t, loader.Save(cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, reloaded.Server.Port)
	assert.Equal(t, "warn", reloaded.Logging.Level)
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	assert.Contains(t, s, `"port": 3000`)
	assert.Contains(t, s, `"max_chunk_size_mb": 50`)
}
