package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicboard/topicboard/internal/config"
	"github.com/topicboard/topicboard/pkg/registry"
)

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2026-01-01")
	assert.Equal(t, "1.2.3 (commit: abc1234, built: 2026-01-01)", rootCmd.Version)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	old := configPath
	defer func() { configPath = old }()
	configPath = "/nonexistent/board.yml"

	_, err := loadConfig()
	require.Error(t, err)
}

func TestLoadConfig_Valid(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "board.yml")
	contents := `version: "1.0"
storage:
  backend: "sqlite"
  sqlite_path: "` + filepath.Join(tmpDir, "board.db") + `"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	old := configPath
	defer func() { configPath = old }()
	configPath = path

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := &config.BoardConfig{
		Version:  "1.0",
		Instance: "test",
		Storage: config.StorageConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(t.TempDir(), "board.db"),
		},
	}

	store, err := openStore(cfg)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &registry.SQLiteStore{}, store)
}

func TestOpenStore_InvalidRedisURL(t *testing.T) {
	cfg := &config.BoardConfig{
		Version:  "1.0",
		Instance: "test",
		Storage: config.StorageConfig{
			Backend:  "redis",
			RedisURL: "not a url",
		},
	}

	_, err := openStore(cfg)
	assert.Error(t, err)
}
