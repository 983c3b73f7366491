package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Create temporary directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "board.yml")

	// Write valid config
	validConfig := `version: "1.0"
instance: "team-board"
storage:
  backend: "redis"
  redis_url: "redis://localhost:6379"
board:
  capacity: 5
  header: "## Discussion topics"
matrix:
  homeserver: "https://matrix.example.org"
  user_id: "@board:example.org"
  password: "hunter2"
  admins:
    - "@ops:example.org"
`
	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	// Load and validate
	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "team-board", config.Instance)
	assert.Equal(t, "redis", config.Storage.Backend)
	assert.Equal(t, 5, config.Board.Capacity)
	assert.Equal(t, "## Discussion topics", config.Board.Header)
	require.NotNil(t, config.Matrix)
	assert.Equal(t, "@board:example.org", config.Matrix.UserID)
	assert.Equal(t, []string{"@ops:example.org"}, config.Matrix.Admins)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/board.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "board.yml")

	// Write invalid YAML
	invalidYAML := `version: "1.0"
storage:
  - this is invalid
    yaml syntax
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := &BoardConfig{
		Version: "2.0",
		Storage: StorageConfig{Backend: "sqlite", SQLitePath: "/tmp/board.db"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestValidate_Defaults(t *testing.T) {
	config := &BoardConfig{
		Version: "1.0",
		Storage: StorageConfig{Backend: "sqlite", SQLitePath: "/tmp/board.db"},
	}

	err := config.Validate()
	require.NoError(t, err)
	assert.Equal(t, "default", config.Instance)
	assert.Equal(t, DefaultCapacity, config.Board.Capacity)
	assert.Equal(t, DefaultHeader, config.Board.Header)
}

func TestValidate_Storage(t *testing.T) {
	tests := []struct {
		name    string
		storage StorageConfig
		wantErr string
	}{
		{
			name:    "missing backend",
			storage: StorageConfig{},
			wantErr: "storage.backend is required",
		},
		{
			name:    "unknown backend",
			storage: StorageConfig{Backend: "postgres"},
			wantErr: "invalid storage.backend: postgres",
		},
		{
			name:    "redis without url",
			storage: StorageConfig{Backend: "redis"},
			wantErr: "storage.redis_url is required",
		},
		{
			name:    "sqlite without path",
			storage: StorageConfig{Backend: "sqlite"},
			wantErr: "storage.sqlite_path is required",
		},
		{
			name:    "valid redis",
			storage: StorageConfig{Backend: "redis", RedisURL: "redis://localhost:6379"},
		},
		{
			name:    "valid sqlite",
			storage: StorageConfig{Backend: "sqlite", SQLitePath: "board.db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &BoardConfig{Version: "1.0", Storage: tt.storage}
			err := config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_NegativeCapacity(t *testing.T) {
	config := &BoardConfig{
		Version: "1.0",
		Storage: StorageConfig{Backend: "sqlite", SQLitePath: "board.db"},
		Board:   BoardSettings{Capacity: -1},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "board.capacity must be >= 1")
}

func TestLoad_LoggingSection(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "board.yml")

	cfg := `version: "1.0"
storage:
  backend: "sqlite"
  sqlite_path: "board.db"
logging:
  events: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0644))

	config, err := Load(configPath)
	require.NoError(t, err)
	require.NotNil(t, config.Logging)
	assert.False(t, config.Logging.Events)
}

func TestValidate_Matrix(t *testing.T) {
	t.Run("missing homeserver", func(t *testing.T) {
		m := &MatrixConfig{UserID: "@board:example.org", Password: "x"}
		err := m.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "matrix.homeserver is required")
	})

	t.Run("missing user_id", func(t *testing.T) {
		m := &MatrixConfig{Homeserver: "https://matrix.example.org", Password: "x"}
		err := m.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "matrix.user_id is required")
	})

	t.Run("missing password", func(t *testing.T) {
		t.Setenv("MATRIX_PASSWORD", "")
		m := &MatrixConfig{Homeserver: "https://matrix.example.org", UserID: "@board:example.org"}
		err := m.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "matrix password is required")
	})

	t.Run("password from environment", func(t *testing.T) {
		t.Setenv("MATRIX_PASSWORD", "from-env")
		m := &MatrixConfig{Homeserver: "https://matrix.example.org", UserID: "@board:example.org", Password: "from-file"}
		err := m.Validate()
		require.NoError(t, err)
		assert.Equal(t, "from-env", m.Password)
		assert.Equal(t, ".topicboard", m.DataDir)
	})
}
