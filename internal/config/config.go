package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BoardConfig represents the top-level board.yml configuration
type BoardConfig struct {
	Version  string         `yaml:"version"`
	Instance string         `yaml:"instance"` // Namespace for storage keys; defaults to "default"
	Storage  StorageConfig  `yaml:"storage"`
	Board    BoardSettings  `yaml:"board,omitempty"`
	Matrix   *MatrixConfig  `yaml:"matrix,omitempty"` // Required for serve, optional for list/watch
	Logging  *LoggingConfig `yaml:"logging,omitempty"`
}

// StorageConfig selects and configures the state backend
type StorageConfig struct {
	Backend    string `yaml:"backend"` // Required: "redis" or "sqlite"
	RedisURL   string `yaml:"redis_url,omitempty"`
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

// BoardSettings specifies per-board behavior
type BoardSettings struct {
	Capacity       int    `yaml:"capacity,omitempty"`        // Topics per board message (default: 10)
	Header         string `yaml:"header,omitempty"`          // Body of the header message
	DefaultWelcome string `yaml:"default_welcome,omitempty"` // Welcome text when init gives none
}

// MatrixConfig specifies the Matrix connection
type MatrixConfig struct {
	Homeserver string   `yaml:"homeserver"`
	UserID     string   `yaml:"user_id"`
	Password   string   `yaml:"password,omitempty"` // Overridden by MATRIX_PASSWORD when set
	DataDir    string   `yaml:"data_dir,omitempty"` // Where session credentials are cached
	Admins     []string `yaml:"admins,omitempty"`   // User IDs allowed to reset boards and remove any topic
}

// LoggingConfig specifies log output behavior
type LoggingConfig struct {
	Events bool `yaml:"events"` // Structured JSON event lines; on when the logging section is omitted
}

const (
	// DefaultCapacity is the number of topics a board message holds before
	// a new one is started.
	DefaultCapacity = 10

	// DefaultHeader is the body of the header message between the welcome
	// and the first board.
	DefaultHeader = "## Topics"
)

// Validate performs strict validation on the configuration and applies
// defaults
func (c *BoardConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Instance == "" {
		c.Instance = "default"
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if c.Board.Capacity == 0 {
		c.Board.Capacity = DefaultCapacity
	}
	if c.Board.Capacity < 0 {
		return fmt.Errorf("board.capacity must be >= 1, got %d", c.Board.Capacity)
	}
	if c.Board.Header == "" {
		c.Board.Header = DefaultHeader
	}

	if c.Matrix != nil {
		if err := c.Matrix.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate performs validation on the storage section
func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case "redis":
		if s.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required when backend is 'redis'")
		}
	case "sqlite":
		if s.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required when backend is 'sqlite'")
		}
	case "":
		return fmt.Errorf("storage.backend is required (must be 'redis' or 'sqlite')")
	default:
		return fmt.Errorf("invalid storage.backend: %s (must be 'redis' or 'sqlite')", s.Backend)
	}
	return nil
}

// Validate performs validation on the matrix section. The password may come
// from the MATRIX_PASSWORD environment variable instead of the file, so
// secrets can stay out of board.yml.
func (m *MatrixConfig) Validate() error {
	if m.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	if m.UserID == "" {
		return fmt.Errorf("matrix.user_id is required")
	}
	if env := os.Getenv("MATRIX_PASSWORD"); env != "" {
		m.Password = env
	}
	if m.Password == "" {
		return fmt.Errorf("matrix password is required (set matrix.password or MATRIX_PASSWORD)")
	}
	if m.DataDir == "" {
		m.DataDir = ".topicboard"
	}
	return nil
}

// Load reads and validates board.yml from the specified path
func Load(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config BoardConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
