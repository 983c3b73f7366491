package commands

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/topicboard/topicboard/internal/config"
	"github.com/topicboard/topicboard/internal/printer"
	"github.com/topicboard/topicboard/pkg/registry"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "topicboard",
	Short: "Topicboard - Matrix topic board bot",
	Long: `Topicboard maintains an ordered topic board inside Matrix channels: a
welcome message, a header, capacity-bounded board messages with one
reaction per topic, a contributors list, and a change notification.

Users manage topics with "!topics" chat commands; state lives in Redis
or SQLite and the visible messages are reconciled against it after
every change.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "board.yml", "Path to the board configuration file")
}

// loadConfig reads the configuration named by --config.
func loadConfig() (*config.BoardConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"Failed to load configuration",
			err.Error(),
			[]string{fmt.Sprintf("Check that %s exists and is valid YAML", configPath)},
		)
	}
	return cfg, nil
}

// openStore opens the configured storage backend.
func openStore(cfg *config.BoardConfig) (registry.Store, error) {
	switch cfg.Storage.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			return nil, printer.Error(
				"Invalid Redis URL",
				err.Error(),
				[]string{"Use the form redis://host:port in storage.redis_url"},
			)
		}
		return registry.NewRedisStore(opts, cfg.Instance)
	case "sqlite":
		return registry.NewSQLiteStore(cfg.Storage.SQLitePath)
	default:
		// Config validation rejects other values; this is unreachable via Load.
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
