package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/topicboard/topicboard/internal/printer"
	"github.com/topicboard/topicboard/internal/watch"
	"github.com/topicboard/topicboard/pkg/registry"
)

var watchChannel string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live board events",
	Long: `Stream board change events as they happen: one line per save or reset.

Watching requires the Redis backend, which publishes events on every
state change. The SQLite backend has no event stream.

Examples:
  # Watch all channels
  topicboard watch

  # Watch one channel
  topicboard watch --channel '!room:example.org'`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchChannel, "channel", "", "Only this channel")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	redisStore, ok := store.(*registry.RedisStore)
	if !ok {
		return printer.Error(
			"Watch needs the Redis backend",
			"Board events are published through Redis Pub/Sub; the SQLite backend does not emit them.",
			[]string{"Set storage.backend to 'redis' in " + configPath},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch.Run(ctx, redisStore, watchChannel, os.Stdout)
}
