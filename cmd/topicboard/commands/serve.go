package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/topicboard/topicboard/internal/messenger/matrix"
	"github.com/topicboard/topicboard/internal/orchestrator"
	"github.com/topicboard/topicboard/internal/printer"
	"github.com/topicboard/topicboard/pkg/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the topic board bot",
	Long: `Connect to the configured Matrix homeserver and serve topic boards.

On startup every known channel is reconciled against its stored state, so
boards interrupted mid-update converge before new commands are accepted.

Examples:
  # Serve with the default board.yml
  topicboard serve

  # Serve with an explicit configuration
  topicboard serve --config /etc/topicboard/board.yml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Matrix == nil {
		return printer.Error(
			"Matrix configuration missing",
			"The serve command needs a matrix section in the configuration.",
			[]string{"Add matrix.homeserver, matrix.user_id and a password to " + configPath},
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if redisStore, ok := store.(*registry.RedisStore); ok {
		if err := redisStore.Ping(ctx); err != nil {
			return printer.ErrorWithContext(
				"Cannot reach Redis",
				err.Error(),
				map[string]string{
					"URL":      cfg.Storage.RedisURL,
					"Instance": cfg.Instance,
				},
				[]string{"Check that Redis is running and storage.redis_url is correct"},
			)
		}
	}

	client, err := matrix.New(*cfg.Matrix)
	if err != nil {
		return err
	}
	if err := client.Login(ctx); err != nil {
		return printer.Error(
			"Matrix login failed",
			err.Error(),
			[]string{
				"Check matrix.user_id and the password",
				"Check that matrix.homeserver is reachable",
			},
		)
	}

	engine := orchestrator.NewEngine(store, client, cfg)

	// Converge channels whose last reconciliation was interrupted.
	printer.Step("Reconciling known channels...\n")
	keys, err := store.ListChannelKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := engine.Repair(ctx, key); err != nil {
			printer.Warning("Failed to reconcile %s: %v\n", key, err)
		}
	}
	printer.Success("Serving %d channel(s) as %s\n", len(keys), cfg.Matrix.UserID)

	listener := matrix.NewListener(client, engine)
	return listener.Run(ctx)
}
