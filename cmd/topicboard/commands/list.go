package commands

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/topicboard/topicboard/internal/inspect"
)

var (
	listJSON    bool
	listChannel string
	listAuthor  string
	listSince   time.Duration
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored topics",
	Long: `List the topics stored for this instance, across all channels or one.

Use --json for machine-readable JSONL output.

Examples:
  # All topics, oldest first
  topicboard list

  # One channel's topics as JSONL
  topicboard list --channel '!room:example.org' --json

  # Topics added in the last day by one author
  topicboard list --author '@ana:example.org' --since 24h`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSONL format")
	listCmd.Flags().StringVar(&listChannel, "channel", "", "Only this channel")
	listCmd.Flags().StringVar(&listAuthor, "author", "", "Only topics by this author ID")
	listCmd.Flags().DurationVar(&listSince, "since", 0, "Only topics added within this duration")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	format := inspect.OutputFormatDefault
	if listJSON {
		format = inspect.OutputFormatJSONL
	}

	filters := &inspect.FilterCriteria{
		ChannelKey: listChannel,
		AuthorID:   listAuthor,
	}
	if listSince > 0 {
		filters.SinceTimestampMs = time.Now().Add(-listSince).UnixMilli()
	}

	return inspect.ListTopics(context.Background(), store, cfg.Instance, format, filters, os.Stdout)
}
