// Package watch streams live board events from the Redis backend for the
// CLI. Each save or delete of channel state appears as one line.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/topicboard/topicboard/pkg/registry"
)

// Run subscribes to board events and writes one formatted line per event
// until the context is cancelled. The channelKey filter is optional; empty
// means all channels.
func Run(ctx context.Context, store *registry.RedisStore, channelKey string, w io.Writer) error {
	sub, err := store.SubscribeBoardEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to board events: %w", err)
	}
	defer sub.Close()

	fmt.Fprintf(w, "Watching board events (Ctrl+C to stop)...\n")

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if channelKey != "" && evt.ChannelKey != channelKey {
				continue
			}
			fmt.Fprintln(w, FormatEvent(evt))

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "⚠️  Subscription error: %v\n", err)
		}
	}
}

// FormatEvent renders one event line: timestamp, kind, channel, and the
// board shape after the change.
func FormatEvent(evt registry.Event) string {
	ts := time.UnixMilli(evt.AtMs).UTC().Format("15:04:05")

	switch evt.Kind {
	case "deleted":
		return fmt.Sprintf("[%s] %-24s board removed", ts, evt.ChannelKey)
	default:
		boardsMsg := "board"
		if evt.Boards != 1 {
			boardsMsg = "boards"
		}
		topicsMsg := "topic"
		if evt.TopicCount != 1 {
			topicsMsg = "topics"
		}
		return fmt.Sprintf("[%s] %-24s %d %s across %d %s",
			ts, evt.ChannelKey, evt.TopicCount, topicsMsg, evt.Boards, boardsMsg)
	}
}
