// Package inspect implements the read-only CLI views over stored board
// state: listing topics across channels with filtering and table or JSONL
// output.
package inspect

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/topicboard/topicboard/pkg/registry"
)

// OutputFormat specifies how to format the topic list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated topic text
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete topics as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Row is one topic flattened with its channel context, the unit of list
// output.
type Row struct {
	ChannelKey string `json:"channel_key"`
	BoardIndex int    `json:"board_index"`
	ID         string `json:"id"`
	Emoji      string `json:"emoji"`
	Text       string `json:"text"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	AddedAtMs  int64  `json:"added_at_ms"`
}

// FilterCriteria defines filtering options for the list command.
// All filters are ANDed together.
type FilterCriteria struct {
	ChannelKey       string // Exact channel, empty = all channels
	AuthorID         string // Exact match on the topic author, empty = no filter
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
}

// matchesFilter returns true if the row matches all filter criteria.
// Channel filtering happens before load, so only author and time apply here.
func (fc *FilterCriteria) matchesFilter(r *Row) bool {
	if fc.AuthorID != "" && r.AuthorID != fc.AuthorID {
		return false
	}
	if fc.SinceTimestampMs > 0 && r.AddedAtMs < fc.SinceTimestampMs {
		return false
	}
	return true
}

// ListTopics loads topics from the store and writes them to the provided
// writer, oldest first. Channels that fail to load are skipped with a
// warning to stderr but do not abort the listing.
func ListTopics(ctx context.Context, store registry.Store, instanceName string, format OutputFormat, filters *FilterCriteria, w io.Writer) error {
	var channelKeys []string
	if filters != nil && filters.ChannelKey != "" {
		channelKeys = []string{filters.ChannelKey}
	} else {
		keys, err := store.ListChannelKeys(ctx)
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}
		channelKeys = keys
	}

	var rows []*Row
	for _, key := range channelKeys {
		st, err := store.Load(ctx, key)
		if err != nil {
			if registry.IsNotFound(err) {
				continue
			}
			fmt.Fprintf(os.Stderr, "⚠️  Skipping unreadable channel %s: %v\n", key, err)
			continue
		}

		for _, b := range st.Boards {
			for _, t := range b.Topics {
				row := &Row{
					ChannelKey: st.ChannelKey,
					BoardIndex: b.Index,
					ID:         t.ID,
					Emoji:      t.Emoji,
					Text:       t.Text,
					AuthorID:   t.AuthorID,
					AuthorName: t.AuthorName,
					AddedAtMs:  t.AddedAtMs,
				}
				if filters != nil && !filters.matchesFilter(row) {
					continue
				}
				rows = append(rows, row)
			}
		}
	}

	// Oldest first for chronological output.
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].AddedAtMs < rows[j].AddedAtMs
	})

	switch format {
	case OutputFormatDefault:
		FormatTable(w, rows, instanceName)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, rows); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
