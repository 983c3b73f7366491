package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// FormatTable writes topic rows as a formatted table to the provided writer.
// The table includes columns: CHANNEL, BOARD, EMOJI, BY, AGE, and TOPIC
// (truncated). Returns the number of rows formatted.
func FormatTable(w io.Writer, rows []*Row, instanceName string) int {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No topics found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Topics for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-24s %-5s %-6s %-18s %-8s %s\n",
		"CHANNEL", "BOARD", "EMOJI", "BY", "AGE", "TOPIC")
	fmt.Fprintf(w, "%-24s %-5s %-6s %-18s %-8s %s\n",
		"------------------------", "-----", "------", "------------------", "--------", "----------------------------------------")

	for _, r := range rows {
		fmt.Fprintf(w, "%-24s %-5d %-6s %-18s %-8s %s\n",
			formatChannel(r.ChannelKey),
			r.BoardIndex,
			r.Emoji,
			formatAuthor(r.AuthorName, r.AuthorID),
			formatTimestamp(r.AddedAtMs),
			formatText(r.Text),
		)
	}

	countMsg := "topic"
	if len(rows) != 1 {
		countMsg = "topics"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(rows), countMsg)

	return len(rows)
}

// FormatJSONL writes topic rows as line-delimited JSON (JSONL) to the
// provided writer. This format is ideal for streaming and processing with
// tools like jq.
func FormatJSONL(w io.Writer, rows []*Row) error {
	for _, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal topic to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatChannel truncates long channel keys for compact display.
func formatChannel(key string) string {
	if len(key) > 24 {
		return key[:21] + "..."
	}
	return key
}

// formatAuthor prefers the display name, falling back to the raw ID.
func formatAuthor(name, id string) string {
	out := name
	if out == "" {
		out = id
	}
	if out == "" {
		return "-"
	}
	if len(out) > 18 {
		return out[:15] + "..."
	}
	return out
}

// formatText truncates topic text to the first line with max 40 characters
// for table display.
func formatText(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if line == "" {
		return "-"
	}
	if len(line) > 40 {
		return line[:37] + "..."
	}
	return line
}

// formatTimestamp formats Unix timestamp in milliseconds as a relative age
// like "2m ago" or "1h ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	t := time.Unix(timestampMs/1000, (timestampMs%1000)*1000000)
	diff := time.Since(t)

	if diff < time.Minute {
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
}
