// Package render turns channel state into the message bodies pushed to the
// messaging backend. All user-facing strings live here so they can be
// adjusted or translated in one place.
package render

import (
	"fmt"
	"strings"

	"github.com/topicboard/topicboard/pkg/board"
)

const (
	// DefaultWelcome is used when init is run without a custom welcome text.
	DefaultWelcome = "Add a welcome message."

	// InitializingPlaceholder is the body of a board message before its
	// first real render lands.
	InitializingPlaceholder = "Setting up topics board..."

	contributorsHeader     = "## Topics added by:"
	contributorsEmptyState = "(empty at first)"

	topicsEmptyMessage = "No topics yet. Add one with !topics add."
)

// TopicLine formats a single topic entry.
func TopicLine(t board.Topic) string {
	return fmt.Sprintf("- %s — **%s**", t.Emoji, t.Text)
}

// Board renders the body of one board message. An empty board renders the
// empty-state prompt rather than a blank message.
func Board(b board.Board) string {
	if len(b.Topics) == 0 {
		return topicsEmptyMessage
	}
	lines := make([]string, 0, len(b.Topics))
	for _, t := range b.Topics {
		lines = append(lines, TopicLine(t))
	}
	return strings.Join(lines, "\n")
}

// BoardEmojis returns the reactions a board message should carry, one per
// topic, in topic order.
func BoardEmojis(b board.Board) []string {
	emojis := make([]string, 0, len(b.Topics))
	for _, t := range b.Topics {
		emojis = append(emojis, t.Emoji)
	}
	return emojis
}

// Contributors renders the contributor roll call. Display names are taken
// from each contributor's topics; the list keeps first-contribution order.
func Contributors(s *board.ChannelState) string {
	if len(s.Contributors) == 0 {
		return contributorsHeader + "\n" + contributorsEmptyState
	}
	names := make([]string, 0, len(s.Contributors))
	for _, id := range s.Contributors {
		names = append(names, displayName(s, id))
	}
	return contributorsHeader + "\n" + strings.Join(names, ", ")
}

// displayName resolves a contributor ID to the name recorded on their
// topics. Contributors always have at least one topic, but fall back to the
// raw ID rather than render an empty token.
func displayName(s *board.ChannelState, authorID string) string {
	for _, b := range s.Boards {
		for _, t := range b.Topics {
			if t.AuthorID == authorID && t.AuthorName != "" {
				return t.AuthorName
			}
		}
	}
	return authorID
}

// AddedNotification announces a freshly added topic.
func AddedNotification(userName, emoji, text string) string {
	return fmt.Sprintf("🔔 %s added a new topic — %s **%s**!", userName, emoji, text)
}

// RemovedNotification announces a removed topic.
func RemovedNotification(userName, emoji, text string) string {
	return fmt.Sprintf("🔔 %s removed the topic %s **%s**.", userName, emoji, text)
}

// WelcomeUpdatedNotification announces an edited welcome message.
func WelcomeUpdatedNotification() string {
	return "🔔 The welcome message was updated."
}

// Help is the reply to the help command.
func Help() string {
	return strings.Join([]string{
		"Here are all available commands:",
		"• **!topics init [capacity]** — set up the topic board in this channel",
		"• **!topics add <emoji> <text>** — add a new topic",
		"• **!topics remove <emoji>** — remove one of your topics",
		"• **!topics welcome <text>** — edit the welcome message",
		"• **!topics list** — list all topics",
		"• **!topics reset** — admin-only, deletes the board and all its data",
		"• **!topics help** — shows this help",
	}, "\n")
}
