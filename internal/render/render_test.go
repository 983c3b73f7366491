package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topicboard/topicboard/pkg/board"
)

func TestBoard(t *testing.T) {
	t.Run("empty board renders prompt", func(t *testing.T) {
		assert.Equal(t, "No topics yet. Add one with !topics add.", Board(board.Board{}))
	})

	t.Run("topics render one line each in order", func(t *testing.T) {
		b := board.Board{Topics: []board.Topic{
			{Emoji: "🎯", Text: "goals"},
			{Emoji: "🚀", Text: "launch plan"},
		}}
		assert.Equal(t, "- 🎯 — **goals**\n- 🚀 — **launch plan**", Board(b))
	})
}

func TestBoardEmojis(t *testing.T) {
	b := board.Board{Topics: []board.Topic{
		{Emoji: "🎯", Text: "goals"},
		{Emoji: "🚀", Text: "launch"},
	}}
	assert.Equal(t, []string{"🎯", "🚀"}, BoardEmojis(b))
	assert.Empty(t, BoardEmojis(board.Board{}))
}

func TestContributors(t *testing.T) {
	newState := func() *board.ChannelState {
		s, err := board.NewChannelState("!c:example.org", "hi", 10, 0)
		require.NoError(t, err)
		return s
	}

	t.Run("empty state", func(t *testing.T) {
		assert.Equal(t, "## Topics added by:\n(empty at first)", Contributors(newState()))
	})

	t.Run("names in first-contribution order", func(t *testing.T) {
		s := newState()
		_, _, err := s.Insert(board.NewTopic("🎯", "goals", "u1", "Ana", 0))
		require.NoError(t, err)
		_, _, err = s.Insert(board.NewTopic("🚀", "launch", "u2", "Ben", 0))
		require.NoError(t, err)
		_, _, err = s.Insert(board.NewTopic("🔥", "retro", "u1", "Ana", 0))
		require.NoError(t, err)

		assert.Equal(t, "## Topics added by:\nAna, Ben", Contributors(s))
	})

	t.Run("missing display name falls back to the ID", func(t *testing.T) {
		s := newState()
		_, _, err := s.Insert(board.NewTopic("🎯", "goals", "@u1:example.org", "", 0))
		require.NoError(t, err)

		assert.Equal(t, "## Topics added by:\n@u1:example.org", Contributors(s))
	})
}

func TestNotifications(t *testing.T) {
	assert.Equal(t, "🔔 Ana added a new topic — 🎯 **goals**!", AddedNotification("Ana", "🎯", "goals"))
	assert.Equal(t, "🔔 Ana removed the topic 🎯 **goals**.", RemovedNotification("Ana", "🎯", "goals"))
}
