package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(t *testing.T, capacity int) *ChannelState {
	t.Helper()
	st, err := NewChannelState("!room:example.org", "Welcome to the board.", capacity, 1700000000000)
	require.NoError(t, err)
	return st
}

func topic(emoji, text, author string) Topic {
	return NewTopic(emoji, text, author, author, 1700000000000)
}

func TestNewChannelState(t *testing.T) {
	t.Run("creates single empty board shell", func(t *testing.T) {
		st := newTestState(t, 10)
		require.Len(t, st.Boards, 1)
		assert.Equal(t, 0, st.Boards[0].Index)
		assert.Empty(t, st.Boards[0].Topics)
		assert.Empty(t, st.Contributors)
	})

	t.Run("rejects non-positive capacity", func(t *testing.T) {
		_, err := NewChannelState("!room:example.org", "hi", 0, 0)
		assert.ErrorIs(t, err, ErrInvalidCapacity)

		_, err = NewChannelState("!room:example.org", "hi", -3, 0)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	})

	t.Run("rejects empty channel key", func(t *testing.T) {
		_, err := NewChannelState("", "hi", 10, 0)
		assert.Error(t, err)
	})
}

func TestInsert(t *testing.T) {
	t.Run("appends to last board in insertion order", func(t *testing.T) {
		st := newTestState(t, 10)

		pos, diff, err := st.Insert(topic("🎯", "A", "u1"))
		require.NoError(t, err)
		assert.Equal(t, Position{BoardIndex: 0, Slot: 0}, pos)
		assert.Equal(t, []int{0}, diff.BoardsTouched)
		assert.False(t, diff.BoardAdded)

		pos, _, err = st.Insert(topic("🚀", "B", "u2"))
		require.NoError(t, err)
		assert.Equal(t, Position{BoardIndex: 0, Slot: 1}, pos)

		require.NoError(t, st.Validate())
	})

	t.Run("rejects duplicate emoji anywhere in the channel", func(t *testing.T) {
		st := newTestState(t, 2)
		_, _, err := st.Insert(topic("🎯", "A", "u1"))
		require.NoError(t, err)
		_, _, err = st.Insert(topic("🚀", "B", "u1"))
		require.NoError(t, err)
		// 🎯 now lives on board 0; a third insert would land on board 1,
		// but the label is still taken channel-wide.
		_, _, err = st.Insert(topic("🎯", "C", "u2"))
		assert.ErrorIs(t, err, ErrDuplicateEmoji)

		// State unchanged by the rejected insert.
		assert.Equal(t, 2, st.TopicCount())
		assert.Len(t, st.Boards, 1)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		st := newTestState(t, 10)
		_, _, err := st.Insert(topic("🎯", "", "u1"))
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("splits to a new board at capacity", func(t *testing.T) {
		st := newTestState(t, 2)
		_, _, err := st.Insert(topic("🎯", "A", "u1"))
		require.NoError(t, err)
		_, _, err = st.Insert(topic("🚀", "B", "u2"))
		require.NoError(t, err)

		pos, diff, err := st.Insert(topic("🔥", "C", "u1"))
		require.NoError(t, err)
		assert.Equal(t, Position{BoardIndex: 1, Slot: 0}, pos)
		assert.True(t, diff.BoardAdded)
		assert.Equal(t, []int{1}, diff.BoardsTouched)

		require.Len(t, st.Boards, 2)
		assert.Len(t, st.Boards[0].Topics, 2)
		assert.Len(t, st.Boards[1].Topics, 1)
		assert.Equal(t, []string{"u1", "u2"}, st.Contributors)
		require.NoError(t, st.Validate())
	})

	t.Run("full boards before the last exist exactly when a later board does", func(t *testing.T) {
		st := newTestState(t, 3)
		emojis := []string{"🎯", "🚀", "🔥", "🌊", "🌲", "🌋", "⭐"}
		for i, e := range emojis {
			_, _, err := st.Insert(topic(e, "t", "u1"))
			require.NoError(t, err, "insert %d", i)
		}
		require.Len(t, st.Boards, 3)
		for _, b := range st.Boards[:len(st.Boards)-1] {
			assert.Equal(t, 3, len(b.Topics), "non-trailing board %d must be full", b.Index)
		}
	})
}

func TestRemove(t *testing.T) {
	t.Run("removes by emoji from whichever board holds it", func(t *testing.T) {
		st := newTestState(t, 2)
		for _, e := range []string{"🎯", "🚀", "🔥"} {
			_, _, err := st.Insert(topic(e, "t", "u1"))
			require.NoError(t, err)
		}

		removed, diff, err := st.Remove("🚀")
		require.NoError(t, err)
		assert.Equal(t, "🚀", removed.Emoji)
		assert.Equal(t, []int{0}, diff.BoardsTouched)
		assert.Equal(t, 0, diff.BoardsDropped)

		// No mid-list compaction: board 0 keeps a free slot, board 1 stays.
		require.Len(t, st.Boards, 2)
		assert.Len(t, st.Boards[0].Topics, 1)
		assert.Len(t, st.Boards[1].Topics, 1)
	})

	t.Run("not found", func(t *testing.T) {
		st := newTestState(t, 2)
		_, _, err := st.Remove("🎯")
		assert.ErrorIs(t, err, ErrTopicNotFound)
	})

	t.Run("drops a trailing board emptied by removal", func(t *testing.T) {
		st := newTestState(t, 2)
		for _, e := range []string{"🎯", "🚀", "🔥"} {
			_, _, err := st.Insert(topic(e, "t", "u1"))
			require.NoError(t, err)
		}

		_, diff, err := st.Remove("🔥")
		require.NoError(t, err)
		assert.Equal(t, 1, diff.BoardsDropped)
		require.Len(t, st.Boards, 1)
		require.NoError(t, st.Validate())
	})

	t.Run("keeps the sole board as an empty shell", func(t *testing.T) {
		st := newTestState(t, 2)
		_, _, err := st.Insert(topic("🎯", "A", "u1"))
		require.NoError(t, err)

		_, diff, err := st.Remove("🎯")
		require.NoError(t, err)
		assert.Equal(t, 0, diff.BoardsDropped)
		require.Len(t, st.Boards, 1)
		assert.Empty(t, st.Boards[0].Topics)
	})

	t.Run("trailing trim cascades past already-empty boards", func(t *testing.T) {
		st := newTestState(t, 1)
		for _, e := range []string{"🎯", "🚀", "🔥"} {
			_, _, err := st.Insert(topic(e, "t", "u1"))
			require.NoError(t, err)
		}
		// Empty the middle board first; it stays because it is not trailing.
		_, _, err := st.Remove("🚀")
		require.NoError(t, err)
		require.Len(t, st.Boards, 3)

		// Removing the trailing topic now drops board 2 and the empty board 1.
		_, diff, err := st.Remove("🔥")
		require.NoError(t, err)
		assert.Equal(t, 2, diff.BoardsDropped)
		require.Len(t, st.Boards, 1)
	})
}

func TestContributors(t *testing.T) {
	t.Run("first-contribution order, deduplicated", func(t *testing.T) {
		st := newTestState(t, 10)
		for _, tc := range []struct{ emoji, author string }{
			{"🎯", "u1"}, {"🚀", "u2"}, {"🔥", "u1"}, {"🌊", "u3"},
		} {
			_, _, err := st.Insert(topic(tc.emoji, "t", tc.author))
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"u1", "u2", "u3"}, st.Contributors)
	})

	t.Run("author stays while they still own a live topic", func(t *testing.T) {
		st := newTestState(t, 10)
		_, _, err := st.Insert(topic("🎯", "A", "u1"))
		require.NoError(t, err)
		_, _, err = st.Insert(topic("🚀", "B", "u1"))
		require.NoError(t, err)

		_, _, err = st.Remove("🎯")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, st.Contributors)

		_, _, err = st.Remove("🚀")
		require.NoError(t, err)
		assert.Empty(t, st.Contributors)
	})

	t.Run("removal of one author's topic does not reorder others", func(t *testing.T) {
		st := newTestState(t, 10)
		for _, tc := range []struct{ emoji, author string }{
			{"🎯", "u1"}, {"🚀", "u2"}, {"🔥", "u3"},
		} {
			_, _, err := st.Insert(topic(tc.emoji, "t", tc.author))
			require.NoError(t, err)
		}
		_, _, err := st.Remove("🚀")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u3"}, st.Contributors)
	})
}

func TestLookups(t *testing.T) {
	st := newTestState(t, 2)
	for _, tc := range []struct{ emoji, author string }{
		{"🎯", "u1"}, {"🚀", "u2"}, {"🔥", "u1"},
	} {
		_, _, err := st.Insert(topic(tc.emoji, "t", tc.author))
		require.NoError(t, err)
	}

	t.Run("FindTopic", func(t *testing.T) {
		got, ok := st.FindTopic("🚀")
		require.True(t, ok)
		assert.Equal(t, "u2", got.AuthorID)

		_, ok = st.FindTopic("🌊")
		assert.False(t, ok)
	})

	t.Run("AllTopics preserves board then slot order", func(t *testing.T) {
		all := st.AllTopics()
		require.Len(t, all, 3)
		assert.Equal(t, "🎯", all[0].Emoji)
		assert.Equal(t, "🚀", all[1].Emoji)
		assert.Equal(t, "🔥", all[2].Emoji)
	})

	t.Run("TopicsBy filters by author", func(t *testing.T) {
		mine := st.TopicsBy("u1")
		require.Len(t, mine, 2)
		assert.Equal(t, "🎯", mine[0].Emoji)
		assert.Equal(t, "🔥", mine[1].Emoji)
	})

	t.Run("TopicCount", func(t *testing.T) {
		assert.Equal(t, 3, st.TopicCount())
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ChannelState)
		wantErr string
	}{
		{
			name:   "valid state",
			mutate: func(s *ChannelState) {},
		},
		{
			name: "non-contiguous board ordinals",
			mutate: func(s *ChannelState) {
				s.Boards = []Board{{Index: 0}, {Index: 2}}
			},
			wantErr: "contiguous",
		},
		{
			name: "board over capacity",
			mutate: func(s *ChannelState) {
				s.Boards[0].Topics = []Topic{
					topic("🎯", "a", "u1"), topic("🚀", "b", "u1"), topic("🔥", "c", "u1"),
				}
			},
			wantErr: "exceeds capacity",
		},
		{
			name: "duplicate emoji across boards",
			mutate: func(s *ChannelState) {
				s.Boards = []Board{
					{Index: 0, Topics: []Topic{topic("🎯", "a", "u1"), topic("🚀", "b", "u1")}},
					{Index: 1, Topics: []Topic{topic("🎯", "c", "u2")}},
				}
			},
			wantErr: "duplicate emoji",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newTestState(t, 2)
			tt.mutate(st)
			err := st.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
