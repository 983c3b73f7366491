// Package board provides type-safe definitions and state transitions for the
// topic board: the ordered set of user-submitted topics a channel renders as a
// fixed sequence of managed messages. The package is pure state. It knows
// nothing about how messages reach a chat platform or where state is
// persisted; those concerns live behind the messenger and registry ports.
//
// All mutations go through ChannelState, which enforces the board invariants:
// emoji labels are unique across the whole channel, no board ever exceeds its
// capacity, and board ordinals are contiguous starting at zero.
package board

import (
	"fmt"

	"github.com/google/uuid"
)

// Topic is a single emoji-labelled entry contributed by a user.
// The emoji label is unique across the entire channel, not just its board.
type Topic struct {
	ID         string `json:"id"`          // uuid hex - stable handle for removal UIs
	Emoji      string `json:"emoji"`       // unique label across the channel
	Text       string `json:"text"`        // free-form, non-empty
	AuthorID   string `json:"author_id"`   // platform identity of the contributor
	AuthorName string `json:"author_name"` // display name, used in notifications
	AddedAtMs  int64  `json:"added_at_ms"` // Unix timestamp in milliseconds
}

// Board is one capacity-bounded slice of the topic sequence, rendered as a
// single chat message. Topics keep insertion order; there is no reordering.
type Board struct {
	Index  int     `json:"index"`
	Topics []Topic `json:"topics"`
}

// MessageRefs maps the channel's managed slots to external message handles.
// Message identity is a durable handle separate from content: board messages
// are edited in place, never deleted and recreated, so reaction state on
// unaffected topics survives every reconciliation.
type MessageRefs struct {
	WelcomeID      string   `json:"welcome_id"`
	HeaderID       string   `json:"header_id"`
	BoardIDs       []string `json:"board_ids"` // index-aligned with ChannelState.Boards
	ContributorsID string   `json:"contributors_id"`
	NotificationID string   `json:"notification_id"`
}

// RenderCache remembers the content last pushed to each managed slot, so a
// reconciliation pass over an unchanged topic set makes no messaging calls.
// Reactions are tracked per board because the messaging port has no read API:
// the bot is the only writer, so its own bookkeeping is authoritative.
type RenderCache struct {
	Welcome      string     `json:"welcome"`
	Header       string     `json:"header"`
	Boards       []string   `json:"boards"` // index-aligned with Boards
	Contributors string     `json:"contributors"`
	Reactions    [][]string `json:"reactions"` // per board, emojis currently applied
}

// ChannelState is the unit of persistence and locking for one managed
// channel. It is created by init, mutated by add/remove/edit-welcome, and
// destroyed by reset.
type ChannelState struct {
	ChannelKey   string       `json:"channel_key"`
	WelcomeText  string       `json:"welcome_text"`
	Capacity     int          `json:"capacity"`     // per-board topic limit, fixed for the state's lifetime
	Boards       []Board      `json:"boards"`       // contiguous ordinals from 0
	Contributors []string     `json:"contributors"` // author IDs in first-contribution order
	Refs         MessageRefs  `json:"refs"`
	Rendered     RenderCache  `json:"rendered"`
	CreatedAtMs  int64        `json:"created_at_ms"`

	// Rev is the storage revision used for the registry's optimistic
	// concurrency check. Managed by the registry; zero for unsaved state.
	Rev int64 `json:"rev"`
}

// Position identifies where an inserted topic landed.
type Position struct {
	BoardIndex int
	Slot       int
}

// Diff describes what a state transition touched, for the orchestrator's
// reconciliation pass.
type Diff struct {
	BoardsTouched []int // board indexes whose rendered content changed
	BoardsDropped int   // trailing boards removed (their messages must be deleted)
	BoardAdded    bool  // a new trailing board was created by a split
}

// NewChannelState creates the initial Active state for a channel: one empty
// board shell at index 0, no messages yet.
func NewChannelState(channelKey, welcomeText string, capacity int, nowMs int64) (*ChannelState, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be > 0, got %d", ErrInvalidCapacity, capacity)
	}
	if channelKey == "" {
		return nil, fmt.Errorf("channel key cannot be empty")
	}
	return &ChannelState{
		ChannelKey:   channelKey,
		WelcomeText:  welcomeText,
		Capacity:     capacity,
		Boards:       []Board{{Index: 0, Topics: []Topic{}}},
		Contributors: []string{},
		CreatedAtMs:  nowMs,
	}, nil
}

// NewTopic builds a topic with a fresh uuid id. Validation of the emoji label
// itself (single grapheme, emoji codepoint) belongs to the command layer.
func NewTopic(emoji, text, authorID, authorName string, nowMs int64) Topic {
	return Topic{
		ID:         uuid.New().String(),
		Emoji:      emoji,
		Text:       text,
		AuthorID:   authorID,
		AuthorName: authorName,
		AddedAtMs:  nowMs,
	}
}

// Validate checks the structural invariants of the channel state.
// Empty non-trailing boards are tolerated: removals never compact the middle
// of the board list, so they can legitimately occur.
func (s *ChannelState) Validate() error {
	if s.ChannelKey == "" {
		return fmt.Errorf("channel key cannot be empty")
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidCapacity, s.Capacity)
	}
	if len(s.Boards) == 0 {
		return fmt.Errorf("channel must have at least one board")
	}

	seen := make(map[string]bool)
	for i, b := range s.Boards {
		if b.Index != i {
			return fmt.Errorf("board ordinals must be contiguous from 0: board at position %d has index %d", i, b.Index)
		}
		if len(b.Topics) > s.Capacity {
			return fmt.Errorf("board %d exceeds capacity: %d topics, capacity %d", i, len(b.Topics), s.Capacity)
		}
		for _, t := range b.Topics {
			if t.Emoji == "" {
				return fmt.Errorf("topic %s has empty emoji label", t.ID)
			}
			if t.Text == "" {
				return fmt.Errorf("topic %s has empty text", t.ID)
			}
			if seen[t.Emoji] {
				return fmt.Errorf("duplicate emoji label %q", t.Emoji)
			}
			seen[t.Emoji] = true
		}
	}

	// Refs.BoardIDs is not checked against Boards here: a mutation is
	// persisted before its reconciliation pass runs, so the refs lag the
	// board list until reconciliation realigns them.
	return nil
}
