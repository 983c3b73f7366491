package board

import "fmt"

// State transitions for the topic set. These are pure: they mutate the
// in-memory ChannelState and report a Diff for the orchestrator's
// reconciliation pass, but perform no I/O themselves.

// Insert adds a topic to the channel, appending to the last board if it has
// room and splitting to a fresh trailing board otherwise. Insertion order is
// preserved within a board; there is no reordering by any key.
//
// Fails with ErrDuplicateEmoji if the emoji label is already in use anywhere
// in the channel, leaving state unchanged.
func (s *ChannelState) Insert(t Topic) (Position, Diff, error) {
	if t.Text == "" {
		return Position{}, Diff{}, ErrEmptyText
	}
	if t.Emoji == "" {
		return Position{}, Diff{}, fmt.Errorf("topic emoji label cannot be empty")
	}
	if _, _, ok := s.find(t.Emoji); ok {
		return Position{}, Diff{}, fmt.Errorf("%w: %s", ErrDuplicateEmoji, t.Emoji)
	}

	diff := Diff{}
	last := len(s.Boards) - 1
	if len(s.Boards[last].Topics) >= s.Capacity {
		s.Boards = append(s.Boards, Board{Index: last + 1, Topics: []Topic{}})
		last++
		diff.BoardAdded = true
	}

	s.Boards[last].Topics = append(s.Boards[last].Topics, t)
	diff.BoardsTouched = []int{last}

	if !s.hasContributor(t.AuthorID) {
		s.Contributors = append(s.Contributors, t.AuthorID)
	}

	return Position{BoardIndex: last, Slot: len(s.Boards[last].Topics) - 1}, diff, nil
}

// Remove deletes the topic carrying the given emoji label. Boards are never
// merged or renumbered: only trailing boards left empty by the removal are
// dropped, and the sole remaining board is kept as the shell for future
// inserts even when empty. Trimming cascades so that repeated trailing
// removals converge to a compact board list.
//
// Fails with ErrTopicNotFound if no topic has that emoji.
func (s *ChannelState) Remove(emoji string) (Topic, Diff, error) {
	bi, ti, ok := s.find(emoji)
	if !ok {
		return Topic{}, Diff{}, fmt.Errorf("%w: %s", ErrTopicNotFound, emoji)
	}

	removed := s.Boards[bi].Topics[ti]
	s.Boards[bi].Topics = append(s.Boards[bi].Topics[:ti], s.Boards[bi].Topics[ti+1:]...)

	diff := Diff{}
	for len(s.Boards) > 1 && len(s.Boards[len(s.Boards)-1].Topics) == 0 {
		s.Boards = s.Boards[:len(s.Boards)-1]
		diff.BoardsDropped++
	}
	if bi < len(s.Boards) {
		diff.BoardsTouched = []int{bi}
	}

	// An author leaves the contributors list only when their last live topic
	// goes. O(total topics) scan, fine at board scale.
	if !s.authorHasTopics(removed.AuthorID) {
		s.removeContributor(removed.AuthorID)
	}

	return removed, diff, nil
}

// FindTopic returns the topic with the given emoji label, if present.
func (s *ChannelState) FindTopic(emoji string) (Topic, bool) {
	bi, ti, ok := s.find(emoji)
	if !ok {
		return Topic{}, false
	}
	return s.Boards[bi].Topics[ti], true
}

// AllTopics returns every topic in board order then slot order.
func (s *ChannelState) AllTopics() []Topic {
	var topics []Topic
	for _, b := range s.Boards {
		topics = append(topics, b.Topics...)
	}
	return topics
}

// TopicsBy returns the topics authored by the given identity, in board order.
func (s *ChannelState) TopicsBy(authorID string) []Topic {
	var topics []Topic
	for _, b := range s.Boards {
		for _, t := range b.Topics {
			if t.AuthorID == authorID {
				topics = append(topics, t)
			}
		}
	}
	return topics
}

// TopicCount returns the number of live topics across all boards.
func (s *ChannelState) TopicCount() int {
	n := 0
	for _, b := range s.Boards {
		n += len(b.Topics)
	}
	return n
}

func (s *ChannelState) find(emoji string) (boardIndex, topicIndex int, ok bool) {
	for bi, b := range s.Boards {
		for ti, t := range b.Topics {
			if t.Emoji == emoji {
				return bi, ti, true
			}
		}
	}
	return 0, 0, false
}

func (s *ChannelState) hasContributor(authorID string) bool {
	for _, c := range s.Contributors {
		if c == authorID {
			return true
		}
	}
	return false
}

func (s *ChannelState) authorHasTopics(authorID string) bool {
	for _, b := range s.Boards {
		for _, t := range b.Topics {
			if t.AuthorID == authorID {
				return true
			}
		}
	}
	return false
}

func (s *ChannelState) removeContributor(authorID string) {
	for i, c := range s.Contributors {
		if c == authorID {
			s.Contributors = append(s.Contributors[:i], s.Contributors[i+1:]...)
			return
		}
	}
}
