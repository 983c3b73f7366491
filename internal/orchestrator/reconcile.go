package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/topicboard/topicboard/internal/render"
	"github.com/topicboard/topicboard/pkg/board"
	"github.com/topicboard/topicboard/pkg/messenger"
)

const (
	// messengerRetries bounds retries of a single messaging call on
	// transient connectivity failures.
	messengerRetries = 3
	retryBackoff     = 250 * time.Millisecond
)

// reconcile drives the channel's managed messages to match st, then persists
// the updated refs and render cache. The steps run in fixed order: welcome,
// header, boards, contributors, notification. If a step fails partway, the
// refs acquired so far are still saved, so the next pass resumes from the
// point of divergence instead of sending duplicates.
func (e *Engine) reconcile(ctx context.Context, st *board.ChannelState, note string) error {
	stepErr := e.reconcileSteps(ctx, st, note)

	if err := e.store.Save(ctx, st); err != nil {
		if stepErr != nil {
			return stepErr
		}
		return fmt.Errorf("failed to save reconciled state: %w", err)
	}

	return stepErr
}

func (e *Engine) reconcileSteps(ctx context.Context, st *board.ChannelState, note string) error {
	if err := e.ensureSlot(ctx, st.ChannelKey, &st.Refs.WelcomeID, &st.Rendered.Welcome, st.WelcomeText); err != nil {
		return fmt.Errorf("welcome message: %w", err)
	}

	if err := e.ensureSlot(ctx, st.ChannelKey, &st.Refs.HeaderID, &st.Rendered.Header, e.header); err != nil {
		return fmt.Errorf("header message: %w", err)
	}

	boardSent, err := e.reconcileBoards(ctx, st)
	if err != nil {
		return err
	}

	if err := e.reconcileContributors(ctx, st, boardSent); err != nil {
		return err
	}

	if note != "" {
		if err := e.replaceNotification(ctx, st, note); err != nil {
			return err
		}
	}

	return nil
}

// reconcileBoards walks the board list in index order, creating or editing
// one message per board and syncing its reactions, then deletes messages
// left behind by dropped trailing boards. Existing board messages are always
// edited in place so reaction state on unaffected topics survives.
func (e *Engine) reconcileBoards(ctx context.Context, st *board.ChannelState) (bool, error) {
	boardSent := false

	for i, b := range st.Boards {
		content := render.Board(b)

		if i < len(st.Refs.BoardIDs) {
			if cachedBoard(st, i) != content {
				err := e.editMessage(ctx, messenger.MessageID(st.Refs.BoardIDs[i]), content)
				if messenger.IsNotFound(err) {
					// Deleted out from under us; replace the handle.
					id, sendErr := e.sendMessage(ctx, st.ChannelKey, content)
					if sendErr != nil {
						return boardSent, fmt.Errorf("board %d message: %w", i, sendErr)
					}
					st.Refs.BoardIDs[i] = string(id)
					setCachedReactions(st, i, nil)
					boardSent = true
				} else if err != nil {
					return boardSent, fmt.Errorf("board %d message: %w", i, err)
				}
				setCachedBoard(st, i, content)
			}
		} else {
			id, err := e.sendMessage(ctx, st.ChannelKey, content)
			if err != nil {
				return boardSent, fmt.Errorf("board %d message: %w", i, err)
			}
			st.Refs.BoardIDs = append(st.Refs.BoardIDs, string(id))
			setCachedBoard(st, i, content)
			setCachedReactions(st, i, nil)
			boardSent = true
		}

		if err := e.syncReactions(ctx, st, i, render.BoardEmojis(b)); err != nil {
			return boardSent, err
		}
	}

	// Trailing boards dropped by a removal leave their messages behind.
	for len(st.Refs.BoardIDs) > len(st.Boards) {
		last := len(st.Refs.BoardIDs) - 1
		if err := e.deleteMessage(ctx, messenger.MessageID(st.Refs.BoardIDs[last])); err != nil {
			return boardSent, fmt.Errorf("board %d message: %w", last, err)
		}
		st.Refs.BoardIDs = st.Refs.BoardIDs[:last]
		if len(st.Rendered.Boards) > last {
			st.Rendered.Boards = st.Rendered.Boards[:last]
		}
		if len(st.Rendered.Reactions) > last {
			st.Rendered.Reactions = st.Rendered.Reactions[:last]
		}
	}

	return boardSent, nil
}

// syncReactions adds reactions for topics missing one and clears reactions
// whose topic is gone. The messaging port has no read API, so the render
// cache's bookkeeping is the source of truth for what is currently applied.
func (e *Engine) syncReactions(ctx context.Context, st *board.ChannelState, i int, want []string) error {
	id := messenger.MessageID(st.Refs.BoardIDs[i])
	have := cachedReactions(st, i)

	haveSet := make(map[string]bool, len(have))
	for _, emoji := range have {
		haveSet[emoji] = true
	}
	wantSet := make(map[string]bool, len(want))
	for _, emoji := range want {
		wantSet[emoji] = true
	}

	for _, emoji := range want {
		if haveSet[emoji] {
			continue
		}
		if err := e.withRetry(ctx, func() error { return e.msgr.AddReaction(ctx, id, emoji) }); err != nil {
			if messenger.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("board %d reaction %s: %w", i, emoji, err)
		}
	}

	for _, emoji := range have {
		if wantSet[emoji] {
			continue
		}
		if err := e.withRetry(ctx, func() error { return e.msgr.RemoveReaction(ctx, id, emoji) }); err != nil && !messenger.IsNotFound(err) {
			return fmt.Errorf("board %d reaction %s: %w", i, emoji, err)
		}
	}

	setCachedReactions(st, i, want)
	return nil
}

// reconcileContributors keeps the contributor roll call directly below the
// boards. Normally an in-place edit; when a split sent a new board message
// the contributors message would sort above it, so it is re-sent instead.
func (e *Engine) reconcileContributors(ctx context.Context, st *board.ChannelState, boardSent bool) error {
	content := render.Contributors(st)

	if st.Refs.ContributorsID != "" && !boardSent {
		if st.Rendered.Contributors == content {
			return nil
		}
		err := e.editMessage(ctx, messenger.MessageID(st.Refs.ContributorsID), content)
		if err == nil {
			st.Rendered.Contributors = content
			return nil
		}
		if !messenger.IsNotFound(err) {
			return fmt.Errorf("contributors message: %w", err)
		}
		st.Refs.ContributorsID = ""
	}

	if st.Refs.ContributorsID != "" {
		if err := e.deleteMessage(ctx, messenger.MessageID(st.Refs.ContributorsID)); err != nil {
			return fmt.Errorf("contributors message: %w", err)
		}
	}

	id, err := e.sendMessage(ctx, st.ChannelKey, content)
	if err != nil {
		return fmt.Errorf("contributors message: %w", err)
	}
	st.Refs.ContributorsID = string(id)
	st.Rendered.Contributors = content
	return nil
}

// replaceNotification deletes the previous notification and sends a fresh
// one, so the announcement always sorts last in the channel.
func (e *Engine) replaceNotification(ctx context.Context, st *board.ChannelState, note string) error {
	if st.Refs.NotificationID != "" {
		if err := e.deleteMessage(ctx, messenger.MessageID(st.Refs.NotificationID)); err != nil {
			return fmt.Errorf("notification message: %w", err)
		}
		st.Refs.NotificationID = ""
	}

	id, err := e.sendMessage(ctx, st.ChannelKey, note)
	if err != nil {
		return fmt.Errorf("notification message: %w", err)
	}
	st.Refs.NotificationID = string(id)
	return nil
}

// ensureSlot creates a slot's message if its ref is missing, or edits it in
// place when the content drifted from the cache. A ref whose message was
// deleted externally is replaced with a fresh send.
func (e *Engine) ensureSlot(ctx context.Context, channelKey string, ref *string, cached *string, content string) error {
	if *ref != "" {
		if *cached == content {
			return nil
		}
		err := e.editMessage(ctx, messenger.MessageID(*ref), content)
		if err == nil {
			*cached = content
			return nil
		}
		if !messenger.IsNotFound(err) {
			return err
		}
	}

	id, err := e.sendMessage(ctx, channelKey, content)
	if err != nil {
		return err
	}
	*ref = string(id)
	*cached = content
	return nil
}

func (e *Engine) sendMessage(ctx context.Context, channelKey, content string) (messenger.MessageID, error) {
	var id messenger.MessageID
	err := e.withRetry(ctx, func() error {
		var sendErr error
		id, sendErr = e.msgr.Send(ctx, channelKey, content)
		return sendErr
	})
	return id, err
}

func (e *Engine) editMessage(ctx context.Context, id messenger.MessageID, content string) error {
	return e.withRetry(ctx, func() error { return e.msgr.Edit(ctx, id, content) })
}

// deleteMessage treats an already-gone message as success.
func (e *Engine) deleteMessage(ctx context.Context, id messenger.MessageID) error {
	err := e.withRetry(ctx, func() error { return e.msgr.Delete(ctx, id) })
	if messenger.IsNotFound(err) {
		return nil
	}
	return err
}

// withRetry retries transient messaging failures with linear backoff.
// Permanent failures (including NotFound) surface immediately.
func (e *Engine) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < messengerRetries; attempt++ {
		if attempt > 0 {
			log.Printf("[Orchestrator] Transient messaging failure, retry %d: %v", attempt, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
		err = op()
		if err == nil || !messenger.IsTransient(err) {
			return err
		}
	}
	return err
}

// Render cache accessors. The cache slices grow lazily alongside the board
// list, so older persisted states with short slices stay loadable.

func cachedBoard(st *board.ChannelState, i int) string {
	if i < len(st.Rendered.Boards) {
		return st.Rendered.Boards[i]
	}
	return ""
}

func setCachedBoard(st *board.ChannelState, i int, content string) {
	for len(st.Rendered.Boards) <= i {
		st.Rendered.Boards = append(st.Rendered.Boards, "")
	}
	st.Rendered.Boards[i] = content
}

func cachedReactions(st *board.ChannelState, i int) []string {
	if i < len(st.Rendered.Reactions) {
		return st.Rendered.Reactions[i]
	}
	return nil
}

func setCachedReactions(st *board.ChannelState, i int, emojis []string) {
	for len(st.Rendered.Reactions) <= i {
		st.Rendered.Reactions = append(st.Rendered.Reactions, nil)
	}
	st.Rendered.Reactions[i] = emojis
}
