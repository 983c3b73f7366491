package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/topicboard/topicboard/internal/config"
	"github.com/topicboard/topicboard/internal/render"
	"github.com/topicboard/topicboard/pkg/board"
	"github.com/topicboard/topicboard/pkg/messenger"
	"github.com/topicboard/topicboard/pkg/registry"
)

// saveRetries bounds how often a mutating operation re-runs after losing a
// storage revision race against another process.
const saveRetries = 3

// Engine is the board orchestrator: it applies topic operations to channel
// state, persists the result, and reconciles the channel's managed messages
// so the visible layout always matches the stored topic set.
type Engine struct {
	store    registry.Store
	msgr     messenger.Messenger
	sessions *sessions

	instanceName   string
	capacity       int
	header         string
	defaultWelcome string
	admins         map[string]bool
	logEvents      bool

	now func() int64
}

// NewEngine creates an orchestrator engine backed by the given storage and
// messaging ports.
func NewEngine(store registry.Store, msgr messenger.Messenger, cfg *config.BoardConfig) *Engine {
	admins := make(map[string]bool)
	if cfg.Matrix != nil {
		for _, id := range cfg.Matrix.Admins {
			admins[id] = true
		}
	}

	defaultWelcome := cfg.Board.DefaultWelcome
	if defaultWelcome == "" {
		defaultWelcome = render.DefaultWelcome
	}

	// Structured event lines are on unless the logging section turns
	// them off.
	logEvents := cfg.Logging == nil || cfg.Logging.Events

	return &Engine{
		store:          store,
		msgr:           msgr,
		sessions:       newSessions(),
		instanceName:   cfg.Instance,
		capacity:       cfg.Board.Capacity,
		header:         cfg.Board.Header,
		defaultWelcome: defaultWelcome,
		admins:         admins,
		logEvents:      logEvents,
		now:            func() int64 { return time.Now().UnixMilli() },
	}
}

// IsAdmin reports whether the user may reset boards and remove any topic.
func (e *Engine) IsAdmin(userID string) bool {
	return e.admins[userID]
}

// Init sets up the topic board in a channel: one empty board shell plus the
// full message sequence. Returns ErrAlreadyInitialized if the channel is
// already managed. A zero capacity or empty welcomeText picks up the
// configured defaults.
func (e *Engine) Init(ctx context.Context, channelKey, welcomeText string, capacity int) error {
	unlock := e.sessions.lock(channelKey)
	defer unlock()

	_, err := e.store.Load(ctx, channelKey)
	if err == nil {
		return board.ErrAlreadyInitialized
	}
	if !registry.IsNotFound(err) {
		return fmt.Errorf("failed to check for existing board: %w", err)
	}

	if welcomeText == "" {
		welcomeText = e.defaultWelcome
	}
	if capacity == 0 {
		capacity = e.capacity
	}

	st, err := board.NewChannelState(channelKey, welcomeText, capacity, e.now())
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, st); err != nil {
		return fmt.Errorf("failed to save initial state: %w", err)
	}

	e.logEvent("board_initialized", map[string]interface{}{
		"channel_key": channelKey,
		"capacity":    capacity,
	})

	return e.reconcile(ctx, st, "")
}

// AddTopic inserts a topic and reconciles the channel. The author joins the
// contributors list on their first topic.
func (e *Engine) AddTopic(ctx context.Context, channelKey, emoji, text, authorID, authorName string) error {
	return e.mutate(ctx, channelKey, func(st *board.ChannelState) (string, error) {
		pos, diff, err := st.Insert(board.NewTopic(emoji, text, authorID, authorName, e.now()))
		if err != nil {
			return "", err
		}

		e.logEvent("topic_added", map[string]interface{}{
			"channel_key": channelKey,
			"emoji":       emoji,
			"author_id":   authorID,
			"board_index": pos.BoardIndex,
			"board_added": diff.BoardAdded,
		})

		return render.AddedNotification(authorName, emoji, text), nil
	})
}

// RemoveTopic removes the topic labelled with emoji. Non-admins may only
// remove their own topics; anything else returns ErrForbidden.
func (e *Engine) RemoveTopic(ctx context.Context, channelKey, emoji, requesterID, requesterName string, isAdmin bool) error {
	return e.mutate(ctx, channelKey, func(st *board.ChannelState) (string, error) {
		t, ok := st.FindTopic(emoji)
		if !ok {
			return "", fmt.Errorf("%w: %s", board.ErrTopicNotFound, emoji)
		}
		if !isAdmin && t.AuthorID != requesterID {
			return "", board.ErrForbidden
		}

		removed, diff, err := st.Remove(emoji)
		if err != nil {
			return "", err
		}

		e.logEvent("topic_removed", map[string]interface{}{
			"channel_key":    channelKey,
			"emoji":          emoji,
			"requester_id":   requesterID,
			"boards_dropped": diff.BoardsDropped,
		})

		return render.RemovedNotification(requesterName, removed.Emoji, removed.Text), nil
	})
}

// EditWelcome replaces the welcome message text.
func (e *Engine) EditWelcome(ctx context.Context, channelKey, newText string) error {
	if newText == "" {
		return fmt.Errorf("%w: welcome text", board.ErrEmptyText)
	}
	return e.mutate(ctx, channelKey, func(st *board.ChannelState) (string, error) {
		st.WelcomeText = newText

		e.logEvent("welcome_edited", map[string]interface{}{
			"channel_key": channelKey,
		})

		return render.WelcomeUpdatedNotification(), nil
	})
}

// Reset deletes every managed message and the stored state, returning the
// channel to unmanaged. Resetting an unmanaged channel returns
// ErrAlreadyUninitialized; messages that are already gone are skipped.
func (e *Engine) Reset(ctx context.Context, channelKey string) error {
	unlock := e.sessions.lock(channelKey)
	defer unlock()

	st, err := e.store.Load(ctx, channelKey)
	if registry.IsNotFound(err) {
		return board.ErrAlreadyUninitialized
	}
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	ids := []string{st.Refs.WelcomeID, st.Refs.HeaderID}
	ids = append(ids, st.Refs.BoardIDs...)
	ids = append(ids, st.Refs.ContributorsID, st.Refs.NotificationID)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if err := e.deleteMessage(ctx, messenger.MessageID(id)); err != nil {
			return err
		}
	}

	if err := e.store.Delete(ctx, channelKey); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	e.logEvent("board_reset", map[string]interface{}{
		"channel_key": channelKey,
	})

	return nil
}

// ListTopicsFor returns the topics visible to a requester: admins see every
// topic, everyone else only their own. Read-only, no reconciliation.
func (e *Engine) ListTopicsFor(ctx context.Context, channelKey, authorID string, isAdmin bool) ([]board.Topic, error) {
	st, err := e.store.Load(ctx, channelKey)
	if registry.IsNotFound(err) {
		return nil, board.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	if isAdmin {
		return st.AllTopics(), nil
	}
	return st.TopicsBy(authorID), nil
}

// AllTopics returns every topic in the channel, for rendering the full list.
func (e *Engine) AllTopics(ctx context.Context, channelKey string) (*board.ChannelState, error) {
	st, err := e.store.Load(ctx, channelKey)
	if registry.IsNotFound(err) {
		return nil, board.ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return st, nil
}

// Repair re-runs reconciliation without mutating the topic set. Used on
// startup to converge channels whose last reconciliation was interrupted.
func (e *Engine) Repair(ctx context.Context, channelKey string) error {
	unlock := e.sessions.lock(channelKey)
	defer unlock()

	st, err := e.store.Load(ctx, channelKey)
	if registry.IsNotFound(err) {
		return board.ErrNotInitialized
	}
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	return e.reconcile(ctx, st, "")
}

// mutate runs a state transition under the channel's session lock: load,
// apply, persist, reconcile. A lost revision race against another process
// reloads and reapplies the transition rather than failing the command.
func (e *Engine) mutate(ctx context.Context, channelKey string, fn func(*board.ChannelState) (string, error)) error {
	unlock := e.sessions.lock(channelKey)
	defer unlock()

	for attempt := 0; attempt < saveRetries; attempt++ {
		st, err := e.store.Load(ctx, channelKey)
		if registry.IsNotFound(err) {
			return board.ErrNotInitialized
		}
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}

		note, err := fn(st)
		if err != nil {
			return err
		}

		if err := e.store.Save(ctx, st); err != nil {
			if errors.Is(err, registry.ErrConflict) {
				log.Printf("[Orchestrator] Revision conflict on %s, retrying", channelKey)
				continue
			}
			return fmt.Errorf("failed to save state: %w", err)
		}

		return e.reconcile(ctx, st, note)
	}

	return fmt.Errorf("gave up after %d revision conflicts on %s", saveRetries, channelKey)
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	if !e.logEvents {
		return
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "orchestrator"
	data["event_type"] = eventType
	data["instance"] = e.instanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Orchestrator] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
