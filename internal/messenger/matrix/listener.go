package matrix

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"

	"github.com/topicboard/topicboard/internal/command"
	"github.com/topicboard/topicboard/internal/emoji"
	"github.com/topicboard/topicboard/internal/orchestrator"
	"github.com/topicboard/topicboard/internal/render"
	"github.com/topicboard/topicboard/pkg/board"
)

// replyTTL is how long command replies stay visible before they are
// redacted. Managed channels only keep the board's own message sequence.
const replyTTL = 30 * time.Second

// Listener drives the Matrix sync loop, dispatching board commands to the
// orchestrator and purging foreign content from managed channels.
type Listener struct {
	client    *Client
	engine    *orchestrator.Engine
	startTime int64
}

// NewListener wires a logged-in client to the orchestrator engine.
func NewListener(client *Client, engine *orchestrator.Engine) *Listener {
	return &Listener{client: client, engine: engine}
}

// Run blocks on the sync loop until the context is cancelled, reconnecting
// on sync failures.
func (l *Listener) Run(ctx context.Context) error {
	l.startTime = time.Now().UnixMilli()

	syncer := l.client.Mautrix().Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
		l.onMessage(ctx, evt)
	})
	syncer.OnEventType(event.StateMember, func(ctx context.Context, evt *event.Event) {
		l.onMemberEvent(ctx, evt)
	})

	log.Printf("[Matrix] Listener ready, starting sync")

	for {
		err := l.client.Mautrix().SyncWithContext(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Printf("[Matrix] Sync error, reconnecting in 15s: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(15 * time.Second):
			}
		}
	}
}

func (l *Listener) onMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == l.client.UserID() {
		return
	}
	if evt.Timestamp < l.startTime {
		return
	}

	msgContent := evt.Content.AsMessage()
	if msgContent == nil || msgContent.Body == "" {
		return
	}

	channelKey := string(evt.RoomID)
	cmd, err := command.Parse(msgContent.Body)
	if errors.Is(err, command.ErrNotCommand) {
		// Foreign content is only purged from managed channels.
		if l.isManaged(ctx, channelKey) {
			l.purge(ctx, evt)
		}
		return
	}

	// Commands never stay in the channel, whether they parse or not.
	defer l.purge(ctx, evt)

	if err != nil {
		l.reply(ctx, channelKey, err.Error())
		return
	}

	reply := l.handleCommand(ctx, evt, cmd)
	if reply != "" {
		l.reply(ctx, channelKey, reply)
	}
}

// handleCommand executes a parsed command and returns the user-facing
// reply.
func (l *Listener) handleCommand(ctx context.Context, evt *event.Event, cmd command.Command) string {
	channelKey := string(evt.RoomID)
	sender := string(evt.Sender)
	isAdmin := l.engine.IsAdmin(sender)

	switch cmd.Kind {
	case command.KindInit:
		if err := l.engine.Init(ctx, channelKey, "", cmd.Capacity); err != nil {
			return userMessage(err)
		}
		return "Topics board initialized. Use !topics welcome to set a custom welcome message."

	case command.KindAdd:
		if err := emoji.Validate(cmd.Emoji); err != nil {
			return userMessage(err)
		}
		if err := l.engine.AddTopic(ctx, channelKey, cmd.Emoji, cmd.Text, sender, displayName(evt)); err != nil {
			return userMessage(err)
		}
		return "Topic added!"

	case command.KindRemove:
		if err := l.engine.RemoveTopic(ctx, channelKey, cmd.Emoji, sender, displayName(evt), isAdmin); err != nil {
			return userMessage(err)
		}
		return "Topic removed."

	case command.KindWelcome:
		if err := l.engine.EditWelcome(ctx, channelKey, cmd.Text); err != nil {
			return userMessage(err)
		}
		return "Welcome message updated."

	case command.KindList:
		topics, err := l.engine.ListTopicsFor(ctx, channelKey, sender, isAdmin)
		if err != nil {
			return userMessage(err)
		}
		if len(topics) == 0 {
			return "No topics to show."
		}
		lines := make([]string, 0, len(topics))
		for _, t := range topics {
			lines = append(lines, render.TopicLine(t))
		}
		return strings.Join(lines, "\n")

	case command.KindReset:
		if !isAdmin {
			return "You need to be a board admin to remove the topics board."
		}
		if err := l.engine.Reset(ctx, channelKey); err != nil {
			return userMessage(err)
		}
		return "Topic board removed. Run !topics init again to start fresh."

	case command.KindHelp:
		return render.Help()
	}

	return ""
}

// onMemberEvent auto-joins rooms when invited by a board admin.
func (l *Listener) onMemberEvent(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != string(l.client.UserID()) {
		return
	}
	memberContent := evt.Content.AsMember()
	if memberContent == nil || memberContent.Membership != event.MembershipInvite {
		return
	}
	if !l.engine.IsAdmin(string(evt.Sender)) {
		log.Printf("[Matrix] Rejecting invite from non-admin %s", evt.Sender)
		return
	}

	log.Printf("[Matrix] Accepting invite to %s from %s", evt.RoomID, evt.Sender)
	if _, err := l.client.Mautrix().JoinRoomByID(ctx, evt.RoomID); err != nil {
		log.Printf("[Matrix] Failed to join %s: %v", evt.RoomID, err)
	}
}

// isManaged reports whether the channel has a topic board.
func (l *Listener) isManaged(ctx context.Context, channelKey string) bool {
	_, err := l.engine.AllTopics(ctx, channelKey)
	return err == nil
}

// purge redacts a user's message from the channel.
func (l *Listener) purge(ctx context.Context, evt *event.Event) {
	msgID := encodeID(evt.RoomID, evt.ID)
	if err := l.client.Delete(ctx, msgID); err != nil {
		log.Printf("[Matrix] Failed to purge %s: %v", evt.ID, err)
	}
}

// reply sends a short-lived answer and schedules its redaction, so command
// chatter never accumulates.
func (l *Listener) reply(ctx context.Context, channelKey, text string) {
	msgID, err := l.client.Send(ctx, channelKey, text)
	if err != nil {
		log.Printf("[Matrix] Failed to reply in %s: %v", channelKey, err)
		return
	}
	time.AfterFunc(replyTTL, func() {
		deleteCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := l.client.Delete(deleteCtx, msgID); err != nil {
			log.Printf("[Matrix] Failed to expire reply %s: %v", msgID, err)
		}
	})
}

// displayName falls back to the localpart when no display name is known.
// Sync events do not carry profile data, so the localpart is the usual case.
func displayName(evt *event.Event) string {
	local := string(evt.Sender)
	local = strings.TrimPrefix(local, "@")
	if name, _, ok := strings.Cut(local, ":"); ok && name != "" {
		return name
	}
	return string(evt.Sender)
}

// userMessage translates engine errors into user-facing replies.
func userMessage(err error) string {
	switch {
	case errors.Is(err, board.ErrAlreadyInitialized):
		return "This channel already has a topic board."
	case errors.Is(err, board.ErrNotInitialized):
		return "This channel is not initialized. Run !topics init first."
	case errors.Is(err, board.ErrAlreadyUninitialized):
		return "No topic board in this channel."
	case errors.Is(err, board.ErrDuplicateEmoji):
		return "This emoji is already in use in this channel. Choose another one."
	case errors.Is(err, emoji.ErrNotSingleEmoji):
		return "Please enter exactly one emoji."
	case errors.Is(err, board.ErrTopicNotFound):
		return "Topic not found."
	case errors.Is(err, board.ErrForbidden):
		return "You can only remove topics you created."
	case errors.Is(err, board.ErrEmptyText):
		return "The text cannot be empty."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
