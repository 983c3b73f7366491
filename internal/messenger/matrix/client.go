// Package matrix adapts a Matrix homeserver to the messenger port using
// mautrix-go. Message handles encode both room and event ("room/event"), so
// every port operation is self-contained and handles stay valid across
// restarts.
package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/topicboard/topicboard/internal/config"
	"github.com/topicboard/topicboard/pkg/messenger"
)

// Client implements messenger.Messenger against a Matrix homeserver.
type Client struct {
	cfg    config.MatrixConfig
	client *mautrix.Client

	// reactions maps "messageID|emoji" to the reaction event that applied
	// it. Redacting a reaction needs that event's ID and the API has no
	// cheap way to look it up, so the bot keeps its own ledger on disk.
	mu            sync.Mutex
	reactions     map[string]string
	credFile      string
	reactionsFile string
}

// credentials holds saved Matrix login state.
type credentials struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	DeviceID    string `json:"device_id"`
}

// New creates a Matrix client for the given configuration. Call Login before
// using it.
func New(cfg config.MatrixConfig) (*Client, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), "")
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	client.Store = mautrix.NewMemorySyncStore()

	c := &Client{
		cfg:           cfg,
		client:        client,
		reactions:     make(map[string]string),
		credFile:      filepath.Join(cfg.DataDir, "matrix_credentials.json"),
		reactionsFile: filepath.Join(cfg.DataDir, "matrix_reactions.json"),
	}
	c.loadReactions()
	return c, nil
}

// UserID returns the bot's own Matrix user ID.
func (c *Client) UserID() id.UserID {
	return c.client.UserID
}

// Mautrix exposes the underlying client for the sync listener.
func (c *Client) Mautrix() *mautrix.Client {
	return c.client
}

// Login authenticates against the homeserver. Saved credentials are tried
// first; password login retries with exponential backoff on transient
// failures.
func (c *Client) Login(ctx context.Context) error {
	if err := c.loadCredentials(); err == nil {
		log.Printf("[Matrix] Loaded saved credentials for %s", c.client.UserID)
		return nil
	}

	backoff := 2 * time.Second
	maxBackoff := 2 * time.Minute
	maxAttempts := 10

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Printf("[Matrix] Logging in as %s (attempt %d)", c.cfg.UserID, attempt)

		resp, err := c.client.Login(ctx, &mautrix.ReqLogin{
			Type: mautrix.AuthTypePassword,
			Identifier: mautrix.UserIdentifier{
				Type: mautrix.IdentifierTypeUser,
				User: c.cfg.UserID,
			},
			Password:         c.cfg.Password,
			StoreCredentials: true,
		})
		if err == nil {
			log.Printf("[Matrix] Logged in as %s (device %s)", resp.UserID, resp.DeviceID)
			c.saveCredentials(credentials{
				AccessToken: resp.AccessToken,
				UserID:      string(resp.UserID),
				DeviceID:    string(resp.DeviceID),
			})
			return nil
		}

		errStr := err.Error()
		if strings.Contains(errStr, "M_FORBIDDEN") ||
			strings.Contains(errStr, "M_UNKNOWN_TOKEN") ||
			strings.Contains(errStr, "M_INVALID_PARAM") {
			return fmt.Errorf("matrix login: %w (non-retryable)", err)
		}
		if attempt == maxAttempts {
			return fmt.Errorf("matrix login: %w (after %d attempts)", err, maxAttempts)
		}

		log.Printf("[Matrix] Login failed, retrying in %s: %v", backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return fmt.Errorf("matrix login: exhausted retries")
}

// Send posts a text message to the room identified by channelKey.
func (c *Client) Send(ctx context.Context, channelKey, content string) (messenger.MessageID, error) {
	resp, err := c.client.SendText(ctx, id.RoomID(channelKey), content)
	if err != nil {
		return "", mapError("send", err)
	}
	return encodeID(id.RoomID(channelKey), resp.EventID), nil
}

// Edit replaces a message's content in place using an m.replace relation,
// preserving the message's identity and its reactions.
func (c *Client) Edit(ctx context.Context, msgID messenger.MessageID, content string) error {
	roomID, eventID, err := decodeID(msgID)
	if err != nil {
		return err
	}

	edit := event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    "* " + content,
		NewContent: &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    content,
		},
		RelatesTo: &event.RelatesTo{
			Type:    event.RelReplace,
			EventID: eventID,
		},
	}
	if _, err := c.client.SendMessageEvent(ctx, roomID, event.EventMessage, &edit); err != nil {
		return mapError("edit", err)
	}
	return nil
}

// Delete redacts a message. Its reaction ledger entries go with it.
func (c *Client) Delete(ctx context.Context, msgID messenger.MessageID) error {
	roomID, eventID, err := decodeID(msgID)
	if err != nil {
		return err
	}

	if _, err := c.client.RedactEvent(ctx, roomID, eventID); err != nil {
		return mapError("delete", err)
	}

	c.mu.Lock()
	for key := range c.reactions {
		if strings.HasPrefix(key, string(msgID)+"|") {
			delete(c.reactions, key)
		}
	}
	c.persistReactionsLocked()
	c.mu.Unlock()
	return nil
}

// AddReaction reacts to a message and records the reaction event so it can
// be removed later.
func (c *Client) AddReaction(ctx context.Context, msgID messenger.MessageID, emoji string) error {
	roomID, eventID, err := decodeID(msgID)
	if err != nil {
		return err
	}

	resp, err := c.client.SendReaction(ctx, roomID, eventID, emoji)
	if err != nil {
		return mapError("add_reaction", err)
	}

	c.mu.Lock()
	c.reactions[reactionKey(msgID, emoji)] = string(resp.EventID)
	c.persistReactionsLocked()
	c.mu.Unlock()
	return nil
}

// RemoveReaction redacts the bot's reaction on a message. A reaction the
// ledger does not know about counts as already gone.
func (c *Client) RemoveReaction(ctx context.Context, msgID messenger.MessageID, emoji string) error {
	roomID, _, err := decodeID(msgID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	reactionEventID, ok := c.reactions[reactionKey(msgID, emoji)]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: reaction %s on %s", messenger.ErrNotFound, emoji, msgID)
	}

	if _, err := c.client.RedactEvent(ctx, roomID, id.EventID(reactionEventID)); err != nil {
		return mapError("remove_reaction", err)
	}

	c.mu.Lock()
	delete(c.reactions, reactionKey(msgID, emoji))
	c.persistReactionsLocked()
	c.mu.Unlock()
	return nil
}

// encodeID packs room and event into one opaque handle. Event IDs never
// contain "/", so the first separator is unambiguous.
func encodeID(roomID id.RoomID, eventID id.EventID) messenger.MessageID {
	return messenger.MessageID(fmt.Sprintf("%s/%s", roomID, eventID))
}

func decodeID(msgID messenger.MessageID) (id.RoomID, id.EventID, error) {
	room, evt, ok := strings.Cut(string(msgID), "/")
	if !ok {
		return "", "", fmt.Errorf("malformed message id: %s", msgID)
	}
	return id.RoomID(room), id.EventID(evt), nil
}

func reactionKey(msgID messenger.MessageID, emoji string) string {
	return string(msgID) + "|" + emoji
}

// mapError translates mautrix failures into the port's error vocabulary:
// missing targets become ErrNotFound, other client errors surface as-is,
// and everything else (connectivity, server trouble) is transient.
func mapError(op string, err error) error {
	if errors.Is(err, mautrix.MNotFound) {
		return fmt.Errorf("%w: %v", messenger.ErrNotFound, err)
	}
	var httpErr mautrix.HTTPError
	if errors.As(err, &httpErr) && httpErr.Response != nil {
		if httpErr.Response.StatusCode == 404 {
			return fmt.Errorf("%w: %v", messenger.ErrNotFound, err)
		}
		if httpErr.Response.StatusCode < 500 {
			return fmt.Errorf("matrix %s: %w", op, err)
		}
	}
	return messenger.Transient(op, err)
}

// --- Persistence ---

func (c *Client) loadCredentials() error {
	data, err := os.ReadFile(c.credFile)
	if err != nil {
		return err
	}
	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}
	c.client.AccessToken = creds.AccessToken
	c.client.UserID = id.UserID(creds.UserID)
	c.client.DeviceID = id.DeviceID(creds.DeviceID)
	return nil
}

func (c *Client) saveCredentials(creds credentials) {
	data, _ := json.MarshalIndent(creds, "", "  ")
	if err := os.WriteFile(c.credFile, data, 0o600); err != nil {
		log.Printf("[Matrix] Failed to save credentials: %v", err)
	}
}

func (c *Client) loadReactions() {
	data, err := os.ReadFile(c.reactionsFile)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &c.reactions); err != nil {
		log.Printf("[Matrix] Ignoring corrupt reaction ledger: %v", err)
		c.reactions = make(map[string]string)
	}
}

func (c *Client) persistReactionsLocked() {
	data, _ := json.MarshalIndent(c.reactions, "", "  ")
	if err := os.WriteFile(c.reactionsFile, data, 0o600); err != nil {
		log.Printf("[Matrix] Failed to save reaction ledger: %v", err)
	}
}
