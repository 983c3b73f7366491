// Package registry persists ChannelState for the topic board. It is the
// storage port of the system: the orchestrator loads, saves and deletes
// channel state through the Store interface and never sees a concrete
// backend.
//
// Two backends are provided. The Redis backend is the primary one and
// namespaces every key and Pub/Sub channel by instance name, so multiple
// board deployments can share one Redis server. The SQLite backend suits
// single-process deployments with no Redis at hand.
//
// Both backends guard against concurrent writers from two processes with an
// optimistic revision check: every Save must present the revision it loaded,
// and a mismatch fails with ErrConflict instead of silently clobbering.
package registry

import (
	"context"
	"errors"

	"github.com/topicboard/topicboard/pkg/board"
)

// Store is the persistence port for channel state.
type Store interface {
	// Load returns the state for a channel, or ErrNotFound if the channel
	// has never been initialized (or was reset).
	Load(ctx context.Context, channelKey string) (*board.ChannelState, error)

	// Save writes the state, bumping its revision. Fails with ErrConflict if
	// another writer saved the channel since this state was loaded.
	Save(ctx context.Context, st *board.ChannelState) error

	// Delete removes the channel's state entirely. Deleting an absent
	// channel is a no-op.
	Delete(ctx context.Context, channelKey string) error

	// ListChannelKeys returns the keys of every stored channel.
	ListChannelKeys(ctx context.Context) ([]string, error)

	// Close releases the backend's resources. Implements io.Closer.
	Close() error
}

// ErrNotFound reports that no state exists for the requested channel.
var ErrNotFound = errors.New("channel state not found")

// ErrConflict reports a lost optimistic-concurrency race: the channel was
// saved by someone else between this writer's Load and Save.
var ErrConflict = errors.New("channel state modified concurrently")

// IsNotFound returns true if the error chain contains ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Event describes a board state change, published by the Redis backend on
// every save and delete for live observers (the `topicboard watch` command).
type Event struct {
	Kind       string `json:"kind"` // "saved" or "deleted"
	ChannelKey string `json:"channel_key"`
	TopicCount int    `json:"topic_count"`
	Boards     int    `json:"boards"`
	AtMs       int64  `json:"at_ms"`
}
