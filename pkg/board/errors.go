package board

import "errors"

// Sentinel errors for the board operation set. Callers distinguish rejection
// reasons with errors.Is; user-facing wording lives in the command layer.
var (
	// ErrDuplicateEmoji is returned when an inserted topic's emoji label is
	// already present anywhere in the channel.
	ErrDuplicateEmoji = errors.New("emoji label already in use in this channel")

	// ErrTopicNotFound is returned when no topic carries the given emoji.
	ErrTopicNotFound = errors.New("topic not found")

	// ErrForbidden is returned when a non-admin requester tries to remove a
	// topic they did not author.
	ErrForbidden = errors.New("not allowed to remove another contributor's topic")

	// ErrAlreadyInitialized is returned by init when the channel already has
	// an active board.
	ErrAlreadyInitialized = errors.New("channel already has a topic board")

	// ErrAlreadyUninitialized is returned by reset when there is nothing to
	// reset. Reset is idempotent: the second call is a no-op reported as this
	// error rather than a hard failure.
	ErrAlreadyUninitialized = errors.New("channel has no topic board")

	// ErrNotInitialized is returned by mutating operations on a channel that
	// has never been initialized (or was reset).
	ErrNotInitialized = errors.New("channel is not initialized")

	// ErrInvalidCapacity is returned by init for a non-positive capacity.
	ErrInvalidCapacity = errors.New("invalid board capacity")

	// ErrEmptyText is returned when a topic's text is empty.
	ErrEmptyText = errors.New("topic text cannot be empty")
)
