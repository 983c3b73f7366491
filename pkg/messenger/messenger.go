// Package messenger defines the port through which the board talks to a chat
// platform. The core never touches a platform SDK directly: it sends, edits,
// deletes and reacts through this interface, and the platform adapter
// (internal/messenger/matrix) translates to real API calls.
package messenger

import (
	"context"
	"errors"
	"fmt"
)

// MessageID is a durable handle to a platform message. Handles survive
// content edits; the board relies on that to keep reaction state stable.
type MessageID string

// Messenger is the outbound messaging port. Every call targets one channel
// (platform room) and must complete within the context's deadline.
//
// NotFound from Edit, Delete or the reaction calls means the target message
// no longer exists; callers treat that as "already gone", not as a failure.
// Connectivity problems are reported as *TransientError and are retryable.
type Messenger interface {
	// Send posts a new message and returns its durable handle.
	Send(ctx context.Context, channelKey, content string) (MessageID, error)

	// Edit replaces the content of an existing message in place.
	Edit(ctx context.Context, id MessageID, content string) error

	// Delete removes a message.
	Delete(ctx context.Context, id MessageID) error

	// AddReaction attaches an emoji reaction to a message.
	AddReaction(ctx context.Context, id MessageID, emoji string) error

	// RemoveReaction detaches the bot's emoji reaction from a message.
	RemoveReaction(ctx context.Context, id MessageID, emoji string) error
}

// ErrNotFound reports that the target message no longer exists on the
// platform. Reconciliation treats it as already-gone and moves on.
var ErrNotFound = errors.New("message not found")

// TransientError wraps a connectivity or timeout failure from the platform.
// These are the only messaging errors worth retrying; everything else is
// surfaced to the caller immediately.
type TransientError struct {
	Op  string // the port call that failed, e.g. "send", "edit"
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient messaging failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a retryable messaging failure.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient returns true if the error chain contains a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsNotFound returns true if the error chain contains ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
