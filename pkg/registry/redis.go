package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/topicboard/topicboard/pkg/board"
)

// RedisStore is the primary Store implementation, backed by a Redis hash per
// channel. All keys and channels are automatically namespaced with the
// instance name. The store is thread-safe and can be used concurrently from
// multiple goroutines.
type RedisStore struct {
	rdb          *redis.Client
	instanceName string
}

// NewRedisStore creates a Redis-backed store for the specified instance.
// Returns an error if instanceName is empty.
func NewRedisStore(redisOpts *redis.Options, instanceName string) (*RedisStore, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &RedisStore{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for startup checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// RedisClient exposes the underlying client for advanced operations (SCAN in
// the CLI inspect path). Most callers should stick to the Store interface.
func (s *RedisStore) RedisClient() *redis.Client {
	return s.rdb
}

// Load reads a channel's state hash. Returns ErrNotFound for channels that
// were never initialized.
func (s *RedisStore) Load(ctx context.Context, channelKey string) (*board.ChannelState, error) {
	key := ChannelStateKey(s.instanceName, channelKey)

	hashData, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read channel state from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys.
	if len(hashData) == 0 {
		return nil, ErrNotFound
	}

	st, err := HashToState(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize channel state: %w", err)
	}
	return st, nil
}

// Save writes the state under an optimistic revision check: the stored rev
// must equal the rev this state was loaded with, otherwise ErrConflict.
// On success the state's Rev is bumped and a "saved" event is published.
func (s *RedisStore) Save(ctx context.Context, st *board.ChannelState) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid channel state: %w", err)
	}

	key := ChannelStateKey(s.instanceName, st.ChannelKey)
	nextRev := st.Rev + 1

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, "rev").Result()
		switch {
		case errors.Is(err, redis.Nil):
			if st.Rev != 0 {
				return ErrConflict
			}
		case err != nil:
			return fmt.Errorf("failed to read channel revision: %w", err)
		default:
			rev, _ := strconv.ParseInt(current, 10, 64)
			if rev != st.Rev {
				return ErrConflict
			}
		}

		st.Rev = nextRev
		hash, err := StateToHash(st)
		if err != nil {
			st.Rev = nextRev - 1
			return fmt.Errorf("failed to serialize channel state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			s.publishEvent(ctx, pipe, Event{
				Kind:       "saved",
				ChannelKey: st.ChannelKey,
				TopicCount: st.TopicCount(),
				Boards:     len(st.Boards),
				AtMs:       time.Now().UnixMilli(),
			})
			return nil
		})
		if err != nil {
			st.Rev = nextRev - 1
		}
		return err
	}

	err := s.rdb.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	return err
}

// Delete removes a channel's state and publishes a "deleted" event. Deleting
// an absent channel is a no-op.
func (s *RedisStore) Delete(ctx context.Context, channelKey string) error {
	key := ChannelStateKey(s.instanceName, channelKey)

	removed, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete channel state: %w", err)
	}
	if removed == 0 {
		return nil
	}

	event := Event{
		Kind:       "deleted",
		ChannelKey: channelKey,
		AtMs:       time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal board event: %w", err)
	}
	if err := s.rdb.Publish(ctx, BoardEventsChannel(s.instanceName), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish board event: %w", err)
	}
	return nil
}

// ListChannelKeys returns every channel key with saved state for this
// instance, via Redis SCAN so the server is never blocked.
func (s *RedisStore) ListChannelKeys(ctx context.Context) ([]string, error) {
	prefix := ChannelStateKey(s.instanceName, "")
	iter := s.rdb.Scan(ctx, 0, ChannelScanPattern(s.instanceName), 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan channel keys: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) publishEvent(ctx context.Context, pipe redis.Pipeliner, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	pipe.Publish(ctx, BoardEventsChannel(s.instanceName), payload)
}

// Subscription represents an active Pub/Sub subscription to board events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of board events. It is closed when the
// subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan Event { return s.events }

// Errors returns the channel of subscription errors. Errors are non-fatal:
// malformed payloads are skipped and the subscription continues.
func (s *Subscription) Errors() <-chan error { return s.errors }

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeBoardEvents subscribes to save/delete events for this instance.
// Events are delivered on a buffered channel (size 10); Redis Pub/Sub is
// at-most-once, so slow subscribers may miss events.
func (s *RedisStore) SubscribeBoardEvents(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, BoardEventsChannel(s.instanceName))

	eventsChan := make(chan Event, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal board event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
