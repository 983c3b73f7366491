package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/topicboard/topicboard/pkg/board"
)

// SQLiteStore is a Store implementation for single-process deployments with
// no Redis at hand. State is a JSON blob per channel; the single-writer
// assumption of the deployment is backed up by the same revision check the
// Redis backend uses, so a second accidental writer fails loudly instead of
// clobbering.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the board database at path.
// WAL mode keeps concurrent readers cheap.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open board db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping board db: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS channels (
			channel_key TEXT PRIMARY KEY,
			rev         INTEGER NOT NULL,
			state       TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create channels table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database. Implements io.Closer.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads a channel's state. Returns ErrNotFound for unknown channels.
func (s *SQLiteStore) Load(ctx context.Context, channelKey string) (*board.ChannelState, error) {
	var stateJSON string
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT rev, state FROM channels WHERE channel_key = ?`, channelKey,
	).Scan(&rev, &stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load channel state: %w", err)
	}

	var st board.ChannelState
	if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
		return nil, fmt.Errorf("failed to deserialize channel state: %w", err)
	}
	st.Rev = rev
	return &st, nil
}

// Save writes the state under the same optimistic revision check as the
// Redis backend.
func (s *SQLiteStore) Save(ctx context.Context, st *board.ChannelState) error {
	if err := st.Validate(); err != nil {
		return fmt.Errorf("invalid channel state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT rev FROM channels WHERE channel_key = ?`, st.ChannelKey,
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if st.Rev != 0 {
			return ErrConflict
		}
	case err != nil:
		return fmt.Errorf("read channel revision: %w", err)
	default:
		if current != st.Rev {
			return ErrConflict
		}
	}

	nextRev := st.Rev + 1
	st.Rev = nextRev
	stateJSON, err := json.Marshal(st)
	if err != nil {
		st.Rev = nextRev - 1
		return fmt.Errorf("failed to serialize channel state: %w", err)
	}

	now := time.Now().UTC().Format("2006-01-02 15:04:05")
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO channels (channel_key, rev, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_key) DO UPDATE SET
			rev = excluded.rev,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, st.ChannelKey, nextRev, string(stateJSON), now); err != nil {
		st.Rev = nextRev - 1
		return fmt.Errorf("save channel state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		st.Rev = nextRev - 1
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

// Delete removes a channel's state. Deleting an absent channel is a no-op.
func (s *SQLiteStore) Delete(ctx context.Context, channelKey string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM channels WHERE channel_key = ?`, channelKey,
	); err != nil {
		return fmt.Errorf("delete channel state: %w", err)
	}
	return nil
}

// ListChannelKeys returns every channel key with saved state.
func (s *SQLiteStore) ListChannelKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_key FROM channels ORDER BY channel_key`)
	if err != nil {
		return nil, fmt.Errorf("list channel keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan channel key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
