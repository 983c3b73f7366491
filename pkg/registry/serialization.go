package registry

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/topicboard/topicboard/pkg/board"
)

// Serialization helpers for converting ChannelState to and from Redis hashes.
//
// Redis stores data as string-to-string maps (hashes). Scalar fields map to
// individual hash fields for queryability; compound fields (boards,
// contributors, refs, render cache) are JSON-encoded into single fields.

// StateToHash converts a ChannelState to Redis hash format.
func StateToHash(st *board.ChannelState) (map[string]interface{}, error) {
	boardsJSON, err := json.Marshal(st.Boards)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal boards: %w", err)
	}
	contributorsJSON, err := json.Marshal(st.Contributors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contributors: %w", err)
	}
	refsJSON, err := json.Marshal(st.Refs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message refs: %w", err)
	}
	renderedJSON, err := json.Marshal(st.Rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render cache: %w", err)
	}

	return map[string]interface{}{
		"channel_key":   st.ChannelKey,
		"welcome_text":  st.WelcomeText,
		"capacity":      st.Capacity,
		"boards":        string(boardsJSON),
		"contributors":  string(contributorsJSON),
		"refs":          string(refsJSON),
		"rendered":      string(renderedJSON),
		"created_at_ms": st.CreatedAtMs,
		"rev":           st.Rev,
	}, nil
}

// HashToState converts a Redis hash back to a ChannelState.
func HashToState(hash map[string]string) (*board.ChannelState, error) {
	capacity, err := strconv.Atoi(hash["capacity"])
	if err != nil {
		return nil, fmt.Errorf("invalid capacity field: %w", err)
	}

	var boards []board.Board
	if boardsJSON := hash["boards"]; boardsJSON != "" {
		if err := json.Unmarshal([]byte(boardsJSON), &boards); err != nil {
			return nil, fmt.Errorf("failed to unmarshal boards: %w", err)
		}
	}

	var contributors []string
	if contributorsJSON := hash["contributors"]; contributorsJSON != "" {
		if err := json.Unmarshal([]byte(contributorsJSON), &contributors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contributors: %w", err)
		}
	}
	if contributors == nil {
		contributors = []string{}
	}

	var refs board.MessageRefs
	if refsJSON := hash["refs"]; refsJSON != "" {
		if err := json.Unmarshal([]byte(refsJSON), &refs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message refs: %w", err)
		}
	}

	var rendered board.RenderCache
	if renderedJSON := hash["rendered"]; renderedJSON != "" {
		if err := json.Unmarshal([]byte(renderedJSON), &rendered); err != nil {
			return nil, fmt.Errorf("failed to unmarshal render cache: %w", err)
		}
	}

	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	rev, _ := strconv.ParseInt(hash["rev"], 10, 64)

	return &board.ChannelState{
		ChannelKey:   hash["channel_key"],
		WelcomeText:  hash["welcome_text"],
		Capacity:     capacity,
		Boards:       boards,
		Contributors: contributors,
		Refs:         refs,
		Rendered:     rendered,
		CreatedAtMs:  createdAtMs,
		Rev:          rev,
	}, nil
}
