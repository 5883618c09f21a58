package store

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Interaction logs one completed turn. Unlike the session's bounded
// history, interaction rows are kept for the life of the session.
type Interaction struct {
	SessionID   string `json:"session_id" msgpack:"sid"`
	UserMessage string `json:"user_message" msgpack:"u"`
	AgentName   string `json:"agent_name" msgpack:"a"`
	Reply       string `json:"reply" msgpack:"r"`

	// Latency is the time from turn start to the terminal event.
	Latency time.Duration `json:"latency_ns" msgpack:"lat"`

	Timestamp int64 `json:"ts" msgpack:"ts"`
}

// AppendInteraction stores one turn log row. A zero timestamp is filled
// with the current time.
func (s *Store) AppendInteraction(ctx context.Context, it *Interaction) error {
	if it.Timestamp == 0 {
		it.Timestamp = nowNano()
	}
	data, err := msgpack.Marshal(it)
	if err != nil {
		return fmt.Errorf("store: encode interaction: %w", err)
	}
	key := interactionKey(it.SessionID, it.Timestamp)
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store: append interaction: %w", err)
	}
	return nil
}

// RecentInteractions returns the n most recent turns for a session in
// chronological order. n <= 0 returns nothing.
func (s *Store) RecentInteractions(ctx context.Context, sessionID string, n int) ([]*Interaction, error) {
	if n <= 0 {
		return nil, nil
	}
	var all []*Interaction
	for entry, err := range s.kv.List(ctx, interactionPrefix(sessionID)) {
		if err != nil {
			return nil, fmt.Errorf("store: list interactions for %s: %w", sessionID, err)
		}
		var it Interaction
		if err := msgpack.Unmarshal(entry.Value, &it); err != nil {
			return nil, fmt.Errorf("store: decode interaction %s: %w", entry.Key, err)
		}
		all = append(all, &it)
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
