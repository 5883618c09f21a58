package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// AuditEntry records a validation failure. Audit rows are written for every
// rejection, whether or not a correction could be stored for it.
type AuditEntry struct {
	ID        string   `json:"id" msgpack:"id"`
	SessionID string   `json:"session_id" msgpack:"sid"`
	AgentName string   `json:"agent_name" msgpack:"agent"`
	Response  string   `json:"response" msgpack:"resp"`
	Issues    []string `json:"issues,omitempty" msgpack:"issues,omitempty"`
	Timestamp int64    `json:"ts" msgpack:"ts"`
}

// AppendAudit stores one audit row. Zero ID and timestamp are filled in.
func (s *Store) AppendAudit(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp == 0 {
		e.Timestamp = nowNano()
	}
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: encode audit entry: %w", err)
	}
	key := auditKey(e.SessionID, e.Timestamp)
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store: append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns all audit entries for a session, oldest first.
func (s *Store) ListAudit(ctx context.Context, sessionID string) ([]*AuditEntry, error) {
	var out []*AuditEntry
	for entry, err := range s.kv.List(ctx, auditPrefix(sessionID)) {
		if err != nil {
			return nil, fmt.Errorf("store: list audit for %s: %w", sessionID, err)
		}
		var e AuditEntry
		if err := msgpack.Unmarshal(entry.Value, &e); err != nil {
			return nil, fmt.Errorf("store: decode audit entry %s: %w", entry.Key, err)
		}
		out = append(out, &e)
	}
	return out, nil
}
