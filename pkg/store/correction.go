package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCorrectionPending is returned by PutCorrection while the session
// already has an undelivered correction.
var ErrCorrectionPending = errors.New("store: correction already pending")

// CorrectionStatus is the delivery state of a pending correction. The only
// transition is pending → delivered.
type CorrectionStatus string

const (
	CorrectionPending   CorrectionStatus = "pending"
	CorrectionDelivered CorrectionStatus = "delivered"
)

// PendingCorrection records a validator rejection awaiting injection into
// the next turn. At most one undelivered row exists per session.
type PendingCorrection struct {
	ID        string `json:"id" msgpack:"id"`
	SessionID string `json:"session_id" msgpack:"sid"`
	AgentName string `json:"agent_name" msgpack:"agent"`

	// Response is the display text of the rejected response.
	Response string `json:"response" msgpack:"resp"`

	Issues        []string `json:"issues,omitempty" msgpack:"issues,omitempty"`
	RequiredFixes []string `json:"required_fixes,omitempty" msgpack:"fixes,omitempty"`

	Status      CorrectionStatus `json:"status" msgpack:"status"`
	CreatedAt   int64            `json:"created_at" msgpack:"created"`
	DeliveredAt int64            `json:"delivered_at,omitempty" msgpack:"delivered,omitempty"`
}

// PutCorrection stores a new pending correction. It fails with
// ErrCorrectionPending while an undelivered one exists for the session;
// the caller drops the new one in that case.
func (s *Store) PutCorrection(ctx context.Context, c *PendingCorrection) error {
	pending, err := s.NextPending(ctx, c.SessionID)
	if err != nil {
		return err
	}
	if pending != nil {
		return fmt.Errorf("store: put correction for %s: %w", c.SessionID, ErrCorrectionPending)
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = nowNano()
	}
	c.Status = CorrectionPending
	c.DeliveredAt = 0

	data, err := msgpack.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: encode correction %s: %w", c.ID, err)
	}
	key := correctionKey(c.SessionID, c.CreatedAt)
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store: put correction %s: %w", c.ID, err)
	}
	return nil
}

// NextPending returns the oldest undelivered correction for a session, or
// nil when there is none. Delivered rows are never returned.
func (s *Store) NextPending(ctx context.Context, sessionID string) (*PendingCorrection, error) {
	for entry, err := range s.kv.List(ctx, correctionPrefix(sessionID)) {
		if err != nil {
			return nil, fmt.Errorf("store: list corrections for %s: %w", sessionID, err)
		}
		var c PendingCorrection
		if err := msgpack.Unmarshal(entry.Value, &c); err != nil {
			return nil, fmt.Errorf("store: decode correction %s: %w", entry.Key, err)
		}
		if c.Status == CorrectionPending {
			return &c, nil
		}
	}
	return nil, nil
}

// MarkDelivered transitions a correction to delivered and stamps the time.
// Marking an already-delivered correction is a no-op.
func (s *Store) MarkDelivered(ctx context.Context, c *PendingCorrection) error {
	if c.Status == CorrectionDelivered {
		return nil
	}
	c.Status = CorrectionDelivered
	c.DeliveredAt = nowNano()

	data, err := msgpack.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: encode correction %s: %w", c.ID, err)
	}
	key := correctionKey(c.SessionID, c.CreatedAt)
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store: mark correction %s delivered: %w", c.ID, err)
	}
	return nil
}

// ListCorrections returns all corrections for a session, oldest first,
// delivered rows included.
func (s *Store) ListCorrections(ctx context.Context, sessionID string) ([]*PendingCorrection, error) {
	var out []*PendingCorrection
	for entry, err := range s.kv.List(ctx, correctionPrefix(sessionID)) {
		if err != nil {
			return nil, fmt.Errorf("store: list corrections for %s: %w", sessionID, err)
		}
		var c PendingCorrection
		if err := msgpack.Unmarshal(entry.Value, &c); err != nil {
			return nil, fmt.Errorf("store: decode correction %s: %w", entry.Key, err)
		}
		out = append(out, &c)
	}
	return out, nil
}
