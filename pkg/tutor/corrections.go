package tutor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/store"
)

// Corrections turns failed verdicts into pending corrections and retires
// them once a later turn has worked them in.
type Corrections struct {
	store *store.Store
}

func NewCorrections(st *store.Store) *Corrections {
	return &Corrections{store: st}
}

// Record files a failed check. The session holds at most one undelivered
// correction; a second finding lands in the audit log only.
func (c *Corrections) Record(ctx context.Context, sessionID string, resp *agents.Response, v *Verdict) {
	if v.Valid {
		return
	}
	if err := c.store.AppendAudit(ctx, &store.AuditEntry{
		SessionID: sessionID,
		AgentName: resp.AgentName,
		Response:  resp.DisplayText,
		Issues:    v.Issues,
	}); err != nil {
		slog.Warn("tutor: audit append failed", "session", sessionID, "err", err)
	}
	err := c.store.PutCorrection(ctx, &store.PendingCorrection{
		SessionID:     sessionID,
		AgentName:     resp.AgentName,
		Response:      resp.DisplayText,
		Issues:        v.Issues,
		RequiredFixes: v.RequiredFixes,
	})
	switch {
	case errors.Is(err, store.ErrCorrectionPending):
		slog.Warn("tutor: correction slot occupied, dropping", "session", sessionID)
	case err != nil:
		slog.Warn("tutor: correction save failed", "session", sessionID, "err", err)
	}
}

// Delivered marks a consumed correction so it never resurfaces.
func (c *Corrections) Delivered(ctx context.Context, pc *store.PendingCorrection) {
	if pc == nil {
		return
	}
	if err := c.store.MarkDelivered(ctx, pc); err != nil {
		slog.Warn("tutor: correction mark failed", "session", pc.SessionID, "err", err)
	}
}
