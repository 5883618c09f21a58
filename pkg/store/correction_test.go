package store

import (
	"context"
	"errors"
	"testing"
)

func TestCorrectionSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := &PendingCorrection{
		SessionID:     "s1",
		AgentName:     "practice",
		Response:      "3*4=11, so the answer is 11.",
		Issues:        []string{"arithmetic error: 3*4 is 12"},
		RequiredFixes: []string{"restate the multiplication correctly"},
	}
	if err := s.PutCorrection(ctx, first); err != nil {
		t.Fatalf("PutCorrection() error: %v", err)
	}
	if first.ID == "" || first.CreatedAt == 0 || first.Status != CorrectionPending {
		t.Fatalf("PutCorrection() left %+v, want filled id/time/status", first)
	}

	// Capacity is one undelivered row per session.
	second := &PendingCorrection{SessionID: "s1", AgentName: "explainer", Response: "also wrong"}
	if err := s.PutCorrection(ctx, second); !errors.Is(err, ErrCorrectionPending) {
		t.Fatalf("second PutCorrection() error = %v, want ErrCorrectionPending", err)
	}

	got, err := s.NextPending(ctx, "s1")
	if err != nil {
		t.Fatalf("NextPending() error: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("NextPending() = %+v, want the stored correction", got)
	}

	if err := s.MarkDelivered(ctx, got); err != nil {
		t.Fatalf("MarkDelivered() error: %v", err)
	}
	if got.Status != CorrectionDelivered || got.DeliveredAt == 0 {
		t.Errorf("after MarkDelivered: %+v", got)
	}

	// Delivered rows are never re-read.
	after, err := s.NextPending(ctx, "s1")
	if err != nil {
		t.Fatalf("NextPending() after delivery error: %v", err)
	}
	if after != nil {
		t.Errorf("NextPending() after delivery = %+v, want nil", after)
	}

	// The slot is free again.
	if err := s.PutCorrection(ctx, second); err != nil {
		t.Fatalf("PutCorrection() after delivery error: %v", err)
	}
}

func TestCorrectionOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Two pendings can coexist only with explicit timestamps written in
	// sequence (delivered in between); simulate history directly.
	older := &PendingCorrection{SessionID: "s2", Response: "old", CreatedAt: 100}
	if err := s.PutCorrection(ctx, older); err != nil {
		t.Fatalf("PutCorrection(older) error: %v", err)
	}
	if err := s.MarkDelivered(ctx, older); err != nil {
		t.Fatalf("MarkDelivered(older) error: %v", err)
	}
	newer := &PendingCorrection{SessionID: "s2", Response: "new", CreatedAt: 200}
	if err := s.PutCorrection(ctx, newer); err != nil {
		t.Fatalf("PutCorrection(newer) error: %v", err)
	}

	got, err := s.NextPending(ctx, "s2")
	if err != nil {
		t.Fatalf("NextPending() error: %v", err)
	}
	if got == nil || got.Response != "new" {
		t.Fatalf("NextPending() = %+v, want the undelivered row", got)
	}

	all, err := s.ListCorrections(ctx, "s2")
	if err != nil {
		t.Fatalf("ListCorrections() error: %v", err)
	}
	if len(all) != 2 || all[0].Response != "old" || all[1].Response != "new" {
		t.Errorf("ListCorrections() order = %+v, want oldest first", all)
	}
}

func TestMarkDeliveredTwice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := &PendingCorrection{SessionID: "s3", Response: "wrong"}
	if err := s.PutCorrection(ctx, c); err != nil {
		t.Fatalf("PutCorrection() error: %v", err)
	}
	if err := s.MarkDelivered(ctx, c); err != nil {
		t.Fatalf("MarkDelivered() error: %v", err)
	}
	stamp := c.DeliveredAt
	if err := s.MarkDelivered(ctx, c); err != nil {
		t.Fatalf("MarkDelivered() twice error: %v", err)
	}
	if c.DeliveredAt != stamp {
		t.Errorf("second MarkDelivered moved DeliveredAt %d -> %d", stamp, c.DeliveredAt)
	}
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entries := []*AuditEntry{
		{SessionID: "s4", AgentName: "practice", Response: "3*4=11", Issues: []string{"arithmetic"}, Timestamp: 10},
		{SessionID: "s4", AgentName: "explainer", Response: "the sun is a planet", Issues: []string{"factual"}, Timestamp: 20},
	}
	for _, e := range entries {
		if err := s.AppendAudit(ctx, e); err != nil {
			t.Fatalf("AppendAudit() error: %v", err)
		}
		if e.ID == "" {
			t.Fatal("AppendAudit() did not fill ID")
		}
	}

	got, err := s.ListAudit(ctx, "s4")
	if err != nil {
		t.Fatalf("ListAudit() error: %v", err)
	}
	if len(got) != 2 || got[0].AgentName != "practice" || got[1].AgentName != "explainer" {
		t.Errorf("ListAudit() = %+v, want both rows oldest first", got)
	}
}
