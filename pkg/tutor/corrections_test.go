package tutor

import (
	"context"
	"testing"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/kv"
	"github.com/edvora/minerva/pkg/store"
)

func TestCorrectionsRecord(t *testing.T) {
	ctx := context.Background()
	st := store.New(kv.NewMemory())
	c := NewCorrections(st)

	resp := &agents.Response{AgentName: "ada", DisplayText: "Three times four is eleven."}
	c.Record(ctx, "s1", resp, &Verdict{
		Valid:         false,
		Issues:        []string{"product is wrong"},
		RequiredFixes: []string{"Correct the product to 12"},
	})

	pc, err := st.NextPending(ctx, "s1")
	if err != nil {
		t.Fatalf("NextPending() error: %v", err)
	}
	if pc == nil || pc.AgentName != "ada" || len(pc.Issues) != 1 {
		t.Fatalf("pending = %+v", pc)
	}
	audits, err := st.ListAudit(ctx, "s1")
	if err != nil {
		t.Fatalf("ListAudit() error: %v", err)
	}
	if len(audits) != 1 {
		t.Errorf("got %d audit rows, want 1", len(audits))
	}
}

func TestCorrectionsValidSkips(t *testing.T) {
	ctx := context.Background()
	st := store.New(kv.NewMemory())
	c := NewCorrections(st)

	c.Record(ctx, "s1", &agents.Response{AgentName: "ada", DisplayText: "fine"}, &Verdict{Valid: true})

	if pc, _ := st.NextPending(ctx, "s1"); pc != nil {
		t.Errorf("valid reply filed a correction: %+v", pc)
	}
	if audits, _ := st.ListAudit(ctx, "s1"); len(audits) != 0 {
		t.Errorf("valid reply wrote %d audit rows", len(audits))
	}
}

func TestCorrectionsSlotOccupied(t *testing.T) {
	ctx := context.Background()
	st := store.New(kv.NewMemory())
	c := NewCorrections(st)

	bad := &Verdict{Valid: false, Issues: []string{"wrong"}}
	c.Record(ctx, "s1", &agents.Response{AgentName: "ada", DisplayText: "first"}, bad)
	c.Record(ctx, "s1", &agents.Response{AgentName: "ada", DisplayText: "second"}, bad)

	list, err := st.ListCorrections(ctx, "s1")
	if err != nil {
		t.Fatalf("ListCorrections() error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d corrections, want the second dropped", len(list))
	}
	if list[0].Response != "first" {
		t.Errorf("kept correction = %q, want the first", list[0].Response)
	}
	// The drop still leaves an audit trail for both rejections.
	if audits, _ := st.ListAudit(ctx, "s1"); len(audits) != 2 {
		t.Errorf("got %d audit rows, want 2", len(audits))
	}
}

func TestCorrectionsDelivered(t *testing.T) {
	ctx := context.Background()
	st := store.New(kv.NewMemory())
	c := NewCorrections(st)

	c.Record(ctx, "s1", &agents.Response{AgentName: "ada", DisplayText: "wrong"}, &Verdict{Valid: false, Issues: []string{"x"}})
	pc, _ := st.NextPending(ctx, "s1")
	if pc == nil {
		t.Fatal("no pending correction")
	}

	c.Delivered(ctx, pc)
	if left, _ := st.NextPending(ctx, "s1"); left != nil {
		t.Errorf("correction still pending after delivery: %+v", left)
	}

	c.Delivered(ctx, nil) // no-op
}
