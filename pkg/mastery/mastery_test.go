package mastery

import (
	"context"
	"testing"

	"github.com/edvora/minerva/pkg/kv"
	"github.com/edvora/minerva/pkg/store"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	mem := kv.NewMemory()
	t.Cleanup(func() { mem.Close() })
	return NewRecorder(store.New(mem))
}

func TestScoreTiers(t *testing.T) {
	tests := []struct {
		score Score
		want  Tier
	}{
		{0, TierStruggling},
		{49.9, TierStruggling},
		{50, TierLearning},
		{79.9, TierLearning},
		{80, TierMastering},
		{100, TierMastering},
	}
	for _, tt := range tests {
		if got := tt.score.Tier(); got != tt.want {
			t.Errorf("Score(%v).Tier() = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestScoreEvidence(t *testing.T) {
	tests := []struct {
		name string
		rows []store.Evidence
		want Score
	}{
		{
			name: "no evidence is neutral",
			want: 50,
		},
		{
			name: "steady progress reaches mastering",
			rows: []store.Evidence{
				{Type: store.EvidenceCorrectAnswer, Quality: 1},
				{Type: store.EvidenceCorrectAnswer, Quality: 1},
				{Type: store.EvidenceExplanation, Quality: 1},
				{Type: store.EvidenceApplication, Quality: 1},
			},
			want: 82,
		},
		{
			name: "struggles drag below fifty",
			rows: []store.Evidence{
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceStruggle, Quality: 1},
			},
			want: 38,
		},
		{
			name: "quality scales the shift",
			rows: []store.Evidence{
				{Type: store.EvidenceCorrectAnswer, Quality: 0.5},
			},
			want: 54,
		},
		{
			name: "clamped at zero",
			rows: []store.Evidence{
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
				{Type: store.EvidenceIncorrectAnswer, Quality: 1},
			},
			want: 0,
		},
		{
			name: "out of range quality clamped",
			rows: []store.Evidence{
				{Type: store.EvidenceCorrectAnswer, Quality: 5},
			},
			want: 58,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreEvidence(tt.rows); got != tt.want {
				t.Errorf("scoreEvidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordInvalidatesScore(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)

	s, err := r.Score(ctx, "maya", "fractions-01")
	if err != nil {
		t.Fatalf("Score() error: %v", err)
	}
	if s != 50 {
		t.Fatalf("cold Score() = %v, want 50", s)
	}

	// A read right after a write must see the new evidence.
	ev := store.Evidence{Type: store.EvidenceCorrectAnswer, Content: "3/4 > 1/2", Quality: 1}
	if err := r.Record(ctx, "maya", "fractions-01", ev); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	s, err = r.Score(ctx, "maya", "fractions-01")
	if err != nil {
		t.Fatalf("Score() after Record error: %v", err)
	}
	if s != 58 {
		t.Errorf("Score() after Record = %v, want 58", s)
	}

	// Other keys are unaffected.
	s, err = r.Score(ctx, "maya", "decimals-02")
	if err != nil {
		t.Fatalf("Score(other lesson) error: %v", err)
	}
	if s != 50 {
		t.Errorf("Score(other lesson) = %v, want 50", s)
	}
}

func TestCacheGenerationToken(t *testing.T) {
	c := newCache()

	_, gen, ok := c.snapshot("k")
	if ok {
		t.Fatal("cold snapshot reports valid")
	}

	// A store under a stale token never lands.
	c.invalidate("k")
	c.store("k", gen, 99)
	if _, _, ok := c.snapshot("k"); ok {
		t.Fatal("stale store landed after invalidation")
	}

	// A store under the current token does.
	_, gen, _ = c.snapshot("k")
	c.store("k", gen, 42)
	s, _, ok := c.snapshot("k")
	if !ok || s != 42 {
		t.Fatalf("snapshot = %v, %v; want 42, valid", s, ok)
	}

	c.invalidate("k")
	if _, _, ok := c.snapshot("k"); ok {
		t.Fatal("snapshot still valid after invalidate")
	}
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	r := newTestRecorder(t)

	rows := []store.Evidence{
		{Type: store.EvidenceCorrectAnswer, Quality: 1},
		{Type: store.EvidenceCorrectAnswer, Quality: 1},
		{Type: store.EvidenceStruggle, Quality: 0.5},
	}
	for _, ev := range rows {
		if err := r.Record(ctx, "maya", "fractions-01", ev); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	rep, err := r.Report(ctx, "maya", "fractions-01")
	if err != nil {
		t.Fatalf("Report() error: %v", err)
	}
	if rep.Evidence != 3 {
		t.Errorf("Evidence = %d, want 3", rep.Evidence)
	}
	if rep.Score != 63.5 {
		t.Errorf("Score = %v, want 63.5", rep.Score)
	}
	if rep.Tier != TierLearning {
		t.Errorf("Tier = %s, want learning", rep.Tier)
	}
	if rep.ByType[store.EvidenceCorrectAnswer] != 2 || rep.ByType[store.EvidenceStruggle] != 1 {
		t.Errorf("ByType = %v", rep.ByType)
	}
}
