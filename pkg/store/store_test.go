package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/edvora/minerva/pkg/kv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mem := kv.NewMemory()
	t.Cleanup(func() { mem.Close() })
	return New(mem)
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sess, err := s.CreateSession(ctx, "maya", "fractions-01")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if sess.ID == "" || sess.StartedAt == 0 {
		t.Fatalf("CreateSession() = %+v, want id and start time", sess)
	}
	if sess.Ended() {
		t.Error("new session reports ended")
	}

	sess.ActiveAgent = "explainer"
	sess.AppendExchange(Exchange{
		UserMessage: "what is a fraction?",
		AgentName:   "explainer",
		Reply:       "A fraction is a part of a whole.",
	})
	if err := s.PutSession(ctx, sess); err != nil {
		t.Fatalf("PutSession() error: %v", err)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if got.ActiveAgent != "explainer" {
		t.Errorf("ActiveAgent = %q, want explainer", got.ActiveAgent)
	}
	if len(got.History) != 1 || got.History[0].Reply != "A fraction is a part of a whole." {
		t.Errorf("History = %+v, want the stored exchange", got.History)
	}
	if got.History[0].Timestamp == 0 {
		t.Error("exchange timestamp not filled")
	}

	ended, err := s.EndSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("EndSession() error: %v", err)
	}
	if !ended.Ended() {
		t.Error("EndSession() did not set EndedAt")
	}
	if ended.ActiveAgent != "" {
		t.Errorf("ActiveAgent after end = %q, want empty", ended.ActiveAgent)
	}

	again, err := s.EndSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("EndSession() twice error: %v", err)
	}
	if again.EndedAt != ended.EndedAt {
		t.Errorf("second EndSession() moved EndedAt %d -> %d", ended.EndedAt, again.EndedAt)
	}
}

func TestSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession(context.Background(), "nope")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("GetSession(absent) error = %v, want kv.ErrNotFound", err)
	}
}

func TestSessionHistoryBounded(t *testing.T) {
	sess := &Session{ID: "s1"}
	for i := 0; i < MaxSessionHistory+5; i++ {
		sess.AppendExchange(Exchange{UserMessage: fmt.Sprintf("turn %d", i)})
	}
	if len(sess.History) != MaxSessionHistory {
		t.Fatalf("len(History) = %d, want %d", len(sess.History), MaxSessionHistory)
	}
	// Oldest entries drop first.
	if got := sess.History[0].UserMessage; got != "turn 5" {
		t.Errorf("History[0] = %q, want turn 5", got)
	}
	if got := sess.History[len(sess.History)-1].UserMessage; got != fmt.Sprintf("turn %d", MaxSessionHistory+4) {
		t.Errorf("History[last] = %q, want turn %d", got, MaxSessionHistory+4)
	}
}

func TestLessonRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	lesson := &Lesson{
		ID:         "fractions-01",
		Title:      "Introduction to Fractions",
		Subject:    "math",
		Objectives: []string{"name numerator and denominator", "compare simple fractions"},
		Sections: []LessonSection{
			{Title: "Parts of a whole", Content: "A fraction names equal parts of a whole.", Practice: "Shade 3/4 of the circle."},
			{Title: "Comparing", Content: "Same denominator: bigger numerator wins."},
		},
		OpeningMessage: "Today we are slicing pizzas!",
	}
	if err := s.PutLesson(ctx, lesson); err != nil {
		t.Fatalf("PutLesson() error: %v", err)
	}
	got, err := s.GetLesson(ctx, "fractions-01")
	if err != nil {
		t.Fatalf("GetLesson() error: %v", err)
	}
	if got.Title != lesson.Title || len(got.Sections) != 2 {
		t.Errorf("GetLesson() = %+v, want %+v", got, lesson)
	}
	if got.Sections[0].Practice != "Shade 3/4 of the circle." {
		t.Errorf("section practice = %q", got.Sections[0].Practice)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &Profile{
		UserID:         "maya",
		Name:           "Maya",
		Grade:          "4",
		Interests:      []string{"dinosaurs", "soccer"},
		PreferredStyle: "visual",
	}
	if err := s.PutProfile(ctx, p); err != nil {
		t.Fatalf("PutProfile() error: %v", err)
	}
	got, err := s.GetProfile(ctx, "maya")
	if err != nil {
		t.Fatalf("GetProfile() error: %v", err)
	}
	if got.Name != "Maya" || got.PreferredStyle != "visual" || len(got.Interests) != 2 {
		t.Errorf("GetProfile() = %+v, want %+v", got, p)
	}
}

func TestEvidenceChronological(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows := []Evidence{
		{Type: EvidenceStruggle, Content: "confused halves and quarters", Quality: 0.6, Timestamp: 100},
		{Type: EvidenceCorrectAnswer, Content: "3/4 > 1/2", Quality: 0.9, Timestamp: 200},
		{Type: EvidenceExplanation, Content: "explained why denominators must match", Quality: 0.8, Timestamp: 300},
	}
	// Insert out of order; the key layout restores chronology.
	for _, i := range []int{1, 0, 2} {
		if err := s.AppendEvidence(ctx, "maya", "fractions-01", rows[i]); err != nil {
			t.Fatalf("AppendEvidence() error: %v", err)
		}
	}

	got, err := s.ListEvidence(ctx, "maya", "fractions-01")
	if err != nil {
		t.Fatalf("ListEvidence() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i := range got {
		if got[i].Type != rows[i].Type {
			t.Errorf("evidence[%d].Type = %s, want %s", i, got[i].Type, rows[i].Type)
		}
	}

	other, err := s.ListEvidence(ctx, "maya", "decimals-02")
	if err != nil {
		t.Fatalf("ListEvidence(other lesson) error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other lesson has %d rows, want 0", len(other))
	}
}

func TestInteractionLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 4; i++ {
		err := s.AppendInteraction(ctx, &Interaction{
			SessionID:   "s1",
			UserMessage: fmt.Sprintf("question %d", i),
			AgentName:   "practice",
			Reply:       fmt.Sprintf("answer %d", i),
			Timestamp:   int64(1000 + i),
		})
		if err != nil {
			t.Fatalf("AppendInteraction() error: %v", err)
		}
	}

	recent, err := s.RecentInteractions(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentInteractions() error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].UserMessage != "question 2" || recent[1].UserMessage != "question 3" {
		t.Errorf("recent = [%q, %q], want the last two in order", recent[0].UserMessage, recent[1].UserMessage)
	}

	none, err := s.RecentInteractions(ctx, "s1", 0)
	if err != nil || none != nil {
		t.Errorf("RecentInteractions(n=0) = %v, %v; want nil, nil", none, err)
	}
}

func TestTSKeyOrder(t *testing.T) {
	a, b := tsKey(999), tsKey(1000)
	if !(a < b) {
		t.Errorf("tsKey(999) = %q not before tsKey(1000) = %q", a, b)
	}
	ns, err := parseTSKey(tsKey(123456))
	if err != nil || ns != 123456 {
		t.Errorf("parseTSKey(tsKey(123456)) = %d, %v", ns, err)
	}
}
