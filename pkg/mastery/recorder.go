package mastery

import (
	"context"
	"fmt"

	"github.com/edvora/minerva/pkg/store"
)

// Recorder appends mastery evidence and serves cached scores.
type Recorder struct {
	store *store.Store
	cache *cache
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(st *store.Store) *Recorder {
	return &Recorder{store: st, cache: newCache()}
}

func cacheKey(userID, lessonID string) string {
	return userID + "/" + lessonID
}

// Record appends one evidence row and invalidates the cached score, so the
// next Score call recomputes.
func (r *Recorder) Record(ctx context.Context, userID, lessonID string, ev store.Evidence) error {
	if err := r.store.AppendEvidence(ctx, userID, lessonID, ev); err != nil {
		return fmt.Errorf("mastery: record: %w", err)
	}
	r.Invalidate(userID, lessonID)
	return nil
}

// Invalidate drops the cached score for a (user, lesson) pair.
func (r *Recorder) Invalidate(userID, lessonID string) {
	r.cache.invalidate(cacheKey(userID, lessonID))
}

// Score returns the student's mastery of a lesson, recomputing from the
// evidence rows when the cache is cold or invalidated.
func (r *Recorder) Score(ctx context.Context, userID, lessonID string) (Score, error) {
	key := cacheKey(userID, lessonID)
	s, gen, ok := r.cache.snapshot(key)
	if ok {
		return s, nil
	}

	rows, err := r.store.ListEvidence(ctx, userID, lessonID)
	if err != nil {
		return 0, fmt.Errorf("mastery: score %s: %w", key, err)
	}
	s = scoreEvidence(rows)
	r.cache.store(key, gen, s)
	return s, nil
}

// Report summarizes a student's standing on a lesson.
type Report struct {
	UserID   string                     `json:"user_id"`
	LessonID string                     `json:"lesson_id"`
	Score    Score                      `json:"score"`
	Tier     Tier                       `json:"tier"`
	Evidence int                        `json:"evidence"`
	ByType   map[store.EvidenceType]int `json:"by_type,omitempty"`
}

// Report builds the mastery summary served by the gateway.
func (r *Recorder) Report(ctx context.Context, userID, lessonID string) (*Report, error) {
	rows, err := r.store.ListEvidence(ctx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("mastery: report %s/%s: %w", userID, lessonID, err)
	}
	rep := &Report{
		UserID:   userID,
		LessonID: lessonID,
		Score:    scoreEvidence(rows),
		Evidence: len(rows),
	}
	rep.Tier = rep.Score.Tier()
	if len(rows) > 0 {
		rep.ByType = make(map[store.EvidenceType]int)
		for _, ev := range rows {
			rep.ByType[ev.Type]++
		}
	}
	return rep, nil
}
