// Package mastery tracks how well a student has learned a lesson.
//
// The score is recomputed from the append-only evidence rows, never stored:
// each row shifts a neutral baseline up or down by a type weight scaled by
// the evidence quality. Scores are cached per (user, lesson) behind a
// generation token; recording evidence bumps the token so the next read
// recomputes instead of serving the stale value.
package mastery

import (
	"github.com/edvora/minerva/pkg/store"
)

// Score is a mastery value on the 0 to 100 scale.
type Score float64

// Tier buckets a score for instructional adaptation.
type Tier string

const (
	TierStruggling Tier = "struggling"
	TierLearning   Tier = "learning"
	TierMastering  Tier = "mastering"
)

// Tier returns the instructional tier for the score.
func (s Score) Tier() Tier {
	switch {
	case s < 50:
		return TierStruggling
	case s < 80:
		return TierLearning
	default:
		return TierMastering
	}
}

// baseScore is the score of a student with no evidence yet. Neutral, so the
// tutor neither remediates nor accelerates before it has seen anything.
const baseScore = 50

// typeWeights shifts the score per evidence row, scaled by quality.
// Applying knowledge weighs more than reproducing it.
var typeWeights = map[store.EvidenceType]float64{
	store.EvidenceCorrectAnswer:   +8,
	store.EvidenceApplication:     +10,
	store.EvidenceExplanation:     +6,
	store.EvidenceIncorrectAnswer: -7,
	store.EvidenceStruggle:        -5,
}

// scoreEvidence folds evidence rows into a score. The fold is a plain sum,
// so row order does not matter.
func scoreEvidence(rows []store.Evidence) Score {
	v := float64(baseScore)
	for _, ev := range rows {
		w, ok := typeWeights[ev.Type]
		if !ok {
			continue
		}
		q := ev.Quality
		if q < 0 {
			q = 0
		} else if q > 1 {
			q = 1
		}
		v += w * q
	}
	if v < 0 {
		v = 0
	} else if v > 100 {
		v = 100
	}
	return Score(v)
}
