package store

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EvidenceType classifies what a piece of mastery evidence shows.
type EvidenceType string

const (
	EvidenceCorrectAnswer   EvidenceType = "correct_answer"
	EvidenceIncorrectAnswer EvidenceType = "incorrect_answer"
	EvidenceExplanation     EvidenceType = "explanation"
	EvidenceApplication     EvidenceType = "application"
	EvidenceStruggle        EvidenceType = "struggle"
)

// Evidence is one observed signal of a student's mastery. Rows are
// append-only; the key timestamp orders them chronologically.
type Evidence struct {
	Type    EvidenceType `json:"type" msgpack:"type"`
	Content string       `json:"content,omitempty" msgpack:"content,omitempty"`

	// Quality grades the signal from 0 (worthless) to 1 (decisive).
	Quality float64 `json:"quality" msgpack:"quality"`

	Timestamp int64 `json:"ts" msgpack:"ts"`
}

// AppendEvidence stores one evidence row for a student on a lesson. A zero
// timestamp is filled with the current time.
func (s *Store) AppendEvidence(ctx context.Context, userID, lessonID string, ev Evidence) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = nowNano()
	}
	data, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("store: encode evidence: %w", err)
	}
	key := evidenceKey(userID, lessonID, ev.Timestamp)
	if err := s.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("store: append evidence: %w", err)
	}
	return nil
}

// ListEvidence returns all evidence for a student on a lesson, oldest first.
func (s *Store) ListEvidence(ctx context.Context, userID, lessonID string) ([]Evidence, error) {
	var out []Evidence
	for entry, err := range s.kv.List(ctx, evidencePrefix(userID, lessonID)) {
		if err != nil {
			return nil, fmt.Errorf("store: list evidence: %w", err)
		}
		var ev Evidence
		if err := msgpack.Unmarshal(entry.Value, &ev); err != nil {
			return nil, fmt.Errorf("store: decode evidence %s: %w", entry.Key, err)
		}
		out = append(out, ev)
	}
	return out, nil
}
