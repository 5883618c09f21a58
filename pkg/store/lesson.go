package store

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// LessonSection is one teachable unit of a lesson.
type LessonSection struct {
	Title   string `json:"title" yaml:"title" msgpack:"title"`
	Content string `json:"content" yaml:"content" msgpack:"content"`

	// Practice is an optional exercise prompt for the section.
	Practice string `json:"practice,omitempty" yaml:"practice" msgpack:"practice,omitempty"`
}

// Lesson is the authored lesson content a session teaches from. The yaml
// tags cover lesson files loaded at serve startup.
type Lesson struct {
	ID         string          `json:"id" yaml:"id" msgpack:"id"`
	Title      string          `json:"title" yaml:"title" msgpack:"title"`
	Subject    string          `json:"subject" yaml:"subject" msgpack:"subject"`
	Objectives []string        `json:"objectives,omitempty" yaml:"objectives" msgpack:"objectives,omitempty"`
	Sections   []LessonSection `json:"sections,omitempty" yaml:"sections" msgpack:"sections,omitempty"`

	// OpeningMessage is spoken by the coordinator when the lesson starts.
	OpeningMessage string `json:"opening_message,omitempty" yaml:"opening_message" msgpack:"opening,omitempty"`
}

// GetLesson loads a lesson. Returns kv.ErrNotFound if absent.
func (s *Store) GetLesson(ctx context.Context, id string) (*Lesson, error) {
	data, err := s.kv.Get(ctx, lessonKey(id))
	if err != nil {
		return nil, fmt.Errorf("store: get lesson %s: %w", id, err)
	}
	var l Lesson
	if err := msgpack.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("store: decode lesson %s: %w", id, err)
	}
	return &l, nil
}

// PutLesson saves a lesson record.
func (s *Store) PutLesson(ctx context.Context, l *Lesson) error {
	data, err := msgpack.Marshal(l)
	if err != nil {
		return fmt.Errorf("store: encode lesson %s: %w", l.ID, err)
	}
	if err := s.kv.Set(ctx, lessonKey(l.ID), data); err != nil {
		return fmt.Errorf("store: put lesson %s: %w", l.ID, err)
	}
	return nil
}
