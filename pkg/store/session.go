package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// MaxSessionHistory bounds the exchanges kept on the session record itself.
// The full log lives in the interaction rows.
const MaxSessionHistory = 20

// Exchange is one user/tutor turn kept in the session's recent history.
type Exchange struct {
	UserMessage string `json:"user_message" msgpack:"u"`
	AgentName   string `json:"agent_name" msgpack:"a"`
	Reply       string `json:"reply" msgpack:"r"`
	Timestamp   int64  `json:"ts" msgpack:"ts"`
}

// Session is an active tutoring session. It is created at lesson start,
// mutated each turn, and ended explicitly; EndedAt stays zero until then.
type Session struct {
	ID       string `json:"id" msgpack:"id"`
	UserID   string `json:"user_id" msgpack:"uid"`
	LessonID string `json:"lesson_id" msgpack:"lid"`

	// ActiveAgent is the specialist that answered the previous turn, empty
	// when none has been engaged yet.
	ActiveAgent string `json:"active_agent,omitempty" msgpack:"agent,omitempty"`

	// History holds the most recent exchanges, oldest first, capped at
	// MaxSessionHistory.
	History []Exchange `json:"history,omitempty" msgpack:"hist,omitempty"`

	StartedAt int64 `json:"started_at" msgpack:"start"`
	EndedAt   int64 `json:"ended_at,omitempty" msgpack:"end,omitempty"`
}

// Ended reports whether the session has been ended.
func (s *Session) Ended() bool { return s.EndedAt != 0 }

// AppendExchange adds one turn to the recent history, dropping the oldest
// entries beyond MaxSessionHistory.
func (s *Session) AppendExchange(ex Exchange) {
	if ex.Timestamp == 0 {
		ex.Timestamp = nowNano()
	}
	s.History = append(s.History, ex)
	if n := len(s.History) - MaxSessionHistory; n > 0 {
		s.History = append(s.History[:0], s.History[n:]...)
	}
}

// CreateSession starts a session for a student on a lesson.
func (s *Store) CreateSession(ctx context.Context, userID, lessonID string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		LessonID:  lessonID,
		StartedAt: nowNano(),
	}
	if err := s.PutSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession loads a session. Returns kv.ErrNotFound if absent.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.kv.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, fmt.Errorf("store: get session %s: %w", id, err)
	}
	var sess Session
	if err := msgpack.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("store: decode session %s: %w", id, err)
	}
	return &sess, nil
}

// PutSession saves a session record.
func (s *Store) PutSession(ctx context.Context, sess *Session) error {
	data, err := msgpack.Marshal(sess)
	if err != nil {
		return fmt.Errorf("store: encode session %s: %w", sess.ID, err)
	}
	if err := s.kv.Set(ctx, sessionKey(sess.ID), data); err != nil {
		return fmt.Errorf("store: put session %s: %w", sess.ID, err)
	}
	return nil
}

// EndSession marks a session ended and returns the updated record. Ending
// an already-ended session is a no-op.
func (s *Store) EndSession(ctx context.Context, id string) (*Session, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Ended() {
		return sess, nil
	}
	sess.EndedAt = nowNano()
	sess.ActiveAgent = ""
	if err := s.PutSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
