package tutor

import (
	"errors"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/llm"
)

// LessonStart is the reserved user message that opens a session: the
// coordinator greets the student from the lesson's opening message instead
// of routing.
const LessonStart = "__lesson_start__"

// EventKind discriminates turn stream events.
type EventKind string

const (
	// EventText is the single text event of a turn. It precedes all audio.
	EventText EventKind = "text"
	// EventAudio carries one synthesized unit. Units arrive in index order.
	EventAudio EventKind = "audio"
	// EventDone terminates a successful turn, after the last audio event.
	EventDone EventKind = "done"
	// EventError terminates a failed turn.
	EventError EventKind = "error"
)

// Event is one frame of a turn stream.
type Event struct {
	Kind EventKind `json:"kind"`

	// Text fields.
	AgentName      string `json:"agent_name,omitempty"`
	DisplayText    string `json:"display_text,omitempty"`
	AudioText      string `json:"audio_text,omitempty"`
	Diagram        string `json:"diagram,omitempty"`
	HandoffMessage string `json:"handoff_message,omitempty"`
	LessonComplete bool   `json:"lesson_complete,omitempty"`

	// Audio fields. A nil payload means synthesis failed for that unit;
	// the unit still goes out carrying its source text.
	Index      int    `json:"index"`
	Payload    []byte `json:"payload,omitempty"`
	SourceText string `json:"source_text,omitempty"`

	// Error field.
	Message string `json:"message,omitempty"`
}

// EventSink delivers one event to the client. It reports false once the
// client is gone; writes after that are dropped silently.
type EventSink func(Event) bool

// InputBlob is binary turn input: recorded audio or an image.
type InputBlob struct {
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

func (b *InputBlob) blob() *llm.Blob {
	if b == nil || len(b.Data) == 0 {
		return nil
	}
	return &llm.Blob{MIMEType: b.MIMEType, Data: b.Data}
}

// TurnRequest is one student turn.
type TurnRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	LessonID  string `json:"lesson_id,omitempty"`

	// UserMessage is typed text, or LessonStart to open the session.
	UserMessage string     `json:"user_message,omitempty"`
	Audio       *InputBlob `json:"audio,omitempty"`
	Media       *InputBlob `json:"media,omitempty"`
}

// Validate checks the request before any side effect happens.
func (r *TurnRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("tutor: user id required")
	}
	if r.SessionID == "" {
		return errors.New("tutor: session id required")
	}
	if r.UserMessage == "" && (r.Audio == nil || len(r.Audio.Data) == 0) {
		return errors.New("tutor: empty turn: need a message or audio")
	}
	return nil
}

func textEvent(resp *agents.Response) Event {
	return Event{
		Kind:           EventText,
		AgentName:      resp.AgentName,
		DisplayText:    resp.DisplayText,
		AudioText:      resp.AudioText,
		Diagram:        resp.Diagram,
		HandoffMessage: resp.HandoffMessage,
		LessonComplete: resp.LessonComplete,
	}
}

func audioEvent(index int, payload []byte, text string) Event {
	return Event{Kind: EventAudio, Index: index, Payload: payload, SourceText: text}
}

func doneEvent() Event {
	return Event{Kind: EventDone}
}

func errorEvent(msg string) Event {
	return Event{Kind: EventError, Message: msg}
}
