// Package agents defines the closed set of tutoring specialists and the
// capability interface the orchestrator drives them through.
//
// A specialist answers one turn at a time. Streaming specialists speak
// plain text and may end with a control trailer line carrying handoff and
// progress signals; non-streaming specialists return one structured
// response. Either way the orchestrator sees the same [Response].
package agents

import (
	"context"

	"github.com/edvora/minerva/pkg/llm"
	"github.com/edvora/minerva/pkg/mastery"
	"github.com/edvora/minerva/pkg/store"
)

// Role identifies a specialist's teaching function. The set is closed:
// routing, handoff targets and personas all draw from these six.
type Role string

const (
	// RoleCoordinator opens lessons, keeps the session on track and owns
	// transitions between lesson sections.
	RoleCoordinator Role = "coordinator"

	// RoleExplainer teaches concepts.
	RoleExplainer Role = "explainer"

	// RolePractice poses exercises and checks answers.
	RolePractice Role = "practice"

	// RoleVisual produces diagrams for visual explanations.
	RoleVisual Role = "visual"

	// RoleMotivator encourages a frustrated or bored student.
	RoleMotivator Role = "motivator"

	// RoleAssessor evaluates understanding and signals lesson completion.
	RoleAssessor Role = "assessor"
)

// Roles lists every specialist role.
var Roles = []Role{
	RoleCoordinator,
	RoleExplainer,
	RolePractice,
	RoleVisual,
	RoleMotivator,
	RoleAssessor,
}

// Valid reports whether r is one of the closed set.
func (r Role) Valid() bool {
	for _, k := range Roles {
		if r == k {
			return true
		}
	}
	return false
}

// Response is one specialist's answer for a turn.
type Response struct {
	// AgentName is the responding specialist.
	AgentName string `json:"agent_name"`

	// DisplayText is the full reply shown to the student.
	DisplayText string `json:"display_text"`

	// AudioText is what gets spoken. Non-empty unless the turn is a pure
	// completion signal.
	AudioText string `json:"audio_text"`

	// Diagram is an optional mermaid payload.
	Diagram string `json:"diagram,omitempty"`

	// HandoffTarget names another specialist that should take over;
	// HandoffMessage explains the switch to the student.
	HandoffTarget  string `json:"handoff_target,omitempty"`
	HandoffMessage string `json:"handoff_message,omitempty"`

	// LessonComplete is set when the specialist judges the lesson done.
	LessonComplete bool `json:"lesson_complete,omitempty"`

	// Evidence holds mastery observations extracted from this turn.
	Evidence []store.Evidence `json:"evidence,omitempty"`
}

// WantsHandoff reports whether the response requests another specialist.
func (r *Response) WantsHandoff() bool {
	return r.HandoffTarget != ""
}

// Context carries everything a specialist sees beyond the message itself.
// All fields are optional; a specialist must cope with any of them missing.
type Context struct {
	Session *store.Session
	Profile *store.Profile
	Lesson  *store.Lesson
	Mastery *mastery.Report

	// Directives are compact adaptation instructions, mastery block first.
	Directives []string

	// Correction is this turn's pending correction, already selected
	// oldest-first by the loader.
	Correction *store.PendingCorrection

	// Audio is the student's spoken input when the turn arrived as audio.
	Audio *llm.Blob

	// Media is an optional image attachment (a photographed worksheet).
	Media *llm.Blob
}

// Agent is the capability interface every specialist implements.
type Agent interface {
	Name() string
	Role() Role

	// Voice names the synthesis voice for this agent's replies.
	Voice() string

	// SupportsStreaming reports whether InvokeStream is the preferred path.
	SupportsStreaming() bool

	// Invoke answers non-streaming.
	Invoke(ctx context.Context, msg string, actx *Context) (*Response, error)

	// InvokeStream answers while emitting spoken-text deltas through
	// onDelta as they are generated. Control trailers are never emitted.
	InvokeStream(ctx context.Context, msg string, actx *Context, onDelta func(string)) (*Response, error)
}
