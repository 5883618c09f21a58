package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edvora/minerva/pkg/llm"
)

// respondTool is the structured-response contract for non-streaming turns.
var respondTool = llm.MustNewFuncTool[respondArgs]("respond",
	"Deliver the tutoring reply for this turn.")

type respondArgs struct {
	DisplayText    string        `json:"display_text"`
	AudioText      string        `json:"audio_text"`
	Diagram        string        `json:"diagram,omitempty"`
	Handoff        string        `json:"handoff,omitempty"`
	HandoffMessage string        `json:"handoff_message,omitempty"`
	LessonComplete bool          `json:"lesson_complete,omitempty"`
	Evidence       []evidenceArg `json:"evidence,omitempty"`
}

func (a *respondArgs) response(name string) *Response {
	resp := &Response{
		AgentName:      name,
		DisplayText:    a.DisplayText,
		AudioText:      a.AudioText,
		Diagram:        a.Diagram,
		HandoffTarget:  a.Handoff,
		HandoffMessage: a.HandoffMessage,
		LessonComplete: a.LessonComplete,
	}
	if resp.AudioText == "" {
		resp.AudioText = resp.DisplayText
	}
	for _, e := range a.Evidence {
		resp.Evidence = append(resp.Evidence, e.evidence())
	}
	return resp
}

// Specialist is the generic persona-driven agent. All six roles run on it;
// the persona decides prompt, model, voice and streaming mode.
type Specialist struct {
	p   Persona
	gen llm.Generator
}

var _ Agent = (*Specialist)(nil)

// NewSpecialist creates a specialist. A nil generator uses the package
// default mux.
func NewSpecialist(p Persona, gen llm.Generator) *Specialist {
	return &Specialist{p: p, gen: gen}
}

func (s *Specialist) Name() string { return s.p.Name }

func (s *Specialist) Role() Role { return s.p.Role }

// Voice returns the synthesis voice for this specialist's replies.
func (s *Specialist) Voice() string { return s.p.Voice }

func (s *Specialist) SupportsStreaming() bool { return s.p.streams() }

func (s *Specialist) generator() llm.Generator {
	if s.gen != nil {
		return s.gen
	}
	return llm.DefaultMux
}

func (s *Specialist) params() *llm.Params {
	if s.p.MaxTokens == 0 && s.p.Temperature == 0 {
		return nil
	}
	return &llm.Params{MaxTokens: s.p.MaxTokens, Temperature: s.p.Temperature}
}

// buildRequest assembles the model request: system prompt with context
// block, session history, attachments, then the user message.
func (s *Specialist) buildRequest(msg string, actx *Context, streaming bool) llm.Request {
	prompt := rolePrompts[s.p.Role]
	if len(s.p.Style) > 0 {
		prompt += "\n" + strings.Join(s.p.Style, "\n")
	}
	if cb := contextBlock(actx); cb != "" {
		prompt += "\n" + cb
	}
	if streaming {
		prompt += "\n\n" + streamInstructions
	} else {
		prompt += "\n\n" + invokeInstructions
	}

	b := &llm.RequestBuilder{}
	b.PromptText("", prompt)
	if actx != nil {
		if actx.Session != nil {
			for _, ex := range actx.Session.History {
				if ex.UserMessage != "" {
					b.UserText("", ex.UserMessage)
				}
				if ex.Reply != "" {
					b.ModelText(ex.AgentName, ex.Reply)
				}
			}
		}
		if actx.Audio != nil {
			b.UserBlob("", actx.Audio.MIMEType, actx.Audio.Data)
		}
		if actx.Media != nil {
			b.UserBlob("", actx.Media.MIMEType, actx.Media.Data)
		}
	}
	if msg != "" {
		b.UserText("", msg)
	}
	if p := s.params(); p != nil {
		b.SetParams(p)
	}
	return b.Build()
}

// Invoke answers with one structured response.
func (s *Specialist) Invoke(ctx context.Context, msg string, actx *Context) (*Response, error) {
	req := s.buildRequest(msg, actx, false)
	_, call, err := s.generator().Invoke(ctx, s.p.Model, req, respondTool)
	if err != nil {
		return nil, fmt.Errorf("agents: %s: invoke: %w", s.p.Name, err)
	}
	v, err := call.Invoke(ctx)
	if err != nil {
		return nil, fmt.Errorf("agents: %s: decode reply: %w", s.p.Name, err)
	}
	args, ok := v.(*respondArgs)
	if !ok {
		return nil, fmt.Errorf("agents: %s: unexpected tool result %T", s.p.Name, v)
	}
	return args.response(s.p.Name), nil
}

// InvokeStream answers while feeding spoken-text deltas to onDelta. The
// control trailer, if any, is consumed here and reflected on the Response.
func (s *Specialist) InvokeStream(ctx context.Context, msg string, actx *Context, onDelta func(string)) (*Response, error) {
	req := s.buildRequest(msg, actx, true)
	stream, err := s.generator().GenerateStream(ctx, s.p.Model, req)
	if err != nil {
		return nil, fmt.Errorf("agents: %s: stream: %w", s.p.Name, err)
	}
	defer stream.Close()

	var spoken strings.Builder
	sc := newTrailerScanner(func(text string) {
		spoken.WriteString(text)
		if onDelta != nil {
			onDelta(text)
		}
	})

loop:
	for {
		chunk, err := stream.Next()
		if err != nil {
			var state *llm.State
			if errors.As(err, &state) {
				switch state.Status() {
				case llm.StatusDone:
					break loop
				case llm.StatusTruncated:
					slog.Warn("agents: reply truncated", "name", s.p.Name)
					break loop
				}
			}
			return nil, fmt.Errorf("agents: %s: stream: %w", s.p.Name, err)
		}
		if t, ok := chunk.Part.(llm.Text); ok {
			sc.Write(string(t))
		}
	}
	sc.Close()

	text := strings.TrimSpace(spoken.String())
	resp := &Response{
		AgentName:   s.p.Name,
		DisplayText: text,
		AudioText:   text,
	}
	ctrl, hasCtrl := sc.Control()
	if hasCtrl {
		ctrl.apply(resp)
	}
	if text == "" && !hasCtrl {
		return nil, fmt.Errorf("agents: %s: empty reply", s.p.Name)
	}
	return resp, nil
}
