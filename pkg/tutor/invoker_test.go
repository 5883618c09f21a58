package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/store"
)

// scriptAgent plays back canned behavior and records what it saw.
type scriptAgent struct {
	name      string
	role      agents.Role
	voice     string
	streaming bool

	respond func(msg string, actx *agents.Context) (*agents.Response, error)
	stream  func(onDelta func(string)) (*agents.Response, error)

	mu       sync.Mutex
	invoked  int
	streamed int
	lastCtx  *agents.Context
}

func (a *scriptAgent) Name() string            { return a.name }
func (a *scriptAgent) Role() agents.Role       { return a.role }
func (a *scriptAgent) Voice() string           { return a.voice }
func (a *scriptAgent) SupportsStreaming() bool { return a.streaming }

func (a *scriptAgent) Invoke(ctx context.Context, msg string, actx *agents.Context) (*agents.Response, error) {
	a.mu.Lock()
	a.invoked++
	a.lastCtx = actx
	a.mu.Unlock()
	if a.respond == nil {
		return nil, errors.New("no respond script")
	}
	return a.respond(msg, actx)
}

func (a *scriptAgent) InvokeStream(ctx context.Context, msg string, actx *agents.Context, onDelta func(string)) (*agents.Response, error) {
	a.mu.Lock()
	a.streamed++
	a.lastCtx = actx
	a.mu.Unlock()
	if a.stream == nil {
		return nil, errors.New("no stream script")
	}
	return a.stream(onDelta)
}

func mustRegistry(t *testing.T, list ...agents.Agent) *agents.Registry {
	t.Helper()
	reg := agents.NewRegistry()
	for _, a := range list {
		if err := reg.Register(a); err != nil {
			t.Fatalf("Register(%s) error: %v", a.Name(), err)
		}
	}
	return reg
}

func plainResponse(name, text string) *agents.Response {
	return &agents.Response{AgentName: name, DisplayText: text, AudioText: text}
}

func TestInvokerStreams(t *testing.T) {
	const full = "Three times four is twelve. Try one yourself."
	ada := &scriptAgent{
		name: "ada", role: agents.RoleExplainer, streaming: true,
		stream: func(onDelta func(string)) (*agents.Response, error) {
			for _, d := range []string{"Three times four", " is twelve. ", "Try one yourself."} {
				onDelta(d)
			}
			return plainResponse("ada", full), nil
		},
	}
	inv := NewInvoker(mustRegistry(t, ada))

	var sentences []string
	resp, streamed, err := inv.Invoke(context.Background(), "ada", "what is 3 times 4?", &agents.Context{}, func(s string) {
		sentences = append(sentences, s)
	})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if !streamed {
		t.Error("streamed = false, want true")
	}
	if resp.DisplayText != full {
		t.Errorf("DisplayText = %q, want %q", resp.DisplayText, full)
	}
	want := []string{"Three times four is twelve.", " Try one yourself."}
	if len(sentences) != len(want) {
		t.Fatalf("got %d sentences %q, want %d", len(sentences), sentences, len(want))
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, sentences[i], want[i])
		}
	}
	if strings.Join(sentences, "") != full {
		t.Errorf("sentences lose text: %q", strings.Join(sentences, ""))
	}
}

func TestInvokerStreamFallback(t *testing.T) {
	ada := &scriptAgent{
		name: "ada", role: agents.RoleExplainer, streaming: true,
		stream: func(onDelta func(string)) (*agents.Response, error) {
			onDelta("Half a sent")
			return nil, errors.New("connection reset")
		},
		respond: func(msg string, actx *agents.Context) (*agents.Response, error) {
			return plainResponse("ada", "The full answer is twelve."), nil
		},
	}
	inv := NewInvoker(mustRegistry(t, ada))

	resp, streamed, err := inv.Invoke(context.Background(), "ada", "what is 3 times 4?", &agents.Context{}, func(string) {})
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if streamed {
		t.Error("streamed = true after fallback, want false")
	}
	if resp.DisplayText != "The full answer is twelve." {
		t.Errorf("DisplayText = %q, want the non-streaming reply", resp.DisplayText)
	}
	if ada.streamed != 1 || ada.invoked != 1 {
		t.Errorf("calls = %d streamed / %d invoked, want 1/1", ada.streamed, ada.invoked)
	}
}

func TestInvokerUnknownAgent(t *testing.T) {
	inv := NewInvoker(mustRegistry(t))
	_, _, err := inv.Invoke(context.Background(), "ghost", "hi", &agents.Context{}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown agent") {
		t.Fatalf("Invoke(ghost) error = %v, want unknown agent", err)
	}
}

func handoffResponse(name, target, message string) *agents.Response {
	r := plainResponse(name, name+" says hello.")
	r.HandoffTarget = target
	r.HandoffMessage = message
	return r
}

func TestInvokerHandoffChain(t *testing.T) {
	amy := &scriptAgent{name: "amy", role: agents.RoleCoordinator, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("amy", "ben", "Let me get the practice coach."), nil
	}}
	ben := &scriptAgent{name: "ben", role: agents.RolePractice, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("ben", "cleo", ""), nil
	}}
	cleo := &scriptAgent{name: "cleo", role: agents.RoleVisual, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("cleo", "dana", ""), nil
	}}
	dana := &scriptAgent{name: "dana", role: agents.RoleAssessor, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("dana", "ezra", ""), nil
	}}
	ezra := &scriptAgent{name: "ezra", role: agents.RoleMotivator, respond: func(string, *agents.Context) (*agents.Response, error) {
		return plainResponse("ezra", "never reached"), nil
	}}
	inv := NewInvoker(mustRegistry(t, amy, ben, cleo, dana, ezra))

	resp, streamed, err := inv.Invoke(context.Background(), "amy", "help", &agents.Context{}, nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if streamed {
		t.Error("streamed = true, want false")
	}
	// Three hops after the first responder, then the chain is cut.
	if resp.AgentName != "dana" {
		t.Errorf("final agent = %s, want dana", resp.AgentName)
	}
	if ezra.invoked != 0 {
		t.Errorf("ezra invoked %d times past the hop bound", ezra.invoked)
	}
	if resp.HandoffMessage != "Let me get the practice coach." {
		t.Errorf("HandoffMessage = %q, want the first relay kept", resp.HandoffMessage)
	}
	for _, a := range []*scriptAgent{ben, cleo, dana} {
		if a.invoked != 1 {
			t.Errorf("%s invoked %d times, want 1", a.name, a.invoked)
		}
	}
}

func TestInvokerHandoffRevisit(t *testing.T) {
	amy := &scriptAgent{name: "amy", role: agents.RoleCoordinator, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("amy", "ben", ""), nil
	}}
	ben := &scriptAgent{name: "ben", role: agents.RolePractice, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("ben", "amy", "Back to you."), nil
	}}
	inv := NewInvoker(mustRegistry(t, amy, ben))

	resp, _, err := inv.Invoke(context.Background(), "amy", "help", &agents.Context{}, nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if resp.AgentName != "ben" {
		t.Errorf("final agent = %s, want ben", resp.AgentName)
	}
	if amy.invoked != 1 {
		t.Errorf("amy invoked %d times, want 1", amy.invoked)
	}
	if resp.HandoffMessage != "Back to you." {
		t.Errorf("HandoffMessage = %q", resp.HandoffMessage)
	}
}

func TestInvokerHandoffUnknownTarget(t *testing.T) {
	amy := &scriptAgent{name: "amy", role: agents.RoleCoordinator, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("amy", "ghost", "Handing off."), nil
	}}
	inv := NewInvoker(mustRegistry(t, amy))

	resp, _, err := inv.Invoke(context.Background(), "amy", "help", &agents.Context{}, nil)
	if err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}
	if resp.AgentName != "amy" {
		t.Errorf("final agent = %s, want amy kept", resp.AgentName)
	}
}

func TestInvokerHandoffContext(t *testing.T) {
	amy := &scriptAgent{name: "amy", role: agents.RoleCoordinator, respond: func(string, *agents.Context) (*agents.Response, error) {
		return handoffResponse("amy", "ben", "The student needs practice."), nil
	}}
	ben := &scriptAgent{name: "ben", role: agents.RolePractice, respond: func(msg string, actx *agents.Context) (*agents.Response, error) {
		return plainResponse("ben", "Let's practice!"), nil
	}}
	inv := NewInvoker(mustRegistry(t, amy, ben))

	actx := &agents.Context{
		Directives: []string{"Mastery: no evidence yet."},
		Correction: &store.PendingCorrection{ID: "c1"},
	}
	if _, _, err := inv.Invoke(context.Background(), "amy", "help", actx, nil); err != nil {
		t.Fatalf("Invoke() error: %v", err)
	}

	got := ben.lastCtx
	if got == nil {
		t.Fatal("ben never saw a context")
	}
	if got.Correction != nil {
		t.Error("correction leaked to the handoff target")
	}
	want := "You are taking over from amy. Their note to the student: The student needs practice."
	if n := len(got.Directives); n == 0 || got.Directives[n-1] != want {
		t.Errorf("handoff directive = %q, want %q", got.Directives, want)
	}
	if len(actx.Directives) != 1 {
		t.Errorf("caller's directives mutated: %q", actx.Directives)
	}
	if actx.Correction == nil {
		t.Error("caller's correction cleared")
	}
}
