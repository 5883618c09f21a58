package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/llm"
)

// RoutingDecision names the specialist for the turn, or carries a direct
// reply that bypasses specialist invocation entirely.
type RoutingDecision struct {
	TargetAgent    string
	Reason         string
	DirectResponse string
}

// Router picks the responding specialist. The session's active specialist
// wins unless the message signals a shift; otherwise a structured-output
// round trip decides. Inference failure degrades to a generic direct reply,
// never a failed turn.
type Router struct {
	registry *agents.Registry
	gen      llm.Generator
	model    string
}

const defaultRouterModel = "openai/gpt-4o-mini"

const genericReply = "Let's keep going with our lesson! Tell me what you'd like to do next."

func NewRouter(reg *agents.Registry, gen llm.Generator, model string) *Router {
	if model == "" {
		model = defaultRouterModel
	}
	return &Router{registry: reg, gen: gen, model: model}
}

type routeArgs struct {
	Agent  string `json:"agent,omitempty"`
	Reason string `json:"reason,omitempty"`
	Reply  string `json:"reply,omitempty"`
}

var routeTool = llm.MustNewFuncTool[routeArgs]("route",
	"Pick the specialist for this message, or answer a trivial message directly in reply.")

// topicShiftMarkers force a routing round trip instead of the fast path.
// They signal intent, not the final choice; the model may still keep the
// active specialist.
var topicShiftMarkers = []string{
	"something else", "different", "switch", "change", "instead",
	"draw", "show me", "picture", "diagram",
	"practice", "quiz", "test me", "try one",
	"explain", "why is", "why does", "how come",
	"done", "stop", "finished",
}

func (r *Router) Route(ctx context.Context, msg string, tctx *TurnContext) (RoutingDecision, error) {
	if r.registry == nil || r.registry.Len() == 0 {
		return RoutingDecision{}, errors.New("tutor: router needs a registry")
	}
	if msg == LessonStart {
		a, ok := r.registry.ByRole(agents.RoleCoordinator)
		if !ok {
			return RoutingDecision{}, errors.New("tutor: no coordinator registered")
		}
		return RoutingDecision{TargetAgent: a.Name(), Reason: "lesson start"}, nil
	}
	if active := tctx.Session.ActiveAgent; active != "" {
		if _, ok := r.registry.Get(active); ok && !topicShift(msg) {
			return RoutingDecision{TargetAgent: active, Reason: "continuing"}, nil
		}
	}
	return r.infer(ctx, msg, tctx), nil
}

func topicShift(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range topicShiftMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

func (r *Router) infer(ctx context.Context, msg string, tctx *TurnContext) RoutingDecision {
	b := &llm.RequestBuilder{}
	b.PromptText("", r.prompt(tctx))
	if tctx.Session != nil {
		hist := tctx.Session.History
		if n := len(hist); n > 3 {
			hist = hist[n-3:]
		}
		for _, ex := range hist {
			b.UserText("", ex.UserMessage)
			b.ModelText(ex.AgentName, ex.Reply)
		}
	}
	b.UserText("", msg)

	_, call, err := r.gen.Invoke(ctx, r.model, b.Build(), routeTool)
	if err != nil {
		slog.Warn("tutor: routing inference failed", "err", err)
		return RoutingDecision{DirectResponse: genericReply}
	}
	v, err := call.Invoke(ctx)
	if err != nil {
		slog.Warn("tutor: routing decode failed", "err", err)
		return RoutingDecision{DirectResponse: genericReply}
	}
	args, ok := v.(*routeArgs)
	if !ok {
		slog.Warn("tutor: routing returned unexpected type", "type", fmt.Sprintf("%T", v))
		return RoutingDecision{DirectResponse: genericReply}
	}

	if args.Agent == "" && args.Reply != "" {
		return RoutingDecision{Reason: args.Reason, DirectResponse: args.Reply}
	}
	if _, ok := r.registry.Get(args.Agent); !ok {
		slog.Warn("tutor: router picked unknown agent", "agent", args.Agent)
		if a, ok := r.registry.ByRole(agents.RoleCoordinator); ok {
			return RoutingDecision{TargetAgent: a.Name(), Reason: "fallback"}
		}
		return RoutingDecision{DirectResponse: genericReply}
	}
	return RoutingDecision{TargetAgent: args.Agent, Reason: args.Reason}
}

func (r *Router) prompt(tctx *TurnContext) string {
	var b strings.Builder
	b.WriteString("You route a student's message to one tutoring specialist.\nSpecialists:\n")
	for _, name := range r.registry.Names() {
		a, _ := r.registry.Get(name)
		fmt.Fprintf(&b, "- %s: %s\n", name, roleSummary(a.Role()))
	}
	if tctx.Lesson != nil {
		fmt.Fprintf(&b, "\nCurrent lesson: %s (%s).\n", tctx.Lesson.Title, tctx.Lesson.Subject)
	}
	b.WriteString("\nPick the best agent for the message. For a greeting or filler that needs no teaching, set reply to a short friendly answer instead.")
	return b.String()
}

func roleSummary(role agents.Role) string {
	switch role {
	case agents.RoleCoordinator:
		return "greets, frames the lesson, handles general questions"
	case agents.RoleExplainer:
		return "explains concepts step by step"
	case agents.RolePractice:
		return "poses practice problems and checks answers"
	case agents.RoleVisual:
		return "draws diagrams and visual layouts"
	case agents.RoleMotivator:
		return "encouragement and celebrations"
	case agents.RoleAssessor:
		return "checks understanding with questions"
	default:
		return string(role)
	}
}
