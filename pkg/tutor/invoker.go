package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/speech"
)

// Invoker runs one specialist and resolves any handoff chain. Streaming
// replies feed completed sentences to onSentence through the speech
// segmenter while generation is still running.
type Invoker struct {
	registry *agents.Registry
	maxHops  int
	maxRunes int
}

const defaultMaxHops = 3

func NewInvoker(reg *agents.Registry) *Invoker {
	return &Invoker{
		registry: reg,
		maxHops:  defaultMaxHops,
		maxRunes: speech.DefaultMaxSentenceRunes,
	}
}

// Invoke runs the named specialist. The returned bool reports whether the
// response text already went through onSentence (a streamed reply that
// survived as the final response); callers synthesize from scratch
// otherwise.
func (inv *Invoker) Invoke(ctx context.Context, name, msg string, actx *agents.Context, onSentence func(string)) (*agents.Response, bool, error) {
	a, ok := inv.registry.Get(name)
	if !ok {
		return nil, false, fmt.Errorf("tutor: unknown agent %q", name)
	}
	resp, streamed, err := inv.invokeOne(ctx, a, msg, actx, onSentence)
	if err != nil {
		return nil, false, err
	}
	if !resp.WantsHandoff() {
		return resp, streamed, nil
	}
	final := inv.resolveHandoff(ctx, a.Name(), resp, msg, actx)
	return final, streamed && final == resp, nil
}

// invokeOne prefers streaming and falls back to exactly one non-streaming
// attempt when the stream fails.
func (inv *Invoker) invokeOne(ctx context.Context, a agents.Agent, msg string, actx *agents.Context, onSentence func(string)) (*agents.Response, bool, error) {
	if a.SupportsStreaming() && onSentence != nil {
		resp, err := inv.stream(ctx, a, msg, actx, onSentence)
		if err == nil {
			return resp, true, nil
		}
		if ctx.Err() != nil {
			return nil, false, err
		}
		slog.Warn("tutor: stream failed, retrying non-streaming", "agent", a.Name(), "err", err)
	}
	resp, err := a.Invoke(ctx, msg, actx)
	if err != nil {
		return nil, false, err
	}
	return resp, false, nil
}

func (inv *Invoker) stream(ctx context.Context, a agents.Agent, msg string, actx *agents.Context, onSentence func(string)) (*agents.Response, error) {
	seg := speech.NewSentenceStream(inv.maxRunes)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			s, err := seg.Next()
			if err != nil {
				return
			}
			onSentence(s)
		}
	}()

	resp, err := a.InvokeStream(ctx, msg, actx, func(delta string) {
		seg.WriteString(delta)
	})
	if err != nil {
		seg.Close()
		<-drained
		return nil, err
	}
	seg.Finish()
	<-drained
	return resp, nil
}

// resolveHandoff follows the chain non-streaming. The first non-empty
// handoff message wins; the chain stops on the hop bound, a revisit, an
// unknown target, or an invocation error, always keeping the last good
// response.
func (inv *Invoker) resolveHandoff(ctx context.Context, firstAgent string, first *agents.Response, msg string, actx *agents.Context) *agents.Response {
	resp := first
	visited := map[string]bool{firstAgent: true}
	var relay string

	for hop := 0; resp.WantsHandoff(); hop++ {
		if relay == "" {
			relay = resp.HandoffMessage
		}
		if hop >= inv.maxHops {
			slog.Warn("tutor: handoff chain truncated", "hops", hop, "target", resp.HandoffTarget)
			break
		}
		target := resp.HandoffTarget
		if visited[target] {
			slog.Warn("tutor: handoff revisits agent, stopping", "agent", target)
			break
		}
		a, ok := inv.registry.Get(target)
		if !ok {
			slog.Warn("tutor: handoff to unknown agent", "agent", target)
			break
		}
		visited[target] = true
		next, err := a.Invoke(ctx, msg, handoffContext(actx, resp))
		if err != nil {
			slog.Warn("tutor: handoff invocation failed", "agent", target, "err", err)
			break
		}
		resp = next
	}
	resp.HandoffMessage = relay
	return resp
}

// handoffContext hands the target a note about why it is being pulled in.
// The pending correction stays with the first responder only.
func handoffContext(actx *agents.Context, from *agents.Response) *agents.Context {
	cp := *actx
	note := fmt.Sprintf("You are taking over from %s.", from.AgentName)
	if from.HandoffMessage != "" {
		note += " Their note to the student: " + from.HandoffMessage
	}
	cp.Directives = append(slices.Clip(actx.Directives), note)
	cp.Correction = nil
	return &cp
}
