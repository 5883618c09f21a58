// Package tutor orchestrates one student turn end to end: load session
// state, route to a specialist, stream its reply, synthesize speech,
// verify the answer, persist what happened.
//
// Event contract per turn: one text event first, then audio events in
// strict index order, then exactly one done or error event.
package tutor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edvora/minerva/pkg/agents"
	"github.com/edvora/minerva/pkg/llm"
	"github.com/edvora/minerva/pkg/mastery"
	"github.com/edvora/minerva/pkg/speech"
	"github.com/edvora/minerva/pkg/store"
)

// defaultVoice speaks for agents with no voice of their own.
const defaultVoice = "minimax/Wise_Woman"

// Engine runs turns. One engine serves all sessions.
type Engine struct {
	store    *store.Store
	registry *agents.Registry
	recorder *mastery.Recorder
	gen      llm.Generator
	tts      speech.Synthesizer

	loader      *Loader
	directives  *DirectiveBuilder
	router      *Router
	invoker     *Invoker
	validator   *Validator
	corrections *Corrections
	background  *Background
	archiver    *Archiver

	rules          []Rule
	files          FileStore
	routerModel    string
	validatorModel string
	synthWorkers   int
}

// EngineOption configures NewEngine.
type EngineOption func(*Engine)

// WithGenerator overrides the default completion mux.
func WithGenerator(gen llm.Generator) EngineOption {
	return func(e *Engine) { e.gen = gen }
}

// WithTTS overrides the default synthesis mux.
func WithTTS(tts speech.Synthesizer) EngineOption {
	return func(e *Engine) { e.tts = tts }
}

// WithRecorder shares a mastery recorder with other components.
func WithRecorder(r *mastery.Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithRules replaces the built-in adaptation rules.
func WithRules(rules []Rule) EngineOption {
	return func(e *Engine) { e.rules = rules }
}

// WithRouterModel overrides the routing model.
func WithRouterModel(model string) EngineOption {
	return func(e *Engine) { e.routerModel = model }
}

// WithValidatorModel overrides the verification model.
func WithValidatorModel(model string) EngineOption {
	return func(e *Engine) { e.validatorModel = model }
}

// WithBackground shares a background runner with the caller.
func WithBackground(b *Background) EngineOption {
	return func(e *Engine) { e.background = b }
}

// WithArchive turns on audio and transcript archival.
func WithArchive(files FileStore) EngineOption {
	return func(e *Engine) { e.files = files }
}

// WithSynthesisWorkers bounds concurrent synthesis calls per turn.
func WithSynthesisWorkers(n int) EngineOption {
	return func(e *Engine) { e.synthWorkers = n }
}

// NewEngine wires an engine over a store and a specialist registry.
func NewEngine(st *store.Store, reg *agents.Registry, opts ...EngineOption) *Engine {
	e := &Engine{store: st, registry: reg}
	for _, opt := range opts {
		opt(e)
	}
	if e.recorder == nil {
		e.recorder = mastery.NewRecorder(st)
	}
	if e.gen == nil {
		e.gen = llm.DefaultMux
	}
	if e.tts == nil {
		e.tts = speech.TTSMux
	}
	if e.background == nil {
		e.background = NewBackground(0, 0)
	}
	e.loader = NewLoader(st, e.recorder)
	e.directives = NewDirectiveBuilder(e.rules)
	e.router = NewRouter(reg, e.gen, e.routerModel)
	e.invoker = NewInvoker(reg)
	e.validator = NewValidator(e.gen, e.validatorModel)
	e.corrections = NewCorrections(st)
	e.archiver = NewArchiver(e.files, e.background)
	return e
}

// Close drains queued background work and stops the workers.
func (e *Engine) Close() {
	e.background.Close()
	e.background.Wait()
}

// ProcessTurn runs one turn and emits its events on sink. The stream always
// ends with a done or error event; failures that leave the turn useless
// become error events rather than a returned error.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest, sink EventSink) {
	if err := req.Validate(); err != nil {
		sink(errorEvent(err.Error()))
		return
	}
	tctx, err := e.loader.Load(ctx, req)
	if err != nil {
		slog.Warn("tutor: turn context load failed", "session", req.SessionID, "err", err)
		sink(errorEvent("session not found"))
		return
	}

	turnID := uuid.NewString()
	started := time.Now()

	actx := &agents.Context{
		Session:    tctx.Session,
		Profile:    tctx.Profile,
		Lesson:     tctx.Lesson,
		Mastery:    tctx.Mastery,
		Directives: e.directives.Build(tctx, req.UserMessage),
		Correction: tctx.Correction,
		Audio:      req.Audio.blob(),
		Media:      req.Media.blob(),
	}

	decision, err := e.router.Route(ctx, req.UserMessage, tctx)
	if err != nil {
		sink(errorEvent(err.Error()))
		return
	}

	var (
		resp     *agents.Response
		streamed bool
		direct   bool
		pipeline *Pipeline
	)
	switch {
	case decision.DirectResponse != "":
		resp = e.directResponse(decision.DirectResponse)
		direct = true
	case req.UserMessage == LessonStart && tctx.Lesson != nil && tctx.Lesson.OpeningMessage != "":
		resp = &agents.Response{
			AgentName:   decision.TargetAgent,
			DisplayText: tctx.Lesson.OpeningMessage,
			AudioText:   tctx.Lesson.OpeningMessage,
		}
		direct = true
	default:
		msg := req.UserMessage
		if msg == LessonStart {
			msg = "Please greet me and start today's lesson."
		}
		pipeline = NewPipeline(ctx, e.tts, e.agentVoice(decision.TargetAgent), e.synthWorkers)
		defer pipeline.Close()
		resp, streamed, err = e.invoker.Invoke(ctx, decision.TargetAgent, msg, actx, pipeline.Submit)
		if err != nil {
			slog.Warn("tutor: specialist invocation failed", "agent", decision.TargetAgent, "err", err)
			pipeline.Abandon()
			sink(errorEvent("the tutor could not answer; please try again"))
			return
		}
	}

	sink(textEvent(resp))

	e.submitValidation(req, tctx, resp, direct)

	var clips []TurnAudio
	if streamed {
		pipeline.Flush(sink)
		clips = pipeline.Clips()
	} else {
		if pipeline != nil {
			// The stream did not survive as the final response; its
			// units no longer match what the student will read.
			pipeline.Abandon()
		}
		if resp.AudioText != "" {
			p := NewPipeline(ctx, e.tts, e.agentVoice(resp.AgentName), e.synthWorkers)
			defer p.Close()
			p.SynthesizeAll(speech.Sentences(resp.AudioText, 0), sink)
			clips = p.Clips()
		}
	}

	sink(doneEvent())

	e.finishTurn(ctx, req, tctx, resp, direct, turnID, started, clips)
}

// submitValidation queues the post-delivery check. Direct replies and
// exempt roles skip it.
func (e *Engine) submitValidation(req TurnRequest, tctx *TurnContext, resp *agents.Response, direct bool) {
	if direct {
		return
	}
	if a, ok := e.registry.Get(resp.AgentName); ok && Exempt(a.Role()) {
		return
	}
	lesson := tctx.Lesson
	sessionID := req.SessionID
	userMsg := userText(req)
	e.background.Submit("validate", func(ctx context.Context) error {
		v, err := e.validator.Check(ctx, lesson, userMsg, resp)
		if err != nil {
			return err
		}
		e.corrections.Record(ctx, sessionID, resp, v)
		return nil
	})
}

// finishTurn persists the turn after the stream has terminated. Evidence
// lands synchronously so the next turn's mastery context sees it; the
// interaction log and archive go through the background runner.
func (e *Engine) finishTurn(ctx context.Context, req TurnRequest, tctx *TurnContext, resp *agents.Response, direct bool, turnID string, started time.Time, clips []TurnAudio) {
	ctx = context.WithoutCancel(ctx)

	sess := tctx.Session
	sess.AppendExchange(store.Exchange{
		UserMessage: userText(req),
		AgentName:   resp.AgentName,
		Reply:       resp.DisplayText,
	})
	if _, ok := e.registry.Get(resp.AgentName); ok {
		sess.ActiveAgent = resp.AgentName
	}
	if err := e.store.PutSession(ctx, sess); err != nil {
		slog.Warn("tutor: session save failed", "session", sess.ID, "err", err)
	}

	if !direct {
		e.corrections.Delivered(ctx, tctx.Correction)
	}

	lessonID := sess.LessonID
	if lessonID == "" {
		lessonID = req.LessonID
	}
	for _, ev := range resp.Evidence {
		if err := e.recorder.Record(ctx, req.UserID, lessonID, ev); err != nil {
			slog.Warn("tutor: evidence record failed", "user", req.UserID, "err", err)
		}
	}

	latency := time.Since(started)
	e.background.Submit("interaction-log", func(ctx context.Context) error {
		return e.store.AppendInteraction(ctx, &store.Interaction{
			SessionID:   req.SessionID,
			UserMessage: userText(req),
			AgentName:   resp.AgentName,
			Reply:       resp.DisplayText,
			Latency:     latency,
		})
	})

	e.archiver.Archive(req.SessionID, turnID, clips)
}

// directResponse wraps a router-supplied reply as the coordinator.
func (e *Engine) directResponse(text string) *agents.Response {
	name := "minerva"
	if a, ok := e.registry.ByRole(agents.RoleCoordinator); ok {
		name = a.Name()
	}
	return &agents.Response{AgentName: name, DisplayText: text, AudioText: text}
}

// agentVoice resolves the synthesis voice for an agent name.
func (e *Engine) agentVoice(name string) string {
	if a, ok := e.registry.Get(name); ok && a.Voice() != "" {
		return a.Voice()
	}
	return defaultVoice
}

// userText is the loggable form of the student's input.
func userText(req TurnRequest) string {
	switch {
	case req.UserMessage == LessonStart:
		return "(lesson started)"
	case req.UserMessage == "":
		return "(spoke an audio message)"
	default:
		return req.UserMessage
	}
}
