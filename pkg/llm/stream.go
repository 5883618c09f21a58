package llm

import (
	"log/slog"

	"github.com/edvora/minerva/pkg/buffer"
)

type streamEvent struct {
	chunk   *MessageChunk
	status  Status
	usage   Usage
	refusal string
	err     error
}

// StreamBuilder is the producer half of a Stream. A provider goroutine calls
// Add for each chunk and exactly one of Done, Truncated, Blocked, Failed or
// Abort; the consumer half is handed out once via Stream.
type StreamBuilder struct {
	queue *buffer.Queue[*streamEvent]
	tools map[string]*FuncTool
}

// NewStreamBuilder returns a builder whose stream buffers up to size chunks.
// Tools from the request are bound to incoming tool-call chunks by name.
func NewStreamBuilder(req Request, size int) *StreamBuilder {
	tools := make(map[string]*FuncTool)
	for t := range req.Tools() {
		if ft, ok := t.(*FuncTool); ok {
			tools[ft.Name] = ft
		}
	}
	return &StreamBuilder{
		queue: buffer.NewQueue[*streamEvent](size),
		tools: tools,
	}
}

// Add appends chunks to the stream. It blocks while the buffer is full and
// reports an error once the stream is closed.
func (b *StreamBuilder) Add(chunks ...*MessageChunk) error {
	for _, c := range chunks {
		if tc := c.ToolCall; tc != nil {
			if t, ok := b.tools[tc.Name]; ok {
				tc.tool = t
			} else {
				slog.Warn("llm: stream tool call not bound", "name", tc.Name)
			}
		}
		if err := b.queue.Add(&streamEvent{chunk: c}); err != nil {
			return err
		}
	}
	return nil
}

// Done ends the stream normally.
func (b *StreamBuilder) Done(usage Usage) {
	b.terminate(&streamEvent{status: StatusDone, usage: usage})
}

// Truncated ends the stream at the token limit.
func (b *StreamBuilder) Truncated(usage Usage) {
	b.terminate(&streamEvent{status: StatusTruncated, usage: usage})
}

// Blocked ends the stream with a content-filter refusal.
func (b *StreamBuilder) Blocked(usage Usage, refusal string) {
	b.terminate(&streamEvent{status: StatusBlocked, usage: usage, refusal: refusal})
}

// Failed ends the stream with a provider error, keeping any usage collected
// so far.
func (b *StreamBuilder) Failed(usage Usage, err error) {
	b.terminate(&streamEvent{status: StatusError, usage: usage, err: err})
}

func (b *StreamBuilder) terminate(evt *streamEvent) {
	if err := b.queue.Add(evt); err != nil {
		return
	}
	b.queue.CloseWrite()
}

// Abort tears the stream down without a terminal state, for failures before
// any response arrived.
func (b *StreamBuilder) Abort(err error) {
	b.queue.CloseWithError(err)
}

// Stream returns the consumer half.
func (b *StreamBuilder) Stream() Stream {
	return &builtStream{queue: b.queue}
}

type builtStream struct {
	queue *buffer.Queue[*streamEvent]
}

// Next returns the next chunk, or a terminal *State error once the stream
// ends. After the terminal error every call returns the same error.
func (s *builtStream) Next() (*MessageChunk, error) {
	evt, err := s.queue.Next()
	if err != nil {
		return nil, err
	}
	var state *State
	switch evt.status {
	case StatusOK:
		return evt.chunk, nil
	case StatusDone:
		state = Done(evt.usage)
	case StatusTruncated:
		state = Truncated(evt.usage)
	case StatusBlocked:
		state = Blocked(evt.usage, evt.refusal)
	default:
		state = Failed(evt.usage, evt.err)
	}
	s.queue.CloseWithError(state)
	return nil, state
}

func (s *builtStream) Close() error {
	s.queue.Close()
	return nil
}

func (s *builtStream) CloseWithError(err error) error {
	s.queue.CloseWithError(err)
	return nil
}
