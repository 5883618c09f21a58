// Package llm is minerva's model-access layer. A Generator produces either a
// token Stream (conversational teaching responses) or a single structured
// FuncCall (routing decisions, validation verdicts, non-streaming specialist
// responses). Providers register themselves on a Mux under model name
// patterns, so the rest of the system addresses models as plain strings like
// "openai/gpt-4o-mini" or "gemini/gemini-2.0-flash".
package llm

import (
	"context"
	"iter"
)

// Generator is implemented by each model provider.
type Generator interface {
	// GenerateStream starts a streaming completion for the request.
	GenerateStream(ctx context.Context, model string, req Request) (Stream, error)

	// Invoke runs a completion constrained to the tool's argument schema and
	// returns the resulting call. The model must fill the schema; free text
	// is an error.
	Invoke(ctx context.Context, model string, req Request, tool *FuncTool) (Usage, *FuncCall, error)
}

// Stream yields message chunks until a terminal *State error: ErrDone wrapped
// in a done State on success, or a truncated/blocked/error State otherwise.
type Stream interface {
	Next() (*MessageChunk, error)
	Close() error
	CloseWithError(error) error
}

// Request carries everything a completion needs: system prompts, the
// conversation, tools, and sampling parameters. Build one with
// RequestBuilder; combine several with Merge.
type Request interface {
	Prompts() iter.Seq[*Prompt]
	Messages() iter.Seq[*Message]
	Tools() iter.Seq[Tool]
	Params() *Params
}

// Prompt is one named system prompt block.
type Prompt struct {
	Name string
	Text string
}

// Params are sampling parameters. Zero values are left to provider defaults.
type Params struct {
	MaxTokens   int     `json:"max_tokens,omitzero"`
	Temperature float32 `json:"temperature,omitzero"`
	TopP        float32 `json:"top_p,omitzero"`
	TopK        float32 `json:"top_k,omitzero"`
}

// Tool is a capability offered to the model. FuncTool is the only
// implementation minerva uses.
type Tool interface {
	isTool()
}

// Usage reports token accounting for one completion.
type Usage struct {
	// PromptTokens is the effective prompt size, cached content included.
	PromptTokens int64

	// CachedTokens is the cached part of the prompt.
	CachedTokens int64

	// GeneratedTokens is the number of tokens generated.
	GeneratedTokens int64
}
