package llm

import (
	"iter"
	"slices"
)

// RequestBuilder assembles a Request. The zero value is ready to use.
// Consecutive prompts with the same name and consecutive content messages
// with the same role and name are merged, so callers can append freely.
type RequestBuilder struct {
	prompts  []*Prompt
	messages []*Message
	tools    []Tool
	params   *Params
}

// AddPrompt appends a system prompt block. Same-name blocks added back to
// back collapse into one, joined by a newline.
func (b *RequestBuilder) AddPrompt(p *Prompt) *RequestBuilder {
	if n := len(b.prompts); n > 0 && b.prompts[n-1].Name == p.Name {
		b.prompts[n-1].Text += "\n" + p.Text
		return b
	}
	b.prompts = append(b.prompts, &Prompt{Name: p.Name, Text: p.Text})
	return b
}

// PromptText appends a named system prompt.
func (b *RequestBuilder) PromptText(name, text string) *RequestBuilder {
	return b.AddPrompt(&Prompt{Name: name, Text: text})
}

// AddMessage appends a conversation entry. Content payloads merge into the
// previous message when role and name match.
func (b *RequestBuilder) AddMessage(m *Message) *RequestBuilder {
	c, ok := m.Payload.(Contents)
	if !ok {
		b.messages = append(b.messages, m)
		return b
	}
	if n := len(b.messages); n > 0 {
		last := b.messages[n-1]
		if lc, ok := last.Payload.(Contents); ok && last.Role == m.Role && last.Name == m.Name {
			last.Payload = append(slices.Clone(lc), c...)
			return b
		}
	}
	b.messages = append(b.messages, &Message{Role: m.Role, Name: m.Name, Payload: slices.Clone(c)})
	return b
}

// UserText appends a user text message.
func (b *RequestBuilder) UserText(name, text string) *RequestBuilder {
	return b.AddMessage(&Message{Role: RoleUser, Name: name, Payload: Contents{Text(text)}})
}

// UserBlob appends user binary content, typically an audio clip.
func (b *RequestBuilder) UserBlob(name, mimeType string, data []byte) *RequestBuilder {
	return b.AddMessage(&Message{Role: RoleUser, Name: name, Payload: Contents{&Blob{MIMEType: mimeType, Data: data}}})
}

// ModelText appends a model text message.
func (b *RequestBuilder) ModelText(name, text string) *RequestBuilder {
	return b.AddMessage(&Message{Role: RoleModel, Name: name, Payload: Contents{Text(text)}})
}

// AddTool offers a tool to the model.
func (b *RequestBuilder) AddTool(t Tool) *RequestBuilder {
	b.tools = append(b.tools, t)
	return b
}

// SetParams sets sampling parameters.
func (b *RequestBuilder) SetParams(p *Params) *RequestBuilder {
	b.params = p
	return b
}

// Build returns the assembled Request. The builder can keep being used; the
// result observes later additions.
func (b *RequestBuilder) Build() Request {
	return (*builtRequest)(b)
}

type builtRequest RequestBuilder

func (r *builtRequest) Prompts() iter.Seq[*Prompt] {
	return func(yield func(*Prompt) bool) {
		for _, p := range r.prompts {
			if !yield(p) {
				return
			}
		}
	}
}

func (r *builtRequest) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for _, m := range r.messages {
			if !yield(m) {
				return
			}
		}
	}
}

func (r *builtRequest) Tools() iter.Seq[Tool] {
	return func(yield func(Tool) bool) {
		for _, t := range r.tools {
			if !yield(t) {
				return
			}
		}
	}
}

func (r *builtRequest) Params() *Params { return r.params }

// Merge concatenates several requests in order. Params come from the first
// request that set them.
func Merge(reqs ...Request) Request { return multiRequest(reqs) }

type multiRequest []Request

func (m multiRequest) Prompts() iter.Seq[*Prompt] {
	return func(yield func(*Prompt) bool) {
		for _, r := range m {
			for p := range r.Prompts() {
				if !yield(p) {
					return
				}
			}
		}
	}
}

func (m multiRequest) Messages() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for _, r := range m {
			for msg := range r.Messages() {
				if !yield(msg) {
					return
				}
			}
		}
	}
}

func (m multiRequest) Tools() iter.Seq[Tool] {
	return func(yield func(Tool) bool) {
		for _, r := range m {
			for t := range r.Tools() {
				if !yield(t) {
					return
				}
			}
		}
	}
}

func (m multiRequest) Params() *Params {
	for _, r := range m {
		if p := r.Params(); p != nil {
			return p
		}
	}
	return nil
}
