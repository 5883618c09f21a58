package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/packages/ssestream"
)

var _ Generator = (*OpenAI)(nil)

const (
	oaiFinishStop          = "stop"
	oaiFinishToolCalls     = "tool_calls"
	oaiFinishLength        = "length"
	oaiFinishFunctionCall  = "function_call"
	oaiFinishContentFilter = "content_filter"

	// Chat API rejects single text parts above 1 MiB.
	oaiMaxTextPart = 1048576
)

// SchemaFormatter rewrites a tool schema into the form a provider's
// structured-output mode accepts.
type SchemaFormatter func(*jsonschema.Schema) *jsonschema.Schema

// OpenAI is a Generator over the OpenAI chat completions API. It also serves
// OpenAI-compatible endpoints; the capability flags describe what the target
// model actually supports.
type OpenAI struct {
	Client *openai.Client `json:"-"`

	Model string `json:"model"`

	GenerateParams *Params `json:"generate_params,omitzero"`
	InvokeParams   *Params `json:"invoke_params,omitzero"`

	// SupportsJSON selects json_schema response format for Invoke;
	// SupportsTools selects function calling. At least one must be set for
	// Invoke to work.
	SupportsJSON  bool `json:"supports_json,omitzero"`
	SupportsTools bool `json:"supports_tools,omitzero"`

	// TextOnly rejects audio blobs instead of sending them.
	TextOnly bool `json:"text_only,omitzero"`

	// UseSystemRole sends prompts with the legacy system role instead of
	// developer, for compatible endpoints that predate it.
	UseSystemRole bool `json:"use_system_role,omitzero"`

	// NamedToolChoice forces the invoked tool by name rather than leaving
	// the choice to the model.
	NamedToolChoice bool `json:"named_tool_choice,omitzero"`

	ExtraFields map[string]any `json:"extra_fields,omitzero"`

	SchemaFormatter SchemaFormatter `json:"-"`
}

func (g *OpenAI) GenerateStream(ctx context.Context, _ string, req Request) (Stream, error) {
	params, err := g.completionParams(req, g.GenerateParams)
	if err != nil {
		return nil, err
	}
	sb := NewStreamBuilder(req, 32)
	go func() {
		if err := (&openaiPuller{}).pull(sb, g.Client.Chat.Completions.NewStreaming(ctx, params)); err != nil {
			sb.Abort(err)
		}
	}()
	return sb.Stream(), nil
}

func (g *OpenAI) Invoke(ctx context.Context, _ string, req Request, tool *FuncTool) (Usage, *FuncCall, error) {
	switch {
	case g.SupportsJSON:
		return g.invokeJSON(ctx, req, tool)
	case g.SupportsTools:
		return g.invokeTool(ctx, req, tool)
	default:
		return Usage{}, nil, errors.New("llm: openai: invoke needs json output or tool calls")
	}
}

func (g *OpenAI) invokeJSON(ctx context.Context, req Request, tool *FuncTool) (Usage, *FuncCall, error) {
	params, err := g.completionParams(req, g.InvokeParams)
	if err != nil {
		return Usage{}, nil, err
	}
	// Tools must not accompany a json_schema response format.
	params.Tools = nil
	params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        tool.Name,
				Description: param.NewOpt(tool.Description),
				Schema:      g.outputSchema(tool.Argument),
				Strict:      param.NewOpt(true),
			},
		},
	}
	resp, err := g.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Usage{}, nil, err
	}
	usage := openaiUsage(&resp.Usage)
	if len(resp.Choices) == 0 {
		return usage, nil, errors.New("llm: openai: no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return usage, nil, Blocked(usage, choice.Message.Refusal)
	}
	if choice.FinishReason != oaiFinishStop {
		return usage, nil, fmt.Errorf("llm: openai: want stop, got finish reason %q", choice.FinishReason)
	}
	if len(choice.Message.Content) == 0 {
		return usage, nil, errors.New("llm: openai: empty content")
	}
	return usage, tool.NewFuncCall(choice.Message.Content), nil
}

func (g *OpenAI) invokeTool(ctx context.Context, req Request, tool *FuncTool) (Usage, *FuncCall, error) {
	params, err := g.completionParams(req, g.InvokeParams)
	if err != nil {
		return Usage{}, nil, err
	}
	params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: param.NewOpt(tool.Description),
			Parameters:  g.funcSchema(tool.Argument),
			Strict:      param.NewOpt(true),
		},
	})
	if g.NamedToolChoice {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: tool.Name,
				},
			},
		}
	} else {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt("auto"),
		}
	}
	resp, err := g.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Usage{}, nil, err
	}
	usage := openaiUsage(&resp.Usage)
	if len(resp.Choices) == 0 {
		return usage, nil, errors.New("llm: openai: no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return usage, nil, Blocked(usage, choice.Message.Refusal)
	}
	if choice.FinishReason != oaiFinishToolCalls {
		return usage, nil, fmt.Errorf("llm: openai: want tool calls, got finish reason %q", choice.FinishReason)
	}
	if len(choice.Message.ToolCalls) == 0 {
		return usage, nil, errors.New("llm: openai: no tool calls")
	}
	return usage, tool.NewFuncCall(choice.Message.ToolCalls[0].Function.Arguments), nil
}

func (g *OpenAI) completionParams(req Request, p *Params) (openai.ChatCompletionNewParams, error) {
	msgs, err := g.toMessages(req)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    g.Model,
	}
	if rp := req.Params(); rp != nil {
		p = rp
	}
	if p != nil {
		if p.MaxTokens > 0 {
			params.MaxCompletionTokens = param.NewOpt(int64(p.MaxTokens))
		}
		if p.Temperature > 0 {
			params.Temperature = param.NewOpt(float64(p.Temperature))
		}
		if p.TopP > 0 {
			params.TopP = param.NewOpt(float64(p.TopP))
		}
	}
	if g.SupportsTools {
		for t := range req.Tools() {
			ft, ok := t.(*FuncTool)
			if !ok {
				return openai.ChatCompletionNewParams{}, fmt.Errorf("llm: openai: unexpected tool type %T", t)
			}
			params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        ft.Name,
					Description: param.NewOpt(ft.Description),
					Parameters:  g.funcSchema(ft.Argument),
				},
			})
		}
	}
	if len(g.ExtraFields) > 0 {
		params.SetExtraFields(g.ExtraFields)
	}
	return params, nil
}

type openaiPuller struct {
	runningTool *openai.ChatCompletionChunkChoiceDeltaToolCall
}

func (p *openaiPuller) commitTool(sb *StreamBuilder) error {
	if p.runningTool == nil {
		return nil
	}
	defer func() { p.runningTool = nil }()
	return sb.Add(&MessageChunk{
		Role: RoleModel,
		ToolCall: &ToolCall{
			ID: p.runningTool.ID,
			FuncCall: FuncCall{
				Name:      p.runningTool.Function.Name,
				Arguments: p.runningTool.Function.Arguments,
			},
		},
	})
}

func (p *openaiPuller) pull(sb *StreamBuilder, stream *ssestream.Stream[openai.ChatCompletionChunk]) error {
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		// Requests never set n, so the single choice is ours.
		sel := &chunk.Choices[0]
		if s := sel.Delta.Content; s != "" {
			if err := sb.Add(&MessageChunk{Role: RoleModel, Part: Text(s)}); err != nil {
				return err
			}
		}
		for _, t := range sel.Delta.ToolCalls {
			switch {
			case p.runningTool == nil:
				if t.ID != "" {
					p.runningTool = &t
				}
			case t.ID == "" || t.ID == p.runningTool.ID:
				p.runningTool.Function.Name += t.Function.Name
				p.runningTool.Function.Arguments += t.Function.Arguments
			default:
				if err := p.commitTool(sb); err != nil {
					return err
				}
				p.runningTool = &t
			}
		}
		switch sel.FinishReason {
		case oaiFinishToolCalls, oaiFinishFunctionCall:
			if err := p.commitTool(sb); err != nil {
				return err
			}
			sb.Done(openaiUsage(&chunk.Usage))
			return nil
		case oaiFinishStop:
			sb.Done(openaiUsage(&chunk.Usage))
			return nil
		case oaiFinishLength:
			sb.Truncated(openaiUsage(&chunk.Usage))
			return nil
		case oaiFinishContentFilter:
			sb.Blocked(openaiUsage(&chunk.Usage), sel.Delta.Refusal)
			return nil
		}
		if s := sel.Delta.Refusal; s != "" {
			sb.Blocked(openaiUsage(&chunk.Usage), s)
			return nil
		}
	}
	return stream.Err()
}

func (g *OpenAI) toMessages(req Request) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := []openai.ChatCompletionMessageParamUnion{}
	for p := range req.Prompts() {
		out = append(out, g.toPromptMessages(p)...)
	}
	for msg := range req.Messages() {
		m, err := g.toMessage(msg)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (g *OpenAI) toPromptMessages(p *Prompt) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(p.Text)/oaiMaxTextPart+1)
	t := p.Text
	for len(t) > 0 {
		v := t
		if len(v) > oaiMaxTextPart {
			v, t = t[:oaiMaxTextPart], t[oaiMaxTextPart:]
		} else {
			t = ""
		}
		if g.UseSystemRole {
			mp := openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: param.NewOpt(v),
					},
				},
			}
			if p.Name != "" {
				mp.OfSystem.Name = param.NewOpt(p.Name)
			}
			out = append(out, mp)
		} else {
			mp := openai.ChatCompletionMessageParamUnion{
				OfDeveloper: &openai.ChatCompletionDeveloperMessageParam{
					Content: openai.ChatCompletionDeveloperMessageParamContentUnion{
						OfString: param.NewOpt(v),
					},
				},
			}
			if p.Name != "" {
				mp.OfDeveloper.Name = param.NewOpt(p.Name)
			}
			out = append(out, mp)
		}
	}
	return out
}

func (g *OpenAI) toMessage(msg *Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch t := msg.Payload.(type) {
	case Contents:
		switch msg.Role {
		case RoleUser:
			return g.toUserMessage(msg)
		case RoleModel:
			return g.toModelMessage(msg)
		default:
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("llm: openai: content message role %q, want user or model", msg.Role)
		}
	case *ToolCall:
		mp := openai.ChatCompletionMessageParamUnion{
			OfAssistant: &openai.ChatCompletionAssistantMessageParam{
				ToolCalls: []openai.ChatCompletionMessageToolCallParam{
					{
						ID: t.ID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      t.FuncCall.Name,
							Arguments: t.FuncCall.Arguments,
						},
					},
				},
			},
		}
		if msg.Name != "" {
			mp.OfAssistant.Name = param.NewOpt(msg.Name)
		}
		return mp, nil
	case *ToolResult:
		return openai.ToolMessage(t.Result, t.ID), nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("llm: openai: unexpected payload type %T", t)
	}
}

func (g *OpenAI) toModelMessage(msg *Message) (openai.ChatCompletionMessageParamUnion, error) {
	var text bytes.Buffer
	for _, c := range msg.Payload.(Contents) {
		switch v := c.(type) {
		case Text:
			text.WriteString(string(v))
		case *Blob:
			return openai.ChatCompletionMessageParamUnion{}, errors.New("llm: openai: model message must be text only")
		}
	}
	if text.Len() == 0 {
		return openai.ChatCompletionMessageParamUnion{}, errors.New("llm: openai: empty model message")
	}
	mp := openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			Content: openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: param.NewOpt(text.String()),
			},
		},
	}
	if msg.Name != "" {
		mp.OfAssistant.Name = param.NewOpt(msg.Name)
	}
	return mp, nil
}

func (g *OpenAI) toUserMessage(msg *Message) (openai.ChatCompletionMessageParamUnion, error) {
	var mp3, wav, text bytes.Buffer
	for _, c := range msg.Payload.(Contents) {
		switch v := c.(type) {
		case Text:
			text.WriteString(string(v))
		case *Blob:
			if g.TextOnly {
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("llm: openai: model %s accepts text only", g.Model)
			}
			switch v.MIMEType {
			case "audio/mp3", "audio/mpeg":
				mp3.Write(v.Data)
			case "audio/wav":
				wav.Write(v.Data)
			default:
				return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("llm: openai: unsupported blob type %s", v.MIMEType)
			}
		}
	}

	var parts []openai.ChatCompletionContentPartUnionParam
	switch {
	case g.TextOnly, mp3.Len() == 0 && wav.Len() == 0:
		if text.Len() == 0 {
			return openai.ChatCompletionMessageParamUnion{}, errors.New("llm: openai: empty user message")
		}
		mp := openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: param.NewOpt(text.String()),
			},
		}
		if msg.Name != "" {
			mp.Name = param.NewOpt(msg.Name)
		}
		return openai.ChatCompletionMessageParamUnion{OfUser: &mp}, nil
	case text.Len() > 0:
		parts = append(parts, openai.TextContentPart(text.String()))
	}

	if mp3.Len() > 0 {
		parts = append(parts, openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
			Data:   base64.StdEncoding.EncodeToString(mp3.Bytes()),
			Format: "mp3",
		}))
	}
	if wav.Len() > 0 {
		parts = append(parts, openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
			Data:   base64.StdEncoding.EncodeToString(wav.Bytes()),
			Format: "wav",
		}))
	}
	if len(parts) == 0 {
		return openai.ChatCompletionMessageParamUnion{}, errors.New("llm: openai: user message needs text or audio")
	}
	mp := openai.ChatCompletionUserMessageParam{
		Content: openai.ChatCompletionUserMessageParamContentUnion{
			OfArrayOfContentParts: parts,
		},
	}
	if msg.Name != "" {
		mp.Name = param.NewOpt(msg.Name)
	}
	return openai.ChatCompletionMessageParamUnion{OfUser: &mp}, nil
}

func (g *OpenAI) outputSchema(s *jsonschema.Schema) any {
	if s == nil {
		return nil
	}
	return any(g.patchSchema(s))
}

func (g *OpenAI) funcSchema(s *jsonschema.Schema) openai.FunctionParameters {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(g.patchSchema(s))
	if err != nil {
		return nil
	}
	var m openai.FunctionParameters
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func (g *OpenAI) patchSchema(s *jsonschema.Schema) *jsonschema.Schema {
	c := s.CloneSchemas()
	if g.SchemaFormatter != nil {
		return g.SchemaFormatter(c)
	}
	return StrictSchema(c)
}

// StrictSchema rewrites a schema to satisfy OpenAI strict mode: every object
// closes additionalProperties, and every property becomes required with
// "null" added to the types of formerly optional ones.
//
// See https://platform.openai.com/docs/guides/structured-outputs
func StrictSchema(m *jsonschema.Schema) *jsonschema.Schema {
	if m == nil {
		return nil
	}

	// The schema library may set both Type and Types for nullable fields;
	// fold them together before dispatching.
	if m.Type != "" && len(m.Types) > 0 {
		m.Types = append(m.Types, m.Type)
		m.Type = ""
	}
	typ := m.Type
	if typ == "" {
		for _, t := range m.Types {
			if t != "null" && t != "" {
				typ = t
				break
			}
		}
	}

	switch typ {
	case "array":
		m.Items = StrictSchema(m.Items)
	case "object":
		m.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}

		required := make(map[string]struct{})
		for _, v := range m.Required {
			required[v] = struct{}{}
		}
		for k, v := range m.Properties {
			if _, ok := required[k]; !ok {
				required[k] = struct{}{}
				if !slices.Contains(v.Types, "null") {
					v.Types = append(v.Types, "null")
				}
			}
			m.Properties[k] = StrictSchema(v)
		}
		m.Required = slices.Collect(maps.Keys(required))
	}
	return m
}

func openaiUsage(u *openai.CompletionUsage) Usage {
	return Usage{
		PromptTokens:    u.PromptTokens,
		CachedTokens:    u.PromptTokensDetails.CachedTokens,
		GeneratedTokens: u.CompletionTokens,
	}
}
