package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/genai"
)

var _ Generator = (*Gemini)(nil)

// Gemini is a Generator over the Google Gemini API. Invoke uses JSON
// response mode with a response schema instead of function calling.
type Gemini struct {
	Client *genai.Client `json:"-"`

	GenerateParams *Params `json:"generate_params,omitzero"`
	InvokeParams   *Params `json:"invoke_params,omitzero"`

	// Model must not carry the "models/" prefix.
	Model string `json:"model"`
}

func (g *Gemini) GenerateStream(ctx context.Context, _ string, req Request) (Stream, error) {
	cfg, contents, err := g.contentConfig(req, g.GenerateParams)
	if err != nil {
		return nil, err
	}
	sb := NewStreamBuilder(req, 32)
	go func() {
		if err := geminiPull(sb, g.Client.Models.GenerateContentStream(ctx, g.Model, contents, cfg)); err != nil {
			sb.Abort(err)
		}
	}()
	return sb.Stream(), nil
}

func (g *Gemini) Invoke(ctx context.Context, _ string, req Request, tool *FuncTool) (Usage, *FuncCall, error) {
	cfg, contents, err := g.contentConfig(req, g.InvokeParams)
	if err != nil {
		return Usage{}, nil, err
	}
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = geminiSchema(tool.Argument)
	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		if e, ok := err.(*apierror.APIError); ok {
			err = e.Unwrap()
		}
		return Usage{}, nil, err
	}
	usage := geminiUsage(resp.UsageMetadata)
	if len(resp.Candidates) == 0 {
		return usage, nil, errors.New("llm: gemini: no candidates")
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != genai.FinishReasonStop {
		if cand.FinishReason == genai.FinishReasonMaxTokens {
			return usage, nil, Truncated(usage)
		}
		return usage, nil, fmt.Errorf("llm: gemini: unexpected finish reason %q", cand.FinishReason)
	}
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return usage, tool.NewFuncCall(sb.String()), nil
}

func geminiPull(builder *StreamBuilder, seq iter.Seq2[*genai.GenerateContentResponse, error]) error {
	for chunk, err := range seq {
		if err != nil {
			return err
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		// Requests never ask for more than one candidate.
		sel := chunk.Candidates[0]

		var (
			text   strings.Builder
			blobs  = map[string]*bytes.Buffer{}
			chunks []*MessageChunk
		)
		for _, p := range sel.Content.Parts {
			switch {
			case p.Text != "":
				text.WriteString(p.Text)
			case p.InlineData != nil:
				b, ok := blobs[p.InlineData.MIMEType]
				if !ok {
					b = &bytes.Buffer{}
					blobs[p.InlineData.MIMEType] = b
				}
				b.Write(p.InlineData.Data)
			case p.FunctionCall != nil:
				args, _ := json.Marshal(p.FunctionCall.Args)
				id := p.FunctionCall.ID
				if id == "" {
					id = "call_" + hexString()
				}
				chunks = append(chunks, &MessageChunk{
					Role: RoleModel,
					ToolCall: &ToolCall{
						ID: id,
						FuncCall: FuncCall{
							Name:      p.FunctionCall.Name,
							Arguments: string(args),
						},
					},
				})
			default:
				return fmt.Errorf("llm: gemini: unexpected part %+v", p)
			}
		}
		if text.Len() > 0 {
			chunks = append(chunks, &MessageChunk{Role: RoleModel, Part: Text(text.String())})
		}
		for mime, blob := range blobs {
			chunks = append(chunks, &MessageChunk{Role: RoleModel, Part: &Blob{MIMEType: mime, Data: blob.Bytes()}})
		}
		if err := builder.Add(chunks...); err != nil {
			return err
		}

		switch sel.FinishReason {
		case genai.FinishReasonUnspecified, "":
			// keep pulling
		case genai.FinishReasonStop:
			builder.Done(geminiUsage(chunk.UsageMetadata))
			return nil
		case genai.FinishReasonMaxTokens:
			builder.Truncated(geminiUsage(chunk.UsageMetadata))
			return nil
		case genai.FinishReasonSafety:
			var cats []string
			for _, sr := range sel.SafetyRatings {
				if sr.Blocked {
					cats = append(cats, string(sr.Category))
				}
			}
			builder.Blocked(geminiUsage(chunk.UsageMetadata), "blocked by "+strings.Join(cats, ", "))
			return nil
		default:
			builder.Failed(
				geminiUsage(chunk.UsageMetadata),
				fmt.Errorf("llm: gemini: unexpected finish reason %q", sel.FinishReason),
			)
			return nil
		}
	}
	return errors.New("llm: gemini: stream ended without finish reason")
}

func (g *Gemini) contentConfig(req Request, p *Params) (*genai.GenerateContentConfig, []*genai.Content, error) {
	cfg := genai.GenerateContentConfig{
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdOff},
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdOff},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdOff},
		},
	}
	var prompts []*genai.Part
	for p := range req.Prompts() {
		prompts = append(prompts, genai.NewPartFromText(p.Text))
	}
	if len(prompts) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: prompts}
	}
	if rp := req.Params(); rp != nil {
		p = rp
	}
	if p != nil {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
		cfg.Temperature = &p.Temperature
		cfg.TopP = &p.TopP
		cfg.TopK = &p.TopK
	}

	var tools []*genai.Tool
	for t := range req.Tools() {
		ft, ok := t.(*FuncTool)
		if !ok {
			return nil, nil, fmt.Errorf("llm: gemini: unexpected tool type %T", t)
		}
		tools = append(tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        ft.Name,
					Description: ft.Description,
					Parameters:  geminiSchema(ft.Argument),
				},
			},
		})
	}
	if len(tools) > 0 {
		cfg.Tools = tools
	}

	var (
		contents []*genai.Content
		last     *genai.Content
	)
	for msg := range req.Messages() {
		c, err := geminiContent(last, msg)
		if err != nil {
			return nil, nil, err
		}
		if c != nil {
			contents = append(contents, c)
			last = c
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("llm: gemini: no contents")
	}
	return &cfg, contents, nil
}

// geminiContent converts one message. Parts of a message whose role matches
// last are folded into it, in which case nil is returned.
func geminiContent(last *genai.Content, msg *Message) (*genai.Content, error) {
	var (
		role  string
		parts []*genai.Part
	)
	switch t := msg.Payload.(type) {
	case Contents:
		switch msg.Role {
		case RoleUser:
			role = "user"
		case RoleModel:
			role = "model"
		default:
			return nil, fmt.Errorf("llm: gemini: content message role %q, want user or model", msg.Role)
		}
		for _, c := range t {
			switch v := c.(type) {
			case Text:
				parts = append(parts, genai.NewPartFromText(string(v)))
			case *Blob:
				parts = append(parts, genai.NewPartFromBytes(v.Data, v.MIMEType))
			}
		}
	case *ToolCall:
		role = "model"
		var args map[string]any
		if err := json.Unmarshal([]byte(t.FuncCall.Arguments), &args); err != nil {
			args = map[string]any{"text": t.FuncCall.Arguments}
		}
		parts = append(parts, genai.NewPartFromFunctionCall(t.ID, args))
	case *ToolResult:
		role = "user"
		var result map[string]any
		if err := json.Unmarshal([]byte(t.Result), &result); err != nil {
			result = map[string]any{"text": t.Result}
		}
		parts = append(parts, genai.NewPartFromFunctionResponse(t.ID, result))
	default:
		return nil, fmt.Errorf("llm: gemini: unexpected payload type %T", t)
	}
	if last == nil || last.Role != role {
		return &genai.Content{Role: role, Parts: parts}, nil
	}
	last.Parts = append(last.Parts, parts...)
	return nil, nil
}

func geminiSchema(schema *jsonschema.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}
	enums := make([]string, 0, len(schema.Enum))
	for _, v := range schema.Enum {
		enums = append(enums, fmt.Sprintf("%v", v))
	}
	gs := genai.Schema{
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        enums,
		Items:       geminiSchema(schema.Items),
		Required:    schema.Required,
	}
	if n := len(schema.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, prop := range schema.Properties {
			gs.Properties[k] = geminiSchema(prop)
		}
	}
	switch schema.Type {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return &gs
}

func geminiUsage(u *genai.GenerateContentResponseUsageMetadata) Usage {
	if u == nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:    int64(u.PromptTokenCount),
		CachedTokens:    int64(u.CachedContentTokenCount),
		GeneratedTokens: int64(u.CandidatesTokenCount),
	}
}
