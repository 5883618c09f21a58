package llm

import (
	"context"
	"fmt"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// MessageChunk is one increment of a streamed response. Exactly one of Part
// or ToolCall is set.
type MessageChunk struct {
	Role     Role
	Name     string
	Part     Part
	ToolCall *ToolCall
}

// Message is one complete conversation entry.
type Message struct {
	Role    Role
	Name    string
	Payload Payload
}

// Payload is the body of a Message: Contents, *ToolCall, or *ToolResult.
type Payload interface {
	isPayload()
}

// Part is one piece of message content: Text or *Blob.
type Part interface {
	isPart()
}

// Contents is an ordered sequence of parts.
type Contents []Part

func (Contents) isPayload() {}

// Text is plain text content.
type Text string

func (Text) isPart() {}

// Blob is binary content, typically audio.
type Blob struct {
	MIMEType string
	Data     []byte
}

func (*Blob) isPart() {}

// FuncCall is a model's request to call a function, arguments still in their
// raw JSON form.
type FuncCall struct {
	Name      string
	Arguments string

	tool *FuncTool
}

// Invoke runs the underlying tool with the call's arguments. For tools built
// by NewFuncTool without a custom handler this decodes the arguments into the
// tool's argument type and returns a pointer to it.
func (c *FuncCall) Invoke(ctx context.Context) (any, error) {
	if c.tool == nil {
		return nil, fmt.Errorf("llm: no tool bound for call %q", c.Name)
	}
	return c.tool.Invoke(ctx, c.Arguments)
}

// ToolCall pairs a FuncCall with the provider's call ID so the result can be
// matched back.
type ToolCall struct {
	ID string
	FuncCall
}

func (*ToolCall) isPayload() {}

// ToolResult is the tool's answer to a ToolCall.
type ToolResult struct {
	ID     string
	Result string
}

func (*ToolResult) isPayload() {}
