package llm

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// FuncTool declares a function the model can call, with a JSON schema
// derived from a Go argument type. It doubles as the output contract for
// Generator.Invoke: the model is forced to produce arguments matching the
// schema.
type FuncTool struct {
	Name        string
	Description string

	// Argument is the JSON schema of the single argument object.
	Argument *jsonschema.Schema

	invoke func(ctx context.Context, args string) (any, error)
}

func (*FuncTool) isTool() {}

// FuncToolOption configures a FuncTool.
type FuncToolOption func(*FuncTool)

// WithInvoke installs a typed handler called with the decoded argument.
func WithInvoke[Arg any](f func(ctx context.Context, arg *Arg) (any, error)) FuncToolOption {
	return func(t *FuncTool) {
		t.invoke = func(ctx context.Context, args string) (any, error) {
			var arg Arg
			if err := Unmarshal([]byte(args), &arg); err != nil {
				return nil, fmt.Errorf("llm: tool %s: decode arguments: %w", t.Name, err)
			}
			return f(ctx, &arg)
		}
	}
}

// NewFuncTool builds a tool whose argument schema is inferred from Arg. The
// default handler decodes the arguments and returns *Arg.
func NewFuncTool[Arg any](name, description string, opts ...FuncToolOption) (*FuncTool, error) {
	schema, err := jsonschema.For[Arg](nil)
	if err != nil {
		return nil, fmt.Errorf("llm: tool %s: derive schema: %w", name, err)
	}
	t := &FuncTool{
		Name:        name,
		Description: description,
		Argument:    schema,
	}
	t.invoke = func(ctx context.Context, args string) (any, error) {
		var arg Arg
		if err := Unmarshal([]byte(args), &arg); err != nil {
			return nil, fmt.Errorf("llm: tool %s: decode arguments: %w", t.Name, err)
		}
		return &arg, nil
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MustNewFuncTool is NewFuncTool that panics on error, for tools declared at
// package init.
func MustNewFuncTool[Arg any](name, description string, opts ...FuncToolOption) *FuncTool {
	t, err := NewFuncTool[Arg](name, description, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Invoke runs the tool's handler with raw JSON arguments.
func (t *FuncTool) Invoke(ctx context.Context, args string) (any, error) {
	return t.invoke(ctx, args)
}

// NewFuncCall binds raw arguments to this tool.
func (t *FuncTool) NewFuncCall(args string) *FuncCall {
	return &FuncCall{Name: t.Name, Arguments: args, tool: t}
}
