package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	model string
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, model string, req Request) (Stream, error) {
	f.model = model
	sb := NewStreamBuilder(req, 1)
	sb.Done(Usage{})
	return sb.Stream(), nil
}

func (f *fakeGenerator) Invoke(ctx context.Context, model string, req Request, tool *FuncTool) (Usage, *FuncCall, error) {
	f.model = model
	return Usage{}, tool.NewFuncCall("{}"), nil
}

func TestMuxDispatch(t *testing.T) {
	mux := NewMux()
	exact := &fakeGenerator{}
	fallback := &fakeGenerator{}
	if err := mux.Handle("openai/gpt-4o-mini", exact); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := mux.Handle("openai/#", fallback); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var rb RequestBuilder
	rb.UserText("", "hi")
	req := rb.Build()

	if _, err := mux.GenerateStream(context.Background(), "openai/gpt-4o-mini", req); err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}
	if exact.model != "openai/gpt-4o-mini" {
		t.Errorf("exact generator got model %q", exact.model)
	}

	if _, err := mux.GenerateStream(context.Background(), "openai/gpt-4.1", req); err != nil {
		t.Fatalf("GenerateStream fallback: %v", err)
	}
	if fallback.model != "openai/gpt-4.1" {
		t.Errorf("fallback generator got model %q", fallback.model)
	}
}

func TestMuxUnknownModel(t *testing.T) {
	mux := NewMux()
	var rb RequestBuilder
	rb.UserText("", "hi")

	_, err := mux.GenerateStream(context.Background(), "acme/banana-9", rb.Build())
	if err == nil || !strings.Contains(err.Error(), "no generator") {
		t.Errorf("err = %v, want no-generator error", err)
	}
}

func TestMuxDuplicateRegistration(t *testing.T) {
	mux := NewMux()
	if err := mux.Handle("gemini/+", &fakeGenerator{}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := mux.Handle("gemini/+", &fakeGenerator{}); err == nil {
		t.Error("duplicate Handle should fail")
	}
}

func TestMuxBadPattern(t *testing.T) {
	mux := NewMux()
	err := mux.Handle("openai/#/extra", &fakeGenerator{})
	if err == nil {
		t.Fatal("want pattern error")
	}
	var state *State
	if errors.As(err, &state) {
		t.Error("pattern error must not be a stream state")
	}
}

func TestMuxInvoke(t *testing.T) {
	mux := NewMux()
	gen := &fakeGenerator{}
	if err := mux.Handle("openai/gpt-4o-mini", gen); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	var rb RequestBuilder
	rb.UserText("", "route this")
	tool := MustNewFuncTool[verdictArgs]("check_answer", "")

	_, call, err := mux.Invoke(context.Background(), "openai/gpt-4o-mini", rb.Build(), tool)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if call.Name != "check_answer" {
		t.Errorf("call name = %q", call.Name)
	}
}
