package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"

	"github.com/edvora/minerva/pkg/audio/pcm"
)

// OpenAITTS synthesizes clips with the OpenAI speech API. Voice names look
// like "openai/<voice>"; a bare "openai" uses the configured default. The
// pcm response format is always 24 kHz 16-bit mono.
type OpenAITTS struct {
	client       *openai.Client
	model        openai.SpeechModel
	voice        openai.AudioSpeechNewParamsVoice
	speed        float64
	instructions string
}

var _ Synthesizer = (*OpenAITTS)(nil)

// OpenAITTSOption configures OpenAITTS.
type OpenAITTSOption func(*OpenAITTS)

// WithOpenAIModel sets the speech model.
func WithOpenAIModel(model openai.SpeechModel) OpenAITTSOption {
	return func(h *OpenAITTS) { h.model = model }
}

// WithOpenAIVoice sets the default voice.
func WithOpenAIVoice(voice openai.AudioSpeechNewParamsVoice) OpenAITTSOption {
	return func(h *OpenAITTS) { h.voice = voice }
}

// WithOpenAISpeed sets speech speed, 0.25 to 4.0.
func WithOpenAISpeed(speed float64) OpenAITTSOption {
	return func(h *OpenAITTS) { h.speed = speed }
}

// WithOpenAIInstructions sets delivery instructions for models that accept
// them.
func WithOpenAIInstructions(instructions string) OpenAITTSOption {
	return func(h *OpenAITTS) { h.instructions = instructions }
}

// NewOpenAITTS creates an OpenAI synthesizer.
func NewOpenAITTS(client *openai.Client, opts ...OpenAITTSOption) *OpenAITTS {
	h := &OpenAITTS{
		client: client,
		model:  openai.SpeechModelGPT4oMiniTTS,
		voice:  openai.AudioSpeechNewParamsVoice("nova"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Synthesize renders one sentence as a PCM clip.
func (h *OpenAITTS) Synthesize(ctx context.Context, voice string, text string) (*Clip, error) {
	v := h.voice
	if _, name, ok := strings.Cut(voice, "/"); ok && name != "" {
		v = openai.AudioSpeechNewParamsVoice(name)
	}

	params := openai.AudioSpeechNewParams{
		Model:          h.model,
		Input:          text,
		Voice:          v,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if h.speed > 0 {
		params.Speed = param.NewOpt(h.speed)
	}
	if h.instructions != "" {
		params.Instructions = param.NewOpt(h.instructions)
	}

	resp, err := h.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("tts: openai: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: openai: read audio: %w", err)
	}
	return &Clip{
		Text:   text,
		Audio:  audio,
		Format: pcm.L16Mono24K,
	}, nil
}
